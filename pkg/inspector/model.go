// Package inspector is an interactive terminal UI that tails a trace log
// of framed JSON-RPC traffic captured by pkg/lspcore's transport, built on
// the same bubbletea/bubbles/lipgloss/glamour stack and Model/View/Mode
// split the teacher's pkg/tui package uses for its post browser.
package inspector

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// View selects which pane of the inspector has focus.
type View string

const (
	ViewList   View = "list"
	ViewDetail View = "detail"
)

// Entry is one line of a captured trace: a single framed JSON-RPC message
// along with the direction it travelled and when it was captured.
type Entry struct {
	Time      time.Time       `json:"time"`
	Direction string          `json:"direction"` // "in" or "out"
	Method    string          `json:"method,omitempty"`
	ID        string          `json:"id,omitempty"`
	Body      json.RawMessage `json:"body"`
}

// Model is the bubbletea model for the trace inspector.
type Model struct {
	path   string
	offset int64

	entries []Entry
	table   table.Model
	view    View
	width   int
	height  int
	err     error

	renderer *glamour.TermRenderer
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// New builds an inspector Model tailing the trace file at path.
func New(path string) *Model {
	columns := []table.Column{
		{Title: "Time", Width: 12},
		{Title: "Dir", Width: 4},
		{Title: "Method", Width: 32},
		{Title: "ID", Width: 8},
	}
	t := table.New(table.WithColumns(columns), table.WithFocused(true))
	renderer, _ := glamour.NewTermRenderer(glamour.WithAutoStyle())
	return &Model{path: path, table: t, view: ViewList, renderer: renderer}
}

// Init starts the initial read and the polling loop.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.pollCmd(), tick())
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type newEntriesMsg struct {
	entries []Entry
	offset  int64
	err     error
}

// pollCmd reads any trace lines appended since the last poll.
func (m *Model) pollCmd() tea.Cmd {
	path, offset := m.path, m.offset
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return newEntriesMsg{err: err}
		}
		defer f.Close()

		if _, err := f.Seek(offset, 0); err != nil {
			return newEntriesMsg{err: err}
		}

		var entries []Entry
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		var read int64
		for scanner.Scan() {
			line := scanner.Bytes()
			read += int64(len(line)) + 1
			var e Entry
			if err := json.Unmarshal(line, &e); err != nil {
				continue
			}
			entries = append(entries, e)
		}
		return newEntriesMsg{entries: entries, offset: offset + read}
	}
}

// Update handles bubbletea messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetHeight(msg.Height - 6)
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.pollCmd(), tick())

	case newEntriesMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.offset = msg.offset
		if len(msg.entries) > 0 {
			m.entries = append(m.entries, msg.entries...)
			m.table.SetRows(m.rows())
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "enter":
			if m.view == ViewList {
				m.view = ViewDetail
			} else {
				m.view = ViewList
			}
			return m, nil
		case "esc":
			m.view = ViewList
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) rows() []table.Row {
	rows := make([]table.Row, 0, len(m.entries))
	for _, e := range m.entries {
		rows = append(rows, table.Row{
			e.Time.Format("15:04:05.000"),
			e.Direction,
			e.Method,
			e.ID,
		})
	}
	return rows
}

// View renders the current pane.
func (m *Model) View() string {
	if m.err != nil {
		return errStyle.Render(fmt.Sprintf("trace error: %v", m.err))
	}

	header := headerStyle.Render("lspcore trace inspector — q to quit, enter to expand")
	if m.view == ViewList {
		return fmt.Sprintf("%s\n\n%s", header, m.table.View())
	}
	return fmt.Sprintf("%s\n\n%s", header, m.selectedDetail())
}

func (m *Model) selectedDetail() string {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.entries) {
		return "(no entry selected)"
	}
	entry := m.entries[idx]
	pretty, err := json.MarshalIndent(entry.Body, "", "  ")
	if err != nil {
		pretty = entry.Body
	}
	md := fmt.Sprintf("```json\n%s\n```", pretty)
	if m.renderer != nil {
		if rendered, err := m.renderer.Render(md); err == nil {
			return rendered
		}
	}
	return string(pretty)
}
