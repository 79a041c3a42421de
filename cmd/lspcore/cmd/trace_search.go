package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Work with captured JSON-RPC traces",
}

var traceSearchCmd = &cobra.Command{
	Use:   "search <trace-file>",
	Short: "Fuzzy-search a JSON-lines trace captured via the trace_file config setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runTraceSearch,
}

func init() {
	traceCmd.AddCommand(traceSearchCmd)
}

// traceLine is the subset of pkg/inspector.Entry's fields trace search
// needs to render a fuzzy-finder row and preview; the two types are
// declared independently since this command reads a file rather than
// importing the inspector package's bubbletea model.
type traceLine struct {
	Time      string          `json:"time"`
	Direction string          `json:"direction"`
	Method    string          `json:"method,omitempty"`
	ID        string          `json:"id,omitempty"`
	Body      json.RawMessage `json:"body"`
}

func runTraceSearch(_ *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open trace file: %w", err)
	}
	defer f.Close()

	var lines []traceLine
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var l traceLine
		if err := json.Unmarshal(scanner.Bytes(), &l); err != nil {
			continue
		}
		lines = append(lines, l)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read trace file: %w", err)
	}
	if len(lines) == 0 {
		fmt.Println("no entries in trace file")
		return nil
	}

	idx, err := fuzzyfinder.Find(
		lines,
		func(i int) string {
			return fmt.Sprintf("%s %-4s %s %s", lines[i].Time, lines[i].Direction, lines[i].Method, lines[i].ID)
		},
		fuzzyfinder.WithPreviewWindow(func(i, _, _ int) string {
			if i < 0 {
				return ""
			}
			pretty, err := json.MarshalIndent(lines[i].Body, "", "  ")
			if err != nil {
				return string(lines[i].Body)
			}
			return string(pretty)
		}),
	)
	if err != nil {
		if err == fuzzyfinder.ErrAbort {
			return nil
		}
		return fmt.Errorf("fuzzyfinder: %w", err)
	}

	pretty, err := json.MarshalIndent(lines[idx].Body, "", "  ")
	if err != nil {
		pretty = lines[idx].Body
	}
	fmt.Println(string(pretty))
	return nil
}
