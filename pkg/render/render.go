// Package render converts Markdown hover and documentation content down
// to plain text for LSP clients whose hoverProvider capabilities don't
// advertise "markdown" in contentFormat. It parses with the goldmark
// extensions configured in md below (GFM tables, footnotes, emoji
// shortcodes and others; no admonition extension) but walks the
// resulting AST into text instead of HTML.
package render

import (
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	emoji "github.com/yuin/goldmark-emoji"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	figure "github.com/mangoumbrella/goldmark-figure"
	"go.abhg.dev/goldmark/anchor"
)

// bufferPool reuses strings.Builder-backed buffers across renders, the
// same sync.Pool-for-buffer-reuse idiom the teacher's markdown renderer
// uses to keep GC pressure down across many small renders.
var bufferPool = sync.Pool{
	New: func() interface{} {
		return &strings.Builder{}
	},
}

// md is the shared parser configuration. Only extensions that affect how
// source is parsed into an AST matter here (highlighting's HTML output
// options are irrelevant to a plain-text render, so they are omitted).
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Table,
		extension.Strikethrough,
		extension.TaskList,
		extension.Footnote,
		extension.DefinitionList,
		extension.NewCJK(),
		highlighting.NewHighlighting(),
		figure.Figure,
		&anchor.Extender{},
		emoji.Emoji,
	),
)

// ToPlainText renders Markdown source to plain text: headings, lists, and
// emphasis are flattened to readable plain text with blank-line
// paragraph breaks; code blocks are preserved verbatim.
func ToPlainText(source []byte) (string, error) {
	doc := md.Parser().Parse(text.NewReader(source))

	sb := bufferPool.Get().(*strings.Builder)
	sb.Reset()
	defer bufferPool.Put(sb)

	w := &walker{source: source, sb: sb}
	if err := ast.Walk(doc, w.visit); err != nil {
		return "", err
	}
	return strings.TrimSpace(sb.String()), nil
}

type walker struct {
	source []byte
	sb     *strings.Builder
}

func (w *walker) visit(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Text:
		if entering {
			w.sb.Write(node.Segment.Value(w.source))
			if node.HardLineBreak() || node.SoftLineBreak() {
				w.sb.WriteByte('\n')
			}
		}
	case *ast.String:
		if entering {
			w.sb.Write(node.Value)
		}
	case *ast.CodeSpan:
		if entering {
			w.sb.WriteByte('`')
		} else {
			w.sb.WriteByte('`')
		}
	case *ast.FencedCodeBlock:
		if entering {
			writeCodeBlockLines(w.sb, node, w.source)
			return ast.WalkSkipChildren, nil
		}
	case *ast.CodeBlock:
		if entering {
			writeCodeBlockLines(w.sb, node, w.source)
			return ast.WalkSkipChildren, nil
		}
	case *ast.Heading:
		if !entering {
			w.sb.WriteString("\n\n")
		}
	case *ast.Paragraph:
		if !entering {
			w.sb.WriteString("\n\n")
		}
	case *ast.ListItem:
		if entering {
			w.sb.WriteString("- ")
		}
	}
	return ast.WalkContinue, nil
}

func writeCodeBlockLines(sb *strings.Builder, node ast.Node, source []byte) {
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		sb.Write(line.Value(source))
	}
	sb.WriteString("\n")
}

// SupportsMarkdown reports whether any of the given content formats
// indicates markdown support, the check handler code uses to decide
// whether to call ToPlainText before populating a Hover or
// CompletionItem's documentation.
func SupportsMarkdown(formats []string) bool {
	for _, f := range formats {
		if f == "markdown" {
			return true
		}
	}
	return false
}
