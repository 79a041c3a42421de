package markdownls

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/WaylonWalker/lspcore/pkg/lsptypes"
)

func newTestServer() *Server {
	logger := log.New(io.Discard, "", 0)
	return &Server{
		logger: logger,
		docs:   newDocumentStore(),
		index:  NewIndex(logger),
	}
}

func TestHandleHover_ResolvedWikilink(t *testing.T) {
	s := newTestServer()
	s.index.Update("file:///other.md", "# Other Post")
	s.docs.open("file:///a.md", "see [[other]] here", 1)

	hover, err := s.handleHover(context.Background(), lsptypes.HoverParams{
		TextDocument: lsptypes.TextDocumentIdentifier{URI: "file:///a.md"},
		Position:     lsptypes.Position{Line: 0, Character: 6},
	})
	if err != nil {
		t.Fatalf("handleHover: %v", err)
	}
	if hover == nil || !strings.Contains(hover.Contents.Value, "Other Post") {
		t.Fatalf("got %+v, want hover naming the resolved post", hover)
	}
}

func TestHandleHover_UnresolvedWikilink(t *testing.T) {
	s := newTestServer()
	s.docs.open("file:///a.md", "see [[missing]] here", 1)

	hover, err := s.handleHover(context.Background(), lsptypes.HoverParams{
		TextDocument: lsptypes.TextDocumentIdentifier{URI: "file:///a.md"},
		Position:     lsptypes.Position{Line: 0, Character: 6},
	})
	if err != nil {
		t.Fatalf("handleHover: %v", err)
	}
	if hover == nil || !strings.Contains(hover.Contents.Value, "Unresolved") {
		t.Fatalf("got %+v, want an unresolved-wikilink hover", hover)
	}
}

func TestHandleHover_NoDocument(t *testing.T) {
	s := newTestServer()
	hover, err := s.handleHover(context.Background(), lsptypes.HoverParams{
		TextDocument: lsptypes.TextDocumentIdentifier{URI: "file:///missing.md"},
	})
	if err != nil || hover != nil {
		t.Fatalf("got (%+v, %v), want (nil, nil) for an unknown document", hover, err)
	}
}

func TestHandleHover_OutsideAnyWikilink(t *testing.T) {
	s := newTestServer()
	s.docs.open("file:///a.md", "plain text, no links", 1)
	hover, err := s.handleHover(context.Background(), lsptypes.HoverParams{
		TextDocument: lsptypes.TextDocumentIdentifier{URI: "file:///a.md"},
		Position:     lsptypes.Position{Line: 0, Character: 2},
	})
	if err != nil || hover != nil {
		t.Fatalf("got (%+v, %v), want (nil, nil)", hover, err)
	}
}

func TestHandleCompletion_InWikilinkListsSlugs(t *testing.T) {
	s := newTestServer()
	s.index.Update("file:///a.md", "# Post A")
	s.index.Update("file:///b.md", "# Post B")
	s.docs.open("file:///c.md", "see [[", 1)

	list, err := s.handleCompletion(context.Background(), lsptypes.CompletionParams{
		TextDocument: lsptypes.TextDocumentIdentifier{URI: "file:///c.md"},
		Position:     lsptypes.Position{Line: 0, Character: 6},
	})
	if err != nil {
		t.Fatalf("handleCompletion: %v", err)
	}
	if len(list.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(list.Items))
	}
}

func TestHandleCompletion_NotInWikilinkIsEmpty(t *testing.T) {
	s := newTestServer()
	s.docs.open("file:///a.md", "plain text", 1)
	list, err := s.handleCompletion(context.Background(), lsptypes.CompletionParams{
		TextDocument: lsptypes.TextDocumentIdentifier{URI: "file:///a.md"},
		Position:     lsptypes.Position{Line: 0, Character: 5},
	})
	if err != nil {
		t.Fatalf("handleCompletion: %v", err)
	}
	if len(list.Items) != 0 {
		t.Fatalf("got %d items, want 0", len(list.Items))
	}
}

func TestHandleDefinition_ResolvedWikilink(t *testing.T) {
	s := newTestServer()
	s.index.Update("file:///other.md", "# Other Post")
	s.docs.open("file:///a.md", "see [[other]] here", 1)

	locs, err := s.handleDefinition(context.Background(), lsptypes.DefinitionParams{
		TextDocument: lsptypes.TextDocumentIdentifier{URI: "file:///a.md"},
		Position:     lsptypes.Position{Line: 0, Character: 6},
	})
	if err != nil {
		t.Fatalf("handleDefinition: %v", err)
	}
	if len(locs) != 1 || locs[0].URI != "file:///other.md" {
		t.Fatalf("got %+v, want a single location at file:///other.md", locs)
	}
}

func TestHandleDefinition_UnresolvedWikilink(t *testing.T) {
	s := newTestServer()
	s.docs.open("file:///a.md", "see [[missing]] here", 1)
	locs, err := s.handleDefinition(context.Background(), lsptypes.DefinitionParams{
		TextDocument: lsptypes.TextDocumentIdentifier{URI: "file:///a.md"},
		Position:     lsptypes.Position{Line: 0, Character: 6},
	})
	if err != nil || locs != nil {
		t.Fatalf("got (%+v, %v), want (nil, nil)", locs, err)
	}
}

func TestWikilinkAt(t *testing.T) {
	line := "see [[other]] here"
	link, ok := wikilinkAt(line, 6)
	if !ok || link.Target != "other" {
		t.Fatalf("got %+v, ok=%v", link, ok)
	}
	if _, ok := wikilinkAt(line, 0); ok {
		t.Fatal("expected no wikilink at column 0")
	}
}

func TestInWikilink(t *testing.T) {
	cases := []struct {
		line string
		col  int
		want bool
	}{
		{"see [[", 6, true},
		{"see [[partial", 10, true},
		{"see [[done]] and ", 17, false},
		{"no brackets here", 5, false},
	}
	for _, c := range cases {
		if got := inWikilink(c.line, c.col); got != c.want {
			t.Errorf("inWikilink(%q, %d) = %v, want %v", c.line, c.col, got, c.want)
		}
	}
}

func TestPublishDiagnostics_NoClientIsNoop(t *testing.T) {
	s := newTestServer()
	s.docs.open("file:///a.md", "see [[missing]]", 1)
	// Should not panic with a nil client.
	s.publishDiagnostics(context.Background(), "file:///a.md")
}
