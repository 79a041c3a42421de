package markdownls

import (
	"context"
	"fmt"

	"github.com/WaylonWalker/lspcore/pkg/lsptypes"
)

func (s *Server) handleHover(ctx context.Context, params lsptypes.HoverParams) (*lsptypes.Hover, error) {
	doc, ok := s.docs.get(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	line := doc.lineAt(params.Position.Line)
	col := params.Position.Character

	if admCtx, inCtx := getAdmonitionContext(line, col); inCtx {
		if adType := getAdmonitionType(admCtx.TypePrefix); adType != nil {
			usage := s.index.AdmonitionUsage()[adType.Name]
			return &lsptypes.Hover{
				Contents: lsptypes.MarkupContent{
					Kind:  lsptypes.MarkupKindMarkdown,
					Value: formatAdmonitionDocumentation(adType, admCtx.Collapsible, admCtx.DefaultOpen, usage),
				},
			}, nil
		}
	}

	if link, ok := wikilinkAt(line, col); ok {
		if post, found := s.index.Resolve(link.Target); found {
			return &lsptypes.Hover{
				Contents: lsptypes.MarkupContent{
					Kind:  lsptypes.MarkupKindMarkdown,
					Value: fmt.Sprintf("**%s**\n\n%s", post.Title, post.URI),
				},
			}, nil
		}
		return &lsptypes.Hover{
			Contents: lsptypes.MarkupContent{
				Kind:  lsptypes.MarkupKindMarkdown,
				Value: fmt.Sprintf("*Unresolved wikilink: %s*", link.Target),
			},
		}, nil
	}

	return nil, nil
}

func (s *Server) handleCompletion(ctx context.Context, params lsptypes.CompletionParams) (*lsptypes.CompletionList, error) {
	doc, ok := s.docs.get(params.TextDocument.URI)
	if !ok {
		return &lsptypes.CompletionList{}, nil
	}
	line := doc.lineAt(params.Position.Line)
	col := params.Position.Character

	if admCtx, inCtx := getAdmonitionContext(line, col); inCtx {
		return &lsptypes.CompletionList{Items: getAdmonitionCompletions(admCtx, params, s.index.AdmonitionUsage())}, nil
	}

	if inWikilink(line, col) {
		items := make([]lsptypes.CompletionItem, 0)
		for _, post := range s.index.AllSlugs() {
			items = append(items, lsptypes.CompletionItem{
				Label:  post.Slug,
				Kind:   lsptypes.CompletionItemKindFile,
				Detail: post.Title,
			})
		}
		return &lsptypes.CompletionList{Items: items}, nil
	}

	return &lsptypes.CompletionList{}, nil
}

func (s *Server) handleDefinition(ctx context.Context, params lsptypes.DefinitionParams) ([]lsptypes.Location, error) {
	doc, ok := s.docs.get(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	line := doc.lineAt(params.Position.Line)
	link, ok := wikilinkAt(line, params.Position.Character)
	if !ok {
		return nil, nil
	}
	post, found := s.index.Resolve(link.Target)
	if !found {
		return nil, nil
	}
	return []lsptypes.Location{{
		URI: post.URI,
		Range: lsptypes.Range{
			Start: lsptypes.Position{Line: 0, Character: 0},
			End:   lsptypes.Position{Line: 0, Character: 0},
		},
	}}, nil
}

// publishDiagnostics scans a document for wikilinks that resolve to no
// indexed post and reports them as warnings, mirroring the teacher's
// broken-wikilink diagnostics feature.
func (s *Server) publishDiagnostics(ctx context.Context, uri string) {
	if s.client == nil {
		return
	}
	doc, ok := s.docs.get(uri)
	if !ok {
		return
	}
	links := findWikilinks(doc.Content)
	diagnostics := make([]interface{}, 0, len(links))
	for _, link := range links {
		if _, found := s.index.Resolve(link.Target); found {
			continue
		}
		diagnostics = append(diagnostics, lsptypes.Diagnostic{
			Range: lsptypes.Range{
				Start: lsptypes.Position{Line: link.Line, Character: link.StartChar},
				End:   lsptypes.Position{Line: link.Line, Character: link.EndChar},
			},
			Severity: lsptypes.DiagnosticSeverityWarning,
			Source:   "markdownls",
			Message:  fmt.Sprintf("unresolved wikilink: %s", link.Target),
		})
	}
	s.client.PublishDiagnostics(uri, nil, diagnostics)
}

// wikilinkAt finds the wikilink (if any) whose span contains col on line.
func wikilinkAt(line string, col int) (Wikilink, bool) {
	for _, link := range findWikilinks(line) {
		if col >= link.StartChar && col <= link.EndChar {
			return link, true
		}
	}
	return Wikilink{}, false
}

// inWikilink reports whether col sits just after an opening "[[" with no
// closing "]]" yet on the line, the trigger position for slug completion.
func inWikilink(line string, col int) bool {
	if col > len(line) {
		col = len(line)
	}
	before := line[:col]
	openIdx := -1
	for i := len(before) - 2; i >= 0; i-- {
		if before[i] == '[' && before[i+1] == '[' {
			openIdx = i
			break
		}
		if before[i] == ']' {
			break
		}
	}
	return openIdx >= 0
}
