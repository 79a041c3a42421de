// Package markdownls is a small concrete language server built on top of
// pkg/lspcore: it indexes [[wikilinks]] and "!!! admonition" blocks across
// the markdown documents a client has opened, and offers hover,
// completion, go-to-definition, and diagnostics for them. It exists to
// demonstrate pkg/lspcore end to end; it is not part of the reusable
// framework itself.
package markdownls

import (
	"context"
	"log"

	"github.com/WaylonWalker/lspcore/pkg/lspcore"
	"github.com/WaylonWalker/lspcore/pkg/lsptypes"
)

// Server holds markdownls's handler state: the open-document store and
// the wikilink/admonition index built from it.
type Server struct {
	logger *log.Logger
	docs   *documentStore
	index  *Index
	client *lspcore.Client
}

// New builds a markdownls Server and a Router with every handler
// registered, ready to hand to lspcore.NewService.
func New(logger *log.Logger) (*Server, *lspcore.Router) {
	s := &Server{
		logger: logger,
		docs:   newDocumentStore(),
		index:  NewIndex(logger),
	}
	router := lspcore.NewRouter()

	lspcore.Request(router, "initialize", s.handleInitialize)
	lspcore.Notification(router, "initialized", s.handleInitialized)
	lspcore.Request(router, "shutdown", s.handleShutdown)

	lspcore.Notification(router, "textDocument/didOpen", s.handleDidOpen)
	lspcore.Notification(router, "textDocument/didChange", s.handleDidChange)
	lspcore.Notification(router, "textDocument/didClose", s.handleDidClose)
	lspcore.Notification(router, "textDocument/didSave", s.handleDidSave)

	lspcore.Request(router, "textDocument/hover", s.handleHover)
	lspcore.Request(router, "textDocument/completion", s.handleCompletion)
	lspcore.Request(router, "textDocument/definition", s.handleDefinition)

	lspcore.Notification(router, "workspace/didChangeWatchedFiles", s.handleDidChangeWatchedFiles)

	return s, router
}

// AttachClient wires the Client handle produced by lspcore.NewService back
// into the Server so handlers can push diagnostics and log messages.
func (s *Server) AttachClient(c *lspcore.Client) {
	s.client = c
}

type emptyParams struct{}

func (s *Server) handleInitialize(ctx context.Context, params lsptypes.InitializeParams) (lsptypes.InitializeResult, error) {
	return lsptypes.InitializeResult{
		Capabilities: lsptypes.ServerCapabilities{
			TextDocumentSync: &lsptypes.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    lsptypes.TextDocumentSyncKindFull,
			},
			HoverProvider: true,
			CompletionProvider: &lsptypes.CompletionOptions{
				TriggerCharacters: []string{"[", "!", "?"},
			},
			DefinitionProvider: true,
		},
		ServerInfo: &lsptypes.ServerInfo{Name: "markdownls", Version: "0.1.0"},
	}, nil
}

func (s *Server) handleInitialized(ctx context.Context, params emptyParams) error {
	s.logger.Println("initialized")
	return nil
}

func (s *Server) handleShutdown(ctx context.Context, params emptyParams) (interface{}, error) {
	return nil, nil
}

func (s *Server) handleDidOpen(ctx context.Context, params lsptypes.DidOpenTextDocumentParams) error {
	s.docs.open(params.TextDocument.URI, params.TextDocument.Text, params.TextDocument.Version)
	s.index.Update(params.TextDocument.URI, params.TextDocument.Text)
	s.publishDiagnostics(ctx, params.TextDocument.URI)
	return nil
}

func (s *Server) handleDidChange(ctx context.Context, params lsptypes.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	// Only full-document sync is advertised, so the last change event
	// carries the complete new text.
	text := params.ContentChanges[len(params.ContentChanges)-1].Text
	s.docs.update(params.TextDocument.URI, text, params.TextDocument.Version)
	s.index.Update(params.TextDocument.URI, text)
	s.publishDiagnostics(ctx, params.TextDocument.URI)
	return nil
}

func (s *Server) handleDidClose(ctx context.Context, params lsptypes.DidCloseTextDocumentParams) error {
	s.docs.close(params.TextDocument.URI)
	s.index.Remove(params.TextDocument.URI)
	return nil
}

func (s *Server) handleDidSave(ctx context.Context, params lsptypes.DidSaveTextDocumentParams) error {
	return nil
}

func (s *Server) handleDidChangeWatchedFiles(ctx context.Context, params lsptypes.DidChangeWatchedFilesParams) error {
	for _, ev := range params.Changes {
		if ev.Type == lsptypes.FileChangeTypeDeleted {
			s.index.Remove(ev.URI)
		}
	}
	return nil
}
