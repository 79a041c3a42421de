package markdownls

import (
	"log"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/WaylonWalker/lspcore/pkg/lspcore"
	"github.com/WaylonWalker/lspcore/pkg/lsptypes"
)

// Watcher forwards filesystem events for markdown files under root to the
// client as workspace/didChangeWatchedFiles notifications, using the
// Client handle rather than mutating server state directly. It demonstrates
// server-initiated traffic originating outside any handler's call stack.
type Watcher struct {
	fsw    *fsnotify.Watcher
	client *lspcore.Client
	logger *log.Logger
}

// NewWatcher creates a Watcher rooted at dir. Call Run in its own
// goroutine; call Close when the server shuts down.
func NewWatcher(dir string, client *lspcore.Client, logger *log.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{fsw: fsw, client: client, logger: logger}, nil
}

// Run processes filesystem events until the watcher is closed.
func (w *Watcher) Run() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Printf("watcher error: %v", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !strings.HasSuffix(event.Name, ".md") {
		return
	}
	changeType := eventToChangeType(event.Op)
	if changeType == 0 {
		return
	}
	uri := "file://" + filepath.ToSlash(event.Name)
	w.client.Notify("workspace/didChangeWatchedFiles", lsptypes.DidChangeWatchedFilesParams{
		Changes: []lsptypes.FileEvent{{URI: uri, Type: changeType}},
	})
}

func eventToChangeType(op fsnotify.Op) int {
	switch {
	case op&fsnotify.Create != 0:
		return lsptypes.FileChangeTypeCreated
	case op&fsnotify.Write != 0:
		return lsptypes.FileChangeTypeChanged
	case op&fsnotify.Remove != 0, op&fsnotify.Rename != 0:
		return lsptypes.FileChangeTypeDeleted
	default:
		return 0
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
