// Package watch implements the Workspace Watcher (§4.N): a filesystem
// watch loop that turns raw fsnotify events into batched
// workspace/didChangeWatchedFiles notifications. The teacher declares
// github.com/fsnotify/fsnotify in go.mod but no retrieved file exercises
// it; this package gives that dependency an actual home.
package watch

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/myleshyson/lsprotocol-go/protocol"

	"github.com/observerw/lsp-client/logger"
	"github.com/observerw/lsp-client/uri"
)

// Broadcaster is the minimal surface the watcher needs to push a batch;
// session.Session and features.Requester both satisfy it.
type Broadcaster interface {
	Broadcast(method string, params any) error
}

// DefaultDebounce coalesces bursts of filesystem events (a save often fires
// write+chmod in quick succession) into a single notification.
const DefaultDebounce = 200 * time.Millisecond

// Watcher batches raw filesystem events into LSP file-change notifications.
type Watcher struct {
	fsw         *fsnotify.Watcher
	broadcaster Broadcaster
	debounce    time.Duration

	mu      sync.Mutex
	pending map[string]protocol.FileEvent
	timer   *time.Timer
}

// New creates a Watcher over its own fsnotify.Watcher instance.
func New(broadcaster Broadcaster, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		fsw:         fsw,
		broadcaster: broadcaster,
		debounce:    debounce,
		pending:     make(map[string]protocol.FileEvent),
	}, nil
}

// Add registers a directory or file for watching. fsnotify does not watch
// subdirectories automatically; callers wanting a recursive watch must call
// Add for each directory (typically discovered via filepath.WalkDir).
func (w *Watcher) Add(path string) error {
	return w.fsw.Add(path)
}

// Remove stops watching path.
func (w *Watcher) Remove(path string) error {
	return w.fsw.Remove(path)
}

// Run drains fsnotify events until ctx is canceled, batching them into
// debounced workspace/didChangeWatchedFiles broadcasts. Intended to be
// called in its own goroutine.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.record(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) record(ev fsnotify.Event) {
	changeType, ok := translate(ev.Op)
	if !ok {
		return
	}
	fileURI := uri.FromPath(ev.Name)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[fileURI] = protocol.FileEvent{
		Uri:  protocol.DocumentUri(fileURI),
		Type: changeType,
	}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.flush)
	}
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.timer = nil
		w.mu.Unlock()
		return
	}
	changes := make([]protocol.FileEvent, 0, len(w.pending))
	for _, ev := range w.pending {
		changes = append(changes, ev)
	}
	w.pending = make(map[string]protocol.FileEvent)
	w.timer = nil
	w.mu.Unlock()

	if err := w.broadcaster.Broadcast("workspace/didChangeWatchedFiles", protocol.DidChangeWatchedFilesParams{Changes: changes}); err != nil {
		logger.Warn("failed to broadcast watched file changes", "error", err)
	}
}

// translate maps an fsnotify op to the LSP FileChangeType. An op combining
// multiple bits (rare, but fsnotify.Op is a bitmask) resolves to the
// highest-priority single type: Remove/Rename beats Write beats Create.
func translate(op fsnotify.Op) (protocol.FileChangeType, bool) {
	switch {
	case op&(fsnotify.Remove|fsnotify.Rename) != 0:
		return protocol.FileChangeTypeDeleted, true
	case op&fsnotify.Write != 0:
		return protocol.FileChangeTypeChanged, true
	case op&fsnotify.Create != 0:
		return protocol.FileChangeTypeCreated, true
	default:
		return 0, false
	}
}
