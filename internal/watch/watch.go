// Package watch triggers schema reconciliation when a store's config file
// changes, the `docstore watch` convenience wrapper around the spec's
// idempotent InitializeDocumentStore (SPEC_FULL.md §6). The watch loop's
// select-on-events-and-signals shape is grounded on the teacher's
// internal/daemon main loop, generalized from tmux/agent heartbeats to a
// single fsnotify subscription.
package watch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Logger is satisfied by *log.Logger.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Watcher watches one config file's containing directory (fsnotify doesn't
// reliably track a file across editors that write-then-rename) and invokes
// onChange whenever that file is created or written.
type Watcher struct {
	path     string
	onChange func(ctx context.Context) error
	logger   Logger
	fw       *fsnotify.Watcher
}

// New starts watching path. Call Run to process events until ctx is done.
func New(path string, onChange func(ctx context.Context) error, logger Logger) (*Watcher, error) {
	if logger == nil {
		logger = nopLogger{}
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: creating fsnotify watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch: watching %s: %w", dir, err)
	}
	return &Watcher{path: filepath.Clean(path), onChange: onChange, logger: logger, fw: fw}, nil
}

// Run processes filesystem events until ctx is cancelled or the underlying
// watcher is closed. A reload failure is logged, not fatal: the watcher
// keeps running so a subsequent fix to the file is picked up.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fw.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.logger.Printf("watch: %s changed, reconciling schema", w.path)
			if err := w.onChange(ctx); err != nil {
				w.logger.Printf("watch: reconciliation failed: %v", err)
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Printf("watch: %v", err)
		}
	}
}

// Close stops the watcher without waiting for Run to return.
func (w *Watcher) Close() error {
	return w.fw.Close()
}
