package internal

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	tt "github.com/gnolang/tverify/internal/types"
)

const defaultDebounce = 100 * time.Millisecond

// ReportFunc receives the reports of a re-verified file.
type ReportFunc func(filename string, reports []tt.Report)

// Watcher re-verifies source files as they change.
type Watcher struct {
	engine   *Engine
	watcher  *fsnotify.Watcher
	dirs     []string
	onReport ReportFunc
	logger   *zap.Logger
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

func NewWatcher(engine *Engine, dirs []string, onReport ReportFunc) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("error creating watcher: %w", err)
	}
	return &Watcher{
		engine:   engine,
		watcher:  fw,
		dirs:     dirs,
		onReport: onReport,
		logger:   engine.logger,
		debounce: defaultDebounce,
		pending:  make(map[string]*time.Timer),
	}, nil
}

// Watch blocks until ctx is done, re-verifying every changed .go or .gno
// file under the watched directories.
func (w *Watcher) Watch(ctx context.Context) error {
	defer w.watcher.Close()

	for _, dir := range w.dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return w.watcher.Add(path)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("error adding directory to watcher: %w", err)
		}
	}
	w.logger.Info("watching", zap.Strings("dirs", w.dirs))

	for {
		select {
		case <-ctx.Done():
			w.stopPending()
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleFileEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleFileEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if !hasSourceExtension(event.Name) {
		return
	}

	// editors write a file in several steps; verify once they settle
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[event.Name]; ok {
		timer.Reset(w.debounce)
		return
	}
	name := event.Name
	w.pending[name] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, name)
		w.mu.Unlock()
		w.verify(ctx, name)
	})
}

func (w *Watcher) verify(ctx context.Context, filename string) {
	if ctx.Err() != nil {
		return
	}
	reports, err := w.engine.Run(ctx, filename)
	if err != nil {
		w.logger.Error("error verifying file", zap.String("file", filename), zap.Error(err))
		return
	}
	w.onReport(filename, reports)
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for name, timer := range w.pending {
		timer.Stop()
		delete(w.pending, name)
	}
}

var sourceExtensions = map[string]bool{
	".go":  true,
	".gno": true,
}

func hasSourceExtension(path string) bool {
	return sourceExtensions[filepath.Ext(path)]
}
