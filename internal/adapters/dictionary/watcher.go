package dictionary

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/ladcache/internal/ports"
)

// DefaultDebounceDelay is how long the watcher waits after the last change
// before reloading.
const DefaultDebounceDelay = 100 * time.Millisecond

// Watcher reloads a Dictionary when its file is written or replaced.
type Watcher struct {
	dict     *Dictionary
	logger   ports.Logger
	delay    time.Duration
	onReload func(error)

	mu       sync.Mutex
	debounce *time.Timer
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewWatcher creates a watcher for dict. A non-positive delay selects
// DefaultDebounceDelay.
func NewWatcher(dict *Dictionary, logger ports.Logger, delay time.Duration) *Watcher {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	return &Watcher{dict: dict, logger: logger, delay: delay}
}

// OnReload registers fn to run after every reload attempt. It must be set
// before Start.
func (w *Watcher) OnReload(fn func(error)) {
	w.onReload = fn
}

// Start begins watching. The file's directory is watched so editors that
// replace the file by rename are seen.
func (w *Watcher) Start(ctx context.Context) error {
	if w.dict.Path() == "" {
		return fmt.Errorf("dictionary watcher: dictionary was not loaded from a file")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("dictionary watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.dict.Path())); err != nil {
		fw.Close()
		return fmt.Errorf("dictionary watcher: %w", err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.watchLoop(watchCtx, fw)

	w.logger.Info("dictionary watcher started", ports.String("path", w.dict.Path()))
	return nil
}

// Stop ends watching and waits for the loop to exit.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()

	w.mu.Lock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.mu.Unlock()
}

func (w *Watcher) watchLoop(ctx context.Context, fw *fsnotify.Watcher) {
	defer w.wg.Done()
	defer fw.Close()

	target := filepath.Base(w.dict.Path())
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.debounceReload()

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Error("dictionary watcher error", ports.Err(err))
		}
	}
}

func (w *Watcher) debounceReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.delay, w.reload)
}

func (w *Watcher) reload() {
	err := w.dict.Reload()
	if err != nil {
		w.logger.Warn("dictionary reload failed, keeping previous definitions",
			ports.String("path", w.dict.Path()), ports.Err(err))
	} else {
		channels, events := w.dict.Size()
		w.logger.Info("dictionary reloaded",
			ports.String("path", w.dict.Path()),
			ports.Int("channels", channels),
			ports.Int("events", events))
	}
	if w.onReload != nil {
		w.onReload(err)
	}
}
