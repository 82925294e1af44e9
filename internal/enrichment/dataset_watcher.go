package enrichment

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"conservatory/internal/logging"
)

// DatasetWatcher hot-reloads the species dataset when the file changes on
// disk. It watches the parent directory so editors that replace the file via
// rename (vim, atomic writers) are still seen.
type DatasetWatcher struct {
	dataset *Dataset
	watcher *fsnotify.Watcher
	log     *logging.Logger

	mu          sync.Mutex
	pendingAt   time.Time
	debounceDur time.Duration

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewDatasetWatcher creates a watcher for the dataset's file path.
func NewDatasetWatcher(dataset *Dataset) (*DatasetWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &DatasetWatcher{
		dataset:     dataset,
		watcher:     watcher,
		log:         logging.Get(logging.CategoryLibrary),
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the watcher runs until Stop or until
// ctx is cancelled.
func (w *DatasetWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.dataset.path)
	if err := w.watcher.Add(dir); err != nil {
		w.log.Warn("dataset watch failed for %s: %v", dir, err)
	} else {
		w.log.Info("watching species dataset: %s", w.dataset.path)
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the loop to exit.
func (w *DatasetWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	if err := w.watcher.Close(); err != nil {
		w.log.Error("error closing dataset watcher: %v", err)
	}
}

func (w *DatasetWatcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("dataset watcher error: %v", err)

		case <-ticker.C:
			w.reloadIfSettled()
		}
	}
}

func (w *DatasetWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.dataset.path) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	w.mu.Lock()
	w.pendingAt = time.Now()
	w.mu.Unlock()
}

// reloadIfSettled reloads once changes have been quiet past the debounce
// window, so a burst of editor writes triggers one reload.
func (w *DatasetWatcher) reloadIfSettled() {
	w.mu.Lock()
	settled := !w.pendingAt.IsZero() && time.Since(w.pendingAt) >= w.debounceDur
	if settled {
		w.pendingAt = time.Time{}
	}
	w.mu.Unlock()
	if !settled {
		return
	}

	if err := w.dataset.Reload(); err != nil {
		w.log.Error("dataset reload failed: %v", err)
		return
	}
	w.log.Info("species dataset reloaded: %d entries", w.dataset.Len())
}
