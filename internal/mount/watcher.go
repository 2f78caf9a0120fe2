// Package mount watches the directory removable devices are mounted under
// and tells the engine when one appears or goes away.
package mount

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"album-engine/internal/logging"
	"album-engine/internal/metrics"
)

// DefaultDebounce is how long a new mount point must stay put before it is
// announced, giving the mount time to complete.
const DefaultDebounce = 500 * time.Millisecond

// Handler receives mount changes. The engine satisfies it.
type Handler interface {
	LoadMountList(mount string) bool
	DeviceUnmounted(mount string) bool
}

// Watcher follows mount points a fixed number of levels below a root, for
// example /media/<device> (depth 1) or /media/<user>/<device> (depth 2).
type Watcher struct {
	root     string
	depth    int
	handler  Handler
	debounce time.Duration

	fw *fsnotify.Watcher

	mu      sync.Mutex
	mounts  map[string]bool
	pending map[string]time.Time

	wg  sync.WaitGroup
	log *logging.Logger
}

// New returns a watcher for mounts depth levels below root.
func New(root string, depth int, h Handler) (*Watcher, error) {
	if depth < 1 {
		depth = 1
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.MountWatcherErrors.Inc()
		return nil, fmt.Errorf("failed to create mount watcher: %w", err)
	}
	return &Watcher{
		root:     filepath.Clean(root),
		depth:    depth,
		handler:  h,
		debounce: DefaultDebounce,
		fw:       fw,
		mounts:   make(map[string]bool),
		pending:  make(map[string]time.Time),
		log:      logging.For("mount"),
	}, nil
}

// SetDebounceTime sets how long a new mount point must exist before it is
// announced.
func (w *Watcher) SetDebounceTime(d time.Duration) {
	w.debounce = d
}

// Start announces the mounts already present and watches for changes until
// ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addLevel(w.root, 0, true); err != nil {
		return err
	}

	w.wg.Add(2)
	go w.processEvents(ctx)
	go w.processPending(ctx)
	return nil
}

// Wait blocks until the watcher goroutines exit after ctx is done.
func (w *Watcher) Wait() {
	w.wg.Wait()
}

// Mounts returns the mount points currently known, sorted.
func (w *Watcher) Mounts() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.mounts))
	for m := range w.mounts {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

func (w *Watcher) level(path string) int {
	rel, err := filepath.Rel(w.root, filepath.Clean(path))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return 0
	}
	return len(strings.Split(rel, string(filepath.Separator)))
}

// addLevel watches dir (at the given level) and everything above mount depth
// below it. Directories at mount depth are mounts: announced immediately when
// now is set, otherwise after the debounce.
func (w *Watcher) addLevel(dir string, level int, now bool) error {
	if level == w.depth {
		if now {
			w.announce(dir)
		} else {
			w.schedule(dir)
		}
		return nil
	}

	if err := w.fw.Add(dir); err != nil {
		metrics.MountWatcherErrors.Inc()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		metrics.MountWatcherErrors.Inc()
		return fmt.Errorf("failed to read %s: %w", dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if err := w.addLevel(filepath.Join(dir, e.Name()), level+1, now); err != nil {
			w.log.Warn("%v", err)
		}
	}
	return nil
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()
	defer w.fw.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error: %v", err)
			metrics.MountWatcherErrors.Inc()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	lvl := w.level(event.Name)
	if lvl == 0 || lvl > w.depth || strings.HasPrefix(filepath.Base(event.Name), ".") {
		return
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		info, err := os.Stat(event.Name)
		if err != nil || !info.IsDir() {
			return
		}
		if err := w.addLevel(event.Name, lvl, false); err != nil {
			w.log.Warn("%v", err)
		}

	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.removeUnder(event.Name)
	}
}

// removeUnder forgets every mount at or below path and reports each as
// unmounted.
func (w *Watcher) removeUnder(path string) {
	prefix := path + string(filepath.Separator)

	w.mu.Lock()
	var gone []string
	for m := range w.mounts {
		if m == path || strings.HasPrefix(m, prefix) {
			delete(w.mounts, m)
			gone = append(gone, m)
		}
	}
	for p := range w.pending {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(w.pending, p)
		}
	}
	w.mu.Unlock()

	sort.Strings(gone)
	for _, m := range gone {
		metrics.MountEventsTotal.WithLabelValues("unmount").Inc()
		w.log.Info("device removed: %s", m)
		w.handler.DeviceUnmounted(m)
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.mounts[path] {
		w.pending[path] = time.Now()
	}
}

func (w *Watcher) announce(path string) {
	w.mu.Lock()
	if w.mounts[path] {
		w.mu.Unlock()
		return
	}
	w.mounts[path] = true
	w.mu.Unlock()

	metrics.MountEventsTotal.WithLabelValues("mount").Inc()
	w.log.Info("device mounted: %s", path)
	w.handler.LoadMountList(path)
}

func (w *Watcher) processPending(ctx context.Context) {
	defer w.wg.Done()

	interval := w.debounce / 5
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.checkPending()
		}
	}
}

func (w *Watcher) checkPending() {
	now := time.Now()
	var ready []string

	w.mu.Lock()
	for path, addedAt := range w.pending {
		if now.Sub(addedAt) < w.debounce {
			continue
		}
		delete(w.pending, path)
		ready = append(ready, path)
	}
	w.mu.Unlock()

	sort.Strings(ready)
	for _, path := range ready {
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			continue
		}
		w.announce(path)
	}
}
