package mount

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu        sync.Mutex
	mounted   []string
	unmounted []string
	changed   chan struct{}
}

func newRecorder() *recorder {
	return &recorder{changed: make(chan struct{}, 64)}
}

func (r *recorder) LoadMountList(m string) bool {
	r.mu.Lock()
	r.mounted = append(r.mounted, m)
	r.mu.Unlock()
	r.changed <- struct{}{}
	return true
}

func (r *recorder) DeviceUnmounted(m string) bool {
	r.mu.Lock()
	r.unmounted = append(r.unmounted, m)
	r.mu.Unlock()
	r.changed <- struct{}{}
	return true
}

func (r *recorder) snapshot() ([]string, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.mounted...), append([]string(nil), r.unmounted...)
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.changed:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for mount change")
	}
}

func startWatcher(t *testing.T, root string, depth int, debounce time.Duration, r *recorder) *Watcher {
	t.Helper()
	w, err := New(root, depth, r)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	w.SetDebounceTime(debounce)

	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		cancel()
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		cancel()
		w.Wait()
	})
	return w
}

func TestLevel(t *testing.T) {
	w := &Watcher{root: "/media", depth: 2}
	tests := []struct {
		path string
		want int
	}{
		{"/media", 0},
		{"/media/alice", 1},
		{"/media/alice/CARD", 2},
		{"/media/alice/CARD/DCIM", 3},
		{"/elsewhere", 0},
	}
	for _, tt := range tests {
		if got := w.level(tt.path); got != tt.want {
			t.Errorf("level(%q) = %d, want %d", tt.path, got, tt.want)
		}
	}
}

func TestExistingMountsAnnouncedOnStart(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"CARD", "PHONE", ".hidden"} {
		if err := os.Mkdir(filepath.Join(root, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	r := newRecorder()
	w := startWatcher(t, root, 1, 20*time.Millisecond, r)

	want := []string{filepath.Join(root, "CARD"), filepath.Join(root, "PHONE")}
	if got := w.Mounts(); !reflect.DeepEqual(got, want) {
		t.Errorf("Mounts() = %v, want %v", got, want)
	}
	mounted, _ := r.snapshot()
	if len(mounted) != 2 {
		t.Errorf("announced %v, want 2 mounts", mounted)
	}
}

func TestMountAndUnmount(t *testing.T) {
	root := t.TempDir()
	r := newRecorder()
	w := startWatcher(t, root, 1, 20*time.Millisecond, r)

	card := filepath.Join(root, "CARD")
	if err := os.Mkdir(card, 0o755); err != nil {
		t.Fatal(err)
	}
	r.wait(t)

	mounted, _ := r.snapshot()
	if len(mounted) != 1 || mounted[0] != card {
		t.Fatalf("mounted = %v, want [%s]", mounted, card)
	}

	if err := os.Remove(card); err != nil {
		t.Fatal(err)
	}
	r.wait(t)

	_, unmounted := r.snapshot()
	if len(unmounted) != 1 || unmounted[0] != card {
		t.Errorf("unmounted = %v, want [%s]", unmounted, card)
	}
	if len(w.Mounts()) != 0 {
		t.Errorf("Mounts() = %v after removal", w.Mounts())
	}
}

func TestNestedMountDepth(t *testing.T) {
	root := t.TempDir()
	r := newRecorder()
	w := startWatcher(t, root, 2, 20*time.Millisecond, r)

	user := filepath.Join(root, "alice")
	if err := os.Mkdir(user, 0o755); err != nil {
		t.Fatal(err)
	}
	// Give the watcher a moment to add the new user directory.
	time.Sleep(50 * time.Millisecond)

	card := filepath.Join(user, "CARD")
	if err := os.Mkdir(card, 0o755); err != nil {
		t.Fatal(err)
	}
	r.wait(t)

	if got := w.Mounts(); len(got) != 1 || got[0] != card {
		t.Errorf("Mounts() = %v, want [%s]", got, card)
	}
}

func TestShortLivedDirectoryNotAnnounced(t *testing.T) {
	root := t.TempDir()
	r := newRecorder()
	startWatcher(t, root, 1, time.Second, r)

	tmp := filepath.Join(root, "tmp")
	if err := os.Mkdir(tmp, 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := os.Remove(tmp); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	mounted, unmounted := r.snapshot()
	if len(mounted) != 0 || len(unmounted) != 0 {
		t.Errorf("mounted=%v unmounted=%v, want nothing for a directory that vanished before debounce", mounted, unmounted)
	}
}
