package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 500*time.Millisecond {
		t.Errorf("MaxBackoff = %v, want 500ms", config.MaxBackoff)
	}
	if config.VolumeResolver != nil {
		t.Error("VolumeResolver should be nil by default")
	}
}

func TestIsNFSStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "ESTALE error", err: syscall.ESTALE, want: true},
		{name: "wrapped ESTALE", err: &os.PathError{Op: "stat", Path: "/x", Err: syscall.ESTALE}, want: true},
		{name: "ENOENT error", err: syscall.ENOENT, want: false},
		{name: "generic error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNFSStaleError(tt.err); got != tt.want {
				t.Errorf("isNFSStaleError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestVolumeResolver(t *testing.T) {
	vr := NewVolumeResolver(map[string]string{
		"library": "/data/pictures",
		"trash":   "/data/pictures/.trash",
		"mount":   "/media/user",
	})

	tests := []struct {
		path string
		want string
	}{
		{"/data/pictures/a.jpg", "library"},
		{"/data/pictures/.trash/a.jpg", "trash"},
		{"/data/pictures", "library"},
		{"/media/user/usb/DCIM/b.jpg", "mount"},
		{"/data/picturesque/c.jpg", "unknown"},
		{"/etc/passwd", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := vr.Resolve(tt.path); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestVolumeResolverNil(t *testing.T) {
	var vr *VolumeResolver
	if got := vr.Resolve("/anything"); got != "unknown" {
		t.Errorf("nil resolver = %q, want unknown", got)
	}
}

type recordingObserver struct {
	ops     []string
	errors  int
	retries []RetryEvent
}

func (r *recordingObserver) ObserveOperation(_, operation string, _ float64, err error) {
	r.ops = append(r.ops, operation)
	if err != nil {
		r.errors++
	}
}

func (r *recordingObserver) ObserveRetry(ev RetryEvent, _, _ string) {
	r.retries = append(r.retries, ev)
}

func TestStatWithRetry(t *testing.T) {
	obs := &recordingObserver{}
	SetObserver(obs)
	defer SetObserver(nil)

	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := StatWithRetry(path, DefaultRetryConfig())
	if err != nil {
		t.Fatalf("StatWithRetry() error = %v", err)
	}
	if info.Size() != 1 {
		t.Errorf("Size = %d, want 1", info.Size())
	}

	_, err = StatWithRetry(filepath.Join(dir, "missing"), DefaultRetryConfig())
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}

	if len(obs.ops) != 2 || obs.ops[0] != "stat" {
		t.Errorf("observed ops = %v, want two stat operations", obs.ops)
	}
	if obs.errors != 1 {
		t.Errorf("observed errors = %d, want 1", obs.errors)
	}
}

func TestWithRetryRecoversFromStale(t *testing.T) {
	config := RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}

	calls := 0
	got, err := withRetry("stat", "/x", config, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, syscall.ESTALE
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("withRetry() error = %v", err)
	}
	if got != 42 || calls != 3 {
		t.Errorf("got %d after %d calls, want 42 after 3", got, calls)
	}
}

func TestWithRetryGivesUp(t *testing.T) {
	obs := &recordingObserver{}
	SetObserver(obs)
	defer SetObserver(nil)
	config := RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

	calls := 0
	_, err := withRetry("stat", "/x", config, func() (int, error) {
		calls++
		return 0, syscall.ESTALE
	})
	if !errors.Is(err, syscall.ESTALE) {
		t.Errorf("expected ESTALE, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	want := []RetryEvent{RetryStale, RetryAttempt, RetryStale, RetryAttempt, RetryStale, RetryExhausted}
	if len(obs.retries) != len(want) {
		t.Fatalf("retry events = %v, want %v", obs.retries, want)
	}
	for i := range want {
		if obs.retries[i] != want[i] {
			t.Errorf("retry event %d = %v, want %v", i, obs.retries[i], want[i])
		}
	}
}
