package operator

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"album-engine/internal/mediatypes"
)

type fakeSource struct {
	records []mediatypes.ImageRecord
	err     error
	// When set, every row after the first waits for a value on gate.
	gate    chan struct{}
	started chan struct{}
}

func (f *fakeSource) ScanRecent(ctx context.Context, n int, fn func(mediatypes.ImageRecord) error) error {
	if f.err != nil {
		return f.err
	}
	for i, rec := range f.records {
		if i >= n {
			break
		}
		if i == 1 && f.gate != nil {
			close(f.started)
			<-f.gate
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func records(n int) []mediatypes.ImageRecord {
	out := make([]mediatypes.ImageRecord, n)
	for i := range out {
		out[i] = mediatypes.NewRecord(filepath.Join("/lib", string(rune('a'+i))+".jpg"))
	}
	return out
}

func newTestOperator(t *testing.T, src PageSource, opts ...Option) (*Operator, chan Reply) {
	t.Helper()
	replies := make(chan Reply, 32)
	op := New(src, func(r Reply) { replies <- r }, opts...)
	t.Cleanup(op.Stop)
	return op, replies
}

func next(t *testing.T, replies <-chan Reply) Reply {
	t.Helper()
	select {
	case r := <-replies:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reply")
		return nil
	}
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 6, 3))); err != nil {
		t.Fatal(err)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	op, replies := newTestOperator(t, &fakeSource{records: records(1)})
	if op.Started() {
		t.Fatal("operator started before Start")
	}
	op.Start()
	op.Start()
	if !op.Started() {
		t.Fatal("Started() = false after Start")
	}

	op.LoadPage(1)
	if p := next(t, replies).(PageLoaded); len(p.Records) != 1 {
		t.Errorf("got %d records, want 1", len(p.Records))
	}
	select {
	case r := <-replies:
		t.Errorf("unexpected extra reply %#v: a second Start must not add a worker", r)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRequestsQueuedBeforeStartRun(t *testing.T) {
	op, replies := newTestOperator(t, &fakeSource{records: records(2)})
	op.LoadPage(2)
	if op.Queued() != 1 {
		t.Errorf("Queued() = %d, want 1", op.Queued())
	}
	op.Start()
	if p := next(t, replies).(PageLoaded); len(p.Records) != 2 {
		t.Errorf("got %d records, want 2", len(p.Records))
	}
}

func TestLoadPageShorterThanRequested(t *testing.T) {
	op, replies := newTestOperator(t, &fakeSource{records: records(3)})
	op.Start()
	op.LoadPage(5)

	p := next(t, replies).(PageLoaded)
	if p.Err != nil {
		t.Fatalf("Err = %v", p.Err)
	}
	if p.Size != 5 || len(p.Records) != 3 {
		t.Errorf("Size = %d, records = %d, want 5 and 3", p.Size, len(p.Records))
	}
}

func TestLoadPageError(t *testing.T) {
	dbErr := errors.New("database is locked")
	op, replies := newTestOperator(t, &fakeSource{err: dbErr})
	op.Start()
	op.LoadPage(5)

	p := next(t, replies).(PageLoaded)
	if !errors.Is(p.Err, dbErr) {
		t.Errorf("Err = %v, want wrapped %v", p.Err, dbErr)
	}
	if len(p.Records) != 0 {
		t.Errorf("failed load returned %d records", len(p.Records))
	}
}

func TestRequestStopAbortsRunningLoad(t *testing.T) {
	src := &fakeSource{records: records(4), gate: make(chan struct{}), started: make(chan struct{})}
	op, replies := newTestOperator(t, src)
	op.Start()
	op.LoadPage(4)
	op.LoadPage(1)

	<-src.started
	if !op.Running() {
		t.Error("Running() = false mid-request")
	}
	op.RequestStop()
	close(src.gate)

	stopped := next(t, replies).(PageLoaded)
	if !errors.Is(stopped.Err, ErrStopped) {
		t.Errorf("Err = %v, want ErrStopped", stopped.Err)
	}
	if len(stopped.Records) != 0 {
		t.Errorf("stopped load leaked %d partial records", len(stopped.Records))
	}

	// The stop only applies to the request that was running.
	after := next(t, replies).(PageLoaded)
	if after.Err != nil || len(after.Records) != 1 {
		t.Errorf("queued load after stop: records=%d err=%v", len(after.Records), after.Err)
	}
}

func TestFIFOOrder(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"))

	var rotated []string
	op, replies := newTestOperator(t, &fakeSource{records: records(1)},
		WithRotator(func(path string, degrees int) error {
			rotated = append(rotated, path)
			return nil
		}))
	op.Start()

	op.Rotate(filepath.Join(dir, "a.png"), 90)
	op.LoadMountList(dir)
	op.LoadPage(1)

	if _, ok := next(t, replies).(Rotated); !ok {
		t.Error("first reply should be the rotation")
	}
	if _, ok := next(t, replies).(MountListed); !ok {
		t.Error("second reply should be the mount listing")
	}
	if _, ok := next(t, replies).(PageLoaded); !ok {
		t.Error("third reply should be the page load")
	}
	if len(rotated) != 1 {
		t.Errorf("rotator called %d times, want 1", len(rotated))
	}
}

func TestRotateReprobesRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.png")
	writePNG(t, path)

	op, replies := newTestOperator(t, &fakeSource{})
	op.Start()
	op.Rotate(path, 90)

	r := next(t, replies).(Rotated)
	if r.Err != nil {
		t.Fatalf("Err = %v", r.Err)
	}
	if r.Record.Width != 3 || r.Record.Height != 6 {
		t.Errorf("rotated dims = %dx%d, want 3x6", r.Record.Width, r.Record.Height)
	}
}

func TestRotateFailure(t *testing.T) {
	op, replies := newTestOperator(t, &fakeSource{},
		WithRotator(func(string, int) error { return os.ErrPermission }))
	op.Start()
	op.Rotate("/lib/ro.jpg", 180)

	if r := next(t, replies).(Rotated); !errors.Is(r.Err, os.ErrPermission) {
		t.Errorf("Err = %v, want permission error", r.Err)
	}
}

func TestLoadMountList(t *testing.T) {
	mount := t.TempDir()
	writePNG(t, filepath.Join(mount, "DCIM", "1.png"))
	writePNG(t, filepath.Join(mount, ".trashes", "2.png"))
	if err := os.WriteFile(filepath.Join(mount, "readme.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	op, replies := newTestOperator(t, &fakeSource{})
	op.Start()
	op.LoadMountList(mount)

	m := next(t, replies).(MountListed)
	if m.Err != nil {
		t.Fatalf("Err = %v", m.Err)
	}
	if len(m.Paths) != 1 || m.Paths[0] != filepath.Join(mount, "DCIM", "1.png") {
		t.Errorf("Paths = %v", m.Paths)
	}
}

func TestLoadMountListMissing(t *testing.T) {
	op, replies := newTestOperator(t, &fakeSource{})
	op.Start()
	op.LoadMountList(filepath.Join(t.TempDir(), "gone"))

	if m := next(t, replies).(MountListed); !errors.Is(m.Err, os.ErrNotExist) {
		t.Errorf("Err = %v, want not-exist", m.Err)
	}
}

func TestUnmountAbortsQueuedScan(t *testing.T) {
	mount := t.TempDir()
	writePNG(t, filepath.Join(mount, "1.png"))

	src := &fakeSource{records: records(2), gate: make(chan struct{}), started: make(chan struct{})}
	op, replies := newTestOperator(t, src)
	op.Start()

	op.LoadPage(2)
	<-src.started
	op.LoadMountList(mount)
	op.DeviceUnmounted(mount)
	close(src.gate)

	if p := next(t, replies).(PageLoaded); p.Err != nil {
		t.Fatalf("page load: %v", p.Err)
	}
	if m := next(t, replies).(MountListed); !errors.Is(m.Err, ErrUnmounted) {
		t.Errorf("scan of unmounted device: Err = %v, want ErrUnmounted", m.Err)
	}
	if u := next(t, replies).(Unmounted); u.Mount != mount {
		t.Errorf("Unmounted.Mount = %s, want %s", u.Mount, mount)
	}

	// Finalizing clears the flag, so a remount can be scanned again.
	op.LoadMountList(mount)
	if m := next(t, replies).(MountListed); m.Err != nil || len(m.Paths) != 1 {
		t.Errorf("rescan after unmount: %+v", m)
	}
}

func TestStopDropsQueued(t *testing.T) {
	src := &fakeSource{records: records(2), gate: make(chan struct{}), started: make(chan struct{})}
	op, replies := newTestOperator(t, src)
	op.Start()
	op.LoadPage(2)
	op.LoadPage(2)
	op.LoadPage(2)
	<-src.started

	stopped := make(chan struct{})
	go func() {
		op.Stop()
		close(stopped)
	}()
	close(src.gate)
	<-stopped

	if p := next(t, replies).(PageLoaded); !errors.Is(p.Err, ErrStopped) {
		t.Errorf("running load Err = %v, want ErrStopped", p.Err)
	}
	if len(replies) != 0 {
		t.Errorf("%d queued requests ran after Stop", len(replies))
	}
	if op.LoadPage(1) {
		t.Error("LoadPage accepted after Stop")
	}
}
