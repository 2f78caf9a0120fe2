package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func writeFile(t *testing.T, path string, perm os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("content"), perm); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, perm); err != nil {
		t.Fatal(err)
	}
}

func TestWritableAndExists(t *testing.T) {
	dir := t.TempDir()
	rw := filepath.Join(dir, "rw.jpg")
	ro := filepath.Join(dir, "ro.jpg")
	missing := filepath.Join(dir, "missing.jpg")
	writeFile(t, rw, 0o644)
	writeFile(t, ro, 0o444)

	tests := []struct {
		path     string
		writable bool
		exists   bool
	}{
		{rw, true, true},
		{ro, false, true},
		{missing, false, false},
	}
	for _, tt := range tests {
		t.Run(filepath.Base(tt.path), func(t *testing.T) {
			if got := Writable(tt.path); got != tt.writable {
				t.Errorf("Writable = %v, want %v", got, tt.writable)
			}
			if got := Exists(tt.path); got != tt.exists {
				t.Errorf("Exists = %v, want %v", got, tt.exists)
			}
		})
	}
}

func TestFilterTrashable(t *testing.T) {
	dir := t.TempDir()
	rw := filepath.Join(dir, "rw.jpg")
	ro := filepath.Join(dir, "ro.jpg")
	missing := filepath.Join(dir, "missing.jpg")
	writeFile(t, rw, 0o644)
	writeFile(t, ro, 0o444)

	got := FilterTrashable([]string{rw, ro, missing})
	want := []string{rw, missing}
	if !slices.Equal(got, want) {
		t.Errorf("FilterTrashable = %v, want %v", got, want)
	}

	if got := FilterTrashable([]string{ro}); len(got) != 0 {
		t.Errorf("FilterTrashable(read-only) = %v, want empty", got)
	}
}

func TestMove(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a", "photo.jpg")
	dst := filepath.Join(dir, "b", "nested", "photo.jpg")
	writeFile(t, src, 0o644)

	if err := Move(src, dst); err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if Exists(src) {
		t.Error("source still exists after move")
	}
	if !Exists(dst) {
		t.Error("destination missing after move")
	}

	writeFile(t, src, 0o644)
	if err := Move(src, dst); !errors.Is(err, ErrExists) {
		t.Errorf("Move onto existing file: got %v, want ErrExists", err)
	}
	if !Exists(src) {
		t.Error("source removed after failed move")
	}
}

func TestCopyPreservesModTime(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "out", "dst.jpg")
	writeFile(t, src, 0o644)

	mtime := time.Date(2020, 5, 17, 10, 0, 0, 0, time.UTC)
	if err := os.Chtimes(src, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	if err := Copy(src, dst); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(mtime) {
		t.Errorf("ModTime = %v, want %v", info.ModTime(), mtime)
	}
	if !Exists(src) {
		t.Error("Copy removed the source")
	}

	if err := Copy(src, dst); !errors.Is(err, ErrExists) {
		t.Errorf("second Copy: got %v, want ErrExists", err)
	}
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.jpg")
	writeFile(t, path, 0o644)

	if err := Remove(path); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := Remove(path); err != nil {
		t.Errorf("Remove(missing) error = %v, want nil", err)
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()

	first := UniquePath(dir, "img.jpg")
	if first != filepath.Join(dir, "img.jpg") {
		t.Errorf("first = %s", first)
	}
	writeFile(t, first, 0o644)

	second := UniquePath(dir, "img.jpg")
	if second != filepath.Join(dir, "img(1).jpg") {
		t.Errorf("second = %s, want img(1).jpg", second)
	}
}
