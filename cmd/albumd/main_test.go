package main

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"album-engine/internal/handlers"
	"album-engine/internal/startup"
	"album-engine/internal/workers"
)

func setEnv(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("LIBRARY_DIR", filepath.Join(root, "library"))
	t.Setenv("IMPORT_DIR", "")
	t.Setenv("TRASH_DIR", filepath.Join(root, "trash"))
	t.Setenv("CACHE_DIR", filepath.Join(root, "cache"))
	t.Setenv("DATABASE_DIR", filepath.Join(root, "db"))
	t.Setenv("MOUNT_ROOT", filepath.Join(root, "media"))
	t.Setenv("MOUNT_DEPTH", "")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv(workers.OverrideEnv, "2")
	t.Setenv("POOL_IDLE_TIMEOUT", "")
	t.Setenv("PAGE_SIZE", "")
	t.Setenv("TRASH_RETENTION", "")
	return root
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandTree(t *testing.T) {
	root := newRootCmd()
	want := []string{"serve", "import", "import-mount", "trash", "recover", "purge",
		"remove", "reload", "page", "rotate", "list-mount", "version"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "albumd "+startup.Version) {
		t.Errorf("version output = %q", out)
	}
}

func TestInvalidLogLevel(t *testing.T) {
	if _, err := run(t, "--log-level", "loud", "version"); err == nil {
		t.Error("unknown log level accepted")
	}
}

func TestImportPageTrashRecover(t *testing.T) {
	root := setEnv(t)
	src := filepath.Join(root, "incoming", "beach.png")
	writePNG(t, src, 6, 3)

	out, err := run(t, "import", "--album", "Summer", filepath.Dir(src))
	if err != nil {
		t.Fatalf("import: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Imported 1 files") {
		t.Errorf("import output = %q", out)
	}

	out, err = run(t, "page", "--count", "5")
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if !strings.Contains(out, src) || !strings.Contains(out, "6x3") {
		t.Errorf("page output = %q", out)
	}

	out, err = run(t, "trash", src)
	if err != nil || !strings.Contains(out, "Moved 1 files") {
		t.Fatalf("trash: %v %q", err, out)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("file still in place after trash")
	}

	out, err = run(t, "recover", src)
	if err != nil || !strings.Contains(out, "Restored 1 files") {
		t.Fatalf("recover: %v %q", err, out)
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("file not restored: %v", err)
	}
}

func TestRotateCommand(t *testing.T) {
	root := setEnv(t)
	src := filepath.Join(root, "library", "wide.png")
	writePNG(t, src, 8, 2)

	if _, err := run(t, "rotate", "--degrees", "45", src); err == nil {
		t.Error("rotation by 45 degrees accepted")
	}

	out, err := run(t, "rotate", src)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if !strings.Contains(out, "now 2x8") {
		t.Errorf("rotate output = %q", out)
	}
}

func TestListMount(t *testing.T) {
	root := setEnv(t)
	card := filepath.Join(root, "media", "CARD")
	writePNG(t, filepath.Join(card, "DCIM", "a.png"), 2, 2)
	if err := os.WriteFile(filepath.Join(card, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "list-mount", card)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Fields(out)
	if len(lines) != 1 || !strings.HasSuffix(lines[0], "a.png") {
		t.Errorf("list-mount output = %q", out)
	}
}

func TestEmptyTrashIsRejected(t *testing.T) {
	root := setEnv(t)
	ro := filepath.Join(root, "library", "ro.png")
	writePNG(t, ro, 2, 2)
	if err := os.Chmod(ro, 0o444); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, "trash", ro); err == nil {
		t.Error("trash of only read-only files succeeded")
	}
}

func TestSetupRouter(t *testing.T) {
	routes, err := startup.GetRoutes(setupRouter(&handlers.Handlers{}))
	if err != nil {
		t.Fatal(err)
	}
	have := make(map[string]bool)
	for _, r := range routes {
		have[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{"GET /metrics", "GET /healthz", "GET /api/stats", "POST /api/trash", "POST /api/rotate"} {
		if !have[want] {
			t.Errorf("route %s not registered", want)
		}
	}
}
