package operator

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"album-engine/internal/logging"
	"album-engine/internal/mediatypes"
)

// ListMedia walks root and returns every media file below it in walk order.
// check runs before each entry; a non-nil result aborts the walk and is
// returned. Hidden files and directories are skipped.
func ListMedia(root string, check func() error) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if checkErr := check(); checkErr != nil {
			return checkErr
		}
		if err != nil {
			if path == root {
				return err
			}
			logging.Warn("Error accessing path %s: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && mediatypes.IsMediaFile(path) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("list %s: %w", root, err)
		}
		return nil, err
	}
	return out, nil
}
