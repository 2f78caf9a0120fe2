package database

import (
	"time"

	"album-engine/internal/mediatypes"
)

// LibraryStats summarizes what the database holds.
type LibraryStats struct {
	TotalImages int       `json:"totalImages"`
	Pictures    int       `json:"pictures"`
	Videos      int       `json:"videos"`
	Albums      int       `json:"albums"`
	TrashItems  int       `json:"trashItems"`
	LastReload  time.Time `json:"lastReload"`
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// imageColumns is the column list shared by every image read. The order
// matches scanImage.
const imageColumns = `path, name, dir, capture_time, change_time, import_time, file_type, size, width, height, mime_type`

func scanImage(s rowScanner) (mediatypes.ImageRecord, error) {
	var rec mediatypes.ImageRecord
	var capture, change, imported int64
	var kind int
	err := s.Scan(&rec.Path, &rec.Name, &rec.Dir, &capture, &change, &imported,
		&kind, &rec.Size, &rec.Width, &rec.Height, &rec.MimeType)
	if err != nil {
		return rec, err
	}
	rec.CaptureTime = fromUnix(capture)
	rec.ChangeTime = fromUnix(change)
	rec.ImportTime = fromUnix(imported)
	rec.Kind = mediatypes.ItemKind(kind)
	return rec, nil
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0)
}
