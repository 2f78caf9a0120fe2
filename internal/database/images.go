package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"album-engine/internal/mediatypes"
	"album-engine/internal/metrics"
)

// maxParams keeps IN lists under SQLite's host parameter limit.
const maxParams = 500

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// chunked calls fn with successive slices of at most maxParams paths.
func chunked(paths []string, fn func(args []any, marks string) error) error {
	for start := 0; start < len(paths); start += maxParams {
		end := min(start+maxParams, len(paths))
		args := make([]any, 0, end-start)
		for _, p := range paths[start:end] {
			args = append(args, p)
		}
		if err := fn(args, placeholders(end-start)); err != nil {
			return err
		}
	}
	return nil
}

const upsertImageQuery = `
	INSERT INTO images (path, name, dir, capture_time, change_time, import_time, file_type, size, width, height, mime_type)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(path) DO UPDATE SET
		name = excluded.name,
		dir = excluded.dir,
		capture_time = CASE WHEN excluded.capture_time != 0 THEN excluded.capture_time ELSE images.capture_time END,
		change_time = CASE WHEN excluded.change_time != 0 THEN excluded.change_time ELSE images.change_time END,
		import_time = CASE WHEN excluded.import_time != 0 THEN excluded.import_time ELSE images.import_time END,
		file_type = CASE WHEN excluded.file_type != 0 THEN excluded.file_type ELSE images.file_type END,
		size = CASE WHEN excluded.size != 0 THEN excluded.size ELSE images.size END,
		width = CASE WHEN excluded.width != 0 THEN excluded.width ELSE images.width END,
		height = CASE WHEN excluded.height != 0 THEN excluded.height ELSE images.height END,
		mime_type = CASE WHEN excluded.mime_type != '' THEN excluded.mime_type ELSE images.mime_type END
`

func upsertImage(ctx context.Context, tx *sql.Tx, rec mediatypes.ImageRecord) error {
	_, err := tx.ExecContext(ctx, upsertImageQuery,
		rec.Path, rec.Name, rec.Dir,
		toUnix(rec.CaptureTime), toUnix(rec.ChangeTime), toUnix(rec.ImportTime),
		int(rec.Kind), rec.Size, rec.Width, rec.Height, rec.MimeType,
	)
	return err
}

// InsertImages upserts records and, when album is non-empty, adds them to
// the album. Fields left zero keep the stored value. All rows are written in
// one transaction.
func (d *Database) InsertImages(ctx context.Context, records []mediatypes.ImageRecord, album string, uid int) error {
	if len(records) == 0 {
		return nil
	}

	err := d.withBatch(ctx, "insert_images", func(tx *sql.Tx) error {
		for _, rec := range records {
			if err := upsertImage(ctx, tx, rec); err != nil {
				return fmt.Errorf("insert %s: %w", rec.Path, err)
			}
			if album == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO album_images (album, uid, path) VALUES (?, ?, ?)
				 ON CONFLICT(album, path) DO UPDATE SET uid = excluded.uid`,
				album, uid, rec.Path,
			); err != nil {
				return fmt.Errorf("add %s to album %s: %w", rec.Path, album, err)
			}
		}
		return nil
	})
	if err == nil {
		metrics.DBRowsAffected.WithLabelValues("insert_images").Observe(float64(len(records)))
	}
	return err
}

// ScanRecent streams the n most recent images by capture time, newest first.
// Iteration stops at the first error returned by fn.
func (d *Database) ScanRecent(ctx context.Context, n int, fn func(mediatypes.ImageRecord) error) (err error) {
	start := time.Now()
	defer func() { recordQuery("scan_recent", start, err) }()

	if n <= 0 {
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.QueryContext(ctx,
		`SELECT `+imageColumns+` FROM images ORDER BY capture_time DESC, path ASC LIMIT ?`, n)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		rec, scanErr := scanImage(rows)
		if scanErr != nil {
			return scanErr
		}
		if err = fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// RecentImages returns the n most recent images by capture time.
func (d *Database) RecentImages(ctx context.Context, n int) ([]mediatypes.ImageRecord, error) {
	out := make([]mediatypes.ImageRecord, 0, n)
	err := d.ScanRecent(ctx, n, func(rec mediatypes.ImageRecord) error {
		out = append(out, rec)
		return nil
	})
	return out, err
}

// AllImages returns every image row.
func (d *Database) AllImages(ctx context.Context) (out []mediatypes.ImageRecord, err error) {
	start := time.Now()
	defer func() { recordQuery("all_images", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.QueryContext(ctx, `SELECT `+imageColumns+` FROM images ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		rec, scanErr := scanImage(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetImage returns the row for path, or sql.ErrNoRows.
func (d *Database) GetImage(ctx context.Context, path string) (mediatypes.ImageRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return scanImage(d.db.QueryRowContext(ctx, `SELECT `+imageColumns+` FROM images WHERE path = ?`, path))
}

// DeleteImages removes the rows and album membership for paths and returns
// how many image rows were deleted.
func (d *Database) DeleteImages(ctx context.Context, paths []string) (int64, error) {
	if len(paths) == 0 {
		return 0, nil
	}

	var deleted int64
	err := d.withBatch(ctx, "delete_images", func(tx *sql.Tx) error {
		return chunked(paths, func(args []any, marks string) error {
			n, err := deleteImagesTx(ctx, tx, args, marks)
			deleted += n
			return err
		})
	})
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		metrics.DBRowsAffected.WithLabelValues("delete_images").Observe(float64(deleted))
	}
	return deleted, nil
}

func deleteImagesTx(ctx context.Context, tx *sql.Tx, args []any, marks string) (int64, error) {
	if _, err := tx.ExecContext(ctx, `DELETE FROM album_images WHERE path IN (`+marks+`)`, args...); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM images WHERE path IN (`+marks+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// AlbumImages returns the paths in album, newest capture first.
func (d *Database) AlbumImages(ctx context.Context, album string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.QueryContext(ctx, `
		SELECT a.path FROM album_images a
		LEFT JOIN images i ON i.path = a.path
		WHERE a.album = ?
		ORDER BY COALESCE(i.capture_time, 0) DESC, a.path`, album)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CalculateStats counts rows in each table.
func (d *Database) CalculateStats(ctx context.Context) (LibraryStats, error) {
	var stats LibraryStats
	stats.LastReload, _ = d.GetLastReload(ctx)

	d.mu.RLock()
	defer d.mu.RUnlock()

	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM images", &stats.TotalImages},
		{fmt.Sprintf("SELECT COUNT(*) FROM images WHERE file_type = %d", mediatypes.KindPicture), &stats.Pictures},
		{fmt.Sprintf("SELECT COUNT(*) FROM images WHERE file_type = %d", mediatypes.KindVideo), &stats.Videos},
		{"SELECT COUNT(DISTINCT album) FROM album_images", &stats.Albums},
		{"SELECT COUNT(*) FROM trash", &stats.TrashItems},
	}

	for _, q := range queries {
		if err := d.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return stats, err
		}
	}

	return stats, nil
}
