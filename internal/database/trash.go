package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"album-engine/internal/mediatypes"
	"album-engine/internal/metrics"
)

const trashColumns = `original_path, trash_path, name, dir, capture_time, change_time, import_time, file_type, size, width, height, mime_type, deleted_at`

func scanTrash(s rowScanner) (mediatypes.TrashEntry, error) {
	var e mediatypes.TrashEntry
	var capture, change, imported, deleted int64
	var kind int
	err := s.Scan(&e.OriginalPath, &e.TrashPath, &e.Record.Name, &e.Record.Dir,
		&capture, &change, &imported, &kind,
		&e.Record.Size, &e.Record.Width, &e.Record.Height, &e.Record.MimeType, &deleted)
	if err != nil {
		return e, err
	}
	e.Record.Path = e.OriginalPath
	e.Record.CaptureTime = fromUnix(capture)
	e.Record.ChangeTime = fromUnix(change)
	e.Record.ImportTime = fromUnix(imported)
	e.Record.Kind = mediatypes.ItemKind(kind)
	e.DeletedAt = fromUnix(deleted)
	return e, nil
}

// MoveToTrash records entries in the trash table and deletes their image
// rows. Entries whose Record is mostly empty are filled from the current
// image row.
func (d *Database) MoveToTrash(ctx context.Context, entries []mediatypes.TrashEntry) error {
	if len(entries) == 0 {
		return nil
	}

	err := d.withBatch(ctx, "move_to_trash", func(tx *sql.Tx) error {
		for _, e := range entries {
			rec := e.Record
			if stored, err := scanImage(tx.QueryRowContext(ctx,
				`SELECT `+imageColumns+` FROM images WHERE path = ?`, e.OriginalPath)); err == nil {
				rec = mediatypes.Merge(stored, rec)
			} else if !errors.Is(err, sql.ErrNoRows) {
				return err
			}
			if rec.Name == "" {
				rec = mediatypes.Merge(mediatypes.NewRecord(e.OriginalPath), rec)
			}

			deletedAt := e.DeletedAt
			if deletedAt.IsZero() {
				deletedAt = time.Now()
			}

			if _, err := tx.ExecContext(ctx, `
				INSERT INTO trash (`+trashColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(original_path) DO UPDATE SET
					trash_path = excluded.trash_path,
					deleted_at = excluded.deleted_at`,
				e.OriginalPath, e.TrashPath, rec.Name, rec.Dir,
				toUnix(rec.CaptureTime), toUnix(rec.ChangeTime), toUnix(rec.ImportTime),
				int(rec.Kind), rec.Size, rec.Width, rec.Height, rec.MimeType,
				deletedAt.Unix(),
			); err != nil {
				return err
			}

			if _, err := deleteImagesTx(ctx, tx, []any{e.OriginalPath}, "?"); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		metrics.DBRowsAffected.WithLabelValues("move_to_trash").Observe(float64(len(entries)))
	}
	return err
}

// TrashEntries returns the trash rows for the given original paths, or every
// trash row when paths is empty. Unknown paths are skipped.
func (d *Database) TrashEntries(ctx context.Context, paths []string) (out []mediatypes.TrashEntry, err error) {
	start := time.Now()
	defer func() { recordQuery("trash_entries", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	collect := func(query string, args ...any) error {
		rows, err := d.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			e, err := scanTrash(rows)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	}

	if len(paths) == 0 {
		err = collect(`SELECT ` + trashColumns + ` FROM trash ORDER BY deleted_at DESC, original_path`)
		return out, err
	}

	err = chunked(paths, func(args []any, marks string) error {
		return collect(`SELECT `+trashColumns+` FROM trash WHERE original_path IN (`+marks+`)`, args...)
	})
	return out, err
}

// TrashEntriesByTrashPath returns the trash rows whose trash file is one of paths.
func (d *Database) TrashEntriesByTrashPath(ctx context.Context, paths []string) ([]mediatypes.TrashEntry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []mediatypes.TrashEntry
	err := chunked(paths, func(args []any, marks string) error {
		rows, err := d.db.QueryContext(ctx, `SELECT `+trashColumns+` FROM trash WHERE trash_path IN (`+marks+`)`, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			e, err := scanTrash(rows)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	})
	return out, err
}

// RestoreFromTrash puts entry's record back into the images table and drops
// its trash row.
func (d *Database) RestoreFromTrash(ctx context.Context, entry mediatypes.TrashEntry) error {
	return d.withBatch(ctx, "restore_from_trash", func(tx *sql.Tx) error {
		rec := entry.Record
		rec.Path = entry.OriginalPath
		if err := upsertImage(ctx, tx, rec); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM trash WHERE original_path = ?`, entry.OriginalPath)
		return err
	})
}

// DeleteTrashEntries removes trash rows by original path.
func (d *Database) DeleteTrashEntries(ctx context.Context, paths []string) (int64, error) {
	if len(paths) == 0 {
		return 0, nil
	}

	var deleted int64
	err := d.withBatch(ctx, "delete_trash_entries", func(tx *sql.Tx) error {
		return chunked(paths, func(args []any, marks string) error {
			res, err := tx.ExecContext(ctx, `DELETE FROM trash WHERE original_path IN (`+marks+`)`, args...)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			deleted += n
			return err
		})
	})
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		metrics.DBRowsAffected.WithLabelValues("delete_trash_entries").Observe(float64(deleted))
	}
	return deleted, nil
}

// ExpiredTrash returns trash rows deleted before the cutoff.
func (d *Database) ExpiredTrash(ctx context.Context, before time.Time) (out []mediatypes.TrashEntry, err error) {
	start := time.Now()
	defer func() { recordQuery("expired_trash", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.QueryContext(ctx,
		`SELECT `+trashColumns+` FROM trash WHERE deleted_at < ? ORDER BY deleted_at`, before.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		e, scanErr := scanTrash(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
