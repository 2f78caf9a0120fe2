package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const (
	lastReloadKey     = "last_reload"
	lastTrashPurgeKey = "last_trash_purge"
)

// GetMetadata retrieves a metadata value by key.
// Returns sql.ErrNoRows if the key doesn't exist.
func (d *Database) GetMetadata(ctx context.Context, key string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value string
	err := d.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetMetadata sets a metadata key-value pair.
func (d *Database) SetMetadata(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func (d *Database) getTime(ctx context.Context, key string) (time.Time, error) {
	value, err := d.GetMetadata(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, value)
}

func (d *Database) setTime(ctx context.Context, key string, t time.Time) error {
	if t.IsZero() {
		return d.SetMetadata(ctx, key, "")
	}
	return d.SetMetadata(ctx, key, t.UTC().Format(time.RFC3339))
}

// GetLastReload returns when the library was last validated against the
// filesystem. Returns zero time if never run.
func (d *Database) GetLastReload(ctx context.Context) (time.Time, error) {
	return d.getTime(ctx, lastReloadKey)
}

// SetLastReload stores the time of the last filesystem validation.
func (d *Database) SetLastReload(ctx context.Context, t time.Time) error {
	return d.setTime(ctx, lastReloadKey, t)
}

// GetLastTrashPurge returns when expired trash was last purged.
func (d *Database) GetLastTrashPurge(ctx context.Context) (time.Time, error) {
	return d.getTime(ctx, lastTrashPurgeKey)
}

// SetLastTrashPurge stores the time of the last trash purge.
func (d *Database) SetLastTrashPurge(ctx context.Context, t time.Time) error {
	return d.setTime(ctx, lastTrashPurgeKey, t)
}
