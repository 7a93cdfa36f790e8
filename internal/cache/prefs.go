package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/albumen/internal/apperr"
)

// UsernameKey stores the display name used to prefill comment forms.
const UsernameKey = "archive_username"

// GetPref returns the value stored under key, or apperr.ErrNotFound.
func (db *DB) GetPref(ctx context.Context, key string) (string, error) {
	var v string
	err := db.conn.QueryRowContext(ctx, `SELECT value FROM prefs WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("pref %q: %w", key, apperr.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("cache: get pref: %w", err)
	}
	return v, nil
}

// SetPref stores value under key, replacing any previous value.
func (db *DB) SetPref(ctx context.Context, key, value string) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO prefs (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("cache: set pref: %w", err)
	}
	return nil
}
