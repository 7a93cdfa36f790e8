package cache

import (
	"context"
	"fmt"

	"github.com/starford/albumen/internal/models"
)

const (
	collMessages = "messages"
	collComments = "comments"
)

type row struct {
	id, author, text, image, ts string
}

// ReplaceComments swaps the cached comment set for comments.
func (db *DB) ReplaceComments(ctx context.Context, comments []models.Comment) error {
	rows := make([]row, len(comments))
	for i, c := range comments {
		rows[i] = row{c.ID, c.Author, c.Text, c.ImageFilename, c.Timestamp}
	}
	return db.replace(ctx, collComments, rows)
}

// AppendComment adds or overwrites one cached comment.
func (db *DB) AppendComment(ctx context.Context, c models.Comment) error {
	return db.upsert(ctx, collComments, row{c.ID, c.Author, c.Text, c.ImageFilename, c.Timestamp})
}

// Comments returns every cached comment, newest first.
func (db *DB) Comments(ctx context.Context) ([]models.Comment, error) {
	rows, err := db.list(ctx, collComments)
	if err != nil {
		return nil, err
	}
	out := make([]models.Comment, len(rows))
	for i, r := range rows {
		out[i] = models.Comment{ID: r.id, Author: r.author, Text: r.text, ImageFilename: r.image, Timestamp: r.ts}
	}
	return out, nil
}

// ReplaceMessages swaps the cached message set for messages.
func (db *DB) ReplaceMessages(ctx context.Context, messages []models.Message) error {
	rows := make([]row, len(messages))
	for i, m := range messages {
		rows[i] = row{m.ID, m.Author, m.Text, m.ImageFilename, m.Timestamp}
	}
	return db.replace(ctx, collMessages, rows)
}

// Messages returns every cached message, newest first. References are not
// stored.
func (db *DB) Messages(ctx context.Context) ([]models.Message, error) {
	rows, err := db.list(ctx, collMessages)
	if err != nil {
		return nil, err
	}
	out := make([]models.Message, len(rows))
	for i, r := range rows {
		out[i] = models.Message{ID: r.id, Author: r.author, Text: r.text, ImageFilename: r.image, Timestamp: r.ts}
	}
	return out, nil
}

func (db *DB) replace(ctx context.Context, coll string, rows []row) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cache: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, coll); err != nil {
		return fmt.Errorf("cache: clear %s: %w", coll, err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO records (collection, id, author, text, image_filename, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("cache: prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, coll, r.id, r.author, r.text, r.image, r.ts); err != nil {
			return fmt.Errorf("cache: insert %s %s: %w", coll, r.id, err)
		}
	}
	return tx.Commit()
}

func (db *DB) upsert(ctx context.Context, coll string, r row) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO records (collection, id, author, text, image_filename, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			author         = excluded.author,
			text           = excluded.text,
			image_filename = excluded.image_filename,
			timestamp      = excluded.timestamp
	`, coll, r.id, r.author, r.text, r.image, r.ts)
	if err != nil {
		return fmt.Errorf("cache: upsert %s %s: %w", coll, r.id, err)
	}
	return nil
}

func (db *DB) list(ctx context.Context, coll string) ([]row, error) {
	rs, err := db.conn.QueryContext(ctx, `
		SELECT id, author, text, image_filename, timestamp
		FROM records WHERE collection = ?
		ORDER BY timestamp DESC, id DESC`, coll)
	if err != nil {
		return nil, fmt.Errorf("cache: list %s: %w", coll, err)
	}
	defer rs.Close()

	var out []row
	for rs.Next() {
		var r row
		if err := rs.Scan(&r.id, &r.author, &r.text, &r.image, &r.ts); err != nil {
			return nil, fmt.Errorf("cache: scan %s: %w", coll, err)
		}
		out = append(out, r)
	}
	return out, rs.Err()
}
