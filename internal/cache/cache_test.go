package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/starford/albumen/internal/apperr"
	"github.com/starford/albumen/internal/models"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestReplaceAndListComments(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	err := db.ReplaceComments(ctx, []models.Comment{
		{ID: "c1", Author: "Ann", Text: "old", ImageFilename: "a.jpg", Timestamp: "2024-01-01T00:00:00.000Z"},
		{ID: "c2", Author: "Bob", Text: "new", ImageFilename: "b.jpg", Timestamp: "2024-02-01T00:00:00.000Z"},
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := db.Comments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "c2" || got[1].ID != "c1" {
		t.Fatalf("Comments = %+v, want newest first", got)
	}

	if err := db.ReplaceComments(ctx, []models.Comment{{ID: "c3", Timestamp: "2024-03-01T00:00:00.000Z"}}); err != nil {
		t.Fatal(err)
	}
	got, _ = db.Comments(ctx)
	if len(got) != 1 || got[0].ID != "c3" {
		t.Errorf("replace should drop old rows, got %+v", got)
	}
}

func TestAppendComment(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	c := models.Comment{ID: "c1", Author: "Ann", Text: "first", ImageFilename: "a.jpg"}
	if err := db.AppendComment(ctx, c); err != nil {
		t.Fatal(err)
	}
	c.Text = "edited"
	if err := db.AppendComment(ctx, c); err != nil {
		t.Fatal(err)
	}
	got, _ := db.Comments(ctx)
	if len(got) != 1 || got[0].Text != "edited" {
		t.Errorf("Comments = %+v", got)
	}
}

func TestCollectionsAreSeparate(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	_ = db.ReplaceMessages(ctx, []models.Message{{ID: "x", Text: "message"}})
	_ = db.ReplaceComments(ctx, []models.Comment{{ID: "x", Text: "comment"}})

	msgs, err := db.Messages(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Text != "message" {
		t.Errorf("Messages = %+v", msgs)
	}
}

func TestPrefs(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	if _, err := db.GetPref(ctx, UsernameKey); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing pref err = %v", err)
	}
	if err := db.SetPref(ctx, UsernameKey, "Alice"); err != nil {
		t.Fatal(err)
	}
	_ = db.SetPref(ctx, UsernameKey, "Alicia")
	v, err := db.GetPref(ctx, UsernameKey)
	if err != nil || v != "Alicia" {
		t.Errorf("GetPref = %q, %v", v, err)
	}
}
