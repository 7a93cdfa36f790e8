// Package testutil provides shared test helpers for catalogs, caches and a
// fake record store.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/albumen/internal/cache"
	"github.com/starford/albumen/internal/catalog"
)

// TestCache creates a temporary SQLite cache that is automatically cleaned up.
func TestCache(t *testing.T) *cache.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "albumen-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := cache.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// SampleCatalogJSON is a small catalog used across package tests.
const SampleCatalogJSON = `[
  {"filename": "0001.jpg", "labels": ["Cat", "Sofa"], "text": ["Merry Christmas"], "landmarks": [], "objects": {"cat": {}}},
  {"filename": "0002.jpg", "labels": ["Beach"], "text": [], "landmarks": ["Golden Gate Bridge"], "objects": {}},
  {"filename": "0007.jpg", "labels": ["Wedding", "Cake"], "text": [], "landmarks": [], "objects": {"person": {}}},
  {"filename": "IMG_0100.jpeg", "labels": ["Dog"], "text": [], "landmarks": [], "objects": {}}
]`

// TestCatalog parses SampleCatalogJSON.
func TestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Parse([]byte(SampleCatalogJSON))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// WriteCatalog writes data to a catalog file in a fresh temp dir and
// returns its path.
func WriteCatalog(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
