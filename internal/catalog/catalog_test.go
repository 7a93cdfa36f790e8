package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/albumen/internal/apperr"
	"github.com/starford/albumen/internal/models"
	"github.com/starford/albumen/internal/storage"
)

const sampleCatalog = `[
  {"filename": "0001.jpg", "labels": ["Dog", "Beach"], "text": ["HAPPY 1962"], "landmarks": ["Golden Gate Bridge"], "objects": {"Bicycle": {"count": 1}}},
  {"filename": "0002.JPG", "labels": ["Cake"]},
  {"filename": "0001.jpg", "labels": ["duplicate"]}
]`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sampleCatalog))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("len = %d, want 2 (duplicate dropped)", c.Len())
	}
	it, ok := c.Lookup("0001.jpg")
	if !ok {
		t.Fatal("0001.jpg not found")
	}
	if it.Labels[0] != "Dog" {
		t.Errorf("first occurrence should win, labels = %v", it.Labels)
	}
	if c.Checksum() == "" {
		t.Error("checksum should be set")
	}
	if c.LoadedAt().IsZero() || !Empty().LoadedAt().IsZero() {
		t.Error("LoadedAt should be set for parsed catalogs only")
	}

	fields := c.Entries()[0].Fields
	want := []string{"0001.jpg", "dog", "beach", "happy 1962", "golden gate bridge", "bicycle"}
	if len(fields) != len(want) {
		t.Fatalf("fields = %v, want %v", fields, want)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("fields[%d] = %q, want %q", i, fields[i], want[i])
		}
	}
}

func TestParseMalformed(t *testing.T) {
	for name, doc := range map[string]string{
		"not json":    `{{`,
		"not array":   `{"filename":"a.jpg"}`,
		"no filename": `[{"labels":["x"]}]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			if !errors.Is(err, apperr.ErrCatalogLoad) {
				t.Errorf("err = %v, want ErrCatalogLoad", err)
			}
		})
	}
}

func TestLookupFold(t *testing.T) {
	c, _ := Parse([]byte(sampleCatalog))
	it, ok := c.LookupFold("0002.jpg")
	if !ok || it.Filename != "0002.JPG" {
		t.Errorf("LookupFold = %+v, %v", it, ok)
	}
	if _, ok := c.Lookup("0002.jpg"); ok {
		t.Error("Lookup should be case-sensitive")
	}
}

func TestLoadMissing(t *testing.T) {
	dir := t.TempDir()
	src, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	_, err = Load(context.Background(), src, "catalog.json")
	if !errors.Is(err, apperr.ErrCatalogLoad) {
		t.Errorf("err = %v, want ErrCatalogLoad", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want wrapped os.ErrNotExist", err)
	}
}

func TestLoadFromFS(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "catalog.json"), []byte(sampleCatalog), 0o644)
	src, _ := storage.NewFS(dir)
	c, err := Load(context.Background(), src, "catalog.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("len = %d", c.Len())
	}
}

func TestItemsIsCopy(t *testing.T) {
	c, _ := Parse([]byte(sampleCatalog))
	items := c.Items()
	items[0].Filename = "changed.jpg"
	if _, ok := c.Lookup("0001.jpg"); !ok {
		t.Error("mutating Items() result must not affect the catalog")
	}
	if c.Entries()[0].Item.Filename != "0001.jpg" {
		t.Error("entry changed through Items()")
	}
}

func TestHolder(t *testing.T) {
	h := NewHolder(nil)
	if h.Current().Len() != 0 {
		t.Fatal("nil snapshot should become Empty()")
	}
	c, _ := Parse([]byte(sampleCatalog))
	h.Store(c)
	if h.Current() != c {
		t.Error("Current should return stored snapshot")
	}
}

func TestURLs(t *testing.T) {
	u := URLs{ImageBase: "https://cdn.example/full/", ThumbnailBase: "https://cdn.example/thumbnails/"}
	ref := u.Ref(models.CatalogItem{Filename: "0007.jpg"})
	if ref.ImageURL != "https://cdn.example/full/0007.jpg" {
		t.Errorf("image = %q", ref.ImageURL)
	}
	if ref.ThumbnailURL != "https://cdn.example/thumbnails/0007.jpg" {
		t.Errorf("thumbnail = %q", ref.ThumbnailURL)
	}
}
