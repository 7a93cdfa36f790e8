// Package catalog holds the immutable, in-memory image catalog loaded from
// the static JSON document produced by the offline catalog generator.
package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/starford/albumen/internal/apperr"
	"github.com/starford/albumen/internal/models"
	"github.com/starford/albumen/internal/storage"
)

// Entry is a catalog item plus its derived, lower-cased search fields.
type Entry struct {
	Item models.CatalogItem
	// Fields holds the filename, labels, OCR text, landmarks and object
	// names, lower-cased, in that order.
	Fields []string
}

// Catalog is one loaded snapshot. It exposes no mutation API.
type Catalog struct {
	entries  []Entry
	byName   map[string]int
	byFold   map[string]int
	checksum string
	loadedAt time.Time
}

// Empty returns a catalog with no items, used when loading fails.
func Empty() *Catalog {
	return &Catalog{byName: map[string]int{}, byFold: map[string]int{}}
}

// Load reads and parses the catalog document through src.
func Load(ctx context.Context, src storage.Source, name string) (*Catalog, error) {
	data, err := src.Read(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrCatalogLoad, err)
	}
	return Parse(data)
}

// Parse builds a catalog from a JSON array of items. Items without a
// filename are rejected; duplicate filenames keep the first occurrence.
func Parse(data []byte) (*Catalog, error) {
	var items []models.CatalogItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", apperr.ErrCatalogLoad, err)
	}

	c := &Catalog{
		entries:  make([]Entry, 0, len(items)),
		byName:   make(map[string]int, len(items)),
		byFold:   make(map[string]int, len(items)),
		checksum: sum(data),
		loadedAt: time.Now(),
	}
	for i, it := range items {
		if it.Filename == "" {
			return nil, fmt.Errorf("%w: item %d has no filename", apperr.ErrCatalogLoad, i)
		}
		if _, dup := c.byName[it.Filename]; dup {
			continue
		}
		c.byName[it.Filename] = len(c.entries)
		if _, ok := c.byFold[strings.ToLower(it.Filename)]; !ok {
			c.byFold[strings.ToLower(it.Filename)] = len(c.entries)
		}
		c.entries = append(c.entries, Entry{Item: it, Fields: searchFields(it)})
	}
	return c, nil
}

func searchFields(it models.CatalogItem) []string {
	fields := make([]string, 0, 1+len(it.Labels)+len(it.Text)+len(it.Landmarks)+len(it.Objects))
	fields = append(fields, strings.ToLower(it.Filename))
	for _, group := range [][]string{it.Labels, it.Text, it.Landmarks} {
		for _, s := range group {
			fields = append(fields, strings.ToLower(s))
		}
	}
	names := make([]string, 0, len(it.Objects))
	for name := range it.Objects {
		names = append(names, strings.ToLower(name))
	}
	slices.Sort(names)
	return append(fields, names...)
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Entries returns the catalog entries in document order. Callers must not
// modify the returned slice.
func (c *Catalog) Entries() []Entry {
	return c.entries
}

// Items returns a copy of the items in document order.
func (c *Catalog) Items() []models.CatalogItem {
	out := make([]models.CatalogItem, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Item
	}
	return out
}

// Lookup returns the item with exactly the given filename.
func (c *Catalog) Lookup(filename string) (models.CatalogItem, bool) {
	i, ok := c.byName[filename]
	if !ok {
		return models.CatalogItem{}, false
	}
	return c.entries[i].Item, true
}

// LookupFold finds an item by case-insensitive filename.
func (c *Catalog) LookupFold(filename string) (models.CatalogItem, bool) {
	if it, ok := c.Lookup(filename); ok {
		return it, true
	}
	i, ok := c.byFold[strings.ToLower(filename)]
	if !ok {
		return models.CatalogItem{}, false
	}
	return c.entries[i].Item, true
}

// Checksum returns the SHA-256 of the source document, empty for Empty().
func (c *Catalog) Checksum() string {
	return c.checksum
}

// LoadedAt returns when the snapshot was parsed.
func (c *Catalog) LoadedAt() time.Time {
	return c.loadedAt
}

func sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Holder publishes the current catalog snapshot to concurrent readers.
type Holder struct {
	p atomic.Pointer[Catalog]
}

// NewHolder returns a holder publishing c (or Empty() when c is nil).
func NewHolder(c *Catalog) *Holder {
	h := &Holder{}
	h.Store(c)
	return h
}

// Current returns the latest snapshot.
func (h *Holder) Current() *Catalog {
	return h.p.Load()
}

// Store publishes a new snapshot.
func (h *Holder) Store(c *Catalog) {
	if c == nil {
		c = Empty()
	}
	h.p.Store(c)
}
