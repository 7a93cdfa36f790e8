// Package search filters the catalog and the message board by free-text
// query. Matching is case-insensitive exact substring with no tokenization
// or ranking, so results keep their source order.
package search

import (
	"strings"

	"github.com/starford/albumen/internal/catalog"
	"github.com/starford/albumen/internal/models"
)

// Normalize trims and lower-cases a raw query.
func Normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Filter returns the catalog items matching query. An empty or
// whitespace-only query returns every item in catalog order. comments may
// be nil.
func Filter(c *catalog.Catalog, query string, comments Comments) []models.CatalogItem {
	q := Normalize(query)
	entries := c.Entries()
	out := make([]models.CatalogItem, 0, len(entries))
	for _, e := range entries {
		if q == "" || matchEntry(e, q, comments) {
			out = append(out, e.Item)
		}
	}
	return out
}

// matchEntry reports whether the normalized query q occurs in any derived
// field of e or in any comment text or author indexed for it.
func matchEntry(e catalog.Entry, q string, comments Comments) bool {
	for _, f := range e.Fields {
		if strings.Contains(f, q) {
			return true
		}
	}
	if comments == nil {
		return false
	}
	for _, cm := range comments.CommentsFor(e.Item.Filename) {
		if strings.Contains(strings.ToLower(cm.Text), q) || strings.Contains(strings.ToLower(cm.Author), q) {
			return true
		}
	}
	return false
}

// FilterMessages returns the messages whose author or text contains query.
// An empty query returns every message in order.
func FilterMessages(messages []models.Message, query string) []models.Message {
	q := Normalize(query)
	out := make([]models.Message, 0, len(messages))
	for _, m := range messages {
		if q == "" || strings.Contains(strings.ToLower(m.Author), q) || strings.Contains(strings.ToLower(m.Text), q) {
			out = append(out, m)
		}
	}
	return out
}
