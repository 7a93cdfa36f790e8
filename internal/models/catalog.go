// Package models defines the domain types for Albumen.
package models

import "encoding/json"

// CatalogItem is one image record produced by the offline catalog generator.
// Items are loaded verbatim and never mutated.
type CatalogItem struct {
	Filename  string                     `json:"filename"`
	Labels    []string                   `json:"labels,omitempty"`
	Text      []string                   `json:"text,omitempty"`
	Landmarks []string                   `json:"landmarks,omitempty"`
	Objects   map[string]json.RawMessage `json:"objects,omitempty"`
}

// ImageRef pairs a catalog item with its resolved asset URLs.
type ImageRef struct {
	CatalogItem
	ImageURL     string `json:"image_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Selected     bool   `json:"selected,omitempty"`
}
