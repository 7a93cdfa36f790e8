package catalog

import "github.com/starford/albumen/internal/models"

// URLs resolves image and thumbnail asset URLs. Filenames are concatenated
// onto the base URLs as-is; the catalog generator guarantees they are safe
// path segments.
type URLs struct {
	ImageBase     string
	ThumbnailBase string
}

// Image returns the full-size image URL.
func (u URLs) Image(filename string) string {
	return u.ImageBase + filename
}

// Thumbnail returns the thumbnail URL.
func (u URLs) Thumbnail(filename string) string {
	return u.ThumbnailBase + filename
}

// Ref attaches both URLs to an item.
func (u URLs) Ref(it models.CatalogItem) models.ImageRef {
	return models.ImageRef{
		CatalogItem:  it,
		ImageURL:     u.Image(it.Filename),
		ThumbnailURL: u.Thumbnail(it.Filename),
	}
}

// Refs attaches URLs to every item.
func (u URLs) Refs(items []models.CatalogItem) []models.ImageRef {
	out := make([]models.ImageRef, len(items))
	for i, it := range items {
		out[i] = u.Ref(it)
	}
	return out
}
