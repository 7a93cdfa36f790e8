package session

import (
	"slices"

	"github.com/starford/albumen/internal/models"
	"github.com/starford/albumen/internal/paging"
)

// Snapshot is a point-in-time copy of a session, safe to hand to other
// goroutines.
type Snapshot struct {
	ID           string            `json:"id"`
	Version      uint64            `json:"version"`
	Query        string            `json:"query"`
	PendingQuery string            `json:"pending_query,omitempty"`
	Paging       paging.View       `json:"paging"`
	Items        []models.ImageRef `json:"items"`
	Filtered     int               `json:"filtered_count"`
	CatalogSize  int               `json:"catalog_count"`
	Selection    []string          `json:"selection"`
	Shared       *SharedView       `json:"shared,omitempty"`
	Lightbox     *LightboxView     `json:"lightbox,omitempty"`
	Author       string            `json:"author"`
}

// SharedView describes an active shared-link view.
type SharedView struct {
	Requested []string `json:"requested"`
	Count     int      `json:"count"`
}

// LightboxView is the open image and its comment thread, newest first.
type LightboxView struct {
	Index    int              `json:"index"`
	Image    models.ImageRef  `json:"image"`
	HasPrev  bool             `json:"has_prev"`
	HasNext  bool             `json:"has_next"`
	Comments []models.Comment `json:"comments"`
	Loading  bool             `json:"loading"`
	// Fallback is set when the thread came from the local index because
	// the remote read failed.
	Fallback bool `json:"fallback,omitempty"`
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		ID:           s.id,
		Version:      s.version,
		Query:        s.query,
		PendingQuery: s.pending,
		Paging:       s.page.View(),
		Items:        s.deps.URLs.Refs(paging.Slice(s.filtered, s.page)),
		Filtered:     len(s.filtered),
		CatalogSize:  s.deps.Catalog.Current().Len(),
		Selection:    s.selection.Names(),
		Author:       s.author,
	}
	if snap.Selection == nil {
		snap.Selection = []string{}
	}
	for i := range snap.Items {
		snap.Items[i].Selected = s.selection.Has(snap.Items[i].Filename)
	}
	if s.shared != nil {
		snap.Shared = &SharedView{Requested: slices.Clone(s.shared), Count: len(s.filtered)}
	}
	if lb := s.lightbox; lb != nil {
		v := &LightboxView{
			Index:    lb.index,
			Image:    s.deps.URLs.Ref(models.CatalogItem{Filename: lb.filename}),
			HasPrev:  lb.index > 0,
			HasNext:  lb.index >= 0 && lb.index < len(s.filtered)-1,
			Comments: slices.Clone(lb.comments),
			Loading:  lb.loading,
			Fallback: lb.fallback,
		}
		if lb.index >= 0 && lb.index < len(s.filtered) {
			v.Image = s.deps.URLs.Ref(s.filtered[lb.index])
		}
		if v.Comments == nil {
			v.Comments = []models.Comment{}
		}
		snap.Lightbox = v
	}
	return snap
}
