package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/albumen/internal/apperr"
	"github.com/starford/albumen/internal/paging"
	"github.com/starford/albumen/internal/search"
	"github.com/starford/albumen/internal/session"
	"github.com/starford/albumen/internal/share"
)

// ListCatalog handles GET /api/catalog.
//
//	@Summary		Filter and page the catalog
//	@Tags			catalog
//	@Produce		json
//	@Param			q			query		string	false	"Search query"
//	@Param			page		query		int		false	"Page number (1-based)"
//	@Param			per_page	query		int		false	"Items per page"
//	@Success		200			{object}	CatalogPage
//	@Security		BearerAuth
//	@Router			/catalog [get]
func (h *Handler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	query := search.Normalize(q.Get("q"))

	cat := h.d.Catalog.Current()
	items := search.Filter(cat, query, h.d.Board.Index())
	if query != "" {
		h.d.Metrics.Search()
	}
	st := paging.New(len(items), perPage, page)

	writeJSON(w, http.StatusOK, CatalogPage{
		Query:       query,
		Items:       h.d.URLs.Refs(paging.Slice(items, st)),
		Paging:      st.View(),
		Filtered:    len(items),
		CatalogSize: cat.Len(),
	})
}

// GetImage handles GET /api/catalog/{filename}.
//
//	@Summary		Get one catalog item with its asset URLs
//	@Tags			catalog
//	@Produce		json
//	@Param			filename	path		string	true	"Image filename"
//	@Success		200			{object}	models.ImageRef
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/catalog/{filename} [get]
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	cat := h.d.Catalog.Current()
	it, ok := cat.Lookup(name)
	if !ok {
		it, ok = cat.LookupFold(name)
	}
	if !ok {
		writeError(w, "get image", apperr.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, h.d.URLs.Ref(it))
}

// SharedCatalog handles GET /api/share.
//
//	@Summary		Catalog restricted to a share link
//	@Tags			share
//	@Produce		json
//	@Param			share	query		string	true	"Comma-separated filenames"
//	@Success		200		{object}	SharedCatalog
//	@Security		BearerAuth
//	@Router			/share [get]
func (h *Handler) SharedCatalog(w http.ResponseWriter, r *http.Request) {
	names := share.Parse(r.URL.Query().Get(share.Param))
	items := share.Restrict(h.d.Catalog.Current().Items(), names)
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, SharedCatalog{
		Requested: names,
		Items:     h.d.URLs.Refs(items),
		Count:     len(items),
	})
}

// CreateShare handles POST /api/share.
//
//	@Summary		Build a share link and mailto link
//	@Tags			share
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ShareRequest	true	"Filenames to share"
//	@Success		200		{object}	ShareLink
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/share [post]
func (h *Handler) CreateShare(w http.ResponseWriter, r *http.Request) {
	var req ShareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "create share", err)
		return
	}
	link, err := session.BuildLink(h.d.ShareURL, h.d.Title, share.Parse(strings.Join(req.Filenames, ",")))
	if err != nil {
		writeError(w, "create share", err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}
