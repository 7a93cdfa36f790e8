package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/albumen/internal/search"
	"github.com/starford/albumen/internal/share"
	"github.com/starford/albumen/internal/slideshow"
)

func (h *Handler) withSlideshow(fn func(w http.ResponseWriter, r *http.Request, id string, s *slideshow.Slideshow)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		s, ok := h.d.Slideshows.Get(id)
		if !ok {
			writeJSON(w, http.StatusNotFound, errorBody("slideshow not found"))
			return
		}
		fn(w, r, id, s)
	}
}

// CreateSlideshow handles POST /api/slideshows. The show covers the given
// filenames in catalog order, or else the catalog filtered by query.
//
//	@Summary		Start a slideshow
//	@Tags			slideshows
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SlideshowRequest	true	"Slideshow"
//	@Success		201		{object}	SlideshowView
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/slideshows [post]
func (h *Handler) CreateSlideshow(w http.ResponseWriter, r *http.Request) {
	var req SlideshowRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "create slideshow", err)
		return
	}
	speed := time.Duration(req.SpeedMS) * time.Millisecond
	if req.SpeedMS != 0 {
		if err := slideshow.CheckSpeed(speed); err != nil {
			writeError(w, "create slideshow", err)
			return
		}
	}

	cat := h.d.Catalog.Current()
	items := search.Filter(cat, req.Query, h.d.Board.Index())
	if len(req.Filenames) > 0 {
		items = share.Restrict(cat.Items(), share.Parse(strings.Join(req.Filenames, ",")))
	}
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Filename
	}

	opts := slideshow.Options{Speed: speed}
	id, s := h.d.Slideshows.Add(func(id string) *slideshow.Slideshow {
		return h.d.NewSlideshow(id, names, opts)
	})
	if req.Shuffle {
		s.SetShuffle(true)
	}
	if req.Autoplay {
		if err := s.Play(); err != nil {
			h.d.Slideshows.Remove(id)
			writeError(w, "create slideshow", err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, SlideshowView{ID: id, View: s.Snapshot()})
}

// GetSlideshow handles GET /api/slideshows/{id}.
//
//	@Summary		Get a slideshow's state
//	@Tags			slideshows
//	@Produce		json
//	@Param			id	path		string	true	"Slideshow id"
//	@Success		200	{object}	SlideshowView
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/slideshows/{id} [get]
func (h *Handler) GetSlideshow(w http.ResponseWriter, r *http.Request) {
	h.withSlideshow(func(w http.ResponseWriter, _ *http.Request, id string, s *slideshow.Slideshow) {
		writeJSON(w, http.StatusOK, SlideshowView{ID: id, View: s.Snapshot()})
	})(w, r)
}

// DeleteSlideshow handles DELETE /api/slideshows/{id}.
func (h *Handler) DeleteSlideshow(w http.ResponseWriter, r *http.Request) {
	if !h.d.Slideshows.Remove(chi.URLParam(r, "id")) {
		writeJSON(w, http.StatusNotFound, errorBody("slideshow not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SlideshowPlay handles POST /api/slideshows/{id}/play.
func (h *Handler) SlideshowPlay(w http.ResponseWriter, r *http.Request) {
	h.withSlideshow(func(w http.ResponseWriter, _ *http.Request, id string, s *slideshow.Slideshow) {
		if err := s.Play(); err != nil {
			writeError(w, "slideshow play", err)
			return
		}
		writeJSON(w, http.StatusOK, SlideshowView{ID: id, View: s.Snapshot()})
	})(w, r)
}

// SlideshowPause handles POST /api/slideshows/{id}/pause.
func (h *Handler) SlideshowPause(w http.ResponseWriter, r *http.Request) {
	h.withSlideshow(func(w http.ResponseWriter, _ *http.Request, id string, s *slideshow.Slideshow) {
		s.Pause()
		writeJSON(w, http.StatusOK, SlideshowView{ID: id, View: s.Snapshot()})
	})(w, r)
}

// SlideshowToggle handles POST /api/slideshows/{id}/toggle.
func (h *Handler) SlideshowToggle(w http.ResponseWriter, r *http.Request) {
	h.withSlideshow(func(w http.ResponseWriter, _ *http.Request, id string, s *slideshow.Slideshow) {
		if err := s.Toggle(); err != nil {
			writeError(w, "slideshow toggle", err)
			return
		}
		writeJSON(w, http.StatusOK, SlideshowView{ID: id, View: s.Snapshot()})
	})(w, r)
}

// SlideshowShuffle handles POST /api/slideshows/{id}/shuffle.
func (h *Handler) SlideshowShuffle(w http.ResponseWriter, r *http.Request) {
	h.withSlideshow(func(w http.ResponseWriter, r *http.Request, id string, s *slideshow.Slideshow) {
		var req ShuffleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, "slideshow shuffle", err)
			return
		}
		s.SetShuffle(req.Shuffle)
		writeJSON(w, http.StatusOK, SlideshowView{ID: id, View: s.Snapshot()})
	})(w, r)
}

// SlideshowSpeed handles POST /api/slideshows/{id}/speed.
//
//	@Summary		Change the advance interval
//	@Tags			slideshows
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Slideshow id"
//	@Param			body	body		SpeedRequest	true	"Speed"
//	@Success		200		{object}	SlideshowView
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/slideshows/{id}/speed [post]
func (h *Handler) SlideshowSpeed(w http.ResponseWriter, r *http.Request) {
	h.withSlideshow(func(w http.ResponseWriter, r *http.Request, id string, s *slideshow.Slideshow) {
		var req SpeedRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, "slideshow speed", err)
			return
		}
		if err := s.SetSpeed(time.Duration(req.SpeedMS) * time.Millisecond); err != nil {
			writeError(w, "slideshow speed", err)
			return
		}
		writeJSON(w, http.StatusOK, SlideshowView{ID: id, View: s.Snapshot()})
	})(w, r)
}
