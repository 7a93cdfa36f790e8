package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/albumen/internal/apperr"
	"github.com/starford/albumen/internal/session"
	"github.com/starford/albumen/internal/share"
)

// withSession resolves {id} to a live session or answers 404.
func (h *Handler) withSession(fn func(w http.ResponseWriter, r *http.Request, s *session.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := h.d.Sessions.Get(chi.URLParam(r, "id"))
		if !ok {
			writeJSON(w, http.StatusNotFound, errorBody("session not found"))
			return
		}
		fn(w, r, s)
	}
}

// CreateSession handles POST /api/sessions. A share query parameter opens
// the session on the shared view.
//
//	@Summary		Start a browse session
//	@Tags			sessions
//	@Produce		json
//	@Param			share	query		string	false	"Share link value"
//	@Success		201		{object}	SessionSnapshot
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	_, s := h.d.Sessions.Add(h.d.NewSession)
	if raw := r.URL.Query().Get(share.Param); raw != "" {
		s.ApplyShare(raw)
	}
	writeJSON(w, http.StatusCreated, s.Snapshot())
}

// GetSession handles GET /api/sessions/{id}.
//
//	@Summary		Get a session's state
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	SessionSnapshot
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.withSession(func(w http.ResponseWriter, _ *http.Request, s *session.Session) {
		writeJSON(w, http.StatusOK, s.Snapshot())
	})(w, r)
}

// DeleteSession handles DELETE /api/sessions/{id}.
//
//	@Summary		End a session
//	@Tags			sessions
//	@Param			id	path	string	true	"Session id"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [delete]
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.d.Sessions.Remove(chi.URLParam(r, "id")) {
		writeJSON(w, http.StatusNotFound, errorBody("session not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SessionQuery handles POST /api/sessions/{id}/query. Input is debounced
// unless immediate is set.
//
//	@Summary		Update the search query
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session id"
//	@Param			body	body		QueryRequest	true	"Query"
//	@Success		200		{object}	SessionSnapshot
//	@Security		BearerAuth
//	@Router			/sessions/{id}/query [post]
func (h *Handler) SessionQuery(w http.ResponseWriter, r *http.Request) {
	h.withSession(func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req QueryRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, "session query", err)
			return
		}
		if req.Immediate {
			s.Search(req.Query)
		} else {
			s.Input(req.Query)
		}
		writeJSON(w, http.StatusOK, s.Snapshot())
	})(w, r)
}

// SessionClear handles POST /api/sessions/{id}/clear.
func (h *Handler) SessionClear(w http.ResponseWriter, r *http.Request) {
	h.withSession(func(w http.ResponseWriter, _ *http.Request, s *session.Session) {
		s.ClearSearch()
		writeJSON(w, http.StatusOK, s.Snapshot())
	})(w, r)
}

// SessionPage handles POST /api/sessions/{id}/page. Out-of-range pages
// leave the session where it is.
func (h *Handler) SessionPage(w http.ResponseWriter, r *http.Request) {
	h.withSession(func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req PageRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, "session page", err)
			return
		}
		s.GoToPage(req.Page)
		writeJSON(w, http.StatusOK, s.Snapshot())
	})(w, r)
}

// SessionPerPage handles POST /api/sessions/{id}/per-page.
func (h *Handler) SessionPerPage(w http.ResponseWriter, r *http.Request) {
	h.withSession(func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req PerPageRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, "session per page", err)
			return
		}
		if err := s.SetItemsPerPage(req.PerPage); err != nil {
			writeError(w, "session per page", err)
			return
		}
		writeJSON(w, http.StatusOK, s.Snapshot())
	})(w, r)
}

// SessionOpen handles POST /api/sessions/{id}/open.
//
//	@Summary		Open the lightbox
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Session id"
//	@Param			body	body		OpenRequest	true	"Index or filename"
//	@Success		200		{object}	SessionSnapshot
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/open [post]
func (h *Handler) SessionOpen(w http.ResponseWriter, r *http.Request) {
	h.withSession(func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req OpenRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, "session open", err)
			return
		}
		var err error
		switch {
		case req.Index != nil:
			err = s.Open(*req.Index)
		case req.Filename != "":
			err = s.OpenFilename(req.Filename)
		default:
			err = fmt.Errorf("%w: index or filename is required", apperr.ErrValidation)
		}
		if err != nil {
			writeError(w, "session open", err)
			return
		}
		writeJSON(w, http.StatusOK, s.Snapshot())
	})(w, r)
}

// SessionNext handles POST /api/sessions/{id}/next.
func (h *Handler) SessionNext(w http.ResponseWriter, r *http.Request) {
	h.withSession(func(w http.ResponseWriter, _ *http.Request, s *session.Session) {
		if err := s.Next(); err != nil {
			writeError(w, "session next", err)
			return
		}
		writeJSON(w, http.StatusOK, s.Snapshot())
	})(w, r)
}

// SessionPrev handles POST /api/sessions/{id}/prev.
func (h *Handler) SessionPrev(w http.ResponseWriter, r *http.Request) {
	h.withSession(func(w http.ResponseWriter, _ *http.Request, s *session.Session) {
		if err := s.Prev(); err != nil {
			writeError(w, "session prev", err)
			return
		}
		writeJSON(w, http.StatusOK, s.Snapshot())
	})(w, r)
}

// SessionCloseLightbox handles POST /api/sessions/{id}/close.
func (h *Handler) SessionCloseLightbox(w http.ResponseWriter, r *http.Request) {
	h.withSession(func(w http.ResponseWriter, _ *http.Request, s *session.Session) {
		s.CloseLightbox()
		writeJSON(w, http.StatusOK, s.Snapshot())
	})(w, r)
}

// SessionComment handles POST /api/sessions/{id}/comments.
//
//	@Summary		Comment on the image open in the lightbox
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session id"
//	@Param			body	body		CommentRequest	true	"Comment"
//	@Success		201		{object}	SessionCommentResponse
//	@Failure		400		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/comments [post]
func (h *Handler) SessionComment(w http.ResponseWriter, r *http.Request) {
	h.withSession(func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req CommentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, "session comment", err)
			return
		}
		c, err := s.SubmitComment(r.Context(), req.Author, req.Text)
		if err != nil {
			writeError(w, "session comment", err)
			return
		}
		writeJSON(w, http.StatusCreated, SessionCommentResponse{Comment: c, Session: s.Snapshot()})
	})(w, r)
}

// SessionSelect handles POST /api/sessions/{id}/select.
//
//	@Summary		Toggle an image in the share selection
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session id"
//	@Param			body	body		SelectRequest	true	"Filename"
//	@Success		200		{object}	SelectResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/select [post]
func (h *Handler) SessionSelect(w http.ResponseWriter, r *http.Request) {
	h.withSession(func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req SelectRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, "session select", err)
			return
		}
		if req.Filename == "" {
			writeError(w, "session select", fmt.Errorf("%w: filename is required", apperr.ErrValidation))
			return
		}
		on, err := s.ToggleSelection(req.Filename)
		if err != nil {
			writeError(w, "session select", err)
			return
		}
		writeJSON(w, http.StatusOK, SelectResponse{Selected: on, Session: s.Snapshot()})
	})(w, r)
}

// SessionClearSelection handles DELETE /api/sessions/{id}/select.
func (h *Handler) SessionClearSelection(w http.ResponseWriter, r *http.Request) {
	h.withSession(func(w http.ResponseWriter, _ *http.Request, s *session.Session) {
		s.ClearSelection()
		writeJSON(w, http.StatusOK, s.Snapshot())
	})(w, r)
}

// SessionShare handles GET /api/sessions/{id}/share.
//
//	@Summary		Build the share link for the selection
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	ShareLink
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/share [get]
func (h *Handler) SessionShare(w http.ResponseWriter, r *http.Request) {
	h.withSession(func(w http.ResponseWriter, _ *http.Request, s *session.Session) {
		link, err := s.Share()
		if err != nil {
			writeError(w, "session share", err)
			return
		}
		writeJSON(w, http.StatusOK, link)
	})(w, r)
}

// SessionApplyShare handles POST /api/sessions/{id}/share-view.
func (h *Handler) SessionApplyShare(w http.ResponseWriter, r *http.Request) {
	h.withSession(func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req ShareViewRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, "session share view", err)
			return
		}
		s.ApplyShare(req.Share)
		writeJSON(w, http.StatusOK, s.Snapshot())
	})(w, r)
}

// SessionClearShare handles DELETE /api/sessions/{id}/share-view.
func (h *Handler) SessionClearShare(w http.ResponseWriter, r *http.Request) {
	h.withSession(func(w http.ResponseWriter, _ *http.Request, s *session.Session) {
		s.ClearShare()
		writeJSON(w, http.StatusOK, s.Snapshot())
	})(w, r)
}
