package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/albumen/internal/apperr"
	"github.com/starford/albumen/internal/board"
	"github.com/starford/albumen/internal/models"
)

// ListComments handles GET /api/images/{filename}/comments.
//
//	@Summary		List an image's comments, newest first
//	@Tags			comments
//	@Produce		json
//	@Param			filename	path		string	true	"Image filename"
//	@Success		200			{object}	CommentList
//	@Security		BearerAuth
//	@Router			/images/{filename}/comments [get]
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	comments, err := h.d.Board.CommentsForImage(r.Context(), name)
	if err != nil && !errors.Is(err, apperr.ErrRemoteRead) {
		writeError(w, "list comments", err)
		return
	}
	if err != nil {
		slog.Warn("list comments from index", slog.String("filename", name), slog.String("error", err.Error()))
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	writeJSON(w, http.StatusOK, CommentList{Comments: comments, Fallback: err != nil})
}

// CreateComment handles POST /api/images/{filename}/comments.
//
//	@Summary		Comment on an image
//	@Tags			comments
//	@Accept			json
//	@Produce		json
//	@Param			filename	path		string			true	"Image filename"
//	@Param			body		body		CommentRequest	true	"Comment"
//	@Success		201			{object}	models.Comment
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		502			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/images/{filename}/comments [post]
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	var req CommentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "create comment", err)
		return
	}
	c, err := h.d.Board.SubmitComment(r.Context(), board.CommentInput{
		Filename: chi.URLParam(r, "filename"),
		Author:   req.Author,
		Text:     req.Text,
	})
	if err != nil {
		writeError(w, "create comment", err)
		return
	}
	h.rememberAuthor(r, c.Author)
	writeJSON(w, http.StatusCreated, c)
}

// ListMessages handles GET /api/messages.
//
//	@Summary		List the message board, newest first
//	@Tags			messages
//	@Produce		json
//	@Param			q	query		string	false	"Filter on author or text"
//	@Success		200	{object}	MessageList
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/messages [get]
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.d.Board.Messages(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, "list messages", err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	writeJSON(w, http.StatusOK, MessageList{Messages: msgs})
}

// CreateMessage handles POST /api/messages.
//
//	@Summary		Post to the message board
//	@Tags			messages
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MessageRequest	true	"Message"
//	@Success		201		{object}	MessageCreated
//	@Failure		400		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/messages [post]
func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "create message", err)
		return
	}
	m, err := h.d.Board.PostMessage(r.Context(), board.MessageInput{
		Author:        req.Author,
		Text:          req.Text,
		ImageFilename: req.ImageFilename,
	})
	if err != nil {
		writeError(w, "create message", err)
		return
	}
	h.rememberAuthor(r, m.Author)

	// The refreshed board is best effort; the post itself succeeded.
	msgs, err := h.d.Board.Messages(r.Context(), "")
	if err != nil {
		slog.Warn("reload messages", slog.String("error", err.Error()))
	}
	writeJSON(w, http.StatusCreated, MessageCreated{Message: m, Messages: msgs})
}

// GetMe handles GET /api/me.
//
//	@Summary		Get the remembered display name
//	@Tags			me
//	@Produce		json
//	@Success		200	{object}	Me
//	@Security		BearerAuth
//	@Router			/me [get]
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Me{Username: h.d.Board.Username(r.Context())})
}

// PutMe handles PUT /api/me.
//
//	@Summary		Remember a display name
//	@Tags			me
//	@Accept			json
//	@Produce		json
//	@Param			body	body		Me	true	"Display name"
//	@Success		200		{object}	Me
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/me [put]
func (h *Handler) PutMe(w http.ResponseWriter, r *http.Request) {
	var req Me
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "put me", err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := h.d.Board.SetUsername(r.Context(), req.Username); err != nil {
		writeError(w, "put me", err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *Handler) rememberAuthor(r *http.Request, author string) {
	if author == "" || author == models.DefaultAuthor {
		return
	}
	if err := h.d.Board.SetUsername(r.Context(), author); err != nil {
		slog.Warn("remember author", slog.String("error", err.Error()))
	}
}
