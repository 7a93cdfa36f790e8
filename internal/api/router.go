package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/starford/albumen/internal/board"
	"github.com/starford/albumen/internal/catalog"
	"github.com/starford/albumen/internal/metrics"
	"github.com/starford/albumen/internal/session"
	"github.com/starford/albumen/internal/slideshow"
)

// Deps wire the router. Events, Metrics and CORSOrigins are optional.
type Deps struct {
	Catalog    *catalog.Holder
	URLs       catalog.URLs
	Board      *board.Service
	Sessions   *session.Registry[*session.Session]
	Slideshows *session.Registry[*slideshow.Slideshow]
	// NewSession and NewSlideshow build registry entries for a fresh id.
	NewSession   func(id string) *session.Session
	NewSlideshow func(id string, filenames []string, opts slideshow.Options) *slideshow.Slideshow
	ShareURL     string
	Title        string
	Metrics      *metrics.Collector
	// Events, if non-nil, is mounted at GET /events inside the auth group.
	Events      http.Handler
	AuthEnabled bool
	Token       string
	CORSOrigins []string
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(d Deps) chi.Router {
	h := &Handler{d: d}

	r := chi.NewRouter()
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}
	r.Use(AuthMiddleware(d.AuthEnabled, d.Token))

	// Catalog and sharing.
	r.Get("/catalog", h.ListCatalog)
	r.Get("/catalog/{filename}", h.GetImage)
	r.Get("/share", h.SharedCatalog)
	r.Post("/share", h.CreateShare)

	// Comments, messages and the local identity.
	r.Get("/images/{filename}/comments", h.ListComments)
	r.Post("/images/{filename}/comments", h.CreateComment)
	r.Get("/messages", h.ListMessages)
	r.Post("/messages", h.CreateMessage)
	r.Get("/me", h.GetMe)
	r.Put("/me", h.PutMe)

	// Browse sessions.
	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)
		r.Post("/query", h.SessionQuery)
		r.Post("/clear", h.SessionClear)
		r.Post("/page", h.SessionPage)
		r.Post("/per-page", h.SessionPerPage)
		r.Post("/open", h.SessionOpen)
		r.Post("/next", h.SessionNext)
		r.Post("/prev", h.SessionPrev)
		r.Post("/close", h.SessionCloseLightbox)
		r.Post("/comments", h.SessionComment)
		r.Post("/select", h.SessionSelect)
		r.Delete("/select", h.SessionClearSelection)
		r.Get("/share", h.SessionShare)
		r.Post("/share-view", h.SessionApplyShare)
		r.Delete("/share-view", h.SessionClearShare)
	})

	// Slideshows.
	r.Post("/slideshows", h.CreateSlideshow)
	r.Route("/slideshows/{id}", func(r chi.Router) {
		r.Get("/", h.GetSlideshow)
		r.Delete("/", h.DeleteSlideshow)
		r.Post("/play", h.SlideshowPlay)
		r.Post("/pause", h.SlideshowPause)
		r.Post("/toggle", h.SlideshowToggle)
		r.Post("/shuffle", h.SlideshowShuffle)
		r.Post("/speed", h.SlideshowSpeed)
	})

	// SSE endpoint (protected by same auth middleware).
	if d.Events != nil {
		r.Get("/events", d.Events.ServeHTTP)
	}

	return r
}

// Handler holds API route handlers.
type Handler struct {
	d Deps
}
