// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/albumen/internal/airtable"
	"github.com/starford/albumen/internal/api"
	"github.com/starford/albumen/internal/board"
	"github.com/starford/albumen/internal/cache"
	"github.com/starford/albumen/internal/catalog"
	"github.com/starford/albumen/internal/eventloop"
	"github.com/starford/albumen/internal/mcpserver"
	"github.com/starford/albumen/internal/metrics"
	"github.com/starford/albumen/internal/search"
	"github.com/starford/albumen/internal/session"
	"github.com/starford/albumen/internal/slideshow"
	"github.com/starford/albumen/internal/sse"
	"github.com/starford/albumen/internal/storage"
)

// Event types published for sessions, slideshows and the catalog.
const (
	EventSessionUpdated  = "session.updated"
	EventSlideshowFrame  = "slideshow.frame"
	EventCatalogReloaded = "catalog.reloaded"
)

const janitorInterval = time.Minute

// services is the state shared by the HTTP and MCP front ends.
type services struct {
	cfg     *Config
	logger  *slog.Logger
	metrics *metrics.Collector
	catalog *catalog.Holder
	// local is set when the catalog is a file that can be watched.
	local       *storage.FS
	catalogName string
	cache       *cache.DB
	board       *board.Service
}

func setup(opts []Option) (*application, *slog.Logger, error) {
	app := &application{logOutput: os.Stdout, version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return app, logger, nil
}

// newServices loads the catalog, opens the cache and primes the comment index.
// A catalog that cannot be loaded is replaced by an empty one.
func newServices(ctx context.Context, cfg *Config, logger *slog.Logger, pub board.Publisher) (*services, error) {
	c := &services{cfg: cfg, logger: logger, metrics: metrics.New()}

	src, name, err := storage.Resolve(cfg.Catalog.Source)
	cat := catalog.Empty()
	if err == nil {
		if fs, ok := src.(*storage.FS); ok {
			c.local = fs
		}
		c.catalogName = name
		cat, err = catalog.Load(ctx, src, name)
	}
	if err != nil {
		logger.Warn("catalog unavailable, starting empty",
			slog.String("source", cfg.Catalog.Source),
			slog.String("error", err.Error()))
		c.metrics.CatalogReloads.WithLabelValues("error").Inc()
		cat = catalog.Empty()
	} else {
		c.metrics.CatalogReloads.WithLabelValues("ok").Inc()
	}
	c.metrics.CatalogItems.Set(float64(cat.Len()))
	c.catalog = catalog.NewHolder(cat)

	if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	c.cache, err = cache.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}

	remote := airtable.New(airtable.Options{
		APIURL:     cfg.Airtable.APIURL,
		BaseID:     cfg.Airtable.BaseID,
		APIKey:     cfg.Airtable.APIKey,
		PageSize:   cfg.Airtable.PageSize,
		HTTPClient: &http.Client{Timeout: cfg.Airtable.Timeout},
		Breaker:    cfg.Airtable.Breaker.Settings(),
		Metrics:    c.metrics,
		Logger:     logger,
	})
	c.board = board.NewService(board.Options{
		Remote:    remote,
		Cache:     c.cache,
		Index:     search.NewCommentIndex(),
		Catalog:   c.catalog,
		Tables:    cfg.Airtable.Tables(),
		Publisher: pub,
		Metrics:   c.metrics,
		Logger:    logger,
	})

	if err := c.board.LoadCommentIndex(ctx); err != nil {
		logger.Warn("comment index unavailable, search covers catalog fields only",
			slog.String("error", err.Error()))
	}
	return c, nil
}

// Run starts the HTTP service with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("catalog_source", cfg.Catalog.Source),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(250 * time.Millisecond)
	defer broker.Close()

	svc, err := newServices(ctx, cfg, logger, broker)
	if err != nil {
		return err
	}
	defer svc.cache.Close()
	m := svc.metrics

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	urls := cfg.Catalog.URLs()
	sessions := session.NewRegistry(cfg.App.SessionIdle, (*session.Session).Close,
		func(n int) { m.Sessions.Set(float64(n)) })
	slideshows := session.NewRegistry(cfg.App.SessionIdle, (*slideshow.Slideshow).Close,
		func(n int) { m.Slideshows.Set(float64(n)) })

	sessionDeps := session.Deps{
		Catalog:      svc.catalog,
		Board:        svc.board,
		URLs:         urls,
		Debounce:     cfg.Browse.Debounce,
		ItemsPerPage: cfg.Browse.ItemsPerPage,
		ShareURL:     cfg.App.ShareURL,
		Title:        cfg.App.Title,
		Metrics:      m,
		Logger:       logger,
	}
	newSession := func(id string) *session.Session {
		return session.New(gCtx, id, eventloop.New(), sessionDeps, func(snap session.Snapshot) {
			broker.PublishLatest(id, sse.Event{Type: EventSessionUpdated, Scope: id, Data: snap})
		})
	}
	newSlideshow := func(id string, filenames []string, opts slideshow.Options) *slideshow.Slideshow {
		if opts.Speed <= 0 {
			opts.Speed = cfg.Slideshow.Speed
		}
		opts.Tick = cfg.Slideshow.Tick
		return slideshow.New(eventloop.New(), filenames, urls, opts, func(f slideshow.Frame) {
			broker.Publish(sse.Event{Type: EventSlideshowFrame, Scope: id, Data: f})
		})
	}

	apiRouter := api.NewRouter(api.Deps{
		Catalog:      svc.catalog,
		URLs:         urls,
		Board:        svc.board,
		Sessions:     sessions,
		Slideshows:   slideshows,
		NewSession:   newSession,
		NewSlideshow: newSlideshow,
		ShareURL:     cfg.App.ShareURL,
		Title:        cfg.App.Title,
		Metrics:      m,
		Events:       broker,
		AuthEnabled:  cfg.Auth.AuthEnabled(),
		Token:        cfg.Auth.Token,
		CORSOrigins:  cfg.App.CORSOrigins,
	})

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"ok","catalog_items":%d}`, svc.catalog.Current().Len())
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Ends open event streams so Shutdown does not wait on them.
	httpServer.RegisterOnShutdown(broker.Close)

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	// Watch a local catalog file and publish reloads.
	if cfg.Catalog.Watch && svc.local != nil {
		g.Go(func() error {
			err := catalog.Watch(gCtx, svc.catalog, svc.local, svc.catalogName, logger, func(c *catalog.Catalog) {
				m.CatalogReloads.WithLabelValues("ok").Inc()
				m.CatalogItems.Set(float64(c.Len()))
				sessions.Each((*session.Session).Refresh)
				broker.Publish(sse.Event{Type: EventCatalogReloaded, Data: map[string]any{
					"count":     c.Len(),
					"checksum":  c.Checksum(),
					"loaded_at": c.LoadedAt().UTC().Format(time.RFC3339),
				}})
			})
			if err != nil {
				logger.Error("catalog watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Evict idle sessions and slideshows.
	g.Go(func() error { return sessions.Run(gCtx, janitorInterval) })
	g.Go(func() error { return slideshows.Run(gCtx, janitorInterval) })

	if cfg.Resync.Interval > 0 {
		g.Go(func() error { return svc.board.RunResync(gCtx, cfg.Resync.Interval) })
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		// Stop the watcher, janitors and resync loop.
		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the archive tools over stdio until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	svc, err := newServices(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer svc.cache.Close()

	srv := mcpserver.New(mcpserver.Deps{
		Catalog:  svc.catalog,
		URLs:     cfg.Catalog.URLs(),
		Board:    svc.board,
		ShareURL: cfg.App.ShareURL,
		Title:    cfg.App.Title,
	}, app.version)

	logger.Info("MCP server starting", slog.String("catalog_source", cfg.Catalog.Source))
	return srv.ServeStdio()
}
