// Package session holds the browse state of one viewer: search, paging,
// selection, shared view and the lightbox with its comment thread.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/starford/albumen/internal/apperr"
	"github.com/starford/albumen/internal/board"
	"github.com/starford/albumen/internal/catalog"
	"github.com/starford/albumen/internal/eventloop"
	"github.com/starford/albumen/internal/metrics"
	"github.com/starford/albumen/internal/models"
	"github.com/starford/albumen/internal/paging"
	"github.com/starford/albumen/internal/search"
	"github.com/starford/albumen/internal/share"
)

// Board is the comment backend a session talks to.
type Board interface {
	Index() *search.CommentIndex
	CommentsForImage(ctx context.Context, filename string) ([]models.Comment, error)
	SubmitComment(ctx context.Context, in board.CommentInput) (models.Comment, error)
	Username(ctx context.Context) string
	SetUsername(ctx context.Context, name string) error
}

// Deps are shared by every session.
type Deps struct {
	Catalog      *catalog.Holder
	Board        Board
	URLs         catalog.URLs
	Debounce     time.Duration
	ItemsPerPage int
	// ShareURL is the page shared links point at.
	ShareURL string
	Title    string
	Metrics  *metrics.Collector
	Logger   *slog.Logger
}

// Session is owned by its scheduler. Exported methods hop onto it with Do
// and must not be called from a task running there.
type Session struct {
	id       string
	sched    eventloop.Scheduler
	deps     Deps
	ctx      context.Context
	cancel   context.CancelFunc
	onChange func(Snapshot)

	query     string
	pending   string
	debouncer *search.Debouncer
	filtered  []models.CatalogItem
	page      paging.State
	selection share.Selection
	shared    []string
	author    string
	version   uint64

	lightbox *lightbox
	// gen is bumped whenever the lightbox target changes; a comment fetch
	// only lands if gen still matches the value it captured.
	gen uint64
}

type lightbox struct {
	index    int
	filename string
	comments []models.Comment
	loading  bool
	fallback bool
}

// New creates a session showing the full catalog. onChange, if non-nil,
// is called on the scheduler after every state change.
func New(ctx context.Context, id string, sched eventloop.Scheduler, deps Deps, onChange func(Snapshot)) *Session {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.ItemsPerPage <= 0 {
		deps.ItemsPerPage = paging.DefaultItemsPerPage
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		id:       id,
		sched:    sched,
		deps:     deps,
		ctx:      ctx,
		cancel:   cancel,
		onChange: onChange,
		author:   deps.Board.Username(ctx),
	}
	s.debouncer = search.NewDebouncer(sched, deps.Debounce, s.applyQuery)
	s.page = paging.New(0, deps.ItemsPerPage, 1)
	sched.Do(func() { s.refilter() })
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Input records a keystroke; the filter runs once input has been quiet
// for the debounce period.
func (s *Session) Input(query string) {
	s.sched.Do(func() {
		s.pending = query
		s.debouncer.Input(query)
		s.changed()
	})
}

// Search applies query immediately.
func (s *Session) Search(query string) {
	s.sched.Do(func() {
		s.debouncer.Cancel()
		s.applyQuery(query)
	})
}

// ClearSearch drops any pending input and shows the full catalog.
func (s *Session) ClearSearch() {
	s.sched.Do(s.debouncer.Clear)
}

// GoToPage jumps to page n; out-of-range pages are ignored.
func (s *Session) GoToPage(n int) {
	s.sched.Do(func() {
		s.page = s.page.GoToPage(n)
		s.changed()
	})
}

// SetItemsPerPage changes the page size and returns to page 1.
func (s *Session) SetItemsPerPage(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: items per page must be positive", apperr.ErrValidation)
	}
	s.sched.Do(func() {
		s.page = s.page.WithItemsPerPage(n)
		s.changed()
	})
	return nil
}

// Open shows the item at index of the filtered list in the lightbox and
// starts loading its comments.
func (s *Session) Open(index int) error {
	var err error
	s.sched.Do(func() { err = s.open(index) })
	return err
}

// OpenFilename opens the lightbox on filename if it is in the filtered list.
func (s *Session) OpenFilename(filename string) error {
	var err error
	s.sched.Do(func() {
		i := slices.IndexFunc(s.filtered, func(it models.CatalogItem) bool { return it.Filename == filename })
		err = s.open(i)
	})
	return err
}

// Next moves the lightbox forward, stopping at the last item.
func (s *Session) Next() error {
	return s.step(1)
}

// Prev moves the lightbox back, stopping at the first item.
func (s *Session) Prev() error {
	return s.step(-1)
}

// CloseLightbox hides the lightbox. Comment fetches still in flight are
// discarded when they complete.
func (s *Session) CloseLightbox() {
	s.sched.Do(func() {
		s.gen++
		s.lightbox = nil
		s.changed()
	})
}

// SubmitComment posts a comment on the image open in the lightbox. On
// success it is searchable immediately and heads the displayed thread.
func (s *Session) SubmitComment(ctx context.Context, author, text string) (models.Comment, error) {
	var filename string
	s.sched.Do(func() {
		if s.lightbox != nil {
			filename = s.lightbox.filename
		}
	})
	if filename == "" {
		return models.Comment{}, fmt.Errorf("%w: no image is open", apperr.ErrValidation)
	}

	c, err := s.deps.Board.SubmitComment(ctx, board.CommentInput{Filename: filename, Author: author, Text: text})
	if err != nil {
		return models.Comment{}, err
	}
	if err := s.deps.Board.SetUsername(ctx, c.Author); err != nil {
		s.deps.Logger.Warn("save username", slog.String("error", err.Error()))
	}

	s.sched.Do(func() {
		s.author = c.Author
		if s.lightbox != nil && s.lightbox.filename == filename {
			s.lightbox.comments = append([]models.Comment{c}, s.lightbox.comments...)
		}
		s.changed()
	})
	return c, nil
}

// ToggleSelection adds or removes filename from the share selection.
func (s *Session) ToggleSelection(filename string) (bool, error) {
	var (
		on  bool
		err error
	)
	s.sched.Do(func() {
		on, err = s.selection.Toggle(filename)
		if err == nil {
			s.changed()
		}
	})
	return on, err
}

// ClearSelection empties the share selection.
func (s *Session) ClearSelection() {
	s.sched.Do(func() {
		s.selection.Clear()
		s.changed()
	})
}

// Link is a built share.
type Link struct {
	URL    string   `json:"url"`
	Mailto string   `json:"mailto"`
	Count  int      `json:"count"`
	Names  []string `json:"filenames"`
}

// Share builds the share link for the current selection.
func (s *Session) Share() (Link, error) {
	var names []string
	s.sched.Do(func() { names = s.selection.Names() })
	return BuildLink(s.deps.ShareURL, s.deps.Title, names)
}

// BuildLink builds a share URL and its mailto form for names.
func BuildLink(pageURL, title string, names []string) (Link, error) {
	if len(names) == 0 {
		return Link{}, fmt.Errorf("%w: select at least one image to share", apperr.ErrValidation)
	}
	if len(names) > share.MaxSelection {
		return Link{}, apperr.ErrSelectionFull
	}
	u, err := share.BuildURL(pageURL, names)
	if err != nil {
		return Link{}, fmt.Errorf("%w: %w", apperr.ErrValidation, err)
	}
	return Link{URL: u, Mailto: share.Mailto(title, u, len(names)), Count: len(names), Names: names}, nil
}

// ApplyShare restricts the view to the shared filenames in raw (the value
// of a share link parameter). It returns how many of them the catalog has.
func (s *Session) ApplyShare(raw string) int {
	var n int
	s.sched.Do(func() {
		names := share.Parse(raw)
		s.debouncer.Cancel()
		s.query, s.pending = "", ""
		s.shared = names
		s.selection.Clear()
		s.refilter()
		n = len(s.filtered)
		s.changed()
	})
	return n
}

// ClearShare leaves the shared view and shows the full catalog again.
func (s *Session) ClearShare() {
	s.sched.Do(func() {
		s.shared = nil
		s.selection.Clear()
		s.refilter()
		s.changed()
	})
}

// Refresh re-runs the current filter against the latest catalog.
func (s *Session) Refresh() {
	s.sched.Do(func() {
		s.refilter()
		s.changed()
	})
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	var snap Snapshot
	s.sched.Do(func() { snap = s.snapshot() })
	return snap
}

// Close cancels in-flight work and pending timers, then stops the
// scheduler if it can be stopped.
func (s *Session) Close() {
	s.cancel()
	s.sched.Do(func() {
		s.debouncer.Cancel()
		s.gen++
		s.lightbox = nil
	})
	if c, ok := s.sched.(interface{ Close() }); ok {
		c.Close()
	}
}

func (s *Session) applyQuery(query string) {
	s.query, s.pending = query, ""
	// A new search replaces a shared view.
	s.shared = nil
	s.refilter()
	s.changed()
}

// refilter rebuilds the filtered list and resets paging to page 1.
func (s *Session) refilter() {
	cat := s.deps.Catalog.Current()
	if s.shared != nil {
		s.filtered = share.Restrict(cat.Items(), s.shared)
	} else {
		s.filtered = search.Filter(cat, s.query, s.deps.Board.Index())
		s.deps.Metrics.Search()
	}
	s.page = s.page.WithTotal(len(s.filtered))

	if s.lightbox != nil {
		name := s.lightbox.filename
		s.lightbox.index = slices.IndexFunc(s.filtered, func(it models.CatalogItem) bool { return it.Filename == name })
	}
}

func (s *Session) step(delta int) error {
	var err error
	s.sched.Do(func() {
		if s.lightbox == nil {
			err = fmt.Errorf("%w: no image is open", apperr.ErrValidation)
			return
		}
		next := s.lightbox.index + delta
		if s.lightbox.index < 0 || next < 0 || next >= len(s.filtered) {
			return
		}
		err = s.open(next)
	})
	return err
}

func (s *Session) open(index int) error {
	if index < 0 || index >= len(s.filtered) {
		return fmt.Errorf("image %d: %w", index, apperr.ErrNotFound)
	}
	s.gen++
	gen := s.gen
	filename := s.filtered[index].Filename
	s.lightbox = &lightbox{index: index, filename: filename, loading: true}
	s.changed()

	ctx := s.ctx
	s.sched.Go(func() func() {
		comments, err := s.deps.Board.CommentsForImage(ctx, filename)
		return func() {
			if gen != s.gen || s.lightbox == nil {
				s.deps.Metrics.Stale()
				return
			}
			if err != nil {
				s.deps.Logger.Warn("load comments",
					slog.String("filename", filename),
					slog.String("error", err.Error()))
			}
			s.lightbox.comments = comments
			s.lightbox.loading = false
			s.lightbox.fallback = err != nil
			s.changed()
		}
	})
	return nil
}

func (s *Session) changed() {
	s.version++
	if s.onChange != nil {
		s.onChange(s.snapshot())
	}
}
