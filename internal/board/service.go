// Package board synchronizes image comments and guestbook messages with the
// remote record store, keeping the comment search index and the local cache
// in step.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/albumen/internal/airtable"
	"github.com/starford/albumen/internal/apperr"
	"github.com/starford/albumen/internal/cache"
	"github.com/starford/albumen/internal/catalog"
	"github.com/starford/albumen/internal/metrics"
	"github.com/starford/albumen/internal/models"
	"github.com/starford/albumen/internal/search"
	"github.com/starford/albumen/internal/sse"
)

// Remote is the subset of the record store client the board uses.
type Remote interface {
	Submit(ctx context.Context, table string, f airtable.Fields) (airtable.Record, error)
	ListAll(ctx context.Context, table string, sort airtable.Sort) ([]airtable.Record, error)
	ListFiltered(ctx context.Context, table, field, value string) ([]airtable.Record, error)
}

// Cache stores the last-known-good records and the local preferences.
type Cache interface {
	ReplaceComments(ctx context.Context, comments []models.Comment) error
	AppendComment(ctx context.Context, c models.Comment) error
	Comments(ctx context.Context) ([]models.Comment, error)
	ReplaceMessages(ctx context.Context, messages []models.Message) error
	Messages(ctx context.Context) ([]models.Message, error)
	GetPref(ctx context.Context, key string) (string, error)
	SetPref(ctx context.Context, key, value string) error
}

// Publisher receives change notifications.
type Publisher interface {
	Publish(event sse.Event)
}

// Event types published by the board.
const (
	EventCommentCreated = "comment.created"
	EventMessageCreated = "message.created"
)

// Tables names the two remote tables.
type Tables struct {
	Messages string
	Comments string
}

// DefaultTables matches the stock Airtable base layout.
var DefaultTables = Tables{Messages: "Messages", Comments: "Image Comments"}

// Options wire a Service. Cache, Catalog, Publisher, Metrics and Logger
// are optional.
type Options struct {
	Remote    Remote
	Cache     Cache
	Index     *search.CommentIndex
	Catalog   *catalog.Holder
	Tables    Tables
	Publisher Publisher
	Metrics   *metrics.Collector
	Logger    *slog.Logger
}

// Service coordinates the remote store, the comment index and the cache.
type Service struct {
	remote  Remote
	cache   Cache
	index   *search.CommentIndex
	catalog *catalog.Holder
	tables  Tables
	pub     Publisher
	metrics *metrics.Collector
	logger  *slog.Logger
}

// NewService creates a board service.
func NewService(opts Options) *Service {
	if opts.Index == nil {
		opts.Index = search.NewCommentIndex()
	}
	if opts.Tables.Messages == "" {
		opts.Tables.Messages = DefaultTables.Messages
	}
	if opts.Tables.Comments == "" {
		opts.Tables.Comments = DefaultTables.Comments
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		remote:  opts.Remote,
		cache:   opts.Cache,
		index:   opts.Index,
		catalog: opts.Catalog,
		tables:  opts.Tables,
		pub:     opts.Publisher,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
}

// Index returns the comment search index.
func (s *Service) Index() *search.CommentIndex {
	return s.index
}

// LoadCommentIndex rebuilds the comment index from every remote comment.
// When the remote read fails the cached copy is used instead; an error is
// returned only when neither source is available.
func (s *Service) LoadCommentIndex(ctx context.Context) error {
	recs, err := s.remote.ListAll(ctx, s.tables.Comments, airtable.NewestFirst)
	if err == nil {
		comments := airtable.Comments(recs)
		s.index.Replace(search.GroupByImage(comments))
		if s.cache != nil {
			if cerr := s.cache.ReplaceComments(ctx, comments); cerr != nil {
				s.logger.Warn("cache comments", slog.String("error", cerr.Error()))
			}
		}
		s.logger.Info("comment index loaded", slog.Int("comments", len(comments)))
		return nil
	}

	s.logger.Warn("load comments from remote", slog.String("error", err.Error()))
	if s.cache == nil {
		return err
	}
	cached, cerr := s.cache.Comments(ctx)
	if cerr != nil {
		return errors.Join(err, cerr)
	}
	s.metrics.Fallback("comments")
	s.index.Replace(search.GroupByImage(cached))
	s.logger.Info("comment index loaded from cache", slog.Int("comments", len(cached)))
	return nil
}

// RunResync reloads the comment index every interval until ctx ends.
func (s *Service) RunResync(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := s.LoadCommentIndex(ctx); err != nil {
				s.logger.Error("resync comment index", slog.String("error", err.Error()))
			}
		}
	}
}

// CommentsForImage fetches the comments of one image, newest first. On a
// remote failure the indexed comments are returned together with the error
// so the caller can tell the list may be stale.
func (s *Service) CommentsForImage(ctx context.Context, filename string) ([]models.Comment, error) {
	recs, err := s.remote.ListFiltered(ctx, s.tables.Comments, airtable.FieldImageFilename, filename)
	if err == nil {
		return airtable.Comments(recs), nil
	}
	s.metrics.Fallback("comments")
	fallback := s.index.CommentsFor(filename)
	sortNewestFirst(fallback, func(c models.Comment) string { return c.Timestamp })
	return fallback, err
}

// SubmitComment validates and stores a comment. The filename must name a
// catalog entry. On success the comment is already in the search index when
// SubmitComment returns; on failure no local state changes.
func (s *Service) SubmitComment(ctx context.Context, in CommentInput) (models.Comment, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return models.Comment{}, invalid(err)
	}
	if s.catalog != nil {
		if _, ok := s.catalog.Current().Lookup(in.Filename); !ok {
			return models.Comment{}, fmt.Errorf("%w: image %s", apperr.ErrNotFound, in.Filename)
		}
	}

	rec, err := s.remote.Submit(ctx, s.tables.Comments, airtable.CommentFields(in.Author, in.Text, in.Filename))
	if err != nil {
		s.logger.Error("submit comment",
			slog.String("filename", in.Filename),
			slog.String("error", err.Error()))
		return models.Comment{}, err
	}

	c := rec.Comment()
	if c.ImageFilename == "" {
		c.ImageFilename = in.Filename
	}
	if c.Text == "" {
		c.Text = in.Text
	}
	if c.Author == models.DefaultAuthor {
		c.Author = in.Author
	}
	s.index.Append(c.ImageFilename, c)

	if s.cache != nil {
		if err := s.cache.AppendComment(ctx, c); err != nil {
			s.logger.Warn("cache comment", slog.String("error", err.Error()))
		}
	}
	s.publish(EventCommentCreated, c)
	return c, nil
}

// Messages returns the board, newest first, filtered by query. A remote
// failure falls back to the cached board.
func (s *Service) Messages(ctx context.Context, query string) ([]models.Message, error) {
	msgs, err := s.loadMessages(ctx)
	if err != nil {
		return nil, err
	}
	return search.FilterMessages(msgs, query), nil
}

func (s *Service) loadMessages(ctx context.Context) ([]models.Message, error) {
	recs, err := s.remote.ListAll(ctx, s.tables.Messages, airtable.NewestFirst)
	if err == nil {
		msgs := airtable.Messages(recs)
		if s.cache != nil {
			if cerr := s.cache.ReplaceMessages(ctx, msgs); cerr != nil {
				s.logger.Warn("cache messages", slog.String("error", cerr.Error()))
			}
		}
		return s.withReferences(msgs), nil
	}

	s.logger.Warn("load messages from remote", slog.String("error", err.Error()))
	if s.cache == nil {
		return nil, err
	}
	cached, cerr := s.cache.Messages(ctx)
	if cerr != nil {
		return nil, errors.Join(err, cerr)
	}
	s.metrics.Fallback("messages")
	return s.withReferences(cached), nil
}

// PostMessage validates and submits a board message.
func (s *Service) PostMessage(ctx context.Context, in MessageInput) (models.Message, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return models.Message{}, invalid(err)
	}

	rec, err := s.remote.Submit(ctx, s.tables.Messages, airtable.MessageFields(in.Author, in.Text, in.ImageFilename))
	if err != nil {
		s.logger.Error("submit message", slog.String("error", err.Error()))
		return models.Message{}, err
	}
	m := rec.Message()
	if m.Text == "" {
		m.Text = in.Text
	}
	if m.Author == models.DefaultAuthor {
		m.Author = in.Author
	}
	m.References = s.references(m.Text)
	s.publish(EventMessageCreated, m)
	return m, nil
}

// Username returns the stored display name, or "" when none is set.
func (s *Service) Username(ctx context.Context) string {
	if s.cache == nil {
		return ""
	}
	name, err := s.cache.GetPref(ctx, cache.UsernameKey)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			s.logger.Warn("read username", slog.String("error", err.Error()))
		}
		return ""
	}
	return name
}

// SetUsername stores the display name used to prefill comment forms.
func (s *Service) SetUsername(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if err := validation.Validate(name, validation.Required, validation.RuneLength(1, maxAuthor)); err != nil {
		return invalid(fmt.Errorf("name: %w", err))
	}
	if s.cache == nil {
		return fmt.Errorf("board: no preference store configured")
	}
	return s.cache.SetPref(ctx, cache.UsernameKey, name)
}

func (s *Service) withReferences(msgs []models.Message) []models.Message {
	for i := range msgs {
		msgs[i].References = s.references(msgs[i].Text)
	}
	return msgs
}

// references extracts filenames from text, mapping each onto its catalog
// spelling when the catalog knows it.
func (s *Service) references(text string) []string {
	names := ExtractFilenames(text)
	if s.catalog == nil {
		return names
	}
	cat := s.catalog.Current()
	for i, n := range names {
		if it, ok := cat.LookupFold(n); ok {
			names[i] = it.Filename
		}
	}
	return names
}

func (s *Service) publish(kind string, data any) {
	if s.pub != nil {
		s.pub.Publish(sse.Event{Type: kind, Data: data})
	}
}

func sortNewestFirst[T any](items []T, ts func(T) string) {
	slices.SortStableFunc(items, func(a, b T) int {
		return strings.Compare(ts(b), ts(a))
	})
}
