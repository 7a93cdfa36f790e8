package api

import (
	"github.com/starford/albumen/internal/models"
	"github.com/starford/albumen/internal/paging"
	"github.com/starford/albumen/internal/session"
	"github.com/starford/albumen/internal/slideshow"
)

// CatalogPage is one page of the filtered catalog.
type CatalogPage struct {
	Query       string            `json:"query" example:"beach"`
	Items       []models.ImageRef `json:"items" validate:"required"`
	Paging      paging.View       `json:"paging" validate:"required"`
	Filtered    int               `json:"filtered_count" example:"12"`
	CatalogSize int               `json:"catalog_count" example:"1200"`
}

// SharedCatalog is the catalog restricted to a share link.
type SharedCatalog struct {
	Requested []string          `json:"requested" validate:"required"`
	Items     []models.ImageRef `json:"items" validate:"required"`
	Count     int               `json:"count" example:"3"`
}

// ShareRequest is the request body for building a share link.
type ShareRequest struct {
	Filenames []string `json:"filenames" example:"0001.jpg,0002.jpg" validate:"required"`
}

// ShareLink is a built share (aliased from the session layer).
type ShareLink = session.Link

// CommentRequest is the request body for posting an image comment.
type CommentRequest struct {
	Author string `json:"author" example:"Grandma" validate:"required"`
	Text   string `json:"text" example:"That is the old porch!" validate:"required"`
}

// CommentList wraps an image's comment thread.
type CommentList struct {
	Comments []models.Comment `json:"comments" validate:"required"`
	// Fallback marks a thread served from the local index after a remote
	// failure.
	Fallback bool `json:"fallback,omitempty"`
}

// MessageRequest is the request body for posting to the message board.
type MessageRequest struct {
	Author        string `json:"author" example:"Uncle Bob" validate:"required"`
	Text          string `json:"text" example:"See 0042.jpg" validate:"required"`
	ImageFilename string `json:"image_filename,omitempty" example:"0042.jpg"`
}

// MessageList wraps the message board.
type MessageList struct {
	Messages []models.Message `json:"messages" validate:"required"`
}

// MessageCreated is returned after posting, with the refreshed board.
type MessageCreated struct {
	Message  models.Message   `json:"message" validate:"required"`
	Messages []models.Message `json:"messages"`
}

// Me is the persisted display name.
type Me struct {
	Username string `json:"username" example:"Grandma"`
}

// SessionSnapshot is the full state of a browse session.
type SessionSnapshot = session.Snapshot

// QueryRequest updates a session's search. Immediate skips the debounce.
type QueryRequest struct {
	Query     string `json:"query" example:"cat"`
	Immediate bool   `json:"immediate,omitempty"`
}

// PageRequest jumps to a page.
type PageRequest struct {
	Page int `json:"page" example:"2" validate:"required"`
}

// PerPageRequest changes the page size.
type PerPageRequest struct {
	PerPage int `json:"per_page" example:"50" validate:"required"`
}

// OpenRequest opens the lightbox by filtered index or by filename.
type OpenRequest struct {
	Index    *int   `json:"index,omitempty" example:"0"`
	Filename string `json:"filename,omitempty" example:"0001.jpg"`
}

// SessionCommentResponse is returned after commenting from a session.
type SessionCommentResponse struct {
	Comment models.Comment  `json:"comment" validate:"required"`
	Session SessionSnapshot `json:"session" validate:"required"`
}

// SelectRequest toggles one image in the share selection.
type SelectRequest struct {
	Filename string `json:"filename" example:"0001.jpg" validate:"required"`
}

// SelectResponse reports the toggle outcome.
type SelectResponse struct {
	Selected bool            `json:"selected"`
	Session  SessionSnapshot `json:"session" validate:"required"`
}

// ShareViewRequest applies a share link value to a session.
type ShareViewRequest struct {
	Share string `json:"share" example:"0001.jpg,0002.jpg" validate:"required"`
}

// SlideshowRequest creates a slideshow. Filenames, when given, take
// precedence over Query.
type SlideshowRequest struct {
	Query     string   `json:"query,omitempty" example:"wedding"`
	Filenames []string `json:"filenames,omitempty"`
	SpeedMS   int      `json:"speed_ms,omitempty" example:"4000"`
	Shuffle   bool     `json:"shuffle,omitempty"`
	Autoplay  bool     `json:"autoplay,omitempty"`
}

// SlideshowView is the state of a slideshow with its id.
type SlideshowView struct {
	ID string `json:"id"`
	slideshow.View
}

// ShuffleRequest toggles shuffle mode.
type ShuffleRequest struct {
	Shuffle bool `json:"shuffle"`
}

// SpeedRequest sets the advance interval.
type SpeedRequest struct {
	SpeedMS int `json:"speed_ms" example:"2000" validate:"required"`
}
