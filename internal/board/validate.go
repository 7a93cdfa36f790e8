package board

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/albumen/internal/apperr"
)

const (
	maxAuthor = 100
	maxText   = 5000
)

// CommentInput is a comment awaiting submission.
type CommentInput struct {
	Filename string `json:"filename"`
	Author   string `json:"author"`
	Text     string `json:"text"`
}

func (in *CommentInput) normalize() {
	in.Filename = strings.TrimSpace(in.Filename)
	in.Author = strings.TrimSpace(in.Author)
	in.Text = strings.TrimSpace(in.Text)
}

// Validate checks the trimmed fields.
func (in *CommentInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Filename, validation.Required),
		validation.Field(&in.Author, validation.Required, validation.RuneLength(1, maxAuthor)),
		validation.Field(&in.Text, validation.Required, validation.RuneLength(1, maxText)),
	)
}

// MessageInput is a board message awaiting submission. ImageFilename is an
// optional reference typed by the author.
type MessageInput struct {
	Author        string `json:"author"`
	Text          string `json:"text"`
	ImageFilename string `json:"image_filename"`
}

func (in *MessageInput) normalize() {
	in.Author = strings.TrimSpace(in.Author)
	in.Text = strings.TrimSpace(in.Text)
	in.ImageFilename = strings.TrimSpace(in.ImageFilename)
}

// Validate checks the trimmed fields.
func (in *MessageInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Author, validation.Required, validation.RuneLength(1, maxAuthor)),
		validation.Field(&in.Text, validation.Required, validation.RuneLength(1, maxText)),
	)
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", apperr.ErrValidation, err)
}
