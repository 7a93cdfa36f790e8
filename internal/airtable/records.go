package airtable

import "github.com/starford/albumen/internal/models"

// Field names used by both tables.
const (
	FieldAuthor        = "Author Name"
	FieldMessageText   = "Message Text"
	FieldCommentText   = "Comment Text"
	FieldImageFilename = "Image Filename"
	FieldTimestamp     = "Timestamp"
)

// Fields is the union of the message and comment table columns.
type Fields struct {
	Author        string `json:"Author Name,omitempty"`
	MessageText   string `json:"Message Text,omitempty"`
	CommentText   string `json:"Comment Text,omitempty"`
	ImageFilename string `json:"Image Filename,omitempty"`
	Timestamp     string `json:"Timestamp,omitempty"`
}

// Record is one table row.
type Record struct {
	ID          string `json:"id"`
	CreatedTime string `json:"createdTime,omitempty"`
	Fields      Fields `json:"fields"`
}

// CommentFields builds the fields for a new image comment.
func CommentFields(author, text, filename string) Fields {
	return Fields{Author: author, CommentText: text, ImageFilename: filename}
}

// MessageFields builds the fields for a new guestbook message.
func MessageFields(author, text, filename string) Fields {
	return Fields{Author: author, MessageText: text, ImageFilename: filename}
}

// Comment maps a comments-table record.
func (r Record) Comment() models.Comment {
	return models.Comment{
		ID:            r.ID,
		Author:        author(r.Fields.Author),
		Text:          r.Fields.CommentText,
		Timestamp:     r.timestamp(),
		ImageFilename: r.Fields.ImageFilename,
	}
}

// Message maps a messages-table record. References are left for the caller.
func (r Record) Message() models.Message {
	return models.Message{
		ID:            r.ID,
		Author:        author(r.Fields.Author),
		Text:          r.Fields.MessageText,
		Timestamp:     r.timestamp(),
		ImageFilename: r.Fields.ImageFilename,
	}
}

// Comments maps a slice of records.
func Comments(recs []Record) []models.Comment {
	out := make([]models.Comment, len(recs))
	for i, r := range recs {
		out[i] = r.Comment()
	}
	return out
}

// Messages maps a slice of records.
func Messages(recs []Record) []models.Message {
	out := make([]models.Message, len(recs))
	for i, r := range recs {
		out[i] = r.Message()
	}
	return out
}

func author(name string) string {
	if name == "" {
		return models.DefaultAuthor
	}
	return name
}

func (r Record) timestamp() string {
	if r.Fields.Timestamp != "" {
		return r.Fields.Timestamp
	}
	return r.CreatedTime
}
