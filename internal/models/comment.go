package models

// DefaultAuthor is used when a remote record carries no author name.
const DefaultAuthor = "Anonymous"

// Comment is a user comment attached to one catalog image.
type Comment struct {
	ID            string `json:"id,omitempty"`
	Author        string `json:"author"`
	Text          string `json:"text"`
	Timestamp     string `json:"timestamp"`
	ImageFilename string `json:"image_filename"`
}

// Message is a board-scoped post. ImageFilename is an optional free-text
// reference typed by the author; References lists the image filenames found
// in Text.
type Message struct {
	ID            string   `json:"id,omitempty"`
	Author        string   `json:"author"`
	Text          string   `json:"text"`
	Timestamp     string   `json:"timestamp"`
	ImageFilename string   `json:"image_filename,omitempty"`
	References    []string `json:"references,omitempty"`
}
