package search

import (
	"sync"

	"github.com/starford/albumen/internal/models"
)

// Comments looks up the comments indexed for an image.
type Comments interface {
	CommentsFor(filename string) []models.Comment
}

// CommentIndex maps image filenames to their comments for search. It is
// replaced wholesale on a full load and appended to after each local
// submission, so it may briefly hold a comment twice when a reload races an
// append. It is safe for concurrent use.
type CommentIndex struct {
	mu     sync.RWMutex
	byFile map[string][]models.Comment
}

var _ Comments = (*CommentIndex)(nil)

// NewCommentIndex returns an empty index.
func NewCommentIndex() *CommentIndex {
	return &CommentIndex{byFile: make(map[string][]models.Comment)}
}

// Replace swaps in a freshly loaded index.
func (x *CommentIndex) Replace(byFile map[string][]models.Comment) {
	if byFile == nil {
		byFile = make(map[string][]models.Comment)
	}
	x.mu.Lock()
	x.byFile = byFile
	x.mu.Unlock()
}

// Append adds one comment for filename.
func (x *CommentIndex) Append(filename string, c models.Comment) {
	x.mu.Lock()
	x.byFile[filename] = append(x.byFile[filename], c)
	x.mu.Unlock()
}

// CommentsFor returns a copy of the comments indexed for filename.
func (x *CommentIndex) CommentsFor(filename string) []models.Comment {
	x.mu.RLock()
	defer x.mu.RUnlock()
	cs := x.byFile[filename]
	if len(cs) == 0 {
		return nil
	}
	out := make([]models.Comment, len(cs))
	copy(out, cs)
	return out
}

// Len returns the number of indexed comments.
func (x *CommentIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	n := 0
	for _, cs := range x.byFile {
		n += len(cs)
	}
	return n
}

// GroupByImage builds an index map from a flat comment list, keeping the
// list's order within each image.
func GroupByImage(comments []models.Comment) map[string][]models.Comment {
	out := make(map[string][]models.Comment)
	for _, c := range comments {
		if c.ImageFilename == "" {
			continue
		}
		out[c.ImageFilename] = append(out[c.ImageFilename], c)
	}
	return out
}
