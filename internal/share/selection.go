// Package share implements the image selection set and the share links
// built from it.
package share

import (
	"slices"

	"github.com/starford/albumen/internal/apperr"
)

// MaxSelection is the largest number of images one share may carry.
const MaxSelection = 10

// Selection is an insertion-ordered set of filenames capped at
// MaxSelection. The zero value is empty and ready to use. It is not safe
// for concurrent use.
type Selection struct {
	names []string
}

// Toggle adds filename if absent and removes it if present. Adding beyond
// MaxSelection fails with apperr.ErrSelectionFull and leaves the set as is.
// It reports whether filename is selected afterwards.
func (s *Selection) Toggle(filename string) (bool, error) {
	if i := slices.Index(s.names, filename); i >= 0 {
		s.names = slices.Delete(s.names, i, i+1)
		return false, nil
	}
	if len(s.names) >= MaxSelection {
		return false, apperr.ErrSelectionFull
	}
	s.names = append(s.names, filename)
	return true, nil
}

// Has reports membership.
func (s *Selection) Has(filename string) bool {
	return slices.Contains(s.names, filename)
}

// Len returns the selection size.
func (s *Selection) Len() int {
	return len(s.names)
}

// Names returns a copy of the selected filenames in selection order.
func (s *Selection) Names() []string {
	return slices.Clone(s.names)
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.names = nil
}
