// Package storage abstracts where static archive resources (the catalog
// document) are read from: the local file system or an HTTP origin.
package storage

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"
)

// Source reads named resources.
type Source interface {
	// Read returns the raw bytes of the named resource. A missing resource
	// yields an error matching os.ErrNotExist.
	Read(ctx context.Context, name string) ([]byte, error)
}

// Resolve splits a catalog location into a Source and the resource name
// within it. http(s) locations resolve to an HTTP source rooted at the
// location's directory; anything else is treated as a local file path.
func Resolve(location string) (Source, string, error) {
	if u, err := url.Parse(location); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		idx := strings.LastIndex(location, "/")
		return NewHTTP(location[:idx+1], nil), location[idx+1:], nil
	}
	fs, err := NewFS(filepath.Dir(location))
	if err != nil {
		return nil, "", err
	}
	return fs, filepath.Base(location), nil
}
