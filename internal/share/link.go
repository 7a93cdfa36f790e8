package share

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/starford/albumen/internal/models"
)

// Param is the query parameter carrying shared filenames.
const Param = "share"

// DefaultTitle names the archive in share e-mails.
const DefaultTitle = "Family Archive"

const mailBody = "Hi,\n\nI wanted to share %d image%s from the %s with you.\n\nClick this link to view them:\n%s\n\nBest regards"

// BuildURL returns pageURL with its share parameter set to the comma-joined
// filenames. Other query parameters are kept.
func BuildURL(pageURL string, filenames []string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("share: parse page url: %w", err)
	}
	q := u.Query()
	q.Set(Param, strings.Join(filenames, ","))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Parse splits a raw share parameter value into filenames, dropping blanks
// and duplicates while keeping first-seen order.
func Parse(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// FromURL extracts the shared filenames from a full page URL.
func FromURL(rawURL string) ([]string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("share: parse url: %w", err)
	}
	return Parse(u.Query().Get(Param)), nil
}

// Restrict keeps the items whose filename is in names, in catalog order.
// Unknown names are ignored.
func Restrict(items []models.CatalogItem, names []string) []models.CatalogItem {
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	out := make([]models.CatalogItem, 0, len(names))
	for _, it := range items {
		if _, ok := want[it.Filename]; ok {
			out = append(out, it)
		}
	}
	return out
}

// Mailto builds the mailto: link that carries shareURL in its body.
func Mailto(title, shareURL string, count int) string {
	if title == "" {
		title = DefaultTitle
	}
	plural := ""
	if count > 1 {
		plural = "s"
	}
	subject := title + " - Shared Images"
	body := fmt.Sprintf(mailBody, count, plural, title, shareURL)
	return "mailto:?subject=" + escape(subject) + "&body=" + escape(body)
}

// escape percent-encodes s for a mailto header value.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
