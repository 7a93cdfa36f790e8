package board

import (
	"regexp"
	"strings"
)

var filenameRe = regexp.MustCompile(`(?i)\b\d{4}\.(?:jpg|jpeg|png|tiff|tif|gif|webp)\b|\b[a-z_-]+\d{3,4}\.(?:jpg|jpeg|png|tiff|tif|gif|webp)\b`)

// ExtractFilenames returns the image filenames mentioned in text,
// lower-cased and deduplicated in order of appearance.
func ExtractFilenames(text string) []string {
	matches := filenameRe.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		name := strings.ToLower(m)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
