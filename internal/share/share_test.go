package share

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/starford/albumen/internal/apperr"
	"github.com/starford/albumen/internal/models"
)

func TestSelectionToggle(t *testing.T) {
	var s Selection
	on, err := s.Toggle("a.jpg")
	if err != nil || !on {
		t.Fatalf("Toggle = %v, %v", on, err)
	}
	if !s.Has("a.jpg") || s.Len() != 1 {
		t.Error("a.jpg should be selected")
	}
	on, _ = s.Toggle("a.jpg")
	if on || s.Has("a.jpg") {
		t.Error("second toggle should deselect")
	}
}

func TestSelectionLimit(t *testing.T) {
	var s Selection
	for i := 0; i < MaxSelection; i++ {
		if _, err := s.Toggle(fmt.Sprintf("%04d.jpg", i)); err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
	}
	_, err := s.Toggle("extra.jpg")
	if !errors.Is(err, apperr.ErrSelectionFull) {
		t.Fatalf("err = %v, want ErrSelectionFull", err)
	}
	if s.Len() != MaxSelection || s.Has("extra.jpg") {
		t.Error("failed toggle must leave selection unchanged")
	}
	// Deselecting still works at the limit.
	if on, err := s.Toggle("0000.jpg"); err != nil || on {
		t.Errorf("deselect at limit = %v, %v", on, err)
	}
	s.Clear()
	if s.Len() != 0 {
		t.Error("Clear should empty the selection")
	}
}

func TestShareRoundTrip(t *testing.T) {
	var s Selection
	_, _ = s.Toggle("a.jpg")
	_, _ = s.Toggle("b.jpg")

	link, err := BuildURL("https://archive.example/index.html?tab=photos", s.Names())
	if err != nil {
		t.Fatalf("BuildURL: %v", err)
	}
	got, err := FromURL(link)
	if err != nil {
		t.Fatalf("FromURL: %v", err)
	}
	if len(got) != 2 || got[0] != "a.jpg" || got[1] != "b.jpg" {
		t.Fatalf("round trip = %v", got)
	}
	u, _ := url.Parse(link)
	if u.Query().Get("tab") != "photos" {
		t.Error("other parameters should survive")
	}

	items := []models.CatalogItem{{Filename: "b.jpg"}, {Filename: "c.jpg"}, {Filename: "a.jpg"}}
	restricted := Restrict(items, got)
	if len(restricted) != 2 || restricted[0].Filename != "b.jpg" || restricted[1].Filename != "a.jpg" {
		t.Errorf("Restrict = %+v", restricted)
	}
}

func TestParseTolerance(t *testing.T) {
	got := Parse(" a.jpg,,b.jpg , a.jpg,")
	if len(got) != 2 || got[0] != "a.jpg" || got[1] != "b.jpg" {
		t.Errorf("Parse = %v", got)
	}
	if Parse("") != nil {
		t.Error("empty parameter should parse to nil")
	}
	items := []models.CatalogItem{{Filename: "a.jpg"}}
	if got := Restrict(items, []string{"missing.jpg"}); len(got) != 0 {
		t.Errorf("unknown names should be omitted, got %+v", got)
	}
}

func TestMailto(t *testing.T) {
	link := Mailto("Gaither Family Archive", "https://archive.example/?tab=x&share=a.jpg%2Cb.jpg", 2)
	if !strings.HasPrefix(link, "mailto:?subject=") {
		t.Fatalf("link = %q", link)
	}
	if strings.Count(link, "&") != 1 {
		t.Fatalf("body must not leak raw ampersands: %q", link)
	}
	if !strings.Contains(link, "Gaither%20Family%20Archive%20-%20Shared%20Images") {
		t.Errorf("subject missing: %q", link)
	}
	body := link[strings.Index(link, "&body=")+len("&body="):]
	decoded, err := url.PathUnescape(body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(decoded, "share 2 images") {
		t.Errorf("body = %q", decoded)
	}
	if !strings.Contains(decoded, "https://archive.example/?tab=x&share=a.jpg%2Cb.jpg") {
		t.Errorf("body should carry the share url: %q", decoded)
	}
	if single := Mailto("", "u", 1); strings.Contains(single, "images") || !strings.Contains(single, "Family%20Archive") {
		t.Errorf("singular wording expected: %q", single)
	}
}
