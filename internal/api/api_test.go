package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/albumen/internal/airtable"
	"github.com/starford/albumen/internal/board"
	"github.com/starford/albumen/internal/catalog"
	"github.com/starford/albumen/internal/eventloop"
	"github.com/starford/albumen/internal/models"
	"github.com/starford/albumen/internal/search"
	"github.com/starford/albumen/internal/session"
	"github.com/starford/albumen/internal/slideshow"
	tu "github.com/starford/albumen/internal/testutil"
)

var testURLs = catalog.URLs{ImageBase: "https://img.example/", ThumbnailBase: "https://img.example/t/"}

type testEnv struct {
	router http.Handler
	fake   *tu.FakeAirtable
	board  *board.Service
}

// newTestEnv wires the router over a fake record store and a temp cache.
// An empty token disables auth.
func newTestEnv(t *testing.T, token string) *testEnv {
	t.Helper()
	fake := tu.NewFakeAirtable(t)
	holder := catalog.NewHolder(tu.TestCatalog(t))
	b := board.NewService(board.Options{
		Remote:  fake.Client(),
		Cache:   tu.TestCache(t),
		Index:   search.NewCommentIndex(),
		Catalog: holder,
		Tables:  board.DefaultTables,
	})

	sessions := session.NewRegistry(time.Hour, (*session.Session).Close, nil)
	slideshows := session.NewRegistry(time.Hour, (*slideshow.Slideshow).Close, nil)
	t.Cleanup(sessions.CloseAll)
	t.Cleanup(slideshows.CloseAll)

	deps := Deps{
		Catalog:    holder,
		URLs:       testURLs,
		Board:      b,
		Sessions:   sessions,
		Slideshows: slideshows,
		NewSession: func(id string) *session.Session {
			return session.New(context.Background(), id, eventloop.New(), session.Deps{
				Catalog:  holder,
				Board:    b,
				URLs:     testURLs,
				Debounce: 10 * time.Millisecond,
				ShareURL: "https://archive.example/",
				Title:    "Family Archive",
			}, nil)
		},
		NewSlideshow: func(id string, filenames []string, opts slideshow.Options) *slideshow.Slideshow {
			return slideshow.New(eventloop.New(), filenames, testURLs, opts, nil)
		},
		ShareURL:    "https://archive.example/",
		Title:       "Family Archive",
		AuthEnabled: token != "",
		Token:       token,
	}
	return &testEnv{router: NewRouter(deps), fake: fake, board: b}
}

func (e *testEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func refNames(refs []models.ImageRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Filename
	}
	return out
}

func TestAuthTokenMode(t *testing.T) {
	e := newTestEnv(t, "secret")

	w := e.do(t, http.MethodGet, "/catalog", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/catalog", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/catalog", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d", w.Code)
	}
}

func TestAuthDisabledMode(t *testing.T) {
	e := newTestEnv(t, "")
	if w := e.do(t, http.MethodGet, "/catalog", nil); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestListCatalogFiltersAndPages(t *testing.T) {
	e := newTestEnv(t, "")

	w := e.do(t, http.MethodGet, "/catalog?per_page=3&page=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	page := decode[CatalogPage](t, w)
	if page.Paging.TotalPages != 2 || page.Paging.CurrentPage != 2 || page.Paging.CanNext || !page.Paging.CanPrev {
		t.Fatalf("paging = %+v", page.Paging)
	}
	if got := refNames(page.Items); len(got) != 1 || got[0] != "IMG_0100.jpeg" {
		t.Fatalf("items = %v", got)
	}
	if page.Items[0].ImageURL != "https://img.example/IMG_0100.jpeg" {
		t.Fatalf("image url = %q", page.Items[0].ImageURL)
	}

	page = decode[CatalogPage](t, e.do(t, http.MethodGet, "/catalog?q=+GOLDEN+", nil))
	if got := refNames(page.Items); len(got) != 1 || got[0] != "0002.jpg" {
		t.Fatalf("query items = %v", got)
	}
	if page.Filtered != 1 || page.CatalogSize != 4 || page.Paging.TotalPages != 1 {
		t.Fatalf("counts = %d/%d pages %d", page.Filtered, page.CatalogSize, page.Paging.TotalPages)
	}

	page = decode[CatalogPage](t, e.do(t, http.MethodGet, "/catalog?q=zebra", nil))
	if len(page.Items) != 0 || page.Paging.TotalPages != 1 || page.Paging.CurrentPage != 1 {
		t.Fatalf("no match = %+v", page)
	}
}

func TestGetImage(t *testing.T) {
	e := newTestEnv(t, "")

	w := e.do(t, http.MethodGet, "/catalog/img_0100.JPEG", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	ref := decode[models.ImageRef](t, w)
	if ref.Filename != "IMG_0100.jpeg" || ref.ThumbnailURL != "https://img.example/t/IMG_0100.jpeg" {
		t.Fatalf("ref = %+v", ref)
	}

	if w := e.do(t, http.MethodGet, "/catalog/9999.jpg", nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing: status = %d", w.Code)
	}
}

func TestShareEndpoints(t *testing.T) {
	e := newTestEnv(t, "")

	w := e.do(t, http.MethodPost, "/share", ShareRequest{Filenames: []string{"0007.jpg", "0001.jpg"}})
	if w.Code != http.StatusOK {
		t.Fatalf("create: status = %d, body = %s", w.Code, w.Body.String())
	}
	link := decode[ShareLink](t, w)
	if link.URL != "https://archive.example/?share=0007.jpg%2C0001.jpg" {
		t.Fatalf("url = %q", link.URL)
	}
	if !strings.HasPrefix(link.Mailto, "mailto:?subject=Family%20Archive%20-%20Shared%20Images") {
		t.Fatalf("mailto = %q", link.Mailto)
	}

	shared := decode[SharedCatalog](t, e.do(t, http.MethodGet, "/share?share=0007.jpg,,nope.jpg,0001.jpg", nil))
	if got := refNames(shared.Items); shared.Count != 2 || got[0] != "0001.jpg" || got[1] != "0007.jpg" {
		t.Fatalf("shared = %+v", shared)
	}

	if w := e.do(t, http.MethodPost, "/share", ShareRequest{}); w.Code != http.StatusBadRequest {
		t.Fatalf("empty: status = %d", w.Code)
	}
	many := make([]string, 11)
	for i := range many {
		many[i] = strings.Repeat("x", i+1) + ".jpg"
	}
	if w := e.do(t, http.MethodPost, "/share", ShareRequest{Filenames: many}); w.Code != http.StatusConflict {
		t.Fatalf("too many: status = %d", w.Code)
	}
}

func TestCommentLifecycle(t *testing.T) {
	e := newTestEnv(t, "")
	e.fake.Seed(board.DefaultTables.Comments, airtable.CommentFields("Bob", "old one", "0001.jpg"))

	w := e.do(t, http.MethodPost, "/images/0001.jpg/comments", CommentRequest{Author: " Alice ", Text: "new one"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", w.Code, w.Body.String())
	}
	c := decode[models.Comment](t, w)
	if c.Author != "Alice" || c.ImageFilename != "0001.jpg" || c.Timestamp == "" {
		t.Fatalf("comment = %+v", c)
	}

	list := decode[CommentList](t, e.do(t, http.MethodGet, "/images/0001.jpg/comments", nil))
	if len(list.Comments) != 2 || list.Comments[0].Text != "new one" || list.Fallback {
		t.Fatalf("list = %+v", list)
	}

	me := decode[Me](t, e.do(t, http.MethodGet, "/me", nil))
	if me.Username != "Alice" {
		t.Fatalf("username = %q", me.Username)
	}

	// The new comment is searchable at once.
	page := decode[CatalogPage](t, e.do(t, http.MethodGet, "/catalog?q=new+one", nil))
	if got := refNames(page.Items); len(got) != 1 || got[0] != "0001.jpg" {
		t.Fatalf("search = %v", got)
	}
}

func TestCommentValidationAndFailures(t *testing.T) {
	e := newTestEnv(t, "")

	w := e.do(t, http.MethodPost, "/images/0001.jpg/comments", CommentRequest{Author: "Alice", Text: "   "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("blank text: status = %d", w.Code)
	}
	if n := len(e.fake.Records(board.DefaultTables.Comments)); n != 0 {
		t.Fatalf("remote got %d records", n)
	}

	w = e.do(t, http.MethodPost, "/images/0001.jpg/comments", map[string]any{"author": "A", "bogus": 1})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: status = %d", w.Code)
	}

	w = e.do(t, http.MethodPost, "/images/does-not-exist.jpg/comments", CommentRequest{Author: "Alice", Text: "hi"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown image: status = %d, body = %s", w.Code, w.Body.String())
	}
	if n := len(e.fake.Records(board.DefaultTables.Comments)); n != 0 {
		t.Fatalf("unknown image reached remote: %d records", n)
	}
	if n := e.board.Index().Len(); n != 0 {
		t.Fatalf("unknown image indexed: %d", n)
	}

	e.fake.FailWrites(true)
	w = e.do(t, http.MethodPost, "/images/0001.jpg/comments", CommentRequest{Author: "Alice", Text: "hi"})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("remote down: status = %d", w.Code)
	}
}

func TestListCommentsFallsBackToIndex(t *testing.T) {
	e := newTestEnv(t, "")
	e.fake.Seed(board.DefaultTables.Comments,
		airtable.CommentFields("Bob", "first", "0002.jpg"),
		airtable.CommentFields("Eve", "second", "0002.jpg"))
	if err := e.board.LoadCommentIndex(context.Background()); err != nil {
		t.Fatalf("LoadCommentIndex: %v", err)
	}

	e.fake.FailReads(true)
	w := e.do(t, http.MethodGet, "/images/0002.jpg/comments", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	list := decode[CommentList](t, w)
	if !list.Fallback || len(list.Comments) != 2 || list.Comments[0].Text != "second" {
		t.Fatalf("list = %+v", list)
	}
}

func TestMessages(t *testing.T) {
	e := newTestEnv(t, "")
	e.fake.Seed(board.DefaultTables.Messages, airtable.MessageFields("Bob", "Hello family", ""))

	w := e.do(t, http.MethodPost, "/messages", MessageRequest{Author: "Carol", Text: "Look at 0007.JPG and 0002.jpg"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", w.Code, w.Body.String())
	}
	created := decode[MessageCreated](t, w)
	if created.Message.Author != "Carol" || len(created.Messages) != 2 {
		t.Fatalf("created = %+v", created)
	}
	if refs := created.Message.References; len(refs) != 2 || refs[0] != "0007.jpg" || refs[1] != "0002.jpg" {
		t.Fatalf("references = %v", refs)
	}

	list := decode[MessageList](t, e.do(t, http.MethodGet, "/messages?q=hello", nil))
	if len(list.Messages) != 1 || list.Messages[0].Author != "Bob" {
		t.Fatalf("filtered = %+v", list.Messages)
	}

	if w := e.do(t, http.MethodPost, "/messages", MessageRequest{Author: "", Text: "x"}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing author: status = %d", w.Code)
	}
}

func TestMe(t *testing.T) {
	e := newTestEnv(t, "")

	if me := decode[Me](t, e.do(t, http.MethodGet, "/me", nil)); me.Username != "" {
		t.Fatalf("initial = %q", me.Username)
	}
	w := e.do(t, http.MethodPut, "/me", Me{Username: "  Grandma "})
	if w.Code != http.StatusOK {
		t.Fatalf("put: status = %d", w.Code)
	}
	if me := decode[Me](t, e.do(t, http.MethodGet, "/me", nil)); me.Username != "Grandma" {
		t.Fatalf("after put = %q", me.Username)
	}
	if w := e.do(t, http.MethodPut, "/me", Me{Username: " "}); w.Code != http.StatusBadRequest {
		t.Fatalf("blank: status = %d", w.Code)
	}
}

func TestSessionFlow(t *testing.T) {
	e := newTestEnv(t, "")
	e.fake.Seed(board.DefaultTables.Comments, airtable.CommentFields("Bob", "cute", "0001.jpg"))

	w := e.do(t, http.MethodPost, "/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", w.Code)
	}
	snap := decode[SessionSnapshot](t, w)
	if snap.ID == "" || snap.Filtered != 4 {
		t.Fatalf("snapshot = %+v", snap)
	}
	base := "/sessions/" + snap.ID

	snap = decode[SessionSnapshot](t, e.do(t, http.MethodPost, base+"/per-page", PerPageRequest{PerPage: 2}))
	if snap.Paging.TotalPages != 2 {
		t.Fatalf("pages = %d", snap.Paging.TotalPages)
	}
	snap = decode[SessionSnapshot](t, e.do(t, http.MethodPost, base+"/page", PageRequest{Page: 9}))
	if snap.Paging.CurrentPage != 1 {
		t.Fatalf("out of range page moved to %d", snap.Paging.CurrentPage)
	}
	if w := e.do(t, http.MethodPost, base+"/per-page", PerPageRequest{PerPage: 0}); w.Code != http.StatusBadRequest {
		t.Fatalf("zero per page: status = %d", w.Code)
	}

	snap = decode[SessionSnapshot](t, e.do(t, http.MethodPost, base+"/query", QueryRequest{Query: "cat", Immediate: true}))
	if snap.Query != "cat" || snap.Filtered != 1 {
		t.Fatalf("query = %+v", snap)
	}
	if w := e.do(t, http.MethodPost, base+"/clear", nil); w.Code != http.StatusOK {
		t.Fatalf("clear: status = %d", w.Code)
	}

	w = e.do(t, http.MethodPost, base+"/open", OpenRequest{Filename: "0001.jpg"})
	if w.Code != http.StatusOK {
		t.Fatalf("open: status = %d, body = %s", w.Code, w.Body.String())
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		snap = decode[SessionSnapshot](t, e.do(t, http.MethodGet, base, nil))
		if snap.Lightbox != nil && !snap.Lightbox.Loading {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("comments never loaded")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(snap.Lightbox.Comments) != 1 || snap.Lightbox.Comments[0].Text != "cute" {
		t.Fatalf("lightbox = %+v", snap.Lightbox)
	}

	w = e.do(t, http.MethodPost, base+"/comments", CommentRequest{Author: "Alice", Text: "so fluffy"})
	if w.Code != http.StatusCreated {
		t.Fatalf("comment: status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[SessionCommentResponse](t, w)
	if lb := resp.Session.Lightbox; lb == nil || lb.Comments[0].Text != "so fluffy" {
		t.Fatalf("thread head = %+v", resp.Session.Lightbox)
	}

	snap = decode[SessionSnapshot](t, e.do(t, http.MethodPost, base+"/prev", nil))
	if snap.Lightbox.Index != 0 {
		t.Fatalf("prev moved past start to %d", snap.Lightbox.Index)
	}
	snap = decode[SessionSnapshot](t, e.do(t, http.MethodPost, base+"/next", nil))
	if snap.Lightbox.Index != 1 || snap.Lightbox.Image.Filename != "0002.jpg" {
		t.Fatalf("next = %+v", snap.Lightbox)
	}
	snap = decode[SessionSnapshot](t, e.do(t, http.MethodPost, base+"/close", nil))
	if snap.Lightbox != nil {
		t.Fatal("lightbox still open")
	}
	if w := e.do(t, http.MethodPost, base+"/next", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("next with closed lightbox: status = %d", w.Code)
	}

	if w := e.do(t, http.MethodDelete, base, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete: status = %d", w.Code)
	}
	if w := e.do(t, http.MethodGet, base, nil); w.Code != http.StatusNotFound {
		t.Fatalf("after delete: status = %d", w.Code)
	}
}

func TestSessionSelectionAndShare(t *testing.T) {
	e := newTestEnv(t, "")
	snap := decode[SessionSnapshot](t, e.do(t, http.MethodPost, "/sessions", nil))
	base := "/sessions/" + snap.ID

	if w := e.do(t, http.MethodGet, base+"/share", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("empty share: status = %d", w.Code)
	}

	sel := decode[SelectResponse](t, e.do(t, http.MethodPost, base+"/select", SelectRequest{Filename: "0002.jpg"}))
	if !sel.Selected || len(sel.Session.Selection) != 1 {
		t.Fatalf("select = %+v", sel)
	}
	link := decode[ShareLink](t, e.do(t, http.MethodGet, base+"/share", nil))
	if link.Count != 1 || !strings.HasSuffix(link.URL, "?share=0002.jpg") {
		t.Fatalf("link = %+v", link)
	}

	snap = decode[SessionSnapshot](t, e.do(t, http.MethodPost, base+"/share-view", ShareViewRequest{Share: "0007.jpg,missing.jpg"}))
	if snap.Shared == nil || snap.Shared.Count != 1 || snap.Filtered != 1 || len(snap.Selection) != 0 {
		t.Fatalf("share view = %+v", snap)
	}
	snap = decode[SessionSnapshot](t, e.do(t, http.MethodDelete, base+"/share-view", nil))
	if snap.Shared != nil || snap.Filtered != 4 {
		t.Fatalf("cleared = %+v", snap)
	}

	// A session can start on a shared link.
	w := e.do(t, http.MethodPost, "/sessions?share=0001.jpg,0007.jpg", nil)
	snap = decode[SessionSnapshot](t, w)
	if snap.Shared == nil || snap.Filtered != 2 {
		t.Fatalf("shared start = %+v", snap)
	}
}

func TestUnknownSession(t *testing.T) {
	e := newTestEnv(t, "")
	if w := e.do(t, http.MethodPost, "/sessions/nope/next", nil); w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if w := e.do(t, http.MethodDelete, "/sessions/nope", nil); w.Code != http.StatusNotFound {
		t.Fatalf("delete status = %d", w.Code)
	}
}

func TestSlideshowLifecycle(t *testing.T) {
	e := newTestEnv(t, "")

	w := e.do(t, http.MethodPost, "/slideshows", SlideshowRequest{Query: "wedding", Autoplay: true, SpeedMS: 60000})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", w.Code, w.Body.String())
	}
	v := decode[SlideshowView](t, w)
	if v.ID == "" || v.State != slideshow.Playing || v.SpeedMS != 60000 {
		t.Fatalf("view = %+v", v)
	}
	if v.Frame == nil || v.Frame.Filename != "0007.jpg" || v.Frame.Total != 1 {
		t.Fatalf("frame = %+v", v.Frame)
	}
	base := "/slideshows/" + v.ID

	v = decode[SlideshowView](t, e.do(t, http.MethodPost, base+"/toggle", nil))
	if v.State != slideshow.Stopped {
		t.Fatalf("toggle state = %s", v.State)
	}
	v = decode[SlideshowView](t, e.do(t, http.MethodPost, base+"/shuffle", ShuffleRequest{Shuffle: true}))
	if !v.Shuffle {
		t.Fatal("shuffle not set")
	}
	v = decode[SlideshowView](t, e.do(t, http.MethodPost, base+"/speed", SpeedRequest{SpeedMS: 2000}))
	if v.SpeedMS != 2000 {
		t.Fatalf("speed = %d", v.SpeedMS)
	}
	for _, ms := range []int{0, 1, 99} {
		if w := e.do(t, http.MethodPost, base+"/speed", SpeedRequest{SpeedMS: ms}); w.Code != http.StatusBadRequest {
			t.Fatalf("speed %d: status = %d", ms, w.Code)
		}
	}
	v = decode[SlideshowView](t, e.do(t, http.MethodPost, base+"/play", nil))
	if v.State != slideshow.Playing {
		t.Fatalf("play state = %s", v.State)
	}
	v = decode[SlideshowView](t, e.do(t, http.MethodPost, base+"/pause", nil))
	if v.State != slideshow.Stopped {
		t.Fatalf("pause state = %s", v.State)
	}

	if w := e.do(t, http.MethodDelete, base, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete: status = %d", w.Code)
	}
	if w := e.do(t, http.MethodGet, base, nil); w.Code != http.StatusNotFound {
		t.Fatalf("after delete: status = %d", w.Code)
	}
}

func TestSlideshowFromFilenames(t *testing.T) {
	e := newTestEnv(t, "")

	v := decode[SlideshowView](t, e.do(t, http.MethodPost, "/slideshows", SlideshowRequest{
		Filenames: []string{"0007.jpg", "0001.jpg", "ghost.jpg"},
	}))
	if v.State != slideshow.Stopped || v.Frame == nil || v.Frame.Total != 2 || v.Frame.Filename != "0001.jpg" {
		t.Fatalf("view = %+v", v)
	}

	w := e.do(t, http.MethodPost, "/slideshows", SlideshowRequest{Query: "zebra", Autoplay: true})
	if w.Code != http.StatusConflict {
		t.Fatalf("empty autoplay: status = %d", w.Code)
	}

	for _, ms := range []int{-5, 1, 99} {
		w := e.do(t, http.MethodPost, "/slideshows", SlideshowRequest{SpeedMS: ms, Autoplay: true})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("speed %d: status = %d", ms, w.Code)
		}
	}
}
