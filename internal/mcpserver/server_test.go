package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/albumen/internal/airtable"
	"github.com/starford/albumen/internal/board"
	"github.com/starford/albumen/internal/catalog"
	"github.com/starford/albumen/internal/models"
	"github.com/starford/albumen/internal/search"
	tu "github.com/starford/albumen/internal/testutil"
)

func testServer(t *testing.T) (*Server, *tu.FakeAirtable) {
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

	srv := New(Deps{
		Catalog:  holder,
		URLs:     catalog.URLs{ImageBase: "https://img.example/", ThumbnailBase: "https://img.example/t/"},
		Board:    b,
		ShareURL: "https://archive.example/",
		Title:    "Family Archive",
	}, "test")
	return srv, fake
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process call helper, so dispatch to the handlers.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_catalog":
		result, err = srv.searchCatalog(ctx, req)
	case "get_image":
		result, err = srv.getImage(ctx, req)
	case "list_comments":
		result, err = srv.listComments(ctx, req)
	case "add_comment":
		result, err = srv.addComment(ctx, req)
	case "list_messages":
		result, err = srv.listMessages(ctx, req)
	case "post_message":
		result, err = srv.postMessage(ctx, req)
	case "share_link":
		result, err = srv.shareLink(ctx, req)
	case "get_archive_guide":
		result, err = srv.getArchiveGuide(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestSearchCatalog(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "search_catalog", map[string]interface{}{"query": "bridge"})
	var out struct {
		Items []models.ImageRef `json:"items"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0].Filename != "0002.jpg" {
		t.Errorf("items = %+v", out.Items)
	}

	r = callTool(t, srv, "search_catalog", map[string]interface{}{"per_page": float64(2), "page": float64(2)})
	if err := json.Unmarshal([]byte(resultText(r)), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Items) != 2 || out.Items[0].Filename != "0007.jpg" {
		t.Errorf("page 2 = %+v", out.Items)
	}
}

func TestGetImage(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "get_image", map[string]interface{}{"filename": "0001.JPG"})
	if r.IsError || !strings.Contains(resultText(r), `"image_url": "https://img.example/0001.jpg"`) {
		t.Errorf("get_image = %q", resultText(r))
	}

	r = callTool(t, srv, "get_image", map[string]interface{}{"filename": "nope.jpg"})
	if !r.IsError {
		t.Error("expected error for missing image")
	}
}

func TestAddAndListComments(t *testing.T) {
	srv, fake := testServer(t)

	r := callTool(t, srv, "list_comments", map[string]interface{}{"filename": "0001.jpg"})
	if text := resultText(r); text != "no comments found" {
		t.Errorf("empty list = %q", text)
	}

	r = callTool(t, srv, "add_comment", map[string]interface{}{
		"filename": "0001.jpg",
		"author":   "Alice",
		"text":     "That's Whiskers",
	})
	if r.IsError {
		t.Fatalf("add_comment: %s", resultText(r))
	}
	if n := len(fake.Records(board.DefaultTables.Comments)); n != 1 {
		t.Fatalf("remote records = %d", n)
	}

	r = callTool(t, srv, "list_comments", map[string]interface{}{"filename": "0001.jpg"})
	if !strings.Contains(resultText(r), "That's Whiskers") {
		t.Errorf("list = %q", resultText(r))
	}

	r = callTool(t, srv, "add_comment", map[string]interface{}{"filename": "9999.jpg", "author": "A", "text": "x"})
	if !r.IsError {
		t.Error("expected error for unknown image")
	}
	r = callTool(t, srv, "add_comment", map[string]interface{}{"filename": "0001.jpg", "author": "A", "text": " "})
	if !r.IsError {
		t.Error("expected validation error")
	}
}

func TestMessages(t *testing.T) {
	srv, fake := testServer(t)
	fake.Seed(board.DefaultTables.Messages, airtable.MessageFields("Bob", "Reunion photos are up", ""))

	r := callTool(t, srv, "post_message", map[string]interface{}{
		"author": "Carol",
		"text":   "Grandpa is in img_0100.jpeg",
	})
	if r.IsError {
		t.Fatalf("post_message: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"IMG_0100.jpeg"`) {
		t.Errorf("references not resolved: %q", resultText(r))
	}

	r = callTool(t, srv, "list_messages", map[string]interface{}{"query": "reunion"})
	text := resultText(r)
	if !strings.Contains(text, "Bob") || strings.Contains(text, "Carol") {
		t.Errorf("filtered = %q", text)
	}
}

func TestShareLink(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "share_link", map[string]interface{}{"filenames": "0001.jpg, 0002.jpg"})
	if r.IsError || !strings.Contains(resultText(r), "https://archive.example/?share=0001.jpg%2C0002.jpg") {
		t.Errorf("share_link = %q", resultText(r))
	}

	r = callTool(t, srv, "share_link", map[string]interface{}{"filenames": " , "})
	if !r.IsError {
		t.Error("expected error for empty share")
	}
}

func TestArchiveGuide(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_archive_guide", map[string]interface{}{})
	if resultText(r) != ArchiveGuide {
		t.Error("guide text mismatch")
	}
}
