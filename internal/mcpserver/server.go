// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the photo archive to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/albumen/internal/apperr"
	"github.com/starford/albumen/internal/board"
	"github.com/starford/albumen/internal/catalog"
	"github.com/starford/albumen/internal/paging"
	"github.com/starford/albumen/internal/search"
	"github.com/starford/albumen/internal/session"
	"github.com/starford/albumen/internal/share"
)

const guideURI = "albumen://archive-guide"

// Deps are the services the tools read and write.
type Deps struct {
	Catalog  *catalog.Holder
	URLs     catalog.URLs
	Board    *board.Service
	ShareURL string
	Title    string
}

// Server wraps the MCP server with the archive tools.
type Server struct {
	mcp *server.MCPServer
	d   Deps
}

// New creates a new MCP server with all archive tools registered.
func New(d Deps, version string) *Server {
	s := &Server{d: d}

	s.mcp = server.NewMCPServer(
		"Albumen",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_catalog",
		mcp.WithDescription("Search the photo catalog by label, visible text, landmark, detected object or comment text. "+
			"An empty query lists everything. Results are paged."),
		mcp.WithString("query", mcp.Description("Case-insensitive substring to match")),
		mcp.WithNumber("page", mcp.Description("Page number, starting at 1")),
		mcp.WithNumber("per_page", mcp.Description("Items per page (default 25)")),
	), s.searchCatalog)

	s.mcp.AddTool(mcp.NewTool("get_image",
		mcp.WithDescription("Get one catalog entry with its image and thumbnail URLs."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Image filename, e.g. 0001.jpg")),
	), s.getImage)

	s.mcp.AddTool(mcp.NewTool("list_comments",
		mcp.WithDescription("List the comments on an image, newest first."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Image filename")),
	), s.listComments)

	s.mcp.AddTool(mcp.NewTool("add_comment",
		mcp.WithDescription("Add a comment to an image. Read the archive guide first via "+
			"the get_archive_guide tool or the "+guideURI+" resource."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Image filename")),
		mcp.WithString("author", mcp.Required(), mcp.Description("Display name of the commenter")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Comment text")),
	), s.addComment)

	s.mcp.AddTool(mcp.NewTool("list_messages",
		mcp.WithDescription("List the message board, newest first. Each message lists the image filenames it mentions."),
		mcp.WithString("query", mcp.Description("Optional filter on author or text")),
	), s.listMessages)

	s.mcp.AddTool(mcp.NewTool("post_message",
		mcp.WithDescription("Post a message to the board. Mention images by filename to link them."),
		mcp.WithString("author", mcp.Required(), mcp.Description("Display name")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Message text")),
		mcp.WithString("image_filename", mcp.Description("Optional image the message is about")),
	), s.postMessage)

	s.mcp.AddTool(mcp.NewTool("share_link",
		mcp.WithDescription(fmt.Sprintf("Build a share link and mailto link for up to %d images.", share.MaxSelection)),
		mcp.WithString("filenames", mcp.Required(), mcp.Description("Comma-separated image filenames")),
	), s.shareLink)

	s.mcp.AddTool(mcp.NewTool("get_archive_guide",
		mcp.WithDescription("Returns the archive guide: catalog fields, filename conventions and comment rules."),
	), s.getArchiveGuide)

	s.mcp.AddResource(
		mcp.NewResource(guideURI, "Archive Guide",
			mcp.WithResourceDescription("How the photo archive is organised and how to contribute to it."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGuideResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) searchCatalog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	cat := s.d.Catalog.Current()
	items := search.Filter(cat, query, s.d.Board.Index())
	st := paging.New(len(items), req.GetInt("per_page", 0), req.GetInt("page", 1))
	return jsonResult(map[string]any{
		"items":  s.d.URLs.Refs(paging.Slice(items, st)),
		"paging": st.View(),
	}), nil
}

func (s *Server) getImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	it, ok := s.d.Catalog.Current().LookupFold(name)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
	}
	return jsonResult(s.d.URLs.Ref(it)), nil
}

func (s *Server) listComments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	comments, err := s.d.Board.CommentsForImage(ctx, name)
	if err != nil && !errors.Is(err, apperr.ErrRemoteRead) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(comments) == 0 {
		return mcp.NewToolResultText("no comments found"), nil
	}
	return jsonResult(comments), nil
}

func (s *Server) addComment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in := board.CommentInput{
		Filename: req.GetString("filename", ""),
		Author:   req.GetString("author", ""),
		Text:     req.GetString("text", ""),
	}
	c, err := s.d.Board.SubmitComment(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(c), nil
}

func (s *Server) listMessages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	msgs, err := s.d.Board.Messages(ctx, req.GetString("query", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(msgs) == 0 {
		return mcp.NewToolResultText("no messages found"), nil
	}
	return jsonResult(msgs), nil
}

func (s *Server) postMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m, err := s.d.Board.PostMessage(ctx, board.MessageInput{
		Author:        req.GetString("author", ""),
		Text:          req.GetString("text", ""),
		ImageFilename: req.GetString("image_filename", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(m), nil
}

func (s *Server) shareLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("filenames")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	link, err := session.BuildLink(s.d.ShareURL, s.d.Title, share.Parse(raw))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(link), nil
}

func (s *Server) getArchiveGuide(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ArchiveGuide), nil
}

func (s *Server) readGuideResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      guideURI,
			MIMEType: "text/markdown",
			Text:     ArchiveGuide,
		},
	}, nil
}
