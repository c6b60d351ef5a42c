// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the Calibre library to LLMs via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/htmltext"
	"github.com/starford/shelf/internal/library"
	"github.com/starford/shelf/internal/models"
)

// listLimit caps list_books output so a large library does not flood the
// model's context.
const listLimit = 200

// Server wraps the MCP server with library tools.
type Server struct {
	mcp *server.MCPServer
	svc *library.Service
}

// New creates a new MCP server with all library tools registered.
func New(svc *library.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Shelf",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_books",
		mcp.WithDescription("List books in the Calibre library. Read the shelf://library resource for field meanings."),
		mcp.WithString("query", mcp.Description("Optional case-insensitive substring of a title or author")),
		mcp.WithString("sort", mcp.Description("Sort order"), mcp.Enum("natural", "title", "author")),
		mcp.WithBoolean("desc", mcp.Description("Descending order")),
	), s.listBooks)

	s.mcp.AddTool(mcp.NewTool("get_book",
		mcp.WithDescription("Get one book, including its stored comments."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Calibre book id")),
	), s.getBook)

	s.mcp.AddTool(mcp.NewTool("get_comments",
		mcp.WithDescription("Get a book's comments (description) as plain text."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Calibre book id")),
	), s.getComments)

	s.mcp.AddTool(mcp.NewTool("list_authors",
		mcp.WithDescription("List every author in the library with Calibre's sort form of the name."),
	), s.listAuthors)

	s.mcp.AddResource(
		mcp.NewResource(LibraryURI, "Calibre Library",
			mcp.WithResourceDescription("The open library: root directory, book count and the meaning of each book field."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLibraryResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) bookArg(req mcp.CallToolRequest) (models.LibraryBook, *mcp.CallToolResult) {
	raw, err := req.RequireFloat("id")
	if err != nil {
		return models.LibraryBook{}, mcp.NewToolResultError(err.Error())
	}
	id := int64(raw)
	if float64(id) != raw || id <= 0 {
		return models.LibraryBook{}, mcp.NewToolResultError(fmt.Sprintf("invalid book id: %v", raw))
	}
	book, err := s.svc.Book(id)
	if errors.Is(err, apperr.ErrNotFound) {
		return models.LibraryBook{}, mcp.NewToolResultError(fmt.Sprintf("book not found: %d", id))
	}
	if err != nil {
		return models.LibraryBook{}, mcp.NewToolResultError(err.Error())
	}
	return book, nil
}

func (s *Server) listBooks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sortKey, err := library.ParseSortKey(req.GetString("sort", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	books := s.svc.List(library.ListOptions{
		Query: req.GetString("query", ""),
		Sort:  sortKey,
		Desc:  req.GetBool("desc", false),
	})

	total := len(books)
	if len(books) > listLimit {
		books = books[:listLimit]
	}
	views := make([]models.BookView, len(books))
	for i, b := range books {
		views[i] = b.View(false)
	}
	return jsonResult(struct {
		Books     []models.BookView `json:"books"`
		Total     int               `json:"total"`
		Truncated bool              `json:"truncated,omitempty"`
	}{Books: views, Total: total, Truncated: total > len(views)})
}

func (s *Server) getBook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	book, errResult := s.bookArg(req)
	if errResult != nil {
		return errResult, nil
	}
	return jsonResult(book.View(true))
}

func (s *Server) getComments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	book, errResult := s.bookArg(req)
	if errResult != nil {
		return errResult, nil
	}
	if book.Comments == nil {
		return mcp.NewToolResultText("no comments"), nil
	}
	return mcp.NewToolResultText(htmltext.ToText(*book.Comments)), nil
}

func (s *Server) listAuthors(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	authors, err := s.svc.Authors(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(authors)
}

func (s *Server) readLibraryResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      LibraryURI,
			MIMEType: "text/markdown",
			Text:     libraryDocument(s.svc.Root(), s.svc.Len()),
		},
	}, nil
}
