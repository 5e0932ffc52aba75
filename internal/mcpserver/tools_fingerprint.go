package mcpserver

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/contextforge/internal/fingerprint"
)

func (s *Server) registerFingerprintTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "capture_fingerprint",
		Description: "Capture and register a content fingerprint for a file, for later drift detection.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"path": str("File path; a relative path is resolved against the server's working directory"),
		}, "path"),
	}, s.handleCaptureFingerprint)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "store_content",
		Description: "Store truncated or generated content under a short-lived reference id for later retrieval.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"content": str("Content to store"),
			"source":  str("Where the content came from, for provenance"),
		}, "content", "source"),
	}, s.handleStoreContent)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "view_content_range",
		Description: "View a line range of content previously stored under a reference id.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"reference_id": str("Reference id returned by store_content"),
			"start":        integer("1-based start line"),
			"end":          integer("1-based inclusive end line"),
		}, "reference_id", "start", "end"),
	}, s.handleViewContentRange)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "search_content",
		Description: "Search content previously stored under a reference id with a literal or regex pattern.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"reference_id":   str("Reference id returned by store_content"),
			"pattern":        str("Pattern to search for"),
			"use_regex":      boolean("Treat pattern as a regular expression"),
			"case_sensitive": boolean("Case-sensitive match"),
			"context_lines":  integer("Number of context lines around each match"),
		}, "reference_id", "pattern"),
	}, s.handleSearchContent)
}

type capturePathArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleCaptureFingerprint(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args capturePathArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("capture_fingerprint", err)
	}
	fp, err := s.store.Capture(args.Path)
	if err != nil {
		return errorResult("capture_fingerprint", err)
	}
	s.store.Register(fp)
	return jsonResult(map[string]any{"success": true, "fingerprint": fp})
}

type storeContentArgs struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}

func (s *Server) handleStoreContent(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args storeContentArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("store_content", err)
	}
	refID, err := s.store.StoreContent(args.Content, args.Source, nil)
	if err != nil {
		return errorResult("store_content", err)
	}
	return jsonResult(map[string]any{"success": true, "reference_id": refID})
}

type viewContentRangeArgs struct {
	ReferenceID string `json:"reference_id"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
}

func (s *Server) handleViewContentRange(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args viewContentRangeArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("view_content_range", err)
	}
	content, err := s.store.ViewRange(args.ReferenceID, args.Start, args.End)
	if err != nil {
		return errorResult("view_content_range", err)
	}
	return jsonResult(map[string]any{"success": true, "content": content})
}

type searchContentArgs struct {
	ReferenceID   string `json:"reference_id"`
	Pattern       string `json:"pattern"`
	UseRegex      bool   `json:"use_regex"`
	CaseSensitive bool   `json:"case_sensitive"`
	ContextLines  int    `json:"context_lines"`
}

func (s *Server) handleSearchContent(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args searchContentArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("search_content", err)
	}
	matches, truncated, err := s.store.Search(args.ReferenceID, args.Pattern, fingerprint.SearchOptions{
		UseRegex: args.UseRegex, CaseSensitive: args.CaseSensitive, ContextLines: args.ContextLines,
	})
	if err != nil {
		return errorResult("search_content", err)
	}
	return jsonResult(map[string]any{"success": true, "matches": matches, "truncated": truncated})
}
