package mcpserver

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/contextforge/internal/editor"
)

func (s *Server) registerEditorViewerTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "str_replace",
		Description: "Replace an exact snippet of text in a file, optionally scoped to a line range. Fails if the snippet matches zero or more than one time.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"path": str("File path, relative to the workspace root"),
			"edits": {
				Type:        "array",
				Description: "One or more find/replace entries, applied in order",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"old_str":    str("Exact text to find"),
						"new_str":    str("Replacement text"),
						"start_line": integer("1-based start of the search range (optional)"),
						"end_line":   integer("1-based inclusive end of the search range (optional)"),
					},
				},
			},
		}, "path", "edits"),
	}, s.handleStrReplace)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "save_file",
		Description: "Write content to a file, creating parent directories as needed. Backs up and refuses to overwrite an existing file unless overwrite is true.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"path":      str("File path, relative to the workspace root"),
			"content":   str("File content"),
			"overwrite": boolean("Allow overwriting an existing file (default false)"),
		}, "path", "content"),
	}, s.handleSaveFile)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "remove_files",
		Description: "Delete one or more files, refusing protected paths (.git, node_modules, lockfiles, etc.) unless force is set.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"paths":             strArray("Paths to remove"),
			"dry_run":           boolean("Report what would be removed without deleting"),
			"force":             boolean("Allow removing protected paths"),
			"allow_directories": boolean("Allow removing directories"),
		}, "paths"),
	}, s.handleRemoveFiles)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "list_backups",
		Description: "List available file backups, newest first.",
		InputSchema: schema(map[string]*jsonschema.Schema{}),
	}, s.handleListBackups)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "view_file",
		Description: "View a file's content with line numbers, optionally scoped to a line range.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"path":       str("File path, relative to the workspace root"),
			"start_line": integer("1-based start line (optional)"),
			"end_line":   integer("1-based inclusive end line (optional)"),
		}, "path"),
	}, s.handleViewFile)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "search_file",
		Description: "Search a file with a regular expression, returning matched lines with surrounding context.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"path":          str("File path, relative to the workspace root"),
			"pattern":       str("Regular expression pattern"),
			"context_lines": integer("Number of context lines around each match (default 2)"),
		}, "path", "pattern"),
	}, s.handleSearchFile)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "view_directory",
		Description: "List a directory's contents two levels deep, skipping common ignored directories.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"path": str("Directory path, relative to the workspace root"),
		}, "path"),
	}, s.handleViewDirectory)
}

type strReplaceArgs struct {
	Path  string `json:"path"`
	Edits []struct {
		OldStr    string `json:"old_str"`
		NewStr    string `json:"new_str"`
		StartLine int    `json:"start_line"`
		EndLine   int    `json:"end_line"`
	} `json:"edits"`
}

func (s *Server) handleStrReplace(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args strReplaceArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("str_replace", err)
	}
	entries := make([]editor.StrReplaceEntry, len(args.Edits))
	for i, e := range args.Edits {
		entries[i] = editor.StrReplaceEntry{OldStr: e.OldStr, NewStr: e.NewStr, StartLine: e.StartLine, EndLine: e.EndLine}
	}
	results, err := s.editorSvc.StrReplace(args.Path, entries)
	if err != nil {
		return errorResult("str_replace", err)
	}
	return jsonResult(map[string]any{"success": true, "results": results})
}

type saveFileArgs struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	Overwrite bool   `json:"overwrite"`
}

func (s *Server) handleSaveFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args saveFileArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("save_file", err)
	}
	if err := s.editorSvc.SaveFile(args.Path, args.Content, args.Overwrite); err != nil {
		return errorResult("save_file", err)
	}
	return jsonResult(map[string]any{"success": true, "path": args.Path})
}

type removeFilesArgs struct {
	Paths            []string `json:"paths"`
	DryRun           bool     `json:"dry_run"`
	Force            bool     `json:"force"`
	AllowDirectories bool     `json:"allow_directories"`
}

func (s *Server) handleRemoveFiles(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args removeFilesArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("remove_files", err)
	}
	result, err := s.editorSvc.RemoveFiles(args.Paths, args.DryRun, args.Force, args.AllowDirectories)
	if err != nil {
		return errorResult("remove_files", err)
	}
	return jsonResult(map[string]any{"success": true, "removed": result.Removed, "skipped": result.Skipped})
}

func (s *Server) handleListBackups(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	backups, err := s.editorSvc.ListBackups()
	if err != nil {
		return errorResult("list_backups", err)
	}
	return jsonResult(map[string]any{"success": true, "backups": backups})
}

type viewFileArgs struct {
	Path      string `json:"path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

func (s *Server) handleViewFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args viewFileArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("view_file", err)
	}
	result, err := s.viewerSvc.ViewFile(args.Path, args.StartLine, args.EndLine)
	if err != nil {
		return errorResult("view_file", err)
	}
	return jsonResult(map[string]any{
		"success": true, "content": result.Content,
		"total_lines": result.TotalLines, "truncated": result.Truncated,
	})
}

type searchFileArgs struct {
	Path         string `json:"path"`
	Pattern      string `json:"pattern"`
	ContextLines int    `json:"context_lines"`
}

func (s *Server) handleSearchFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args searchFileArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("search_file", err)
	}
	contextLines := args.ContextLines
	if contextLines == 0 {
		contextLines = 2
	}
	result, err := s.viewerSvc.Search(args.Path, args.Pattern, contextLines)
	if err != nil {
		return errorResult("search_file", err)
	}
	return jsonResult(map[string]any{"success": true, "content": result.Content, "match_count": result.MatchCount})
}

type viewDirectoryArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleViewDirectory(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args viewDirectoryArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("view_directory", err)
	}
	result, err := s.viewerSvc.ViewDirectory(args.Path)
	if err != nil {
		return errorResult("view_directory", err)
	}
	return jsonResult(map[string]any{"success": true, "entries": result.Entries})
}
