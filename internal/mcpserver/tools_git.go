package mcpserver

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/contextforge/internal/gitretrieval"
)

func (s *Server) registerGitTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "search_commits",
		Description: "Search a repository's commit log by relevance to a natural-language query.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"repo_path":  str("Repository path, relative to the workspace root (default: workspace root)"),
			"query":      str("Search query"),
			"max_results": integer("Maximum number of commits to return"),
			"since":       str("Only consider commits after this date (git date syntax)"),
			"author":      str("Only consider commits by this author"),
		}, "query"),
	}, s.handleSearchCommits)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_commit",
		Description: "Fetch full metadata for a single commit by hash.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"repo_path": str("Repository path, relative to the workspace root (default: workspace root)"),
			"hash":      str("Commit hash"),
		}, "hash"),
	}, s.handleGetCommit)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "blame_file",
		Description: "Attribute each line of a file to the commit and author that last changed it.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"repo_path":  str("Repository path, relative to the workspace root (default: workspace root)"),
			"file":       str("File path to blame"),
			"start_line": integer("1-based start line (optional)"),
			"end_line":   integer("1-based inclusive end line (optional)"),
		}, "file"),
	}, s.handleBlameFile)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "diff_commits",
		Description: "Diff a file (or whole tree) between two refs.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"repo_path":     str("Repository path, relative to the workspace root (default: workspace root)"),
			"from_ref":      str("Starting ref"),
			"to_ref":        str("Ending ref (default: HEAD)"),
			"file":          str("Limit the diff to this file (optional)"),
			"context_lines": integer("Number of context lines around each hunk (default 3)"),
		}, "from_ref"),
	}, s.handleDiffCommits)
}

type searchCommitsArgs struct {
	RepoPath   string `json:"repo_path"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
	Since      string `json:"since"`
	Author     string `json:"author"`
}

func (s *Server) handleSearchCommits(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args searchCommitsArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("search_commits", err)
	}
	result, err := s.gitSvc.Search(args.Query, gitretrieval.SearchOptions{
		RepoPath: args.RepoPath, MaxResults: args.MaxResults, DateAfter: args.Since, Author: args.Author,
	})
	if err != nil {
		return errorResult("search_commits", err)
	}
	return jsonResult(map[string]any{"success": true, "commits": result.Commits, "total_scanned": result.TotalCommitsSearched})
}

type getCommitArgs struct {
	RepoPath string `json:"repo_path"`
	Hash     string `json:"hash"`
}

func (s *Server) handleGetCommit(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args getCommitArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("get_commit", err)
	}
	commit, err := s.gitSvc.GetCommit(args.RepoPath, args.Hash)
	if err != nil {
		return errorResult("get_commit", err)
	}
	return jsonResult(map[string]any{"success": true, "commit": commit})
}

type blameFileArgs struct {
	RepoPath  string `json:"repo_path"`
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

func (s *Server) handleBlameFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args blameFileArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("blame_file", err)
	}
	lines, err := s.gitSvc.Blame(args.RepoPath, args.File, args.StartLine, args.EndLine)
	if err != nil {
		return errorResult("blame_file", err)
	}
	return jsonResult(map[string]any{"success": true, "lines": lines})
}

type diffCommitsArgs struct {
	RepoPath     string `json:"repo_path"`
	FromRef      string `json:"from_ref"`
	ToRef        string `json:"to_ref"`
	File         string `json:"file"`
	ContextLines int    `json:"context_lines"`
}

func (s *Server) handleDiffCommits(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args diffCommitsArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("diff_commits", err)
	}
	contextLines := args.ContextLines
	if contextLines == 0 {
		contextLines = 3
	}
	result, err := s.gitSvc.Diff(args.RepoPath, args.FromRef, args.ToRef, args.File, contextLines)
	if err != nil {
		return errorResult("diff_commits", err)
	}
	return jsonResult(map[string]any{"success": true, "files": result.Files, "diff": result.Raw})
}
