package mcpserver

import (
	"context"
	"os"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/contextforge/internal/chunk"
	"github.com/standardbeagle/contextforge/internal/watch"
)

func (s *Server) registerIndexTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "index_file",
		Description: "Chunk a file and upsert its chunks into the vector index, reading content from disk and skipping unchanged files by content hash.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"path": str("File path; a relative path is resolved against the server's working directory"),
			"mode": str("Chunking mode: AUTO, TREE_SITTER, or REGEX (default AUTO)"),
		}, "path"),
	}, s.handleIndexFile)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "remove_indexed_file",
		Description: "Remove a file's chunks from the vector index and drop its tracked state.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"path": str("File path; a relative path is resolved against the server's working directory"),
		}, "path"),
	}, s.handleRemoveIndexedFile)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_file_index_state",
		Description: "Fetch a file's tracked indexing state: content hash and last-known chunks.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"path": str("File path; a relative path is resolved against the server's working directory"),
		}, "path"),
	}, s.handleGetFileIndexState)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "search_code",
		Description: "Semantic search over indexed code chunks, ranked by embedding similarity.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"query": str("Natural-language or code search query"),
			"top_k": integer("Maximum number of results (default 10)"),
		}, "query"),
	}, s.handleSearchCode)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_index_stats",
		Description: "Fetch vector index statistics: total vectors, dimension, backend name.",
		InputSchema: schema(map[string]*jsonschema.Schema{}),
	}, s.handleGetIndexStats)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "clear_index",
		Description: "Remove every vector from the index.",
		InputSchema: schema(map[string]*jsonschema.Schema{}),
	}, s.handleClearIndex)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "start_watch",
		Description: "Start a polling file watcher under a root directory, returning a watch id.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"root":            str("Directory to watch; a relative path is resolved against the server's working directory"),
			"recursive":       boolean("Watch subdirectories (default false)"),
			"patterns":        strArray("Glob patterns to include (default all files)"),
			"ignore_patterns": strArray("Glob patterns to exclude"),
		}, "root"),
	}, s.handleStartWatch)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "stop_watch",
		Description: "Stop a running file watcher and join its background goroutine.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"watch_id": str("Watch id returned by start_watch"),
		}, "watch_id"),
	}, s.handleStopWatch)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_watch_events",
		Description: "Drain up to max pending file events from a watch's queue.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"watch_id": str("Watch id returned by start_watch"),
			"max":      integer("Maximum number of events to drain (default 100)"),
		}, "watch_id"),
	}, s.handleGetWatchEvents)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_watch_stats",
		Description: "Fetch cumulative event counters for a running watch.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"watch_id": str("Watch id returned by start_watch"),
		}, "watch_id"),
	}, s.handleGetWatchStats)
}

type indexFileArgs struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
}

func (s *Server) handleIndexFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args indexFileArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("index_file", err)
	}
	mode, err := chunk.ParseMode(args.Mode)
	if err != nil {
		return errorResult("index_file", err)
	}
	content, err := os.ReadFile(args.Path)
	if err != nil {
		return errorResult("index_file", err)
	}
	language := chunk.LanguageForPath(args.Path)
	chunks, err := s.indexerSvc.IndexFile(args.Path, string(content), language, mode, false)
	if err != nil {
		return errorResult("index_file", err)
	}
	return jsonResult(map[string]any{"success": true, "chunks": chunks})
}

type indexPathArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleRemoveIndexedFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args indexPathArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("remove_indexed_file", err)
	}
	if err := s.indexerSvc.RemoveFile(args.Path); err != nil {
		return errorResult("remove_indexed_file", err)
	}
	return jsonResult(map[string]any{"success": true})
}

func (s *Server) handleGetFileIndexState(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args indexPathArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("get_file_index_state", err)
	}
	state, tracked := s.indexerSvc.State(args.Path)
	return jsonResult(map[string]any{"success": true, "tracked": tracked, "state": state})
}

type searchCodeArgs struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func (s *Server) handleSearchCode(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args searchCodeArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("search_code", err)
	}
	topK := args.TopK
	if topK == 0 {
		topK = 10
	}
	results, err := s.vectorIndex.Search(args.Query, topK)
	if err != nil {
		return errorResult("search_code", err)
	}
	return jsonResult(map[string]any{"success": true, "results": results})
}

func (s *Server) handleGetIndexStats(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{"success": true, "stats": s.vectorIndex.Stats()})
}

func (s *Server) handleClearIndex(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.vectorIndex.Clear()
	return jsonResult(map[string]any{"success": true})
}

type startWatchArgs struct {
	Root           string   `json:"root"`
	Recursive      bool     `json:"recursive"`
	Patterns       []string `json:"patterns"`
	IgnorePatterns []string `json:"ignore_patterns"`
}

func (s *Server) handleStartWatch(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args startWatchArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("start_watch", err)
	}
	watchID, err := s.watchMgr.StartWatch(watch.Config{
		Root:           args.Root,
		Recursive:      args.Recursive,
		Patterns:       args.Patterns,
		IgnorePatterns: args.IgnorePatterns,
		PollInterval:   s.watchPollInterval,
		Debounce:       s.watchDebounce,
	})
	if err != nil {
		return errorResult("start_watch", err)
	}
	return jsonResult(map[string]any{"success": true, "watch_id": watchID})
}

type watchIDArgs struct {
	WatchID string `json:"watch_id"`
}

func (s *Server) handleStopWatch(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args watchIDArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("stop_watch", err)
	}
	if err := s.watchMgr.StopWatch(args.WatchID); err != nil {
		return errorResult("stop_watch", err)
	}
	return jsonResult(map[string]any{"success": true})
}

type getWatchEventsArgs struct {
	WatchID string `json:"watch_id"`
	Max     int    `json:"max"`
}

func (s *Server) handleGetWatchEvents(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args getWatchEventsArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("get_watch_events", err)
	}
	max := args.Max
	if max == 0 {
		max = 100
	}
	events, err := s.watchMgr.GetEvents(args.WatchID, max)
	if err != nil {
		return errorResult("get_watch_events", err)
	}
	return jsonResult(map[string]any{"success": true, "events": events})
}

func (s *Server) handleGetWatchStats(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args watchIDArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("get_watch_stats", err)
	}
	stats, err := s.watchMgr.StatsFor(args.WatchID)
	if err != nil {
		return errorResult("get_watch_stats", err)
	}
	return jsonResult(map[string]any{"success": true, "stats": stats})
}
