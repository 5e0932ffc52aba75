// Package mcpserver wires every ContextForge component onto a
// github.com/modelcontextprotocol/go-sdk/mcp.Server, one AddTool call per
// operation with a jsonschema.Schema input description, grounded on
// _examples/standardbeagle-lci/internal/mcp/server.go's registerTools
// pattern: manual JSON argument decoding into a tool-specific params
// struct, then a createJSONResponse/createErrorResponse pair for success
// and failure, with IsError set per the MCP spec so failures surface to
// the calling model instead of as a protocol-level error.
package mcpserver

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/contextforge/internal/agentcoord"
	"github.com/standardbeagle/contextforge/internal/diagnostics"
	"github.com/standardbeagle/contextforge/internal/editor"
	"github.com/standardbeagle/contextforge/internal/fingerprint"
	"github.com/standardbeagle/contextforge/internal/gitretrieval"
	"github.com/standardbeagle/contextforge/internal/indexer"
	"github.com/standardbeagle/contextforge/internal/process"
	"github.com/standardbeagle/contextforge/internal/stream"
	"github.com/standardbeagle/contextforge/internal/tasklist"
	"github.com/standardbeagle/contextforge/internal/vectorindex"
	"github.com/standardbeagle/contextforge/internal/viewer"
	"github.com/standardbeagle/contextforge/internal/watch"
)

// Server bundles every component behind one MCP tool surface.
type Server struct {
	mcp *mcp.Server

	store        *fingerprint.Store
	editorSvc    *editor.Editor
	viewerSvc    *viewer.Viewer
	gitSvc       *gitretrieval.Retrieval
	procSvc      *process.Supervisor
	streamSvc    *stream.Supervisor
	tasks       *tasklist.Manager
	registry    *agentcoord.Registry
	queue       *agentcoord.Queue
	diagnostics *diagnostics.Agent

	indexerSvc        *indexer.Indexer
	vectorIndex       vectorindex.Index
	watchMgr          *watch.Manager
	watchPollInterval time.Duration
	watchDebounce     time.Duration
}

// Deps bundles every component the server exposes as tools.
type Deps struct {
	Store       *fingerprint.Store
	Editor      *editor.Editor
	Viewer      *viewer.Viewer
	Git         *gitretrieval.Retrieval
	Process     *process.Supervisor
	Stream      *stream.Supervisor
	Tasks       *tasklist.Manager
	Registry    *agentcoord.Registry
	Queue       *agentcoord.Queue
	Diagnostics *diagnostics.Agent

	Indexer           *indexer.Indexer
	VectorIndex       vectorindex.Index
	Watch             *watch.Manager
	WatchPollInterval time.Duration
	WatchDebounce     time.Duration
}

// New constructs a Server and registers every tool.
func New(name, version string, deps Deps) *Server {
	s := &Server{
		mcp:         mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
		store:       deps.Store,
		editorSvc:   deps.Editor,
		viewerSvc:   deps.Viewer,
		gitSvc:      deps.Git,
		procSvc:     deps.Process,
		streamSvc:   deps.Stream,
		tasks:       deps.Tasks,
		registry:    deps.Registry,
		queue:       deps.Queue,
		diagnostics: deps.Diagnostics,

		indexerSvc:        deps.Indexer,
		vectorIndex:       deps.VectorIndex,
		watchMgr:          deps.Watch,
		watchPollInterval: deps.WatchPollInterval,
		watchDebounce:     deps.WatchDebounce,
	}
	s.registerTools()
	return s
}

// MCP returns the underlying SDK server, for Run/transports.
func (s *Server) MCP() *mcp.Server { return s.mcp }

func schema(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}

func str(desc string) *jsonschema.Schema      { return &jsonschema.Schema{Type: "string", Description: desc} }
func integer(desc string) *jsonschema.Schema  { return &jsonschema.Schema{Type: "integer", Description: desc} }
func boolean(desc string) *jsonschema.Schema  { return &jsonschema.Schema{Type: "boolean", Description: desc} }
func numberS(desc string) *jsonschema.Schema  { return &jsonschema.Schema{Type: "number", Description: desc} }
func strArray(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Type: "string"}, Description: desc}
}

func jsonResult(data any) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshaling response: %w", err)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(content)}}}, nil
}

func errorResult(operation string, err error) (*mcp.CallToolResult, error) {
	result, marshalErr := jsonResult(map[string]any{
		"success":   false,
		"operation": operation,
		"error":     err.Error(),
	})
	if marshalErr != nil {
		return nil, marshalErr
	}
	result.IsError = true
	return result, nil
}

func decodeArgs(req *mcp.CallToolRequest, v any) error {
	return json.Unmarshal(req.Params.Arguments, v)
}

// registerTools registers every component's operations as MCP tools, split
// by concern across the tools_*.go files in this package.
func (s *Server) registerTools() {
	s.registerFingerprintTools()
	s.registerEditorViewerTools()
	s.registerProcessStreamTools()
	s.registerGitTools()
	s.registerTaskListTools()
	s.registerAgentCoordTools()
	s.registerDiagnosticsTools()
	s.registerIndexTools()
}
