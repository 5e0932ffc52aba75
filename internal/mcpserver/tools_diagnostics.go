package mcpserver

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/contextforge/internal/types"
)

func (s *Server) registerDiagnosticsTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "check_drift",
		Description: "Check whether a file's content has drifted from its last captured fingerprint.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"path": str("File path; a relative path is resolved against the server's working directory"),
		}, "path"),
	}, s.handleCheckDrift)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "check_confidence",
		Description: "Check a self-reported confidence score against the configured minimum.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"confidence": numberS("Self-assessed confidence, 0.0 to 1.0"),
			"context":    str("Description of what the confidence score is about"),
		}, "confidence", "context"),
	}, s.handleCheckConfidence)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "check_loop_limits",
		Description: "Check tool-call, revision, and loop-iteration counts against configured resource ceilings.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"tool_calls":      integer("Tool calls made so far"),
			"revisions":       integer("Revisions made so far"),
			"loop_iterations": integer("Loop iterations executed so far"),
		}),
	}, s.handleCheckLoopLimits)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "run_diagnostic_review",
		Description: "Run drift, confidence, and loop-limit checks together and report whether any are critical.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"path":            str("File path to drift-check; a relative path is resolved against the server's working directory"),
			"confidence":      numberS("Self-assessed confidence, 0.0 to 1.0"),
			"context":         str("Description of what the confidence score is about"),
			"tool_calls":      integer("Tool calls made so far"),
			"revisions":       integer("Revisions made so far"),
			"loop_iterations": integer("Loop iterations executed so far"),
		}, "path", "confidence", "context"),
	}, s.handleRunDiagnosticReview)
}

type checkDriftArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleCheckDrift(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args checkDriftArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("check_drift", err)
	}
	return jsonResult(map[string]any{"success": true, "result": s.diagnostics.CheckDrift(args.Path)})
}

type checkConfidenceArgs struct {
	Confidence float64 `json:"confidence"`
	Context    string  `json:"context"`
}

func (s *Server) handleCheckConfidence(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args checkConfidenceArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("check_confidence", err)
	}
	return jsonResult(map[string]any{"success": true, "result": s.diagnostics.CheckConfidence(args.Confidence, args.Context)})
}

type loopLimitsArgs struct {
	ToolCalls      int `json:"tool_calls"`
	Revisions      int `json:"revisions"`
	LoopIterations int `json:"loop_iterations"`
}

func (s *Server) handleCheckLoopLimits(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args loopLimitsArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("check_loop_limits", err)
	}
	result := s.diagnostics.CheckLoopLimits(types.OperationMetrics{
		ToolCalls: args.ToolCalls, Revisions: args.Revisions, LoopIterations: args.LoopIterations,
	})
	return jsonResult(map[string]any{"success": true, "result": result})
}

type runReviewArgs struct {
	Path           string  `json:"path"`
	Confidence     float64 `json:"confidence"`
	Context        string  `json:"context"`
	ToolCalls      int     `json:"tool_calls"`
	Revisions      int     `json:"revisions"`
	LoopIterations int     `json:"loop_iterations"`
}

func (s *Server) handleRunDiagnosticReview(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args runReviewArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("run_diagnostic_review", err)
	}
	review := s.diagnostics.RunReview(args.Path, args.Confidence, args.Context, types.OperationMetrics{
		ToolCalls: args.ToolCalls, Revisions: args.Revisions, LoopIterations: args.LoopIterations,
	})
	return jsonResult(map[string]any{
		"success":             true,
		"drift":               review.Drift,
		"confidence":          review.Confidence,
		"loop_limits":         review.LoopLimits,
		"has_critical_issues": review.HasCriticalIssues(),
	})
}
