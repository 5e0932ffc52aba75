package mcpserver

import (
	"context"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/contextforge/internal/process"
	"github.com/standardbeagle/contextforge/internal/stream"
)

func (s *Server) registerProcessStreamTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "launch_process",
		Description: "Launch a shell command as a supervised subprocess, optionally waiting for it to finish.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"command":          str("Shell command to run"),
			"cwd":              str("Working directory (optional)"),
			"wait":             boolean("Block until the process exits or max_wait_seconds elapses"),
			"max_wait_seconds": numberS("Maximum time to wait when wait is true"),
		}, "command"),
	}, s.handleLaunchProcess)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "read_process",
		Description: "Read and clear queued output from a launched process.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"process_id":       str("Process id returned by launch_process"),
			"wait":             boolean("Block until the process exits or max_wait_seconds elapses"),
			"max_wait_seconds": numberS("Maximum time to wait when wait is true"),
		}, "process_id"),
	}, s.handleReadProcess)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "write_process",
		Description: "Write text to a running process's stdin.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"process_id": str("Process id returned by launch_process"),
			"text":       str("Text to write, including any trailing newline"),
		}, "process_id", "text"),
	}, s.handleWriteProcess)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "kill_process",
		Description: "Terminate a process, escalating from SIGTERM to a forced kill after a grace period.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"process_id": str("Process id returned by launch_process"),
		}, "process_id"),
	}, s.handleKillProcess)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "list_processes",
		Description: "List every supervised process and its current state.",
		InputSchema: schema(map[string]*jsonschema.Schema{}),
	}, s.handleListProcesses)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "start_stream",
		Description: "Launch a shell command as a supervised output stream, captured into both a read queue and a ring buffer.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"command":          str("Shell command to run"),
			"cwd":              str("Working directory (optional)"),
			"ring_buffer_size": integer("Ring buffer capacity in lines (default 10000)"),
		}, "command"),
	}, s.handleStartStream)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "read_stream_lines",
		Description: "Drain and return all lines queued since the last read on a stream.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"stream_id": str("Stream id returned by start_stream"),
		}, "stream_id"),
	}, s.handleReadStreamLines)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_stream_buffer",
		Description: "Return up to the last n lines retained in a stream's ring buffer.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"stream_id": str("Stream id returned by start_stream"),
			"n":         integer("Maximum number of lines to return (default: all retained)"),
		}, "stream_id"),
	}, s.handleGetStreamBuffer)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "write_stream_input",
		Description: "Write text to a running stream's stdin.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"stream_id": str("Stream id returned by start_stream"),
			"text":      str("Text to write, including any trailing newline"),
		}, "stream_id", "text"),
	}, s.handleWriteStreamInput)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "stop_stream",
		Description: "Terminate a stream's subprocess, escalating from SIGTERM to a forced kill after a grace period.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"stream_id":    str("Stream id returned by start_stream"),
			"grace_seconds": numberS("Grace period before force-killing (default 5)"),
		}, "stream_id"),
	}, s.handleStopStream)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "list_streams",
		Description: "List the ids of every stream the supervisor has created.",
		InputSchema: schema(map[string]*jsonschema.Schema{}),
	}, s.handleListStreams)
}

type launchProcessArgs struct {
	Command        string   `json:"command"`
	Cwd            string   `json:"cwd"`
	Wait           bool     `json:"wait"`
	MaxWaitSeconds float64  `json:"max_wait_seconds"`
	Env            []string `json:"env"`
}

func (s *Server) handleLaunchProcess(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args launchProcessArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("launch_process", err)
	}
	h, err := s.procSvc.LaunchProcess(process.LaunchOptions{
		Command: args.Command, Cwd: args.Cwd, Wait: args.Wait,
		MaxWaitSeconds: args.MaxWaitSeconds, Env: args.Env,
	})
	if err != nil {
		return errorResult("launch_process", err)
	}
	state, _ := h.State()
	return jsonResult(map[string]any{"success": true, "process_id": h.ID, "state": state.String()})
}

type readProcessArgs struct {
	ProcessID      string  `json:"process_id"`
	Wait           bool    `json:"wait"`
	MaxWaitSeconds float64 `json:"max_wait_seconds"`
}

func (s *Server) handleReadProcess(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args readProcessArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("read_process", err)
	}
	output, state, err := s.procSvc.ReadProcess(args.ProcessID, args.Wait, args.MaxWaitSeconds)
	if err != nil {
		return errorResult("read_process", err)
	}
	return jsonResult(map[string]any{"success": true, "output": output, "state": state.String()})
}

type writeProcessArgs struct {
	ProcessID string `json:"process_id"`
	Text      string `json:"text"`
}

func (s *Server) handleWriteProcess(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args writeProcessArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("write_process", err)
	}
	if err := s.procSvc.WriteProcess(args.ProcessID, args.Text); err != nil {
		return errorResult("write_process", err)
	}
	return jsonResult(map[string]any{"success": true})
}

type processIDArgs struct {
	ProcessID string `json:"process_id"`
}

func (s *Server) handleKillProcess(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args processIDArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("kill_process", err)
	}
	state, err := s.procSvc.KillProcess(args.ProcessID)
	if err != nil {
		return errorResult("kill_process", err)
	}
	return jsonResult(map[string]any{"success": true, "state": state.String()})
}

func (s *Server) handleListProcesses(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	states := s.procSvc.ListProcesses()
	out := make(map[string]string, len(states))
	for id, st := range states {
		out[id] = st.String()
	}
	return jsonResult(map[string]any{"success": true, "processes": out})
}

type startStreamArgs struct {
	Command        string `json:"command"`
	Cwd            string `json:"cwd"`
	RingBufferSize int    `json:"ring_buffer_size"`
}

func (s *Server) handleStartStream(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args startStreamArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("start_stream", err)
	}
	st, err := s.streamSvc.StartStream(stream.Config{
		Command: args.Command, Cwd: args.Cwd, RingBufferSize: args.RingBufferSize,
	}, nil)
	if err != nil {
		return errorResult("start_stream", err)
	}
	return jsonResult(map[string]any{"success": true, "stream_id": st.ID})
}

type streamIDArgs struct {
	StreamID string `json:"stream_id"`
}

func linesToJSON(lines []stream.Line) []map[string]any {
	out := make([]map[string]any, len(lines))
	for i, l := range lines {
		out[i] = map[string]any{"seq": l.Seq, "text": l.Text, "timestamp": l.Timestamp}
	}
	return out
}

func (s *Server) handleReadStreamLines(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args streamIDArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("read_stream_lines", err)
	}
	stm, lookupErr := s.streamSvc.Get(args.StreamID)
	if lookupErr != nil {
		return errorResult("read_stream_lines", lookupErr)
	}
	return jsonResult(map[string]any{"success": true, "lines": linesToJSON(stm.ReadLines())})
}

type getStreamBufferArgs struct {
	StreamID string `json:"stream_id"`
	N        int    `json:"n"`
}

func (s *Server) handleGetStreamBuffer(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args getStreamBufferArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("get_stream_buffer", err)
	}
	stm, lookupErr := s.streamSvc.Get(args.StreamID)
	if lookupErr != nil {
		return errorResult("get_stream_buffer", lookupErr)
	}
	return jsonResult(map[string]any{"success": true, "lines": linesToJSON(stm.GetBuffer(args.N))})
}

type writeStreamInputArgs struct {
	StreamID string `json:"stream_id"`
	Text     string `json:"text"`
}

func (s *Server) handleWriteStreamInput(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args writeStreamInputArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("write_stream_input", err)
	}
	stm, lookupErr := s.streamSvc.Get(args.StreamID)
	if lookupErr != nil {
		return errorResult("write_stream_input", lookupErr)
	}
	if err := stm.WriteInput(args.Text); err != nil {
		return errorResult("write_stream_input", err)
	}
	return jsonResult(map[string]any{"success": true})
}

type stopStreamArgs struct {
	StreamID     string  `json:"stream_id"`
	GraceSeconds float64 `json:"grace_seconds"`
}

func (s *Server) handleStopStream(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args stopStreamArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("stop_stream", err)
	}
	grace := time.Duration(args.GraceSeconds * float64(time.Second))
	if err := s.streamSvc.StopStream(args.StreamID, grace); err != nil {
		return errorResult("stop_stream", err)
	}
	return jsonResult(map[string]any{"success": true})
}

func (s *Server) handleListStreams(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{"success": true, "streams": s.streamSvc.ListStreams()})
}
