package mcpserver

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/contextforge/internal/types"
)

func (s *Server) registerAgentCoordTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "register_agent",
		Description: "Register a remote agent with its capabilities and task concurrency limit.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"agent_id":       str("Unique agent id"),
			"name":           str("Human-readable agent name"),
			"capabilities":   strArray("Capability tags this agent supports"),
			"max_concurrent": integer("Maximum concurrent tasks (default 5)"),
			"endpoint":       str("Agent callback endpoint (optional)"),
		}, "agent_id", "name"),
	}, s.handleRegisterAgent)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "deregister_agent",
		Description: "Remove an agent from the registry.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"agent_id": str("Agent id"),
		}, "agent_id"),
	}, s.handleDeregisterAgent)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_agent",
		Description: "Fetch a single agent's current info.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"agent_id": str("Agent id"),
		}, "agent_id"),
	}, s.handleGetAgent)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "list_agents",
		Description: "List registered agents, optionally filtered by status.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"status": str("Filter by status: online, busy, unhealthy, offline (optional)"),
		}),
	}, s.handleListAgents)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "agent_heartbeat",
		Description: "Record a heartbeat for an agent, restoring it from unhealthy if needed.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"agent_id": str("Agent id"),
		}, "agent_id"),
	}, s.handleAgentHeartbeat)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "submit_task",
		Description: "Submit a task to the coordinator's queue for dispatch to a capable agent.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"task_type":             str("Task type identifier"),
			"payload":               &jsonschema.Schema{Type: "object", Description: "Arbitrary task payload"},
			"priority":              str("low, normal, high, or urgent (default normal)"),
			"required_capabilities": strArray("Capabilities a dispatched agent must have"),
			"timeout_seconds":       numberS("Task timeout in seconds (default 300)"),
		}, "task_type"),
	}, s.handleSubmitTask)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_task_result",
		Description: "Fetch a submitted task's current status and result.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"task_id": str("Task id returned by submit_task"),
		}, "task_id"),
	}, s.handleGetTaskResult)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "cancel_task",
		Description: "Cancel a pending or running task.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"task_id": str("Task id"),
		}, "task_id"),
	}, s.handleCancelTask)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "list_coordinator_tasks",
		Description: "List queued tasks, optionally filtered by status.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"status": str("Filter by status: pending, queued, running, completed, failed, cancelled (optional)"),
		}),
	}, s.handleListCoordinatorTasks)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_coordinator_stats",
		Description: "Fetch aggregate agent and queue statistics.",
		InputSchema: schema(map[string]*jsonschema.Schema{}),
	}, s.handleGetCoordinatorStats)
}

type registerAgentArgs struct {
	AgentID       string   `json:"agent_id"`
	Name          string   `json:"name"`
	Capabilities  []string `json:"capabilities"`
	MaxConcurrent int      `json:"max_concurrent"`
	Endpoint      string   `json:"endpoint"`
}

func (s *Server) handleRegisterAgent(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args registerAgentArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("register_agent", err)
	}
	info, err := s.registry.Register(args.AgentID, args.Name, args.Capabilities, args.MaxConcurrent, args.Endpoint)
	if err != nil {
		return errorResult("register_agent", err)
	}
	return jsonResult(map[string]any{"success": true, "agent": info})
}

type agentIDArgs struct {
	AgentID string `json:"agent_id"`
}

func (s *Server) handleDeregisterAgent(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args agentIDArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("deregister_agent", err)
	}
	if err := s.registry.Deregister(args.AgentID); err != nil {
		return errorResult("deregister_agent", err)
	}
	return jsonResult(map[string]any{"success": true})
}

func (s *Server) handleGetAgent(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args agentIDArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("get_agent", err)
	}
	info, err := s.registry.Get(args.AgentID)
	if err != nil {
		return errorResult("get_agent", err)
	}
	return jsonResult(map[string]any{"success": true, "agent": info})
}

type listAgentsArgs struct {
	Status string `json:"status"`
}

func parseAgentStatus(s string) (types.AgentStatus, bool) {
	switch s {
	case "online", "ONLINE":
		return types.AgentOnline, true
	case "busy", "BUSY":
		return types.AgentBusy, true
	case "unhealthy", "UNHEALTHY":
		return types.AgentUnhealthy, true
	case "offline", "OFFLINE":
		return types.AgentOffline, true
	default:
		return types.AgentOnline, false
	}
}

func (s *Server) handleListAgents(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args listAgentsArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("list_agents", err)
	}
	status, filter := parseAgentStatus(args.Status)
	return jsonResult(map[string]any{"success": true, "agents": s.registry.List(status, filter)})
}

func (s *Server) handleAgentHeartbeat(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args agentIDArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("agent_heartbeat", err)
	}
	if err := s.registry.Heartbeat(args.AgentID); err != nil {
		return errorResult("agent_heartbeat", err)
	}
	return jsonResult(map[string]any{"success": true})
}

type submitTaskArgs struct {
	TaskType             string         `json:"task_type"`
	Payload              map[string]any `json:"payload"`
	Priority             string         `json:"priority"`
	RequiredCapabilities []string       `json:"required_capabilities"`
	TimeoutSeconds       float64        `json:"timeout_seconds"`
}

func parseTaskPriority(s string) types.TaskPriority {
	switch s {
	case "low", "LOW":
		return types.PriorityLow
	case "high", "HIGH":
		return types.PriorityHigh
	case "urgent", "URGENT":
		return types.PriorityUrgent
	default:
		return types.PriorityNormal
	}
}

func (s *Server) handleSubmitTask(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args submitTaskArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("submit_task", err)
	}
	task, err := s.queue.Submit(args.TaskType, args.Payload, parseTaskPriority(args.Priority), args.RequiredCapabilities, args.TimeoutSeconds)
	if err != nil {
		return errorResult("submit_task", err)
	}
	return jsonResult(map[string]any{"success": true, "task": task})
}

func (s *Server) handleGetTaskResult(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args taskIDArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("get_task_result", err)
	}
	task, err := s.queue.GetResult(args.TaskID)
	if err != nil {
		return errorResult("get_task_result", err)
	}
	return jsonResult(map[string]any{"success": true, "task": task})
}

func (s *Server) handleCancelTask(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args taskIDArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("cancel_task", err)
	}
	if err := s.queue.CancelTask(args.TaskID); err != nil {
		return errorResult("cancel_task", err)
	}
	return jsonResult(map[string]any{"success": true})
}

type listCoordinatorTasksArgs struct {
	Status string `json:"status"`
}

func parseTaskStatus(s string) (types.TaskStatus, bool) {
	switch s {
	case "pending", "PENDING":
		return types.TaskPending, true
	case "queued", "QUEUED":
		return types.TaskQueued, true
	case "running", "RUNNING":
		return types.TaskRunning, true
	case "completed", "COMPLETED":
		return types.TaskCompleted, true
	case "failed", "FAILED":
		return types.TaskFailed, true
	case "cancelled", "CANCELLED":
		return types.TaskCancelledStatus, true
	default:
		return types.TaskPending, false
	}
}

func (s *Server) handleListCoordinatorTasks(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args listCoordinatorTasksArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("list_coordinator_tasks", err)
	}
	status, filter := parseTaskStatus(args.Status)
	return jsonResult(map[string]any{"success": true, "tasks": s.queue.ListTasks(status, filter)})
}

func (s *Server) handleGetCoordinatorStats(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{
		"success":      true,
		"agent_stats":  s.registry.GetStats(),
		"queue_stats":  s.queue.GetStats(),
	})
}
