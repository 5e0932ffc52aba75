package mcpserver

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/contextforge/internal/tasklist"
	"github.com/standardbeagle/contextforge/internal/types"
)

func (s *Server) registerTaskListTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "add_task",
		Description: "Add a task, optionally nested under a parent and depending on other tasks.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"name":         str("Task name"),
			"description":  str("Task description"),
			"parent_id":    str("Parent task id (optional)"),
			"dependencies": strArray("Task ids this task depends on (optional)"),
		}, "name"),
	}, s.handleAddTask)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "update_task",
		Description: "Update a task's name, description, and/or state.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"task_id":     str("Task id"),
			"name":        str("New name (optional)"),
			"description": str("New description (optional)"),
			"state":       str("New state: pending, in_progress, completed, or cancelled (optional)"),
		}, "task_id"),
	}, s.handleUpdateTask)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "remove_task",
		Description: "Remove a task and its entire subtree.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"task_id": str("Task id"),
		}, "task_id"),
	}, s.handleRemoveTask)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "move_task",
		Description: "Move a task to a new parent, rejecting moves that would create a cycle.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"task_id":       str("Task id to move"),
			"new_parent_id": str("New parent task id, or empty to move to the top level"),
		}, "task_id"),
	}, s.handleMoveTask)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_task",
		Description: "Fetch a single task by id.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"task_id": str("Task id"),
		}, "task_id"),
	}, s.handleGetTask)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "list_tasks",
		Description: "List every task in depth-first hierarchy order.",
		InputSchema: schema(map[string]*jsonschema.Schema{}),
	}, s.handleListTasksTool)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "add_dependency",
		Description: "Add a dependency edge, rejecting edges that would create a cycle.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"task_id":     str("Dependent task id"),
			"depends_on": str("Task id that must complete first"),
		}, "task_id", "depends_on"),
	}, s.handleAddDependency)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "remove_dependency",
		Description: "Remove a dependency edge.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"task_id":    str("Dependent task id"),
			"depends_on": str("Dependency task id to remove"),
		}, "task_id", "depends_on"),
	}, s.handleRemoveDependency)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_ready_tasks",
		Description: "List tasks whose dependencies are all completed and which have not been started.",
		InputSchema: schema(map[string]*jsonschema.Schema{}),
	}, s.handleGetReadyTasks)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_blocked_tasks",
		Description: "List tasks with at least one incomplete dependency.",
		InputSchema: schema(map[string]*jsonschema.Schema{}),
	}, s.handleGetBlockedTasks)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "render_task_markdown",
		Description: "Render the full task hierarchy as a markdown checklist.",
		InputSchema: schema(map[string]*jsonschema.Schema{}),
	}, s.handleRenderTaskMarkdown)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "reorganize_tasks",
		Description: "Replace the entire task hierarchy from an edited markdown checklist, minting ids for new tasks.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"markdown": str("Markdown checklist to parse"),
		}, "markdown"),
	}, s.handleReorganizeTasks)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "list_task_templates",
		Description: "List the names of the available task templates.",
		InputSchema: schema(map[string]*jsonschema.Schema{}),
	}, s.handleListTaskTemplates)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "apply_task_template",
		Description: "Instantiate a named task template under a new root task titled with the given title.",
		InputSchema: schema(map[string]*jsonschema.Schema{
			"template": str("Template name, from list_task_templates"),
			"title":    str("Title substituted into the template's {title} placeholders"),
		}, "template", "title"),
	}, s.handleApplyTaskTemplate)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "undo_task_change",
		Description: "Undo the most recent task mutation.",
		InputSchema: schema(map[string]*jsonschema.Schema{}),
	}, s.handleUndoTaskChange)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "redo_task_change",
		Description: "Redo the most recently undone task mutation.",
		InputSchema: schema(map[string]*jsonschema.Schema{}),
	}, s.handleRedoTaskChange)
}

type addTaskArgs struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	ParentID     string   `json:"parent_id"`
	Dependencies []string `json:"dependencies"`
}

func (s *Server) handleAddTask(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args addTaskArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("add_task", err)
	}
	task, err := s.tasks.AddTask(args.Name, args.Description, args.ParentID, args.Dependencies)
	if err != nil {
		return errorResult("add_task", err)
	}
	return jsonResult(map[string]any{"success": true, "task": task})
}

type updateTaskArgs struct {
	TaskID      string  `json:"task_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	State       *string `json:"state"`
}

func (s *Server) handleUpdateTask(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args updateTaskArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("update_task", err)
	}
	var state types.TaskState
	hasState := args.State != nil
	if hasState {
		parsed, ok := parseTaskState(*args.State)
		if !ok {
			return errorResult("update_task", fmt.Errorf("unknown task state %q", *args.State))
		}
		state = parsed
	}
	task, err := s.tasks.UpdateTask(args.TaskID, args.Name, args.Description, state, hasState)
	if err != nil {
		return errorResult("update_task", err)
	}
	return jsonResult(map[string]any{"success": true, "task": task})
}

func parseTaskState(s string) (types.TaskState, bool) {
	switch s {
	case "pending", "not_started", "NOT_STARTED":
		return types.TaskNotStarted, true
	case "in_progress", "IN_PROGRESS":
		return types.TaskInProgress, true
	case "completed", "complete", "COMPLETE":
		return types.TaskComplete, true
	case "cancelled", "CANCELLED":
		return types.TaskCancelled, true
	default:
		return types.TaskNotStarted, false
	}
}

type taskIDArgs struct {
	TaskID string `json:"task_id"`
}

func (s *Server) handleRemoveTask(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args taskIDArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("remove_task", err)
	}
	if err := s.tasks.RemoveTask(args.TaskID); err != nil {
		return errorResult("remove_task", err)
	}
	return jsonResult(map[string]any{"success": true})
}

type moveTaskArgs struct {
	TaskID      string `json:"task_id"`
	NewParentID string `json:"new_parent_id"`
}

func (s *Server) handleMoveTask(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args moveTaskArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("move_task", err)
	}
	if err := s.tasks.MoveTask(args.TaskID, args.NewParentID); err != nil {
		return errorResult("move_task", err)
	}
	return jsonResult(map[string]any{"success": true})
}

func (s *Server) handleGetTask(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args taskIDArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("get_task", err)
	}
	task, err := s.tasks.GetTask(args.TaskID)
	if err != nil {
		return errorResult("get_task", err)
	}
	return jsonResult(map[string]any{"success": true, "task": task})
}

func (s *Server) handleListTasksTool(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{"success": true, "tasks": s.tasks.ListTasks()})
}

type dependencyArgs struct {
	TaskID    string `json:"task_id"`
	DependsOn string `json:"depends_on"`
}

func (s *Server) handleAddDependency(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args dependencyArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("add_dependency", err)
	}
	if err := s.tasks.AddDependency(args.TaskID, args.DependsOn); err != nil {
		return errorResult("add_dependency", err)
	}
	return jsonResult(map[string]any{"success": true})
}

func (s *Server) handleRemoveDependency(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args dependencyArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("remove_dependency", err)
	}
	if err := s.tasks.RemoveDependency(args.TaskID, args.DependsOn); err != nil {
		return errorResult("remove_dependency", err)
	}
	return jsonResult(map[string]any{"success": true})
}

func (s *Server) handleGetReadyTasks(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{"success": true, "tasks": s.tasks.GetReadyTasks()})
}

func (s *Server) handleGetBlockedTasks(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{"success": true, "tasks": s.tasks.GetBlockedTasks()})
}

func (s *Server) handleRenderTaskMarkdown(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{"success": true, "markdown": s.tasks.ToMarkdown()})
}

type reorganizeTasksArgs struct {
	Markdown string `json:"markdown"`
}

func (s *Server) handleReorganizeTasks(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args reorganizeTasksArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("reorganize_tasks", err)
	}
	if err := s.tasks.Reorganize(args.Markdown); err != nil {
		return errorResult("reorganize_tasks", err)
	}
	return jsonResult(map[string]any{"success": true, "tasks": s.tasks.ListTasks()})
}

func (s *Server) handleListTaskTemplates(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{"success": true, "templates": tasklist.ListTemplates()})
}

type applyTaskTemplateArgs struct {
	Template string `json:"template"`
	Title    string `json:"title"`
}

func (s *Server) handleApplyTaskTemplate(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args applyTaskTemplateArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult("apply_task_template", err)
	}
	root, err := s.tasks.ApplyTemplate(args.Template, args.Title)
	if err != nil {
		return errorResult("apply_task_template", err)
	}
	return jsonResult(map[string]any{"success": true, "root_task": root})
}

func (s *Server) handleUndoTaskChange(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{"success": true, "applied": s.tasks.Undo()})
}

func (s *Server) handleRedoTaskChange(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{"success": true, "applied": s.tasks.Redo()})
}
