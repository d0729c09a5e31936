// Package mcp exposes the domain operations as MCP tools over stdio.
package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ldi/backlog/internal/search"
	"github.com/ldi/backlog/internal/service"
	"github.com/ldi/backlog/internal/validate"
	"github.com/ldi/backlog/pkg/models"
)

// Services bundles the domain layer the tool handlers call into.
type Services struct {
	Projects *service.ProjectService
	Tasks    *service.TaskService
	Search   *search.Engine
}

// NewServer creates a new MCP server with one tool per domain operation.
func NewServer(svc Services) *server.MCPServer {
	s := server.NewMCPServer("Backlog", "0.1.0")

	s.AddTool(mcp.NewTool("create_project",
		mcp.WithDescription("Create a new project."),
		mcp.WithString("name", mcp.Description("Project name"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Project description")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
	), createProjectHandler(svc))

	s.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List projects, oldest first."),
		mcp.WithBoolean("include_archived", mcp.Description("Include archived projects")),
	), listProjectsHandler(svc))

	s.AddTool(mcp.NewTool("archive_project",
		mcp.WithDescription("Archive a project and all of its tasks. Idempotent."),
		mcp.WithString("project_id", mcp.Description("Project id"), mcp.Required()),
	), archiveProjectHandler(svc))

	s.AddTool(mcp.NewTool("create_task",
		mcp.WithDescription("Create a task in a project."),
		mcp.WithString("project_id", mcp.Description("Owning project id"), mcp.Required()),
		mcp.WithString("title", mcp.Description("Task title"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Task description")),
		mcp.WithString("priority", mcp.Description("Priority (low|medium|high)")),
		mcp.WithString("due_date", mcp.Description("Due date (RFC 3339 or YYYY-MM-DD)")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
		mcp.WithString("parent_task_id", mcp.Description("Parent task id in the same project")),
		mcp.WithString("status", mcp.Description("Initial status (defaults to todo)")),
	), createTaskHandler(svc))

	s.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks with optional filters and sorting."),
		mcp.WithString("project_id", mcp.Description("Limit to one project")),
		mcp.WithBoolean("include_archived", mcp.Description("Include archived tasks and projects")),
		mcp.WithString("status", mcp.Description("Filter by status")),
		mcp.WithString("priority", mcp.Description("Filter by priority")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags; any match keeps the task")),
		mcp.WithBoolean("has_subtasks", mcp.Description("Filter on whether the task has subtasks")),
		mcp.WithString("sort_by", mcp.Description("Sort key (createdAt|dueDate|priority|title)")),
		mcp.WithString("order", mcp.Description("Sort order (asc|desc)")),
	), listTasksHandler(svc))

	s.AddTool(mcp.NewTool("update_task",
		mcp.WithDescription("Update a task. Omitted fields are left unchanged."),
		mcp.WithString("task_id", mcp.Description("Task id"), mcp.Required()),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("priority", mcp.Description("New priority")),
		mcp.WithString("due_date", mcp.Description("New due date")),
		mcp.WithString("tags", mcp.Description("Replacement comma-separated tags")),
	), updateTaskHandler(svc))

	s.AddTool(mcp.NewTool("move_task",
		mcp.WithDescription("Move a task to a new status (todo|pending|completed|archived)."),
		mcp.WithString("task_id", mcp.Description("Task id"), mcp.Required()),
		mcp.WithString("status", mcp.Description("Target status"), mcp.Required()),
	), moveTaskHandler(svc))

	s.AddTool(mcp.NewTool("archive_task",
		mcp.WithDescription("Archive a task."),
		mcp.WithString("task_id", mcp.Description("Task id"), mcp.Required()),
	), archiveTaskHandler(svc))

	s.AddTool(mcp.NewTool("search_tasks",
		mcp.WithDescription("Search tasks with free text plus key:value tokens (priority, status, due:before/after, project)."),
		mcp.WithString("query", mcp.Description("Search query")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags; any match keeps the task")),
		mcp.WithBoolean("include_archived", mcp.Description("Include archived tasks and projects")),
		mcp.WithString("sort_by", mcp.Description("Sort key")),
		mcp.WithString("order", mcp.Description("Sort order")),
	), searchTasksHandler(svc))

	return s
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func createProjectHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p, err := svc.Projects.Create(ctx, service.CreateProjectRequest{
			Name:        mcp.ParseString(request, "name", ""),
			Description: mcp.ParseString(request, "description", ""),
			Tags:        validate.TagList(mcp.ParseString(request, "tags", "")),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(p)
	}
}

func listProjectsHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projects, err := svc.Projects.List(ctx, mcp.ParseBoolean(request, "include_archived", false))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"projects": projects})
	}
}

func archiveProjectHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p, err := svc.Projects.Archive(ctx, mcp.ParseString(request, "project_id", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(p)
	}
}

func createTaskHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req := service.CreateTaskRequest{
			ProjectID:    mcp.ParseString(request, "project_id", ""),
			Title:        mcp.ParseString(request, "title", ""),
			Description:  mcp.ParseString(request, "description", ""),
			Tags:         validate.TagList(mcp.ParseString(request, "tags", "")),
			ParentTaskID: mcp.ParseString(request, "parent_task_id", ""),
		}

		if raw := mcp.ParseString(request, "priority", ""); raw != "" {
			priority, err := validate.Priority(raw)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			req.Priority = priority
		}
		if raw := mcp.ParseString(request, "status", ""); raw != "" {
			status, err := validate.Status(raw)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			req.Status = status
		}
		if raw := mcp.ParseString(request, "due_date", ""); raw != "" {
			due, err := validate.Date(raw)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			req.DueDate = &due
		}

		t, err := svc.Tasks.Create(ctx, req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(t)
	}
}

func listTasksHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filter := service.TaskFilter{
			ProjectID:       mcp.ParseString(request, "project_id", ""),
			IncludeArchived: mcp.ParseBoolean(request, "include_archived", false),
			Tags:            validate.TagList(mcp.ParseString(request, "tags", "")),
			SortBy:          models.SortKey(mcp.ParseString(request, "sort_by", "")),
			Order:           models.SortOrder(mcp.ParseString(request, "order", "")),
		}

		if raw := mcp.ParseString(request, "status", ""); raw != "" {
			status, err := validate.Status(raw)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			filter.Status = &status
		}
		if raw := mcp.ParseString(request, "priority", ""); raw != "" {
			priority, err := validate.Priority(raw)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			filter.Priority = &priority
		}

		args, _ := request.Params.Arguments.(map[string]any)
		if hasSubtasks, ok := args["has_subtasks"].(bool); ok {
			filter.HasSubtasks = &hasSubtasks
		}

		tasks, err := svc.Tasks.List(ctx, filter)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"tasks": tasks})
	}
}

func updateTaskHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req := service.UpdateTaskRequest{
			TaskID: mcp.ParseString(request, "task_id", ""),
		}

		// Absent arguments mean "leave unchanged"; presence is what matters.
		args, _ := request.Params.Arguments.(map[string]any)
		if title, ok := args["title"].(string); ok {
			req.Title = &title
		}
		if description, ok := args["description"].(string); ok {
			req.Description = &description
		}
		if raw, ok := args["priority"].(string); ok {
			priority, err := validate.Priority(raw)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			req.Priority = &priority
		}
		if raw, ok := args["due_date"].(string); ok {
			due, err := validate.Date(raw)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			req.DueDate = &due
		}
		if raw, ok := args["tags"].(string); ok {
			tags := validate.TagList(raw)
			req.Tags = &tags
		}

		t, err := svc.Tasks.Update(ctx, req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(t)
	}
}

func moveTaskHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		status, err := validate.Status(mcp.ParseString(request, "status", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		t, err := svc.Tasks.Move(ctx, mcp.ParseString(request, "task_id", ""), status)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(t)
	}
}

func archiveTaskHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		t, err := svc.Tasks.Archive(ctx, mcp.ParseString(request, "task_id", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(t)
	}
}

func searchTasksHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tasks, err := svc.Search.Search(ctx, search.Request{
			Query:           mcp.ParseString(request, "query", ""),
			Tags:            validate.TagList(mcp.ParseString(request, "tags", "")),
			IncludeArchived: mcp.ParseBoolean(request, "include_archived", false),
			SortBy:          models.SortKey(mcp.ParseString(request, "sort_by", "")),
			Order:           models.SortOrder(mcp.ParseString(request, "order", "")),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"tasks": tasks})
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
