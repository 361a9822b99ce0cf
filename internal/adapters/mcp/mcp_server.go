// Package mcp provides the MCP (Model Context Protocol) server implementation.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/xvierd/kage-cli/internal/domain"
	"github.com/xvierd/kage-cli/internal/ports"
)

// Server implements the MCP server using mark3labs/mcp-go.
type Server struct {
	server        *server.MCPServer
	stateProvider ports.MCPStateProvider
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewServer creates a new MCP server instance.
func NewServer(stateProvider ports.MCPStateProvider, version string) *Server {
	s := &Server{
		stateProvider: stateProvider,
	}

	s.server = server.NewMCPServer(
		"kage",
		version,
		server.WithLogging(),
	)

	s.registerTools()

	return s
}

// registerTools registers all available MCP tools.
func (s *Server) registerTools() {
	s.server.AddTool(
		mcp.NewTool(
			"list_events",
			mcp.WithDescription("List the timeline events of a day grouped into morning, noon, afternoon and night"),
			mcp.WithString(
				"date",
				mcp.Description("Day to list as YYYY-MM-DD (default: today)"),
			),
		),
		s.handleListEvents,
	)

	s.server.AddTool(
		mcp.NewTool(
			"add_event",
			mcp.WithDescription("Record an event on today's timeline"),
			mcp.WithString(
				"title",
				mcp.Required(),
				mcp.Description("What happened"),
			),
			mcp.WithString(
				"time",
				mcp.Description("Start time as HH:MM (default: now)"),
			),
		),
		s.handleAddEvent,
	)

	s.server.AddTool(
		mcp.NewTool(
			"delete_event",
			mcp.WithDescription("Delete a timeline event; todos it completed are reopened"),
			mcp.WithString(
				"id",
				mcp.Required(),
				mcp.Description("The ID of the event to delete"),
			),
		),
		s.handleDeleteEvent,
	)

	s.server.AddTool(
		mcp.NewTool(
			"list_event_types",
			mcp.WithDescription("List the quick-add presets (event types)"),
		),
		s.handleListEventTypes,
	)

	s.server.AddTool(
		mcp.NewTool(
			"list_todos",
			mcp.WithDescription("List todos of a tab in display order"),
			mcp.WithString(
				"tab",
				mcp.Description("Which todos to list"),
				mcp.Enum("all", "today", "important", "done"),
			),
		),
		s.handleListTodos,
	)

	s.server.AddTool(
		mcp.NewTool(
			"create_todo",
			mcp.WithDescription("Create a todo"),
			mcp.WithString(
				"title",
				mcp.Required(),
				mcp.Description("The title of the todo"),
			),
			mcp.WithString(
				"deadline_date",
				mcp.Description("Optional deadline as YYYY-MM-DD"),
			),
			mcp.WithNumber(
				"priority",
				mcp.Description("1 = low, 2 = normal (default), 3 = high"),
			),
		),
		s.handleCreateTodo,
	)

	s.server.AddTool(
		mcp.NewTool(
			"set_todo_done",
			mcp.WithDescription("Mark a todo done or reopen it"),
			mcp.WithString(
				"id",
				mcp.Required(),
				mcp.Description("The ID (or part of the title) of the todo"),
			),
			mcp.WithBoolean(
				"done",
				mcp.Description("true to complete, false to reopen (default: true)"),
			),
		),
		s.handleSetTodoDone,
	)

	s.server.AddTool(
		mcp.NewTool(
			"delete_todo",
			mcp.WithDescription("Delete a todo"),
			mcp.WithString(
				"id",
				mcp.Required(),
				mcp.Description("The ID (or part of the title) of the todo"),
			),
		),
		s.handleDeleteTodo,
	)
}

// Start begins serving MCP requests via stdio.
func (s *Server) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	return server.ServeStdio(s.server)
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// IsRunning returns true if the server is active.
func (s *Server) IsRunning() bool {
	if s.ctx == nil {
		return false
	}
	return s.ctx.Err() == nil
}

// Ensure Server implements ports.MCPHandler.
var _ ports.MCPHandler = (*Server)(nil)

func (s *Server) handleListEvents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date := request.GetString("date", "")
	if date != "" {
		if err := domain.ValidateDate(date); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	sections, err := s.stateProvider.ListEvents(ctx, date)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list events: %v", err)), nil
	}

	total := 0
	parts := make([]map[string]interface{}, 0, len(sections))
	for _, section := range sections {
		events := make([]map[string]interface{}, 0, len(section.Items))
		for _, ev := range section.Items {
			events = append(events, eventData(ev))
		}
		total += len(events)
		parts = append(parts, map[string]interface{}{
			"part":   string(section.Key),
			"label":  section.Label,
			"events": events,
		})
	}

	return jsonResult(map[string]interface{}{
		"date":        date,
		"sections":    parts,
		"total_count": total,
	})
}

func (s *Server) handleAddEvent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("title is required: " + err.Error()), nil
	}

	ev, err := s.stateProvider.AddEvent(ctx, title, request.GetString("time", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add event: %v", err)), nil
	}

	return jsonResult(eventData(ev))
}

func (s *Server) handleDeleteEvent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id is required: " + err.Error()), nil
	}

	if err := s.stateProvider.DeleteEvent(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete event: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Event %s deleted", id)), nil
}

func (s *Server) handleListEventTypes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	presets, err := s.stateProvider.ListEventTypes(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list event types: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{
		"event_types": presets,
		"total_count": len(presets),
	})
}

func (s *Server) handleListTodos(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tab, err := domain.ParseTab(request.GetString("tab", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	todos, stats, err := s.stateProvider.ListTodos(ctx, tab)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list todos: %v", err)), nil
	}

	items := make([]map[string]interface{}, 0, len(todos))
	for _, todo := range todos {
		items = append(items, todoData(todo))
	}

	return jsonResult(map[string]interface{}{
		"tab":   string(tab),
		"todos": items,
		"stats": stats,
	})
}

func (s *Server) handleCreateTodo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("title is required: " + err.Error()), nil
	}

	priority := int(request.GetFloat("priority", 0))
	if priority == 0 {
		if raw := request.GetString("priority", ""); raw != "" {
			if p, err := strconv.Atoi(raw); err == nil {
				priority = p
			}
		}
	}

	todo, err := s.stateProvider.CreateTodo(ctx, title, request.GetString("deadline_date", ""), priority)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create todo: %v", err)), nil
	}

	return jsonResult(todoData(todo))
}

func (s *Server) handleSetTodoDone(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id is required: " + err.Error()), nil
	}

	todo, err := s.stateProvider.SetTodoDone(ctx, id, request.GetBool("done", true))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update todo: %v", err)), nil
	}

	return jsonResult(todoData(todo))
}

func (s *Server) handleDeleteTodo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id is required: " + err.Error()), nil
	}

	if err := s.stateProvider.DeleteTodo(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete todo: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Todo %s deleted", id)), nil
}

func eventData(ev domain.Event) map[string]interface{} {
	data := map[string]interface{}{
		"id":    ev.ID,
		"time":  ev.Time,
		"title": ev.Title,
		"part":  string(domain.DayPartOf(ev.Time)),
	}
	if t := ev.EventType(); t != "" {
		data["event_type"] = t
	}
	if v := ev.ValueNumber(); v != "" {
		data["value_number"] = v
	}
	return data
}

func todoData(todo domain.Todo) map[string]interface{} {
	data := map[string]interface{}{
		"id":       todo.ID,
		"title":    todo.Title,
		"done":     todo.Done(),
		"priority": domain.PriorityLabel(todo.Priority),
	}
	if todo.DeadlineDate != "" {
		data["deadline_date"] = todo.DeadlineDate
	}
	if todo.DeadlineTime != "" {
		data["deadline_time"] = todo.DeadlineTime
	}
	if todo.Note != "" {
		data["note"] = todo.Note
	}
	if todo.DoneAt != nil {
		data["done_at"] = *todo.DoneAt
	}
	return data
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
