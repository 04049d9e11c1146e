// Package mcp exposes routing and flow execution as MCP tools so agent
// hosts can drive the orchestrator directly.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"flow-orchestrator/backend/internal/auth"
	"flow-orchestrator/backend/internal/repository"
	"flow-orchestrator/backend/internal/routing"
	"flow-orchestrator/backend/internal/services"
	"flow-orchestrator/backend/pkg/models"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type Server struct {
	mcpServer    *server.MCPServer
	router       *routing.Router
	flows        *services.FlowService
	orchestrator *services.OrchestratorService
	scopes       *auth.Resolver
}

func NewServer(router *routing.Router, flows *services.FlowService, orchestrator *services.OrchestratorService, scopes *auth.Resolver) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Flow Orchestrator",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		router:       router,
		flows:        flows,
		orchestrator: orchestrator,
		scopes:       scopes,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func scopeArgs() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("user_id", mcp.Description("Owner identity; optional when the server has a default user")),
		mcp.WithString("client_id", mcp.Description("Sub-tenant the request is scoped to")),
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"route_task",
			mcp.WithDescription("Rank specialist agents for a free-text task"),
			mcp.WithString("task", mcp.Required(), mcp.Description("The task to route")),
			mcp.WithNumber("top_k", mcp.Description("Maximum number of matches (default 5, max 20)")),
		),
		s.handleRouteTask,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"agent_brief",
			mcp.WithDescription("Describe one agent and the live status of its connectors"),
			mcp.WithString("slug", mcp.Required(), mcp.Description("The agent slug")),
		),
		s.handleAgentBrief,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"execute_flow",
			append([]mcp.ToolOption{
				mcp.WithDescription("Validate and run a flow graph, recording its trace"),
				mcp.WithObject("flow", mcp.Description("Flow graph with nodes and connections")),
				mcp.WithString("flow_id", mcp.Description("Run a saved flow instead of an inline graph")),
				mcp.WithString("name", mcp.Description("Display name for the execution")),
			}, scopeArgs()...)...,
		),
		s.handleExecuteFlow,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_flow_templates",
			append([]mcp.ToolOption{
				mcp.WithDescription("List flow templates, optionally by category"),
				mcp.WithString("category", mcp.Description("Category filter, case-insensitive")),
			}, scopeArgs()...)...,
		),
		s.handleListTemplates,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_executions",
			append([]mcp.ToolOption{
				mcp.WithDescription("List recorded executions, newest first"),
				mcp.WithString("flow_name", mcp.Description("Only executions with this flow name")),
				mcp.WithNumber("limit", mcp.Description("Maximum number of executions (default 50, max 500)")),
			}, scopeArgs()...)...,
		),
		s.handleListExecutions,
	)
}

// resolve builds the scope from the tool arguments. unowned is set when
// the client is not the caller's; list tools answer that with nothing.
func (s *Server) resolve(ctx context.Context, request mcp.CallToolRequest, clientRequired bool) (scope models.Scope, unowned bool, err error) {
	scope, err = s.scopes.Resolve(ctx, request.GetString("user_id", ""), request.GetString("client_id", ""), clientRequired)
	if errors.Is(err, auth.ErrScopeNotOwned) {
		return scope, true, err
	}
	return scope, false, err
}

func textResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleRouteTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task := request.GetString("task", "")
	if task == "" {
		return mcp.NewToolResultError("Missing required parameter: task"), nil
	}

	result, err := s.router.Route(ctx, task, request.GetInt("top_k", routing.DefaultTopK))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to route: %v", err)), nil
	}
	return textResult(result)
}

func (s *Server) handleAgentBrief(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug := request.GetString("slug", "")
	if slug == "" {
		return mcp.NewToolResultError("Missing required parameter: slug"), nil
	}

	brief, err := s.router.Brief(ctx, slug)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to brief agent: %v", err)), nil
	}
	return textResult(brief)
}

func (s *Server) handleExecuteFlow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	var graph models.FlowGraph
	switch raw := args["flow"].(type) {
	case nil:
	case string:
		if err := json.Unmarshal([]byte(raw), &graph); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid flow: %v", err)), nil
		}
	default:
		b, _ := json.Marshal(raw)
		if err := json.Unmarshal(b, &graph); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid flow: %v", err)), nil
		}
	}
	flowID := request.GetString("flow_id", "")
	if len(graph.Nodes) == 0 && flowID == "" {
		return mcp.NewToolResultError("Missing required parameter: flow or flow_id"), nil
	}

	scope, _, err := s.resolve(ctx, request, true)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to resolve scope: %v", err)), nil
	}

	trace, err := s.orchestrator.Execute(ctx, scope, services.ExecuteRequest{
		Graph:  graph,
		FlowID: flowID,
		Name:   request.GetString("name", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to execute flow: %v", err)), nil
	}
	return textResult(trace)
}

func (s *Server) handleListTemplates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scope, unowned, err := s.resolve(ctx, request, false)
	if unowned {
		return textResult([]*models.Flow{})
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to resolve scope: %v", err)), nil
	}

	templates, err := s.flows.ListTemplates(ctx, scope, request.GetString("category", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list templates: %v", err)), nil
	}
	return textResult(templates)
}

func (s *Server) handleListExecutions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scope, unowned, err := s.resolve(ctx, request, true)
	if unowned {
		return textResult([]models.ExecutionSummary{})
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to resolve scope: %v", err)), nil
	}

	items, err := s.orchestrator.History(ctx, scope, repository.ExecutionFilter{
		FlowName: request.GetString("flow_name", ""),
		Limit:    historyLimit(request.GetInt("limit", defaultHistoryLimit)),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list executions: %v", err)), nil
	}
	return textResult(items)
}

// historyLimit applies the same bounds as the REST history endpoint.
func historyLimit(n int) int {
	if n <= 0 {
		return defaultHistoryLimit
	}
	return min(n, maxHistoryLimit)
}

func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	// Use SSE server for /mcp/sse and /mcp/message endpoints
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		// Direct POST for tool calls
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	// SSE endpoints
	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
