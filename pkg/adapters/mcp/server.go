// Package mcp exposes flow storage, validation and export as MCP tools so
// assistants can inspect and edit decision trees alongside the HTTP API.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/flowyaml"
	"github.com/aretw0/espalier/pkg/ports"
)

// ProjectLister is the optional project surface; without it the
// list_projects tool reports an error.
type ProjectLister interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
}

// ValidationResponse is the structured output of the validate_flow tool.
type ValidationResponse struct {
	Valid    bool       `json:"valid" jsonschema_description:"True when no errors were found"`
	Errors   []string   `json:"errors" jsonschema_description:"Blocking problems"`
	Warnings []string   `json:"warnings" jsonschema_description:"Non-blocking findings"`
	Paths    [][]string `json:"paths" jsonschema_description:"Enumerated root-to-terminal paths"`
}

// Server exposes a flow store over the Model Context Protocol.
type Server struct {
	store     ports.FlowStore
	projects  ProjectLister
	validator ports.FlowValidator
	mcpServer *server.MCPServer
}

// NewServer creates the MCP server and registers its tools. projects and
// validator may be nil.
func NewServer(version string, store ports.FlowStore, projects ProjectLister, validator ports.FlowValidator) *Server {
	s := &Server{
		store:     store,
		projects:  projects,
		validator: validator,
		mcpServer: server.NewMCPServer("espalier-mcp", version),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List the known projects."),
	), s.handleListProjects)

	s.mcpServer.AddTool(mcp.NewTool("list_flows",
		mcp.WithDescription("List the flows of a project."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
	), s.handleListFlows)

	s.mcpServer.AddTool(mcp.NewTool("get_flow",
		mcp.WithDescription("Fetch a flow snapshot as JSON."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("Flow identifier")),
	), s.handleGetFlow)

	s.mcpServer.AddTool(mcp.NewTool("save_flow",
		mcp.WithDescription("Persist a flow snapshot. The flow argument is the JSON document returned by get_flow."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("flow", mcp.Required(), mcp.Description("Flow snapshot as JSON")),
	), s.handleSaveFlow)

	validateTool := mcp.NewTool("validate_flow",
		mcp.WithDescription("Validate a stored flow and report errors, warnings and conversation paths."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("Flow identifier")),
		mcp.WithOutputSchema[ValidationResponse](),
	)
	s.mcpServer.AddTool(validateTool, mcp.NewStructuredToolHandler(s.handleValidateFlow))

	s.mcpServer.AddTool(mcp.NewTool("export_yaml",
		mcp.WithDescription("Export a stored flow as a YAML document."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("Flow identifier")),
	), s.handleExportYAML)

	s.mcpServer.AddTool(mcp.NewTool("import_yaml",
		mcp.WithDescription("Parse a YAML flow document into a flow snapshot without saving it."),
		mcp.WithString("yaml", mcp.Required(), mcp.Description("YAML source text")),
	), s.handleImportYAML)
}

func (s *Server) handleListProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.projects == nil {
		return mcp.NewToolResultError("project listing is not available on this store"), nil
	}
	projects, err := s.projects.ListProjects(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list projects failed: %v", err)), nil
	}
	jsonBytes, _ := json.Marshal(projects)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleListFlows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := request.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	flows, err := s.store.ListFlows(ctx, projectID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list flows failed: %v", err)), nil
	}
	jsonBytes, _ := json.Marshal(flows)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleGetFlow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	flow, result := s.loadFlowArg(ctx, request)
	if result != nil {
		return result, nil
	}
	jsonBytes, _ := json.Marshal(flow)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleSaveFlow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := request.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := request.RequireString("flow")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var flow domain.Flow
	if err := json.Unmarshal([]byte(raw), &flow); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("flow is not valid JSON: %v", err)), nil
	}
	if err := flow.CheckShape(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("flow rejected: %v", err)), nil
	}
	if err := s.store.SaveFlow(ctx, projectID, &flow); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("save failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved flow %q with %d nodes", flow.ID, len(flow.Nodes))), nil
}

func (s *Server) handleValidateFlow(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ValidationResponse, error) {
	if s.validator == nil {
		return ValidationResponse{}, fmt.Errorf("no validator configured")
	}
	projectID, _ := args["project_id"].(string)
	flowID, _ := args["flow_id"].(string)

	flow, err := s.store.LoadFlow(ctx, projectID, flowID)
	if err != nil {
		return ValidationResponse{}, fmt.Errorf("load flow: %w", err)
	}
	report, err := s.validator.Validate(ctx, flow)
	if err != nil {
		return ValidationResponse{}, fmt.Errorf("validate: %w", err)
	}
	return ValidationResponse{
		Valid:    report.Valid,
		Errors:   report.Errors,
		Warnings: report.Warnings,
		Paths:    report.Paths,
	}, nil
}

func (s *Server) handleExportYAML(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	flow, result := s.loadFlowArg(ctx, request)
	if result != nil {
		return result, nil
	}
	var buf bytes.Buffer
	if err := (flowyaml.Exporter{}).Export(ctx, flow, &buf); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("export failed: %v", err)), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func (s *Server) handleImportYAML(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("yaml")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	flow, err := flowyaml.Decode([]byte(text))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("import failed: %v", err)), nil
	}
	jsonBytes, _ := json.Marshal(flow)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) loadFlowArg(ctx context.Context, request mcp.CallToolRequest) (*domain.Flow, *mcp.CallToolResult) {
	projectID, err := request.RequireString("project_id")
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	flowID, err := request.RequireString("flow_id")
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	flow, err := s.store.LoadFlow(ctx, projectID, flowID)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("load flow failed: %v", err))
	}
	return flow, nil
}

func (s *Server) registerResources() {
	// EXPOSE: espalier://projects
	s.mcpServer.AddResource(mcp.NewResource("espalier://projects", "Known Projects",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		if s.projects == nil {
			return nil, fmt.Errorf("project listing is not available on this store")
		}
		projects, err := s.projects.ListProjects(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list projects: %w", err)
		}
		jsonBytes, _ := json.Marshal(projects)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "espalier://projects",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
