// Package mcp exposes manifest validation, compilation and runs as Model
// Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ManifestsURI is the resource listing every live manifest.
const ManifestsURI = "lattice://manifests"

// Service is the subset of the lattice facade exposed as tools.
type Service interface {
	Get(ctx context.Context, id string) (*domain.Manifest, error)
	List(ctx context.Context, status domain.Status) ([]*domain.Manifest, error)
	Search(ctx context.Context, query string) ([]*domain.Manifest, error)
	Validate(m *domain.Manifest) (errs []string, warnings []string)
	Compile(ctx context.Context, m *domain.Manifest) domain.CompileResult
	CompileByID(ctx context.Context, id string) (domain.CompileResult, error)
	Run(ctx context.Context, id string, initial map[string]any) domain.RunResult
	Mermaid(m *domain.Manifest) string
}

// ValidateResponse is the output of validate_manifest.
type ValidateResponse struct {
	Valid    bool     `json:"valid" jsonschema_description:"True when the manifest has no structural errors"`
	Errors   []string `json:"errors" jsonschema_description:"Structural errors"`
	Warnings []string `json:"warnings" jsonschema_description:"Non-fatal findings"`
}

// ManifestSummary is one entry of list_manifests.
type ManifestSummary struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Version int           `json:"version"`
	Status  domain.Status `json:"status"`
	Tags    []string      `json:"tags,omitempty"`
}

// ListResponse is the output of list_manifests.
type ListResponse struct {
	Manifests []ManifestSummary `json:"manifests"`
}

// Server wraps the lattice service as an MCP server.
type Server struct {
	svc       Service
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger. It must not write to stdout when serving stdio.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates an MCP server advertising the given version.
func NewServer(svc Service, version string, opts ...Option) *Server {
	s := &Server{
		svc:       svc,
		mcpServer: server.NewMCPServer("lattice-mcp", version),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on port until ctx is canceled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(fmt.Sprintf("http://localhost:%d", port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))
	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server listening (sse)", "address", addr)
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
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("validate_manifest",
		mcp.WithDescription("Check a manifest for structural errors without compiling it."),
		mcp.WithString("manifest", mcp.Required(), mcp.Description("The manifest as a JSON document")),
		mcp.WithOutputSchema[ValidateResponse](),
	), mcp.NewStructuredToolHandler(s.handleValidate))

	s.mcpServer.AddTool(mcp.NewTool("compile_manifest",
		mcp.WithDescription("Compile a registered manifest by id, or an inline manifest, into a runnable graph."),
		mcp.WithString("id", mcp.Description("Id of a registered manifest")),
		mcp.WithString("manifest", mcp.Description("Inline manifest JSON, used when id is empty")),
		mcp.WithOutputSchema[domain.CompileResult](),
	), mcp.NewStructuredToolHandler(s.handleCompile))

	s.mcpServer.AddTool(mcp.NewTool("run_manifest",
		mcp.WithDescription("Run the compiled graph of a manifest and return its final state."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Manifest id")),
		mcp.WithString("state", mcp.Description("JSON object with the initial state (fields, messages, decisions)")),
		mcp.WithOutputSchema[domain.RunResult](),
	), mcp.NewStructuredToolHandler(s.handleRun))

	s.mcpServer.AddTool(mcp.NewTool("list_manifests",
		mcp.WithDescription("List registered manifests, optionally by status or search query."),
		mcp.WithString("status", mcp.Description("draft, published, deployed, deprecated or archived")),
		mcp.WithString("query", mcp.Description("Case-insensitive match on name, description and tags")),
		mcp.WithOutputSchema[ListResponse](),
	), mcp.NewStructuredToolHandler(s.handleList))

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Render a registered manifest as a Mermaid flowchart."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Manifest id")),
	), s.handleGraph)
}

func (s *Server) handleValidate(_ context.Context, _ mcp.CallToolRequest, args map[string]interface{}) (ValidateResponse, error) {
	m, err := manifestArg(args)
	if err != nil {
		return ValidateResponse{}, err
	}
	errs, warnings := s.svc.Validate(m)
	return ValidateResponse{
		Valid:    len(errs) == 0,
		Errors:   nonNil(errs),
		Warnings: nonNil(warnings),
	}, nil
}

func (s *Server) handleCompile(ctx context.Context, _ mcp.CallToolRequest, args map[string]interface{}) (domain.CompileResult, error) {
	if id, _ := args["id"].(string); id != "" {
		return s.svc.CompileByID(ctx, id)
	}
	m, err := manifestArg(args)
	if err != nil {
		return domain.CompileResult{}, err
	}
	return s.svc.Compile(ctx, m), nil
}

func (s *Server) handleRun(ctx context.Context, _ mcp.CallToolRequest, args map[string]interface{}) (domain.RunResult, error) {
	id, _ := args["id"].(string)
	if id == "" {
		return domain.RunResult{}, errors.New("id is required")
	}

	var initial map[string]any
	if raw, ok := args["state"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &initial); err != nil {
			return domain.RunResult{}, fmt.Errorf("state is not a JSON object: %w", err)
		}
	}

	res := s.svc.Run(ctx, id, initial)
	if !res.Success {
		s.logger.WarnContext(ctx, "mcp run failed", "manifest_id", id, "error", res.Error)
	}
	return res, nil
}

func (s *Server) handleList(ctx context.Context, _ mcp.CallToolRequest, args map[string]interface{}) (ListResponse, error) {
	var (
		list []*domain.Manifest
		err  error
	)
	if q, _ := args["query"].(string); q != "" {
		list, err = s.svc.Search(ctx, q)
	} else {
		status, _ := args["status"].(string)
		list, err = s.svc.List(ctx, domain.Status(status))
	}
	if err != nil {
		return ListResponse{}, err
	}
	return ListResponse{Manifests: summarize(list)}, nil
}

func (s *Server) handleGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, _ := request.GetArguments()["id"].(string)
	m, err := s.svc.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get manifest failed: %v", err)), nil
	}
	return mcp.NewToolResultText(s.svc.Mermaid(m)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(ManifestsURI, "Registered manifests",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		list, err := s.svc.List(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("failed to list manifests: %w", err)
		}
		data, err := json.Marshal(summarize(list))
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      ManifestsURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

// manifestArg decodes the "manifest" argument, given either as a JSON
// string or as an object.
func manifestArg(args map[string]interface{}) (*domain.Manifest, error) {
	var data []byte
	switch v := args["manifest"].(type) {
	case nil:
		return nil, errors.New("manifest is required")
	case string:
		data = []byte(v)
	default:
		var err error
		if data, err = json.Marshal(v); err != nil {
			return nil, err
		}
	}
	var m domain.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest is not valid JSON: %w", err)
	}
	return &m, nil
}

func summarize(list []*domain.Manifest) []ManifestSummary {
	out := make([]ManifestSummary, 0, len(list))
	for _, m := range list {
		out = append(out, ManifestSummary{
			ID:      m.ID,
			Name:    m.Name,
			Version: m.VersionInfo.Version,
			Status:  m.VersionInfo.Status,
			Tags:    m.Tags,
		})
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
