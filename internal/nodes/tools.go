package nodes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/lattice/internal/expr"
	"github.com/aretw0/lattice/internal/retry"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

// Defaults for call-out nodes.
const (
	DefaultHTTPTimeout     = 30 * time.Second
	DefaultTopK            = 4
	DefaultSubgraphTimeout = 5 * time.Minute
)

func (b *Builder) httpTool(n domain.Node, cfg domain.HTTPToolConfig) (Func, error) {
	if cfg.URL == "" {
		return nil, errors.New("url is required")
	}
	method := strings.ToUpper(cfg.Method)
	if method == "" {
		method = http.MethodGet
	}
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodHead:
	default:
		return nil, fmt.Errorf("unsupported method %q", cfg.Method)
	}
	timeout := DefaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds * float64(time.Second))
	}

	nodeID := n.ID
	return func(ctx context.Context, s *domain.State) (domain.StateDelta, error) {
		if b.http == nil {
			return domain.OutputDelta(nodeID, errorOutput(errors.New("no http client configured"), nil)), nil
		}

		view := s.Flatten()
		headers := make(map[string]string, len(cfg.Headers))
		for k, v := range cfg.Headers {
			headers[k] = expr.Render(v, view)
		}
		req := ports.HTTPRequest{
			Method:  method,
			URL:     expr.Render(cfg.URL, view),
			Headers: headers,
			Body:    expr.RenderValue(cfg.Body, view),
			Timeout: timeout,
		}

		resp, err := b.http.Do(ctx, req)
		if err != nil {
			b.logger.Warn("http tool call failed", "node_id", nodeID, "url", req.URL, "error", err)
			return domain.OutputDelta(nodeID, errorOutput(err, nil)), nil
		}
		if resp.StatusCode >= http.StatusBadRequest {
			return domain.OutputDelta(nodeID, errorOutput(
				fmt.Errorf("http status %d", resp.StatusCode),
				map[string]any{"status_code": resp.StatusCode, "body": resp.Body},
			)), nil
		}
		return domain.OutputDelta(nodeID, resp.Body), nil
	}, nil
}

func (b *Builder) database(n domain.Node, cfg domain.DatabaseConfig) (Func, error) {
	if cfg.Query == "" {
		return nil, errors.New("query is required")
	}

	nodeID := n.ID
	return func(ctx context.Context, s *domain.State) (domain.StateDelta, error) {
		if b.data == nil {
			return domain.OutputDelta(nodeID, errorOutput(errors.New("no data accessor configured"), nil)), nil
		}

		params, _ := expr.RenderValue(cfg.Parameters, s.Flatten()).(map[string]any)
		rows, err := b.data.Query(ctx, ports.DataQuery{
			ConnectionID: cfg.ConnectionID,
			Operation:    cfg.Operation,
			Query:        cfg.Query,
			Parameters:   params,
		})
		if err != nil {
			b.logger.Warn("database query failed", "node_id", nodeID, "connection_id", cfg.ConnectionID, "error", err)
			return domain.OutputDelta(nodeID, errorOutput(err, nil)), nil
		}
		return domain.OutputDelta(nodeID, rows), nil
	}, nil
}

func (b *Builder) retrieval(n domain.Node, cfg domain.RetrievalConfig) (Func, error) {
	if cfg.Index == "" {
		return nil, errors.New("index is required")
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	nodeID := n.ID
	return func(ctx context.Context, s *domain.State) (domain.StateDelta, error) {
		if b.retriever == nil {
			return domain.StateDelta{}, retry.NonRetryable(errors.New("no retriever configured"))
		}

		view := s.Flatten()
		query := expr.Render(cfg.Query, view)
		if query == "" {
			query = lastUserMessage(s)
		}
		filters, _ := expr.RenderValue(cfg.Filters, view).(map[string]any)

		docs, err := b.retriever.Retrieve(ctx, ports.RetrievalQuery{
			Index:     cfg.Index,
			Namespace: cfg.Namespace,
			TopK:      topK,
			Filters:   filters,
			Query:     query,
		})
		if err != nil {
			return domain.StateDelta{}, err
		}

		matches := make([]any, 0, len(docs))
		for _, d := range docs {
			matches = append(matches, map[string]any{
				"document": d.Document,
				"score":    d.Score,
				"text":     d.Text,
			})
		}
		return domain.OutputDelta(nodeID, matches), nil
	}, nil
}

func (b *Builder) subgraph(n domain.Node, cfg domain.SubgraphConfig) (Func, error) {
	if cfg.GraphID == "" {
		return nil, errors.New("graph_id is required")
	}
	timeout := DefaultSubgraphTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds * float64(time.Second))
	}

	nodeID := n.ID
	return func(ctx context.Context, s *domain.State) (domain.StateDelta, error) {
		if b.subgraphs == nil {
			return domain.StateDelta{}, retry.NonRetryable(errors.New("no subgraph runner configured"))
		}

		view := s.Flatten()
		input := make(map[string]any, len(cfg.InputMapping))
		for childKey, path := range cfg.InputMapping {
			if v, ok := domain.LookupPath(view, path); ok {
				input[childKey] = v
			}
		}

		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		child, err := b.subgraphs.RunSubgraph(ctx, cfg.GraphID, input)
		if err != nil {
			return domain.StateDelta{}, fmt.Errorf("subgraph %q: %w", cfg.GraphID, err)
		}

		if len(cfg.OutputMapping) == 0 {
			return domain.OutputDelta(nodeID, map[string]any{
				"run_id":  child.RunID,
				"fields":  child.Fields,
				"outputs": child.Outputs,
			}), nil
		}

		childView := child.Flatten()
		mapped := make(map[string]any, len(cfg.OutputMapping))
		for parentKey, path := range cfg.OutputMapping {
			if v, ok := domain.LookupPath(childView, path); ok {
				mapped[parentKey] = v
			}
		}
		return domain.StateDelta{
			Fields:  mapped,
			Outputs: map[string]any{nodeID: mapped},
		}, nil
	}, nil
}

func lastUserMessage(s *domain.State) string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}
