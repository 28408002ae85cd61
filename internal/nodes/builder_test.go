package nodes

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/lattice/internal/retry"
	"github.com/aretw0/lattice/internal/testutils"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, b *Builder, n domain.Node, m *domain.Manifest) Func {
	t.Helper()
	fn, err := b.Build(n, m)
	require.NoError(t, err)
	return fn
}

func newState() *domain.State {
	s := domain.NewState("run-test")
	s.Fields["topic"] = "graphs"
	s.Fields["user"] = map[string]any{"id": 7, "name": "Ada"}
	return s
}

func TestBuild_UnknownTypeFails(t *testing.T) {
	_, err := NewBuilder().Build(domain.Node{ID: "x", Type: "teleport"}, nil)
	assert.ErrorContains(t, err, "unknown node type")
}

func TestModelCall(t *testing.T) {
	model := &testutils.FakeModel{Reply: "a summary"}
	b := NewBuilder(WithModelInvoker(model))

	n := domain.Node{ID: "summarize", Type: domain.NodeTypeModelCall, Config: domain.MustConfig(map[string]any{
		"model_id":        "gpt-4o-mini",
		"prompt_template": "Summarize {{state.topic}} for {{state.user.name}}",
		"system_prompt":   "You are terse.",
		"temperature":     0.1,
		"max_tokens":      128,
	})}

	delta, err := build(t, b, n, nil)(context.Background(), newState())
	require.NoError(t, err)

	assert.Equal(t, "a summary", delta.Outputs["summarize"])
	require.Len(t, model.Requests, 1)
	req := model.Requests[0]
	assert.Equal(t, "gpt-4o-mini", req.ModelID)
	assert.Equal(t, 0.1, req.Temperature)
	assert.Equal(t, 128, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, RoleSystem, req.Messages[0].Role)
	assert.Equal(t, "Summarize graphs for Ada", req.Messages[1].Content)
	assert.Len(t, delta.Messages, 2)
}

func TestModelCall_PromptResolution(t *testing.T) {
	model := &testutils.FakeModel{Respond: func(req ports.ModelRequest) (string, error) {
		return req.Messages[len(req.Messages)-1].Content, nil
	}}
	store := testutils.FakePrompts{"external": "from store: {{state.topic}}"}
	b := NewBuilder(WithModelInvoker(model), WithPromptStore(store))

	m := &domain.Manifest{Metadata: map[string]any{
		domain.KeyPrompts: map[string]any{"inline": "from manifest: {{state.topic}}"},
	}}

	inline := domain.Node{ID: "a", Type: domain.NodeTypeModelCall, Config: domain.MustConfig(map[string]any{"model_id": "m", "prompt_id": "inline"})}
	delta, err := build(t, b, inline, m)(context.Background(), newState())
	require.NoError(t, err)
	assert.Equal(t, "from manifest: graphs", delta.Outputs["a"])

	external := domain.Node{ID: "b", Type: domain.NodeTypeModelCall, Config: domain.MustConfig(map[string]any{"model_id": "m", "prompt_id": "external"})}
	delta, err = build(t, b, external, m)(context.Background(), newState())
	require.NoError(t, err)
	assert.Equal(t, "from store: graphs", delta.Outputs["b"])

	missing := domain.Node{ID: "c", Type: domain.NodeTypeModelCall, Config: domain.MustConfig(map[string]any{"model_id": "m", "prompt_id": "nope"})}
	_, err = build(t, b, missing, m)(context.Background(), newState())
	assert.ErrorIs(t, err, domain.ErrPromptNotFound)
}

func TestModelCall_BuildErrors(t *testing.T) {
	b := NewBuilder()
	_, err := b.Build(domain.Node{ID: "a", Type: domain.NodeTypeModelCall, Config: domain.MustConfig(map[string]any{"model_id": "m"})}, nil)
	assert.ErrorContains(t, err, "prompt_template or prompt_id")

	_, err = b.Build(domain.Node{ID: "a", Type: domain.NodeTypeModelCall, Config: domain.MustConfig(map[string]any{"prompt_template": "x"})}, nil)
	assert.ErrorContains(t, err, "model_id is required")
}

func TestModelCall_NoInvokerIsNonRetryable(t *testing.T) {
	n := domain.Node{ID: "a", Type: domain.NodeTypeModelCall, Config: domain.MustConfig(map[string]any{"model_id": "m", "prompt_template": "x"})}
	_, err := build(t, NewBuilder(), n, nil)(context.Background(), newState())
	assert.True(t, retry.IsNonRetryable(err))
}

func TestClassifier_MatchesCategory(t *testing.T) {
	model := &testutils.FakeModel{Reply: "  Billing.\n"}
	b := NewBuilder(WithModelInvoker(model))
	n := domain.Node{ID: "route", Type: domain.NodeTypeClassifier, Config: domain.MustConfig(map[string]any{
		"model_id":        "m",
		"prompt_template": "Classify: {{state.topic}}",
		"categories":      []string{"billing", "support"},
	})}

	delta, err := build(t, b, n, nil)(context.Background(), newState())
	require.NoError(t, err)
	assert.Equal(t, "billing", delta.Outputs["route"])
	assert.Contains(t, model.Requests[0].Messages[0].Content, "billing, support")
}

func TestHTTPTool(t *testing.T) {
	client := &testutils.FakeHTTP{Response: &ports.HTTPResponse{StatusCode: 200, Body: map[string]any{"ok": true}}}
	b := NewBuilder(WithHTTPClient(client))
	n := domain.Node{ID: "fetch", Type: domain.NodeTypeHTTPTool, Config: domain.MustConfig(map[string]any{
		"method":          "post",
		"url":             "https://api.example.com/users/{{state.user.id}}",
		"headers":         map[string]string{"X-Topic": "{{state.topic}}"},
		"body":            map[string]any{"name": "{{state.user.name}}", "id": "{{state.user.id}}"},
		"timeout_seconds": 2.5,
	})}

	delta, err := build(t, b, n, nil)(context.Background(), newState())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, delta.Outputs["fetch"])

	require.Len(t, client.Requests, 1)
	req := client.Requests[0]
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "https://api.example.com/users/7", req.URL)
	assert.Equal(t, "graphs", req.Headers["X-Topic"])
	assert.Equal(t, map[string]any{"name": "Ada", "id": 7}, req.Body)
	assert.Equal(t, "2.5s", req.Timeout.String())
}

func TestHTTPTool_ErrorsBecomeOutputs(t *testing.T) {
	n := domain.Node{ID: "fetch", Type: domain.NodeTypeHTTPTool, Config: domain.MustConfig(map[string]any{"url": "http://x"})}

	failing := NewBuilder(WithHTTPClient(&testutils.FakeHTTP{Err: errors.New("connection refused")}))
	delta, err := build(t, failing, n, nil)(context.Background(), newState())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"error": "connection refused"}, delta.Outputs["fetch"])

	notFound := NewBuilder(WithHTTPClient(&testutils.FakeHTTP{Response: &ports.HTTPResponse{StatusCode: 404, Body: "missing"}}))
	delta, err = build(t, notFound, n, nil)(context.Background(), newState())
	require.NoError(t, err)
	out := delta.Outputs["fetch"].(map[string]any)
	assert.Equal(t, 404, out["status_code"])
	assert.Equal(t, "http status 404", out["error"])

	_, err = NewBuilder().Build(domain.Node{ID: "bad", Type: domain.NodeTypeHTTPTool, Config: domain.MustConfig(map[string]any{"url": "http://x", "method": "TRACE"})}, nil)
	assert.ErrorContains(t, err, "unsupported method")
}

func TestDatabase(t *testing.T) {
	data := &testutils.FakeData{Rows: []any{map[string]any{"id": 7}}}
	b := NewBuilder(WithDataAccessor(data))
	n := domain.Node{ID: "db", Type: domain.NodeTypeDatabase, Config: domain.MustConfig(map[string]any{
		"connection_id": "main",
		"query":         "SELECT * FROM users WHERE id = :id",
		"parameters":    map[string]any{"id": "{{state.user.id}}"},
	})}

	delta, err := build(t, b, n, nil)(context.Background(), newState())
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"id": 7}}, delta.Outputs["db"])
	assert.Equal(t, map[string]any{"id": 7}, data.Queries[0].Parameters)
	assert.Equal(t, "SELECT * FROM users WHERE id = :id", data.Queries[0].Query)

	delta, err = build(t, NewBuilder(), n, nil)(context.Background(), newState())
	require.NoError(t, err)
	assert.Contains(t, delta.Outputs["db"], "error")
}

func TestRetrieval(t *testing.T) {
	retriever := &testutils.FakeRetriever{Docs: []ports.RetrievedDocument{{Document: map[string]any{"source": "faq.md"}, Score: 0.9, Text: "answer"}}}
	b := NewBuilder(WithRetriever(retriever))
	n := domain.Node{ID: "rag", Type: domain.NodeTypeRetrieval, Config: domain.MustConfig(map[string]any{
		"index":     "kb",
		"namespace": "docs",
		"filters":   map[string]any{"lang": "en"},
	})}

	s := newState()
	s.Messages = []domain.Message{{Role: RoleUser, Content: "how do I reset?"}}
	delta, err := build(t, b, n, nil)(context.Background(), s)
	require.NoError(t, err)

	q := retriever.Queries[0]
	assert.Equal(t, "how do I reset?", q.Query)
	assert.Equal(t, DefaultTopK, q.TopK)
	assert.Equal(t, "docs", q.Namespace)
	assert.Equal(t, []any{map[string]any{"document": map[string]any{"source": "faq.md"}, "score": 0.9, "text": "answer"}}, delta.Outputs["rag"])
}

func TestConditional(t *testing.T) {
	b := NewBuilder()
	n := domain.Node{ID: "check", Type: domain.NodeTypeConditional, Config: domain.MustConfig(map[string]any{"expression": `state.topic == "graphs"`})}

	delta, err := build(t, b, n, nil)(context.Background(), newState())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{KeyConditionResult: true}, delta.Outputs["check"])

	broken := domain.Node{ID: "broken", Type: domain.NodeTypeConditional, Config: domain.MustConfig(map[string]any{"expression": "state.nothing > 3"})}
	delta, err = build(t, b, broken, nil)(context.Background(), newState())
	require.NoError(t, err)
	out := delta.Outputs["broken"].(map[string]any)
	assert.Equal(t, false, out[KeyConditionResult])
	assert.NotEmpty(t, out[KeyError])

	_, err = b.Build(domain.Node{ID: "fn", Type: domain.NodeTypeConditional, Config: domain.MustConfig(map[string]any{"expression": "file(\"/etc/passwd\") != \"\""})}, nil)
	assert.ErrorContains(t, err, "function calls are not allowed")
}

func TestLoop(t *testing.T) {
	b := NewBuilder()
	n := domain.Node{ID: "each", Type: domain.NodeTypeLoop, Config: domain.MustConfig(map[string]any{"iterable_key": "state.items", "max_iterations": 2})}

	s := newState()
	s.Fields["items"] = []any{"a", "b", "c"}
	delta, err := build(t, b, n, nil)(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"items": []any{"a", "b"}, "count": 2}, delta.Outputs["each"])

	delta, err = build(t, b, n, nil)(context.Background(), newState())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"items": []any{}, "count": 0}, delta.Outputs["each"])

	s.Fields["items"] = "not a list"
	_, err = build(t, b, n, nil)(context.Background(), s)
	assert.ErrorContains(t, err, "not a list")
}

func TestMerge(t *testing.T) {
	s := newState()
	s.Outputs["a"] = "x"
	s.Outputs["b"] = map[string]any{"n": 1}
	s.Outputs["join"] = "stale"

	delta, err := build(t, NewBuilder(), domain.Node{ID: "join", Type: domain.NodeTypeMerge}, nil)(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"output_a": "x", "output_b": map[string]any{"n": 1}}, delta.Outputs["join"])
}

func TestApproval(t *testing.T) {
	n := domain.Node{ID: "gate", Type: domain.NodeTypeApproval, Config: domain.MustConfig(map[string]any{"approver_roles": []string{"lead"}, "sla_hours": 24})}
	fn := build(t, NewBuilder(), n, nil)

	delta, err := fn(context.Background(), newState())
	require.NoError(t, err)
	out := delta.Outputs["gate"].(map[string]any)
	assert.Equal(t, StatusAwaitingApproval, out[KeyStatus])
	assert.Equal(t, []string{"lead"}, out["approver_roles"])
	assert.Equal(t, 24.0, out["sla_hours"])

	s := newState()
	s.Decisions["gate"] = domain.DecisionRejected
	delta, err = fn(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, delta.Outputs["gate"].(map[string]any)[KeyStatus])

	s.Decisions["gate"] = "maybe"
	_, err = fn(context.Background(), s)
	assert.Error(t, err)
}

func TestTransform(t *testing.T) {
	n := domain.Node{ID: "shape", Type: domain.NodeTypeTransform, Config: domain.MustConfig(map[string]any{
		"input_mapping": map[string]string{"who": "state.user.name", "what": "topic", "none": "state.missing"},
		"output_key":    "profile",
	})}

	delta, err := build(t, NewBuilder(), n, nil)(context.Background(), newState())
	require.NoError(t, err)
	want := map[string]any{"who": "Ada", "what": "graphs", "none": nil}
	assert.Equal(t, want, delta.Outputs["shape"])
	assert.Equal(t, want, delta.Fields["profile"])
}

func TestSubgraph(t *testing.T) {
	var gotInput map[string]any
	runner := &testutils.FakeSubgraphs{Run: func(_ context.Context, id string, initial map[string]any) (*domain.State, error) {
		gotInput = initial
		child := domain.NewState("child-run")
		child.Outputs["answer"] = "42"
		return child, nil
	}}
	b := NewBuilder(WithSubgraphRunner(runner))

	n := domain.Node{ID: "child", Type: domain.NodeTypeSubgraph, Config: domain.MustConfig(map[string]any{
		"graph_id":       "other",
		"input_mapping":  map[string]string{"question": "state.topic"},
		"output_mapping": map[string]string{"answer": "state.output_answer"},
	})}

	delta, err := build(t, b, n, nil)(context.Background(), newState())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"question": "graphs"}, gotInput)
	assert.Equal(t, map[string]any{"answer": "42"}, delta.Outputs["child"])
	assert.Equal(t, "42", delta.Fields["answer"])
}
