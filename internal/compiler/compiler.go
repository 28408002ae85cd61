// Package compiler turns a validated manifest into a runnable graph.
//
// The pipeline runs validation, topological ordering, state schema
// generation, node step building, edge routing and assembly, in that order.
// Successful results are cached per manifest id; a failed compile leaves the
// previous graph in place.
package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/internal/nodes"
	"github.com/aretw0/lattice/internal/topo"
	"github.com/aretw0/lattice/internal/validator"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/engine/langgraph"
	"github.com/aretw0/lattice/pkg/observability"
	"github.com/aretw0/lattice/pkg/ports"
)

// CompiledGraph is the immutable runtime artifact of one compilation.
type CompiledGraph struct {
	ManifestID   string
	ManifestName string
	Version      int
	Entry        string
	Order        []string
	Schema       []SchemaField
	Routes       map[string]domain.Route
	Defaults     map[string]any
	CompiledAt   time.Time

	runnable ports.Runnable
}

// Loader fetches a manifest by id. It lets Run compile on demand.
type Loader func(ctx context.Context, id string) (*domain.Manifest, error)

// Compiler runs the compile pipeline and owns the compiled graph cache.
type Compiler struct {
	engine   ports.Engine
	builder  *nodes.Builder
	nodeOpts []nodes.Option
	loader   Loader
	metrics  *observability.Metrics
	logger   *slog.Logger

	mu     sync.RWMutex
	graphs map[string]*CompiledGraph
	// gens counts invalidations per id. A compile only caches its graph when
	// no invalidation happened since its manifest was loaded.
	gens map[string]uint64
}

// Option configures the Compiler.
type Option func(*Compiler)

// WithEngine sets the execution engine. Defaults to the langgraph adapter.
func WithEngine(e ports.Engine) Option {
	return func(c *Compiler) { c.engine = e }
}

// WithNodeOptions configures the node builder (collaborators).
func WithNodeOptions(opts ...nodes.Option) Option {
	return func(c *Compiler) { c.nodeOpts = append(c.nodeOpts, opts...) }
}

// WithLoader enables compiling on demand when Run meets an unknown id.
func WithLoader(l Loader) Option {
	return func(c *Compiler) { c.loader = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Compiler) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// New creates a Compiler. Unless a subgraph runner is configured, subgraph
// nodes run through this compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		logger: logging.NewNop(),
		graphs: make(map[string]*CompiledGraph),
		gens:   make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.engine == nil {
		c.engine = langgraph.New(langgraph.WithLogger(c.logger))
	}

	nodeOpts := append([]nodes.Option{nodes.WithLogger(c.logger)}, c.nodeOpts...)
	c.builder = nodes.NewBuilder(nodeOpts...)
	if !c.builder.HasSubgraphRunner() {
		c.builder = nodes.NewBuilder(append(nodeOpts, nodes.WithSubgraphRunner(c))...)
	}
	return c
}

// Compile runs the full pipeline. It never returns a partial graph: the
// result either reports success or carries every error found.
func (c *Compiler) Compile(ctx context.Context, manifest *domain.Manifest) domain.CompileResult {
	res, _ := c.compile(ctx, manifest, c.generation(manifest.ID))
	return res
}

// CompileLoaded loads the manifest through load and compiles it. When the id
// is invalidated while this is in flight, the result is reported but not
// cached, so a concurrent update never leaves an older graph behind.
func (c *Compiler) CompileLoaded(ctx context.Context, id string, load Loader) (domain.CompileResult, error) {
	res, _, err := c.compileLoaded(ctx, id, load)
	return res, err
}

func (c *Compiler) compileLoaded(ctx context.Context, id string, load Loader) (domain.CompileResult, *CompiledGraph, error) {
	gen := c.generation(id)
	m, err := load(ctx, id)
	if err != nil {
		return domain.CompileResult{}, nil, err
	}
	res, g := c.compile(ctx, m, gen)
	return res, g, nil
}

func (c *Compiler) generation(id string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[id]
}

func (c *Compiler) compile(ctx context.Context, manifest *domain.Manifest, gen uint64) (domain.CompileResult, *CompiledGraph) {
	start := time.Now()
	res := domain.CompileResult{
		ManifestID:      manifest.ID,
		ManifestName:    manifest.Name,
		NodeCount:       len(manifest.Nodes),
		EdgeCount:       len(manifest.Edges),
		Errors:          []string{},
		Warnings:        []string{},
		CompiledNodeIDs: []string{},
	}
	logger := c.logger.With("manifest_id", manifest.ID)

	fail := func(errs []error) (domain.CompileResult, *CompiledGraph) {
		res.Errors = append(res.Errors, domain.Messages(errs)...)
		res.CompilationTimeMs = elapsedMs(start)
		c.metrics.ObserveCompile(false, time.Since(start))
		logger.WarnContext(ctx, "compile failed", "errors", len(res.Errors))
		return res, nil
	}

	// Steps keep a reference to the manifest; isolate it from the caller.
	m, err := manifest.Clone()
	if err != nil {
		return fail([]error{err})
	}

	report := validator.Validate(m)
	res.Warnings = append(res.Warnings, report.Warnings...)
	logger.DebugContext(ctx, "validated", "errors", len(report.Errors), "warnings", len(report.Warnings))
	if !report.Valid() {
		return fail(report.Errors)
	}

	order, err := topo.Sort(m)
	if err != nil {
		return fail([]error{err})
	}
	entry, _ := m.ResolveEntry()
	logger.DebugContext(ctx, "sorted", "order", order, "entry", entry)

	schema := GenerateSchema(m)

	funcs := make(map[string]nodes.Func, len(order))
	var buildErrs []error
	for _, id := range order {
		fn, err := c.builder.Build(*m.Node(id), m)
		if err != nil {
			buildErrs = append(buildErrs, &domain.NodeBuildError{NodeID: id, Err: err})
			continue
		}
		funcs[id] = fn
	}
	if len(buildErrs) > 0 {
		return fail(buildErrs)
	}
	logger.DebugContext(ctx, "built node steps", "count", len(funcs))

	routes, warnings := Routes(m)
	res.Warnings = append(res.Warnings, warnings...)

	runnable, err := assemble(c.engine, m, entry, order, funcs, routes)
	if err != nil {
		return fail([]error{&domain.AssemblyError{Err: err}})
	}

	g := &CompiledGraph{
		ManifestID:   m.ID,
		ManifestName: m.Name,
		Version:      m.VersionInfo.Version,
		Entry:        entry,
		Order:        order,
		Schema:       schema,
		Routes:       routes,
		Defaults:     Defaults(m),
		CompiledAt:   time.Now().UTC(),
		runnable:     runnable,
	}
	c.mu.Lock()
	if c.gens[m.ID] == gen {
		c.graphs[m.ID] = g
	} else {
		logger.DebugContext(ctx, "manifest changed during compile; graph not cached")
	}
	c.mu.Unlock()

	res.Success = true
	res.EntryNode = entry
	res.CompiledNodeIDs = append(res.CompiledNodeIDs, order...)
	res.CompilationTimeMs = elapsedMs(start)
	c.metrics.ObserveCompile(true, time.Since(start))
	logger.InfoContext(ctx, "compiled", "nodes", len(order), "entry", entry, "elapsed_ms", res.CompilationTimeMs)
	return res, g
}

// Graph returns the cached graph for a manifest id.
func (c *Compiler) Graph(id string) (*CompiledGraph, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.graphs[id]
	return g, ok
}

// Invalidate drops the cached graph for a manifest id.
func (c *Compiler) Invalidate(id string) {
	c.mu.Lock()
	delete(c.graphs, id)
	c.gens[id]++
	c.mu.Unlock()
}

// graphFor returns the cached graph, compiling through the loader if needed.
func (c *Compiler) graphFor(ctx context.Context, id string) (*CompiledGraph, error) {
	if g, ok := c.Graph(id); ok {
		return g, nil
	}
	if c.loader == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotCompiled, id)
	}

	res, g, err := c.compileLoaded(ctx, id, c.loader)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrNotCompiled, id, res.Errors)
	}
	return g, nil
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
