package lattice

import (
	"context"
	"log/slog"

	"github.com/aretw0/lattice/internal/compiler"
	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/internal/nodes"
	"github.com/aretw0/lattice/internal/presentation/graph"
	"github.com/aretw0/lattice/internal/validator"
	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/engine/langgraph"
	"github.com/aretw0/lattice/pkg/observability"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/registry"
)

// Version is the release version, overridden at build time with -ldflags.
var Version = "0.1.0-dev"

// Service is the high-level entry point of the library.
// It keeps a manifest registry and a compiler in step: every registry
// mutation drops the affected compiled graph.
type Service struct {
	registry *registry.Registry
	compiler *compiler.Compiler
	metrics  *observability.Metrics
	logger   *slog.Logger

	store     ports.ManifestStore
	locker    ports.DistributedLocker
	engine    ports.Engine
	hooks     *domain.LifecycleHooks
	nodeOpts  []nodes.Option
	regOpts   []registry.Option
	autoBuild bool
}

// Option configures the Service.
type Option func(*Service)

// WithStore sets the manifest store. Defaults to an in-memory store.
func WithStore(s ports.ManifestStore) Option {
	return func(svc *Service) { svc.store = s }
}

// WithLocker enables distributed locking of registry mutations.
func WithLocker(l ports.DistributedLocker) Option {
	return func(svc *Service) { svc.locker = l }
}

// WithEngine replaces the execution engine.
func WithEngine(e ports.Engine) Option {
	return func(svc *Service) { svc.engine = e }
}

// WithModelInvoker sets the collaborator of model_call and classifier nodes.
func WithModelInvoker(m ports.ModelInvoker) Option {
	return func(svc *Service) { svc.nodeOpts = append(svc.nodeOpts, nodes.WithModelInvoker(m)) }
}

// WithHTTPClient sets the collaborator of http_tool nodes.
func WithHTTPClient(c ports.HTTPClient) Option {
	return func(svc *Service) { svc.nodeOpts = append(svc.nodeOpts, nodes.WithHTTPClient(c)) }
}

// WithRetriever sets the collaborator of retrieval nodes.
func WithRetriever(r ports.Retriever) Option {
	return func(svc *Service) { svc.nodeOpts = append(svc.nodeOpts, nodes.WithRetriever(r)) }
}

// WithPromptStore sets the store consulted for prompt_id references.
func WithPromptStore(p ports.PromptStore) Option {
	return func(svc *Service) { svc.nodeOpts = append(svc.nodeOpts, nodes.WithPromptStore(p)) }
}

// WithDataAccessor sets the collaborator of database nodes.
func WithDataAccessor(d ports.DataAccessor) Option {
	return func(svc *Service) { svc.nodeOpts = append(svc.nodeOpts, nodes.WithDataAccessor(d)) }
}

// WithMetrics records compile, run and node metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(svc *Service) { svc.metrics = m }
}

// WithLifecycleHooks registers node observability hooks. Without it the
// service logs node events and feeds the metrics, if any.
func WithLifecycleHooks(h domain.LifecycleHooks) Option {
	return func(svc *Service) { svc.hooks = &h }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(svc *Service) { svc.logger = l }
}

// WithRegistryOptions passes extra options to the registry.
func WithRegistryOptions(opts ...registry.Option) Option {
	return func(svc *Service) { svc.regOpts = append(svc.regOpts, opts...) }
}

// WithAutoCompile lets Run compile a manifest on first use from the registry.
func WithAutoCompile(enabled bool) Option {
	return func(svc *Service) { svc.autoBuild = enabled }
}

// New creates a Service.
func New(opts ...Option) *Service {
	svc := &Service{
		logger:    logging.NewNop(),
		autoBuild: true,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.store == nil {
		svc.store = memory.NewStore()
	}

	regOpts := []registry.Option{registry.WithLogger(svc.logger)}
	if svc.locker != nil {
		regOpts = append(regOpts, registry.WithLocker(svc.locker))
	}
	svc.registry = registry.New(svc.store, append(regOpts, svc.regOpts...)...)

	if svc.engine == nil {
		hooks := observability.Hooks(svc.logger, svc.metrics)
		if svc.hooks != nil {
			hooks = *svc.hooks
		}
		svc.engine = langgraph.New(
			langgraph.WithLogger(svc.logger),
			langgraph.WithLifecycleHooks(hooks),
		)
	}

	compOpts := []compiler.Option{
		compiler.WithEngine(svc.engine),
		compiler.WithNodeOptions(svc.nodeOpts...),
		compiler.WithMetrics(svc.metrics),
		compiler.WithLogger(svc.logger),
	}
	if svc.autoBuild {
		compOpts = append(compOpts, compiler.WithLoader(svc.registry.Get))
	}
	svc.compiler = compiler.New(compOpts...)
	return svc
}

// Registry exposes the underlying registry for read access.
// Mutations should go through the Service so compiled graphs stay fresh.
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// Metrics returns the configured metrics, or nil.
func (s *Service) Metrics() *observability.Metrics {
	return s.metrics
}

// Validate checks a manifest without compiling it.
func (s *Service) Validate(m *domain.Manifest) (errs []string, warnings []string) {
	report := validator.Validate(m)
	return domain.Messages(report.Errors), report.Warnings
}

// Compile compiles a manifest and caches the graph under its id.
func (s *Service) Compile(ctx context.Context, m *domain.Manifest) domain.CompileResult {
	return s.compiler.Compile(ctx, m)
}

// CompileByID compiles the live version of a registered manifest.
func (s *Service) CompileByID(ctx context.Context, id string) (domain.CompileResult, error) {
	return s.compiler.CompileLoaded(ctx, id, s.registry.Get)
}

// Run executes the compiled graph of a manifest.
func (s *Service) Run(ctx context.Context, id string, initial map[string]any) domain.RunResult {
	return s.compiler.Run(ctx, id, initial)
}

// Routes returns the routing table the compiler would build for m, plus
// its warnings.
func (s *Service) Routes(m *domain.Manifest) (map[string]domain.Route, []string) {
	return compiler.Routes(m)
}

// Schema returns the generated state schema of m.
func (s *Service) Schema(m *domain.Manifest) []compiler.SchemaField {
	return compiler.GenerateSchema(m)
}

// Mermaid renders m as a Mermaid flowchart with branch labels.
func (s *Service) Mermaid(m *domain.Manifest) string {
	routes, _ := compiler.Routes(m)
	return graph.GenerateMermaid(m, routes, nil)
}

// Compiled reports whether a graph for id is cached, and its version.
func (s *Service) Compiled(id string) (int, bool) {
	g, ok := s.compiler.Graph(id)
	if !ok {
		return 0, false
	}
	return g.Version, true
}
