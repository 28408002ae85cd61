package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/config"
	"github.com/aretw0/lattice/pkg/adapters/httptool"
	"github.com/aretw0/lattice/pkg/adapters/llm"
	loamAdapter "github.com/aretw0/lattice/pkg/adapters/loam"
	"github.com/aretw0/lattice/pkg/adapters/redis"
	"github.com/aretw0/lattice/pkg/adapters/vector"
	"github.com/aretw0/lattice/pkg/observability"
)

// app is a wired service plus the resources to release on exit.
type app struct {
	svc     *lattice.Service
	metrics *observability.Metrics
	prompts *loamAdapter.Prompts
	closers []func() error
}

func (a *app) Close() {
	for _, c := range a.closers {
		_ = c()
	}
}

// newApp builds the service described by c.
func newApp(c config.Config, log *slog.Logger) (*app, error) {
	a := &app{metrics: observability.NewMetrics()}
	opts := []lattice.Option{
		lattice.WithLogger(log),
		lattice.WithMetrics(a.metrics),
		lattice.WithHTTPClient(httptool.New(
			httptool.WithHTTPClient(&http.Client{Timeout: c.HTTPTool.Timeout}),
			httptool.WithMaxBodyBytes(c.HTTPTool.MaxBodyBytes),
			httptool.WithLogger(log),
		)),
	}

	if c.Store.Backend == config.StoreRedis {
		store := redis.New(c.Store.Addr, c.Store.Password, c.Store.DB, redis.WithPrefix(c.Store.Prefix))
		if err := store.Client().Ping(context.Background()).Err(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("redis store unreachable at %s: %w", c.Store.Addr, err)
		}
		a.closers = append(a.closers, store.Close)
		opts = append(opts,
			lattice.WithStore(store),
			lattice.WithLocker(redis.NewLocker(store.Client(), c.Store.Prefix)),
			lattice.WithDataAccessor(redis.NewDataAccessor(store.Client())),
		)
		log.Debug("using redis store", "addr", c.Store.Addr, "prefix", c.Store.Prefix)
	}

	if c.LLM.Enabled() {
		invoker, err := llm.NewOpenAI(llm.OpenAIConfig{
			BaseURL: c.LLM.BaseURL,
			Token:   c.LLM.Token,
			Model:   c.LLM.Model,
		}, llm.WithLogger(log))
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, lattice.WithModelInvoker(invoker))
	}

	if c.Vector.Enabled() {
		retriever, err := vector.NewChroma(vector.ChromaConfig{
			URL:            c.Vector.ChromaURL,
			EmbeddingURL:   c.LLM.BaseURL,
			EmbeddingToken: c.LLM.Token,
			EmbeddingModel: c.Vector.EmbeddingModel,
		}, vector.WithLogger(log))
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, lattice.WithRetriever(retriever))
	}

	if c.Prompts.Dir != "" {
		prompts, err := loamAdapter.Open(c.Prompts.Dir, loamAdapter.WithLogger(log))
		if err != nil {
			a.Close()
			return nil, err
		}
		a.prompts = prompts
		opts = append(opts, lattice.WithPromptStore(prompts))
	}

	a.svc = lattice.New(opts...)
	return a, nil
}

// watchPrompts keeps the prompt cache fresh while ctx is alive.
func (a *app) watchPrompts(ctx context.Context, log *slog.Logger) {
	if a.prompts == nil {
		return
	}
	changes, err := a.prompts.Watch(ctx)
	if err != nil {
		log.Warn("prompt watch disabled", "error", err)
		return
	}
	go func() {
		for id := range changes {
			log.Info("prompt reloaded", "path", id)
		}
	}()
}
