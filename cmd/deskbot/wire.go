// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/hosteldesk/deskbot/internal/config"
	"github.com/hosteldesk/deskbot/internal/datastore"
	"github.com/hosteldesk/deskbot/internal/embed"
	"github.com/hosteldesk/deskbot/internal/grounding"
	"github.com/hosteldesk/deskbot/internal/knowledge"
	"github.com/hosteldesk/deskbot/internal/memory"
	"github.com/hosteldesk/deskbot/internal/provider"
	anthropicprov "github.com/hosteldesk/deskbot/internal/provider/anthropic"
	googleprov "github.com/hosteldesk/deskbot/internal/provider/google"
	openaiprov "github.com/hosteldesk/deskbot/internal/provider/openai"
	"github.com/hosteldesk/deskbot/internal/query"
	"github.com/hosteldesk/deskbot/internal/router"
	"github.com/hosteldesk/deskbot/internal/server"
	"github.com/hosteldesk/deskbot/internal/store"
	_ "github.com/hosteldesk/deskbot/internal/store/sqlite" // register sqlite backend
	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Desk holds all wired subsystems and manages their lifecycle.
type Desk struct {
	Router    *router.Router
	Server    *server.Server
	Providers *provider.Registry
	Vectors   store.VectorStore
	Data      datastore.Store // nil when the data store could not be opened
	Queries   *query.Pipeline // nil together with Data
	Index     *knowledge.Index
	Memory    *memory.Service
	Metrics   *prometheus.Registry
}

// WireDesk creates every subsystem from cfg and wires them into a Router
// and an HTTP server. A missing schema summary or an unreachable data store
// disables data questions with a warning; everything else is fatal.
func WireDesk(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Desk, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Desk{Metrics: prometheus.NewRegistry()}
	d.Metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// 1. Provider registry with default model and failover chain.
	d.Providers = provider.NewRegistry(
		provider.WithOptions(provider.Options{
			Temperature: cfg.Models.Temperature,
			MaxTokens:   cfg.Models.MaxTokens,
		}),
		provider.WithTimeout(cfg.Models.Timeout),
		provider.WithLogger(logger),
	)
	if n := registerBuiltinProviders(cfg, d.Providers, logger); n == 0 {
		logger.Warn("no model providers registered; model-backed answers will report an error")
	} else {
		if err := d.Providers.SetDefault(cfg.Models.Default); err != nil {
			return nil, deskerr.Wrapf(err, deskerr.CodeCLISetupFailure, "setting default model: %s", cfg.Models.Default)
		}
		if len(cfg.Models.Failover) > 0 {
			if err := d.Providers.SetFailover(cfg.Models.Failover); err != nil {
				return nil, deskerr.Wrapf(err, deskerr.CodeCLISetupFailure, "setting failover chain")
			}
		}
	}

	// 2. Embedder and vector store shared by memory and the knowledge index.
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	d.Vectors, err = store.NewVectorStore(store.Config{
		Backend:    cfg.Vector.Backend,
		Path:       cfg.Vector.Path,
		Dimensions: embedder.Dimension(),
	})
	if err != nil {
		return nil, deskerr.Wrapf(err, deskerr.CodeCLISetupFailure, "opening vector store")
	}
	storeTimeout := max(cfg.Vector.Timeout, cfg.Embedding.Timeout)

	// 3. Session memory.
	d.Memory = memory.NewService(embedder, d.Vectors, cfg.Vector.MemoryCollection,
		memory.WithTimeout(storeTimeout),
		memory.WithLogger(logger),
	)

	// 4. Knowledge base topics and passage index.
	base, err := knowledge.Load(cfg.Knowledge.Dir, topicSpecs(cfg.Knowledge.Topics))
	if err != nil {
		_ = d.Close()
		return nil, deskerr.Wrapf(err, deskerr.CodeCLISetupFailure, "loading knowledge base")
	}
	d.Index = knowledge.NewIndex(embedder, d.Vectors, cfg.Vector.KnowledgeCollection,
		knowledge.WithChunkChars(cfg.Knowledge.ChunkChars),
		knowledge.WithTopK(cfg.Knowledge.TopK),
		knowledge.WithMinRelevance(cfg.Knowledge.MinRelevance),
		knowledge.WithTimeout(storeTimeout),
		knowledge.WithLogger(logger),
	)

	// 5. Data questions: schema summary, read-only store, query pipeline.
	schema, err := query.LoadSchema(cfg.Data.SchemaSummary)
	if err != nil {
		logger.Warn("schema summary unavailable", "path", cfg.Data.SchemaSummary, "error", err)
	}
	d.Data, err = datastore.Open(ctx, datastore.Config{
		Driver:  cfg.Data.Driver,
		DSN:     cfg.Data.DSN,
		MaxRows: cfg.Data.MaxRows,
	})
	if err != nil {
		logger.Warn("data store unavailable, data questions disabled",
			"driver", cfg.Data.Driver,
			"dsn", datastore.RedactDSN(cfg.Data.DSN),
			"error", err,
		)
		d.Data = nil
	} else {
		gate := query.NewGate()
		d.Queries = query.NewPipeline(d.Providers,
			query.NewCompiler(schema, dialect(cfg.Data.Driver)),
			gate,
			query.NewExecutor(d.Data, gate, cfg.Data.Timeout),
			logger,
		)
	}

	// 6. Router.
	rcfg := router.Config{
		Generator: d.Providers,
		Grounding: grounding.New(d.Providers,
			grounding.WithMaxContextChars(cfg.Knowledge.MaxContextChars),
			grounding.WithLogger(logger),
		),
		Memory:       d.Memory,
		Knowledge:    base,
		Queries:      d.Queries,
		Index:        d.Index,
		Schema:       schema,
		RecallK:      cfg.Memory.RecallK,
		HistoryLimit: cfg.Memory.HistoryLimit,
		PreviewRows:  cfg.Data.PreviewRows,
		Metrics:      router.NewMetrics(d.Metrics),
		Logger:       logger,
	}
	d.Router, err = router.New(rcfg)
	if err != nil {
		_ = d.Close()
		return nil, deskerr.Wrapf(err, deskerr.CodeCLISetupFailure, "creating router")
	}

	// 7. HTTP server.
	svc := server.Services{Chat: d.Router, Health: d.Providers, Metrics: d.Metrics, Logger: logger}
	// A nil *query.Pipeline must not become a non-nil QueryRunner.
	if d.Queries != nil {
		svc.Query = d.Queries
	}
	d.Server, err = server.New(server.Config{
		ListenAddr:   cfg.Server.Listen,
		CORSOrigins:  cfg.Server.CORSOrigins,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		RateLimit: server.RateLimitConfig{
			RequestsPerSecond: cfg.Server.RateLimitRPS,
			Burst:             cfg.Server.RateLimitBurst,
		},
	}, svc)
	if err != nil {
		_ = d.Close()
		return nil, deskerr.Wrapf(err, deskerr.CodeCLISetupFailure, "creating server")
	}

	return d, nil
}

// Start runs the HTTP server and blocks until the context is cancelled.
func (d *Desk) Start(ctx context.Context) error {
	return d.Server.Start(ctx)
}

// Close releases all resources held by the desk.
func (d *Desk) Close() error {
	type closer interface{ Close() error }
	var closers []closer
	if d.Providers != nil {
		closers = append(closers, d.Providers)
	}
	if d.Data != nil {
		closers = append(closers, d.Data)
	}
	if d.Vectors != nil {
		closers = append(closers, d.Vectors)
	}

	var errs []error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// providerFactory builds a provider.Provider from a ProviderConfig.
type providerFactory func(config.ProviderConfig) (provider.Provider, error)

// builtinProviderFactories maps provider names to their constructors.
// Declared as a variable so tests can inject fakes.
var builtinProviderFactories = map[string]providerFactory{
	"anthropic": func(pc config.ProviderConfig) (provider.Provider, error) {
		return anthropicprov.New(anthropicprov.Config{APIKey: pc.APIKey, BaseURL: pc.Endpoint})
	},
	"google": func(pc config.ProviderConfig) (provider.Provider, error) {
		return googleprov.New(googleprov.Config{APIKey: pc.APIKey, BaseURL: pc.Endpoint})
	},
	"openai": func(pc config.ProviderConfig) (provider.Provider, error) {
		return openaiprov.New(openaiprov.Config{APIKey: pc.APIKey, BaseURL: pc.Endpoint})
	},
}

// registerBuiltinProviders registers every configured provider with a
// known name and an API key, returning how many were registered. Unknown
// names, empty keys and unresolved keyring references are logged and
// skipped.
func registerBuiltinProviders(cfg *config.Config, reg *provider.Registry, logger *slog.Logger) int {
	n := 0
	for name, pc := range cfg.Providers {
		if pc.APIKey == "" || strings.HasPrefix(pc.APIKey, "keyring://") {
			logger.Warn("skipping provider without a usable API key", "provider", name)
			continue
		}
		factory, ok := builtinProviderFactories[name]
		if !ok {
			logger.Warn("unknown provider in config, skipping", "provider", name)
			continue
		}
		p, err := factory(pc)
		if err != nil {
			logger.Warn("failed to create provider", "provider", name, "error", err)
			continue
		}
		reg.Register(name, p)
		n++
		logger.Info("registered provider", "provider", name)
	}
	return n
}

// newEmbedder builds the configured embedder. The openai and google
// embedders share credentials with the generation provider of that name.
func newEmbedder(cfg *config.Config) (embed.Embedder, error) {
	dim := cfg.Embedding.Dimensions

	switch cfg.Embedding.Provider {
	case "hash":
		return embed.NewHash(dim), nil
	case "openai":
		pc, err := embeddingCredentials(cfg, "openai")
		if err != nil {
			return nil, err
		}
		return embed.NewOpenAI(cfg.Embedding.Model, dim,
			openaiprov.ClientOptions(openaiprov.Config{APIKey: pc.APIKey, BaseURL: pc.Endpoint})...), nil
	case "google":
		pc, err := embeddingCredentials(cfg, "google")
		if err != nil {
			return nil, err
		}
		client, err := googleprov.NewClient(googleprov.Config{APIKey: pc.APIKey, BaseURL: pc.Endpoint})
		if err != nil {
			return nil, deskerr.Wrapf(err, deskerr.CodeCLISetupFailure, "creating google embedding client")
		}
		return embed.NewGoogle(client, cfg.Embedding.Model, dim), nil
	default:
		return nil, deskerr.Errorf(deskerr.CodeCLISetupFailure, "unsupported embedding provider %q", cfg.Embedding.Provider)
	}
}

func embeddingCredentials(cfg *config.Config, name string) (config.ProviderConfig, error) {
	pc, ok := cfg.Providers[name]
	if !ok || pc.APIKey == "" || strings.HasPrefix(pc.APIKey, "keyring://") {
		return pc, deskerr.Errorf(deskerr.CodeCLISetupFailure,
			"embedding provider %s needs providers.%s.api_key (or set embedding.provider: hash)", name, name)
	}
	return pc, nil
}

func topicSpecs(topics []config.TopicConfig) []knowledge.TopicSpec {
	if len(topics) == 0 {
		return nil
	}
	specs := make([]knowledge.TopicSpec, len(topics))
	for i, t := range topics {
		specs[i] = knowledge.TopicSpec{Name: t.Name, File: t.File, Triggers: t.Triggers}
	}
	return specs
}

func dialect(driver string) string {
	if driver == "postgres" {
		return "PostgreSQL"
	}
	return "SQLite"
}

// askTimeout bounds one routed message from the CLI.
func askTimeout(cfg *config.Config) time.Duration {
	return 2*cfg.Models.Timeout + cfg.Data.Timeout + 2*max(cfg.Vector.Timeout, cfg.Embedding.Timeout)
}
