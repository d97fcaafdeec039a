package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/adscope/suggest-triage/internal/geodict"
	"github.com/adscope/suggest-triage/internal/georesolve"
	"github.com/adscope/suggest-triage/internal/morph"
	"github.com/adscope/suggest-triage/internal/pipeline"
	"github.com/adscope/suggest-triage/internal/semantic"
	"github.com/adscope/suggest-triage/internal/signals"
	"github.com/adscope/suggest-triage/internal/store"
	"github.com/adscope/suggest-triage/pkg/embeddings"
	"github.com/adscope/suggest-triage/pkg/judge"
)

// pipelineEnv holds the store and the assembled pipeline shared by the
// classify/serve commands.
type pipelineEnv struct {
	Store    store.Store
	Cache    *store.SemanticCache
	Pipeline *pipeline.Pipeline
}

// Close flushes the semantic cache buffer and releases the store.
func (pe *pipelineEnv) Close() {
	if pe.Cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := pe.Cache.Flush(ctx); err != nil {
			zap.L().Warn("semantic cache flush on close failed", zap.Error(err))
		}
	}
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initEnv sets up the store, loads the dictionaries and lexicon, and
// builds the pipeline. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	dict, err := geodict.Load(cfg.Geo.DictPath)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "load geo dictionaries")
	}

	lex := signals.DefaultLexicon()
	if cfg.Signals.LexiconPath != "" {
		lex, err = signals.LoadLexicon(cfg.Signals.LexiconPath)
		if err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "load lexicon")
		}
	}

	// Embeddings are optional. Without an endpoint the semantic stage
	// degrades to passing grey tails through.
	var embedder embeddings.Embedder
	if cfg.Embeddings.Endpoint != "" {
		embedder, err = embeddings.NewClient(cfg.Embeddings,
			embeddings.WithRateLimit(cfg.Embeddings.RPS))
		if err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "init embeddings client")
		}
	} else {
		zap.L().Warn("embeddings.endpoint not set, semantic refinement disabled")
	}

	var judgeClient judge.Client
	if cfg.Judge.Enabled {
		judgeClient = judge.NewClient(cfg.Judge.Key, cfg.Judge.Model)
		zap.L().Info("llm judge enabled", zap.String("model", cfg.Judge.Model))
	}

	analyzer := morph.Default()
	cache := store.NewSemanticCache(st)

	resolverCfg := cfg.Geo.Resolver
	resolverCfg.Language = cfg.Pipeline.Language

	pipe := pipeline.New(
		dict,
		analyzer,
		georesolve.NewResolver(dict, analyzer, resolverCfg),
		signals.NewClassifier(lex, dict, analyzer, cfg.Pipeline.Language),
		semantic.NewRefiner(embedder, cache, cfg.Semantic),
		judgeClient,
		cfg.Pipeline,
	)

	return &pipelineEnv{Store: st, Cache: cache, Pipeline: pipe}, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "init postgres store")
		}
		zap.L().Info("store: postgres")
		return st, nil
	default:
		st, err := store.NewSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, eris.Wrap(err, "init sqlite store")
		}
		zap.L().Info("store: sqlite", zap.String("path", cfg.Store.SQLitePath))
		return st, nil
	}
}
