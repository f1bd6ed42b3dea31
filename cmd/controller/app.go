package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/danielpatrickdp/agri-rag/go-controller/internal/answer"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/cache"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/codec"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/config"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/fallback"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/llm"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/logging"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/metrics"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/pipeline"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/retrieval"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// #region app
// app holds every long-lived client for one controller process.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *store.Store
	index    *codec.CodecClient
	arbiter  *pipeline.Arbiter
	fallback *fallback.Answerer
	metrics  *http.Server
	jsonOut  bool
}

func newApp(ctx context.Context, opts *options) (*app, error) {
	logger, err := logging.NewLogger(opts.verbose)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, jsonOut: opts.jsonOut}

	if cfg.Store.Path != "" {
		a.store, err = store.NewStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open store %s: %w", cfg.Store.Path, err)
		}
	}

	a.index, err = codec.NewCodecClient(cfg.Index.Addr, cfg.CodecConfig())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect index at %s: %w", cfg.Index.Addr, err)
	}

	model, err := llm.NewClient(ctx, cfg.ModelConfig())
	if err != nil {
		a.Close()
		return nil, err
	}

	decisions, err := cache.New[pipeline.Decision](cfg.CacheSize())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build cache: %w", err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if opts.metricsAddr != "" {
		a.serveMetrics(opts.metricsAddr, m)
	}

	deps := pipeline.Deps{
		Retriever:  retrieval.NewRetriever(a.index, cfg.Retrieval, logger),
		Generator:  answer.NewGenerator(model, cfg.Answer, logger),
		Embedder:   a.index,
		Categories: cfg.Categories,
		Cache:      decisions,
		Metrics:    m,
		Logger:     logger,
	}
	if a.store != nil {
		deps.DB = a.store.DB()
	}
	a.arbiter = pipeline.NewArbiter(deps, cfg.ArbiterConfig())
	a.fallback = fallback.NewAnswerer(model, cfg.Fallback, logger)
	return a, nil
}

func (a *app) serveMetrics(addr string, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	a.metrics = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
	a.logger.Info("serving metrics", zap.String("addr", addr))
}

// Close releases every client. Safe on a partially built app.
func (a *app) Close() {
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = a.metrics.Shutdown(ctx)
		cancel()
	}
	if a.index != nil {
		_ = a.index.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	_ = a.logger.Sync()
}

// #endregion app

// #region answer
// answer decides one question, prints it, and escalates to the fallback when allowed.
func (a *app) answer(ctx context.Context, w io.Writer, q pipeline.Query) error {
	d := a.arbiter.Decide(ctx, q)

	var fb *fallback.Result
	if a.fallback.Enabled() && d.AllowFallback && d.Status == pipeline.StatusNoAnswer {
		res, err := a.fallback.Answer(ctx, q, d)
		if err != nil {
			a.logger.Warn("fallback failed", zap.String("decision_id", d.ID), zap.Error(err))
		} else {
			fb = &res
		}
	}

	if a.jsonOut {
		return printJSON(w, d, fb)
	}
	return printText(w, d, fb)
}

func (a *app) categoryLabel(name string) string {
	if name == "" {
		return a.cfg.Arbiter.DefaultCategory + " (default)"
	}
	return name
}

// #endregion answer
