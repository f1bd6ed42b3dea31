package pipeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/danielpatrickdp/agri-rag/go-controller/internal/cache"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/evidence"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/gate"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/logging"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/metrics"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/prompt"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/query"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/retrieval"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// #region arbiter
// Deps are the collaborators an Arbiter is wired with. Embedder, Cache, Metrics and DB
// are optional.
type Deps struct {
	Retriever  Retriever
	Generator  Generator
	Embedder   Embedder
	Categories map[string]gate.Category
	Cache      *cache.Cache[Decision]
	Metrics    *metrics.Metrics
	DB         *sql.DB
	Logger     *zap.Logger
}

// Arbiter is the accept/refuse authority. It holds only read-only policy and is safe for
// concurrent use.
type Arbiter struct {
	retriever  Retriever
	generator  Generator
	embedder   Embedder
	categories map[string]gate.Category
	cache      *cache.Cache[Decision]
	metrics    *metrics.Metrics
	db         *sql.DB
	logger     *zap.Logger
	config     Config
}

// NewArbiter creates an Arbiter. A nil category table uses gate.DefaultCategories.
func NewArbiter(deps Deps, config Config) *Arbiter {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cats := deps.Categories
	if cats == nil {
		cats = gate.DefaultCategories()
	}
	return &Arbiter{
		retriever:  deps.Retriever,
		generator:  deps.Generator,
		embedder:   deps.Embedder,
		categories: cats,
		cache:      deps.Cache,
		metrics:    deps.Metrics,
		db:         deps.DB,
		logger:     logger.Named("arbiter"),
		config:     config,
	}
}

// #endregion arbiter

// #region decide
// Decide runs one question through guards, retrieval, generation and fusion. It always
// returns a terminal Decision.
func (a *Arbiter) Decide(ctx context.Context, q Query) Decision {
	start := time.Now()
	if a.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.RequestTimeout)
		defer cancel()
	}

	name, cat := a.category(q.Category)
	norm := query.Normalize(q.Text)
	intent := query.Resolve(q.Intent, q.Text)

	d := Decision{Category: name}
	d.Diagnostics.Query = QueryDiagnostics{
		Normalized:         norm.Query,
		Intent:             string(intent),
		Language:           q.Language,
		Keywords:           norm.Keywords,
		AgricultureRelated: norm.AgricultureRelated,
	}

	// 1. Domain guards run before any external call.
	switch {
	case query.IsBlank(q.Text):
		return a.finish(start, q, refuse(d, ReasonInvalidQuery, false), nil)
	case query.LooksLikePersonQuery(q.Text):
		return a.finish(start, q, refuse(d, ReasonOutOfDomain, false), nil)
	case a.config.RequireAgriculture && !norm.AgricultureRelated:
		return a.finish(start, q, refuse(d, ReasonOutOfDomain, false), nil)
	}

	key := cache.Key{Query: cacheQuery(norm, q.Text), Intent: string(intent), Language: q.Language, Category: name}
	if hit, ok := a.cache.Get(key); ok {
		hit.Diagnostics.Cached = true
		return a.finish(start, q, hit, nil)
	}

	// 2. Retrieval. Any failure means no usable evidence exists.
	vectors, embedErr := a.vectors(ctx, q, norm)
	d.Diagnostics.Query.Vectors = len(vectors)
	d.Diagnostics.Query.EmbedError = embedErr

	out := a.retriever.Retrieve(ctx, retrieval.Request{
		Vectors:  vectors,
		Intent:   intent,
		Language: q.Language,
		Domain:   cat.DomainFilter,
		TopK:     a.config.TopK,
	})
	d.Diagnostics.Retrieval = out.Diagnostics
	d.Diagnostics.RetrievalConfidence = out.Diagnostics.RetrievalConfidence
	d.Diagnostics.ContentMix = out.Diagnostics.ContentMix

	if !out.OK() {
		reason := out.Diagnostics.Reason
		a.metrics.RecordRetrievalFailure(reason)
		d = refuse(d, reason, true)
		// Transport failures say nothing about the documents; retry them next time.
		if out.Diagnostics.IndexError || embedErr {
			return a.finish(start, q, d, nil)
		}
		return a.finish(start, q, d, &key)
	}

	// 3. Category guard on the retrieved mix.
	if v := gate.Evaluate(cat, out.Diagnostics.ContentMix); v.Vetoed {
		d.Diagnostics.Guard = &GuardDiagnostics{Stage: "retrieval", Violations: v.VetoSignals}
		return a.finish(start, q, refuse(d, ReasonCategoryViolation, false), &key)
	}

	// 4. Context selection and generation.
	ctxCfg := a.config.NormalContext
	if cat.FastMode {
		ctxCfg = a.config.FastContext
	}
	bundle := prompt.Build(q.Text, out.Chunks, q.Language, ctxCfg)
	d.Diagnostics.Context = &ContextDiagnostics{Fast: cat.FastMode, UsedChunks: chunkIDs(bundle.UsedChunks)}

	// The character budget can drop the only chunk that satisfied a rule.
	if v := gate.Evaluate(cat, evidence.MixOf(bundle.UsedChunks)); v.Vetoed {
		d.Diagnostics.Guard = &GuardDiagnostics{Stage: "context", Violations: v.VetoSignals}
		return a.finish(start, q, refuse(d, ReasonCategoryViolation, false), &key)
	}

	ans := a.generator.Generate(ctx, bundle)
	d.Diagnostics.Answer = AnswerDiagnostics{
		Confidence:     ans.Confidence,
		Hallucinated:   ans.Hallucinated,
		NotFound:       ans.NotFound,
		Failed:         ans.Failed,
		Reason:         ans.Reason,
		Marker:         ans.Marker,
		GroundingRatio: ans.GroundingRatio,
		ChunkStrength:  ans.ChunkStrength,
		OCRRatio:       ans.OCRRatio,
	}

	switch {
	case ans.Failed:
		return a.finish(start, q, refuse(d, ReasonLLMFailure, true), nil)
	case ans.Hallucinated:
		a.metrics.RecordRejection(ans.Reason)
		return a.finish(start, q, refuse(d, ReasonHallucination, false), &key)
	case ans.NotFound:
		return a.finish(start, q, refuse(d, ReasonNotFoundInContext, true), &key)
	}

	// 5. Fusion under the category ceiling.
	w := a.config.Normal
	if cat.FastMode {
		w = a.config.Fast
	}
	raw := w.Retrieval*out.Diagnostics.RetrievalConfidence + w.Answer*ans.Confidence
	final := fuse(raw, cat.ConfidenceCeiling)
	d.Diagnostics.Fusion = &FusionDiagnostics{
		Raw:       round3(raw),
		Ceiling:   cat.ConfidenceCeiling,
		Threshold: a.config.AcceptThreshold,
		Fast:      cat.FastMode,
	}

	// 6. Acceptance threshold.
	if final < a.config.AcceptThreshold {
		d = refuse(d, ReasonLowFinalConfidence, false)
		d.Confidence = final
		return a.finish(start, q, d, &key)
	}

	d.Status = StatusAnswer
	d.Answer = ans.Answer
	d.Confidence = final
	d.Citations = ans.Citations
	return a.finish(start, q, d, &key)
}

// #endregion decide

// #region helpers
func (a *Arbiter) category(name string) (string, gate.Category) {
	if _, ok := a.categories[name]; !ok || name == "" {
		name = a.config.DefaultCategory
	}
	return gate.Resolve(a.categories, name)
}

// vectors returns the caller's vectors, or embeds the raw question and its normalized
// form in parallel. embedErr is true when embedding was attempted and nothing came back.
func (a *Arbiter) vectors(ctx context.Context, q Query, norm query.Normalized) ([][]float32, bool) {
	if len(q.Vectors) > 0 || a.embedder == nil {
		return q.Vectors, false
	}

	texts := []string{q.Text}
	if norm.Query != "" && norm.Query != q.Text {
		texts = append(texts, norm.Query)
	}

	results := make([][]float32, len(texts))
	var g errgroup.Group
	for i, text := range texts {
		g.Go(func() error {
			vec, err := a.embedder.Embed(ctx, text)
			if err != nil {
				a.logger.Warn("embed failed", zap.Int("variant", i), zap.Error(err))
				return nil
			}
			results[i] = vec
			return nil
		})
	}
	_ = g.Wait()

	var out [][]float32
	for _, v := range results {
		if len(v) > 0 {
			out = append(out, v)
		}
	}
	return out, len(out) == 0
}

// cacheQuery is the query component of the cache key. Questions that normalize to
// nothing are keyed on their raw text so distinct questions never share an entry.
func cacheQuery(norm query.Normalized, text string) string {
	if norm.Query != "" {
		return norm.Query
	}
	return strings.ToLower(strings.TrimSpace(text))
}

func refuse(d Decision, reason string, allowFallback bool) Decision {
	d.Status = StatusNoAnswer
	d.Answer = ""
	d.Confidence = 0
	d.Citations = nil
	d.Reason = reason
	d.AllowFallback = allowFallback
	d.Message, d.Suggestion = noticeFor(reason)
	return d
}

// fuse caps a raw fused score at the category ceiling and keeps it in [0,1].
func fuse(raw, ceiling float64) float64 {
	final := raw
	if final > ceiling {
		final = ceiling
	}
	return round3(math.Max(0, math.Min(1, final)))
}

func chunkIDs(cands []evidence.Candidate) []string {
	ids := make([]string, len(cands))
	for i, c := range cands {
		ids[i] = c.ID
	}
	return ids
}

// round3 rounds down at the third decimal so rounding never lifts a score over its ceiling.
func round3(v float64) float64 {
	return math.Floor(v*1000+1e-9) / 1000
}

// #endregion helpers

// #region finish
// finish stamps, records, persists and optionally caches a terminal decision.
func (a *Arbiter) finish(start time.Time, q Query, d Decision, key *cache.Key) Decision {
	elapsed := time.Since(start)
	d.ID = uuid.NewString()
	d.Diagnostics.LatencyMS = elapsed.Milliseconds()

	if key != nil {
		stored := d
		stored.Diagnostics.Cached = false
		a.cache.Add(*key, stored)
	}

	a.metrics.RecordDecision(string(d.Status), d.Reason, d.Category, elapsed)

	a.logger.Info("decision",
		zap.String("decision_id", d.ID),
		zap.String("category", d.Category),
		zap.String("status", string(d.Status)),
		zap.String("reason", d.Reason),
		zap.Float64("confidence", d.Confidence),
		zap.Float64("retrieval_confidence", d.Diagnostics.RetrievalConfidence),
		zap.Float64("answer_confidence", d.Diagnostics.Answer.Confidence),
		zap.Bool("allow_fallback", d.AllowFallback),
		zap.Int64("latency_ms", d.Diagnostics.LatencyMS),
		zap.Bool("cached", d.Diagnostics.Cached),
	)

	a.persist(q, d, elapsed)
	return d
}

func (a *Arbiter) persist(q Query, d Decision, elapsed time.Duration) {
	if a.db == nil {
		return
	}
	diag, err := json.Marshal(d.Diagnostics)
	if err != nil {
		a.logger.Warn("diagnostics encode failed", zap.String("decision_id", d.ID), zap.Error(err))
	}
	err = logging.LogDecision(a.db, logging.DecisionEntry{
		DecisionID:      d.ID,
		Query:           q.Text,
		NormalizedQuery: d.Diagnostics.Query.Normalized,
		Category:        d.Category,
		Intent:          d.Diagnostics.Query.Intent,
		Language:        q.Language,
		Status:          string(d.Status),
		Reason:          d.Reason,
		Answer:          d.Answer,
		Confidence:      d.Confidence,
		AllowFallback:   d.AllowFallback,
		Cached:          d.Diagnostics.Cached,
		DiagnosticsJSON: string(diag),
		Latency:         elapsed,
		CreatedAt:       time.Now().UTC(),
	})
	if err != nil {
		a.logger.Warn("persist decision failed", zap.String("decision_id", d.ID), zap.Error(err))
	}
}

// #endregion finish
