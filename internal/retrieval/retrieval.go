package retrieval

import (
	"context"
	"math"
	"sort"

	"github.com/danielpatrickdp/agri-rag/go-controller/internal/codec"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/evidence"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// #region retriever
// Index is the vector-index surface the retriever needs.
type Index interface {
	Query(ctx context.Context, req codec.QueryRequest) ([]codec.Match, error)
}

// Retriever ranks and filters index matches into a confidence-annotated evidence set.
type Retriever struct {
	index  Index
	config Config
	logger *zap.Logger
}

// NewRetriever creates a Retriever over the given index.
func NewRetriever(index Index, config Config, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{index: index, config: config, logger: logger.Named("retrieval")}
}

// #endregion retriever

// #region retrieve
// Retrieve runs one ranking pass. It never returns an error and never an empty success:
// failures come back as an Outcome with StatusFail and a reason.
func (r *Retriever) Retrieve(ctx context.Context, req Request) Outcome {
	cfg := r.config
	rule := RuleFor(req.Intent)

	topK := req.TopK
	if topK <= 0 {
		topK = cfg.TopK
	}
	if rule.TopKCap > 0 && topK > rule.TopKCap {
		topK = rule.TopKCap
	}

	diag := Diagnostics{Intent: string(req.Intent)}

	matches, failed := r.fetch(ctx, req, topK)
	diag.FailedCalls = failed
	diag.Fetched = len(matches)
	if len(req.Vectors) > 0 && failed == len(req.Vectors) {
		diag.IndexError = true
	}

	// Decode and apply the extraction-quality floor.
	var cands []evidence.Candidate
	decoded := 0
	for _, m := range matches {
		c, err := evidence.FromMetadata(m.ID, m.Score, m.Metadata)
		if err != nil {
			diag.Malformed++
			r.logger.Debug("discarding malformed match", zap.String("id", m.ID), zap.Error(err))
			continue
		}
		decoded++
		if c.ExtractionConfidence < cfg.ExtractionFloor {
			diag.BelowFloor++
			continue
		}
		cands = append(cands, c)
	}
	if decoded == 0 {
		return r.fail(diag, ReasonNoMatches)
	}
	if len(cands) == 0 {
		return r.fail(diag, ReasonAllLowConfidence)
	}

	normalize(cands)
	merged := mergeBest(cands)
	diag.Merged = len(merged)
	if cfg.MaxMerged > 0 && len(merged) > cfg.MaxMerged {
		merged = merged[:cfg.MaxMerged]
	}

	var ranked []evidence.Candidate
	for _, c := range merged {
		c.AdjustedScore = r.adjust(c, rule)
		if c.AdjustedScore < cfg.MinAdjustedScore {
			continue
		}
		ranked = append(ranked, c)
	}
	sortBy(ranked, func(c evidence.Candidate) float64 { return c.AdjustedScore })

	survivors := diversify(ranked, cfg.MaxPerPage, cfg.MaxPerSource)
	diag.Survivors = len(survivors)
	if len(survivors) > 0 {
		diag.TopScore = round3(survivors[0].AdjustedScore)
	}

	if len(survivors) == 0 || survivors[0].AdjustedScore < cfg.WeakThreshold {
		return r.fail(diag, ReasonLowConfidence)
	}
	if len(survivors) < cfg.MinCoverage {
		return r.fail(diag, ReasonInsufficientCoverage)
	}
	if rule.Requires != "" && !evidence.MixOf(survivors).Has(rule.Requires) {
		return r.fail(diag, MissingRequired(rule.Requires))
	}

	if len(survivors) > topK {
		survivors = survivors[:topK]
	}

	diag.Status = StatusOK
	diag.Reason = "ok"
	diag.Returned = len(survivors)
	diag.ContentMix = evidence.MixOf(survivors)
	sources, pages := distinct(survivors)
	diag.SourceDiversity = sources
	diag.PageDiversity = pages
	diag.RetrievalConfidence = r.confidence(survivors, sources == 1, pages == 1)

	r.logger.Debug("retrieval ok",
		zap.Int("returned", diag.Returned),
		zap.Float64("top_score", diag.TopScore),
		zap.Float64("retrieval_confidence", diag.RetrievalConfidence),
	)
	return Outcome{Chunks: survivors, Diagnostics: diag}
}

func (r *Retriever) fail(diag Diagnostics, reason string) Outcome {
	diag.Status = StatusFail
	diag.Reason = reason
	diag.ContentMix = evidence.ContentMix{}
	r.logger.Debug("retrieval failed", zap.String("reason", reason), zap.Int("fetched", diag.Fetched))
	return Outcome{Diagnostics: diag}
}

// #endregion retrieve

// #region fetch
// fetch queries the index once per vector in parallel. A call that fails after its own
// retry is skipped; the returned count says how many did.
func (r *Retriever) fetch(ctx context.Context, req Request, topK int) ([]codec.Match, int) {
	fetchK := r.config.OverfetchFactor * topK
	if r.config.OverfetchCap > 0 && fetchK > r.config.OverfetchCap {
		fetchK = r.config.OverfetchCap
	}

	results := make([][]codec.Match, len(req.Vectors))
	errs := make([]error, len(req.Vectors))

	var g errgroup.Group
	for i, vec := range req.Vectors {
		g.Go(func() error {
			results[i], errs[i] = r.index.Query(ctx, codec.QueryRequest{
				Vector: vec,
				TopK:   fetchK,
				Filter: codec.Filter{Language: req.Language, Domain: req.Domain},
			})
			return nil
		})
	}
	_ = g.Wait()

	var all []codec.Match
	failed := 0
	for i := range results {
		if errs[i] != nil {
			failed++
			r.logger.Warn("index query failed", zap.Int("vector", i), zap.Error(errs[i]))
			continue
		}
		all = append(all, results[i]...)
	}
	return all, failed
}

// #endregion fetch

// #region scoring
// normalize min-max scales raw scores into [0,1]. Equal scores all become 1.0.
func normalize(cands []evidence.Candidate) {
	if len(cands) == 0 {
		return
	}
	lo, hi := cands[0].RawScore, cands[0].RawScore
	for _, c := range cands[1:] {
		lo = math.Min(lo, c.RawScore)
		hi = math.Max(hi, c.RawScore)
	}
	for i := range cands {
		if hi == lo {
			cands[i].NormalizedScore = 1.0
			continue
		}
		cands[i].NormalizedScore = (cands[i].RawScore - lo) / (hi - lo)
	}
}

// mergeBest keeps the highest-normalized instance of every chunk id, sorted descending.
func mergeBest(cands []evidence.Candidate) []evidence.Candidate {
	best := make(map[string]int, len(cands))
	var out []evidence.Candidate
	for _, c := range cands {
		if i, ok := best[c.ID]; ok {
			if c.NormalizedScore > out[i].NormalizedScore {
				out[i] = c
			}
			continue
		}
		best[c.ID] = len(out)
		out = append(out, c)
	}
	sortBy(out, func(c evidence.Candidate) float64 { return c.NormalizedScore })
	return out
}

func (r *Retriever) adjust(c evidence.Candidate, rule IntentRule) float64 {
	cfg := r.config
	weight, ok := cfg.ContentWeights[c.ContentType]
	if !ok {
		weight = 1.0
	}
	score := c.NormalizedScore * weight

	if c.ExtractionConfidence < cfg.LowExtraction {
		score *= cfg.LowExtractionPenalty
	}
	if c.ExtractionConfidence < cfg.VeryLowExtraction {
		score *= cfg.VeryLowPenalty
	}
	if boost, ok := rule.Boost[c.ContentType]; ok {
		score *= boost
	}
	score *= 1.0 + float64(c.Priority-evidence.DefaultPriority)*cfg.PriorityStep
	return score
}

// sortBy orders candidates by key descending; ties fall back to chunk id so output is stable.
func sortBy(cands []evidence.Candidate, key func(evidence.Candidate) float64) {
	sort.SliceStable(cands, func(i, j int) bool {
		ki, kj := key(cands[i]), key(cands[j])
		if ki != kj {
			return ki > kj
		}
		return cands[i].ID < cands[j].ID
	})
}

// #endregion scoring

// #region diversity
// diversify walks ranked candidates and drops any that would exceed a page or source cap.
func diversify(ranked []evidence.Candidate, perPage, perSource int) []evidence.Candidate {
	pages := map[string]int{}
	sources := map[string]int{}
	var out []evidence.Candidate
	for _, c := range ranked {
		if perPage > 0 && pages[c.PageKey()] >= perPage {
			continue
		}
		if perSource > 0 && sources[c.Source] >= perSource {
			continue
		}
		pages[c.PageKey()]++
		sources[c.Source]++
		out = append(out, c)
	}
	return out
}

func distinct(cands []evidence.Candidate) (sources, pages int) {
	s := map[string]bool{}
	p := map[string]bool{}
	for _, c := range cands {
		s[c.Source] = true
		p[c.PageKey()] = true
	}
	return len(s), len(p)
}

// #endregion diversity

// #region confidence
func (r *Retriever) confidence(cands []evidence.Candidate, oneSource, onePage bool) float64 {
	if len(cands) == 0 {
		return 0
	}
	maxScore, sum := 0.0, 0.0
	for _, c := range cands {
		s := clamp01(c.AdjustedScore)
		maxScore = math.Max(maxScore, s)
		sum += s
	}
	avg := sum / float64(len(cands))
	penalty := 1.0
	if oneSource {
		penalty *= r.config.SingleSourcePenalty
	}
	if onePage {
		penalty *= r.config.SinglePagePenalty
	}
	return retrievalConfidence(maxScore, avg, len(cands), penalty)
}

// retrievalConfidence blends the best and mean scores with an agreement term that
// saturates at three chunks, then applies the diversity penalty.
func retrievalConfidence(maxScore, avg float64, n int, penalty float64) float64 {
	agreement := math.Min(1, float64(n)/3)
	return round3(clamp01((0.6*maxScore + 0.3*avg + 0.1*agreement) * penalty))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// #endregion confidence
