package replay

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielpatrickdp/agri-rag/go-controller/internal/answer"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/codec"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/gate"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/pipeline"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/retrieval"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// #region types
// Options are the base policies a replay runs under. Fixture config overrides them.
type Options struct {
	Retrieval  retrieval.Config
	Answer     answer.Config
	Arbiter    pipeline.Config
	Categories map[string]gate.Category
	Logger     *zap.Logger
}

// DefaultOptions returns the production policies.
func DefaultOptions() Options {
	return Options{
		Retrieval:  retrieval.DefaultConfig(),
		Answer:     answer.DefaultConfig(),
		Arbiter:    pipeline.DefaultConfig(),
		Categories: gate.DefaultCategories(),
	}
}

// Result is the outcome of one replayed case.
type Result struct {
	Name       string
	Decision   pipeline.Decision
	Expected   Expected
	Mismatches []string
}

// Passed reports whether the decision matched every expectation.
func (r Result) Passed() bool {
	return len(r.Mismatches) == 0
}

// Summary aggregates a replay run.
type Summary struct {
	Total    int
	Passed   int
	Failed   int
	ByReason map[string]int
}

// #endregion types

// #region fakes
// fixtureIndex answers query i with the case's i-th canned call. Vectors carry their call
// index in the first component.
type fixtureIndex struct {
	c FixtureCase
}

func (f fixtureIndex) Query(_ context.Context, req codec.QueryRequest) ([]codec.Match, error) {
	if f.c.IndexError {
		return nil, status.Error(codes.Unavailable, "replay: index unavailable")
	}
	return f.c.matches(int(req.Vector[0])), nil
}

type fixtureModel struct {
	c FixtureCase
}

func (f fixtureModel) Generate(context.Context, answer.Request) (string, error) {
	if f.c.ModelError {
		return "", errors.New("replay: model unavailable")
	}
	return f.c.Reply, nil
}

// #endregion fakes

// #region run
// Run replays every case through a real arbiter wired to canned index and model replies.
// Cases are independent: no cache is shared between them.
func Run(ctx context.Context, f *Fixture, opts Options) []Result {
	if opts.Categories == nil {
		opts.Categories = gate.DefaultCategories()
	}
	if v := f.Config.AcceptThreshold; v != nil {
		opts.Arbiter.AcceptThreshold = *v
	}
	if v := f.Config.MinGroundingRatio; v != nil {
		opts.Answer.MinGroundingRatio = *v
	}

	results := make([]Result, 0, len(f.Cases))
	for _, c := range f.Cases {
		arbiter := pipeline.NewArbiter(pipeline.Deps{
			Retriever:  retrieval.NewRetriever(fixtureIndex{c: c}, opts.Retrieval, opts.Logger),
			Generator:  answer.NewGenerator(fixtureModel{c: c}, opts.Answer, opts.Logger),
			Categories: opts.Categories,
			Logger:     opts.Logger,
		}, opts.Arbiter)

		d := arbiter.Decide(ctx, pipeline.Query{
			Text:     c.Question,
			Category: c.Category,
			Intent:   c.Intent,
			Language: c.Language,
			Vectors:  vectorsFor(c),
		})
		results = append(results, Result{
			Name:       c.Name,
			Decision:   d,
			Expected:   c.Expected,
			Mismatches: compare(c.Expected, d),
		})
	}
	return results
}

func vectorsFor(c FixtureCase) [][]float32 {
	n := len(c.Calls)
	if n == 0 {
		n = 1
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(i)}
	}
	return out
}

func compare(want Expected, d pipeline.Decision) []string {
	var out []string
	if want.Status != "" && want.Status != string(d.Status) {
		out = append(out, fmt.Sprintf("status: want %s, got %s", want.Status, d.Status))
	}
	if want.Reason != d.Reason {
		out = append(out, fmt.Sprintf("reason: want %q, got %q", want.Reason, d.Reason))
	}
	if want.AllowFallback != nil && *want.AllowFallback != d.AllowFallback {
		out = append(out, fmt.Sprintf("allow_fallback: want %t, got %t", *want.AllowFallback, d.AllowFallback))
	}
	return out
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results), ByReason: make(map[string]int)}
	for _, r := range results {
		if r.Passed() {
			s.Passed++
		} else {
			s.Failed++
		}
		key := r.Decision.Reason
		if key == "" {
			key = string(r.Decision.Status)
		}
		s.ByReason[key]++
	}
	return s
}

// #endregion run
