package fallback

import (
	"context"
	"fmt"
	"strings"

	"github.com/danielpatrickdp/agri-rag/go-controller/internal/answer"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/pipeline"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/query"
	"go.uber.org/zap"
)

// #region answerer
// Answerer asks the model for an unconstrained answer after the arbiter refused for lack
// of evidence. It sits outside the arbiter and never changes a Decision.
type Answerer struct {
	llm    answer.LLM
	config Config
	logger *zap.Logger
}

// NewAnswerer creates an Answerer over the given model.
func NewAnswerer(llm answer.LLM, config Config, logger *zap.Logger) *Answerer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Answerer{llm: llm, config: config, logger: logger.Named("fallback")}
}

// Enabled reports whether the operator turned fallback on.
func (a *Answerer) Enabled() bool {
	return a != nil && a.config.Enabled
}

// Answer escalates a refused decision. It returns ErrNotAllowed for any decision that is
// an answer or whose refusal came from a safety rule.
func (a *Answerer) Answer(ctx context.Context, q pipeline.Query, d pipeline.Decision) (Result, error) {
	if !a.Enabled() {
		return Result{}, ErrDisabled
	}
	if d.Status != pipeline.StatusNoAnswer || !d.AllowFallback {
		return Result{}, ErrNotAllowed
	}

	req := answer.Request{
		SystemPrompt: a.config.Instruction,
		UserPrompt:   q.Text,
		Temperature:  a.config.Temperature,
		MaxTokens:    a.config.MaxTokens,
	}
	if query.Intent(d.Diagnostics.Query.Intent) == query.IntentDefinition {
		req.SystemPrompt = a.config.DefinitionInstruction
		req.MaxTokens = a.config.DefinitionMaxTokens
	}
	if q.Language != "" {
		req.SystemPrompt += "\nRespond in language: " + q.Language + "."
	}

	text, err := a.llm.Generate(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("fallback generate: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, fmt.Errorf("fallback generate: empty reply")
	}

	a.logger.Info("fallback answered",
		zap.String("decision_id", d.ID),
		zap.String("reason", d.Reason),
		zap.Int("chars", len(text)),
	)
	return Result{Answer: text, Label: Label, DecisionID: d.ID, Reason: d.Reason}, nil
}

// #endregion answerer
