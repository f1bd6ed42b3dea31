package answer

import (
	"context"
	"math"
	"strings"

	"github.com/danielpatrickdp/agri-rag/go-controller/internal/evidence"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/prompt"
	"go.uber.org/zap"
)

// #region generator
// Generator calls the model with a built prompt and audits what comes back.
type Generator struct {
	llm      LLM
	config   Config
	grounder grounder
	logger   *zap.Logger
}

// NewGenerator creates a Generator. A config without marker rules gets the default table.
func NewGenerator(llm LLM, config Config, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(config.Markers.Rules) == 0 {
		config.Markers = DefaultMarkerPolicy()
	}
	return &Generator{
		llm:      llm,
		config:   config,
		grounder: newGrounder(config.MinWordLen, config.ExtraStopwords),
		logger:   logger.Named("answer"),
	}
}

// #endregion generator

// #region generate
// Generate produces an audited answer for bundle. An empty bundle is reported as not
// found without calling the model.
func (g *Generator) Generate(ctx context.Context, bundle prompt.Bundle) Outcome {
	out := Outcome{UsedChunks: bundle.UsedChunks}
	if bundle.Empty() {
		out.NotFound = true
		out.Reason = ReasonNoContext
		return out
	}

	text, err := g.llm.Generate(ctx, Request{
		SystemPrompt: bundle.SystemInstruction,
		UserPrompt:   bundle.UserPrompt,
		Temperature:  g.config.Temperature,
		MaxTokens:    g.config.MaxTokens,
	})
	if err != nil {
		g.logger.Warn("generation failed", zap.Error(err))
		out.Failed = true
		out.Reason = ReasonLLMError
		return out
	}
	text = strings.TrimSpace(text)
	if text == "" {
		out.Failed = true
		out.Reason = ReasonEmptyResponse
		return out
	}

	if isNotFound(text) {
		out.NotFound = true
		out.Reason = ReasonNotFound
		return out
	}

	if reason, marker, ok := g.audit(text); !ok {
		g.logger.Debug("answer rejected", zap.String("reason", reason), zap.String("marker", marker))
		return reject(out, reason, marker)
	}

	out.GroundingRatio = round3(g.grounder.ratio(text, bundle.GroundingText()))
	if out.GroundingRatio <= 0 || out.GroundingRatio < g.config.MinGroundingRatio {
		g.logger.Debug("answer rejected", zap.String("reason", ReasonUngrounded), zap.Float64("grounding", out.GroundingRatio))
		return reject(out, ReasonUngrounded, "")
	}

	out.ChunkStrength = chunkStrength(bundle.UsedChunks)
	out.OCRRatio = ocrRatio(bundle.UsedChunks)
	out.Confidence = g.confidence(out.ChunkStrength, out.GroundingRatio, out.OCRRatio)
	out.Answer = text
	out.Citations = citations(bundle.UsedChunks)
	return out
}

func isNotFound(text string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(strings.TrimSuffix(prompt.NotFoundSentinel, ".")))
}

// audit applies the structural checks, then the marker table.
func (g *Generator) audit(text string) (reason, marker string, ok bool) {
	if len(strings.Fields(text)) < g.config.MinTokens {
		return ReasonTooShort, "", false
	}
	if g.config.MaxChars > 0 && len([]rune(text)) > g.config.MaxChars {
		return ReasonTooLong, "", false
	}
	return g.config.Markers.Audit(text)
}

// reject discards the answer text. A rejected answer never carries confidence.
func reject(out Outcome, reason, marker string) Outcome {
	out.Hallucinated = true
	out.Answer = ""
	out.Confidence = 0
	out.Reason = reason
	out.Marker = marker
	return out
}

// #endregion generate

// #region confidence
func (g *Generator) confidence(strength, grounding, ocr float64) float64 {
	return answerConfidence(strength, grounding, ocr, g.config.StrengthWeight, g.config.GroundingWeight, g.config.OCRPenalty)
}

func answerConfidence(strength, grounding, ocr, ws, wg, penalty float64) float64 {
	c := (ws*strength + wg*grounding) * (1 - ocr*penalty)
	return round3(math.Max(0, math.Min(1, c)))
}

// chunkStrength is the mean adjusted score of the used chunks, each clamped to [0,1].
func chunkStrength(used []evidence.Candidate) float64 {
	if len(used) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range used {
		sum += math.Max(0, math.Min(1, c.AdjustedScore))
	}
	return sum / float64(len(used))
}

func ocrRatio(used []evidence.Candidate) float64 {
	if len(used) == 0 {
		return 0
	}
	return float64(evidence.MixOf(used)[evidence.ContentOCR]) / float64(len(used))
}

func citations(used []evidence.Candidate) []Citation {
	out := make([]Citation, len(used))
	for i, c := range used {
		out[i] = Citation{ChunkID: c.ID, Source: c.Source, Page: c.Page, ContentType: c.ContentType}
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// #endregion confidence
