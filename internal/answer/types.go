package answer

import (
	"context"

	"github.com/danielpatrickdp/agri-rag/go-controller/internal/evidence"
)

// #region llm
// Request is one generation call.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
}

// LLM produces raw text for a prompt. An empty reply and an error are both terminal.
type LLM interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// #endregion llm

// #region config
// Config holds the generation parameters and audit thresholds.
type Config struct {
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	MinTokens int `yaml:"min_tokens"`
	MaxChars  int `yaml:"max_chars"`

	// Grounding knobs. A ratio of zero always rejects; MinGroundingRatio raises the bar.
	MinWordLen        int      `yaml:"min_word_len"`
	MinGroundingRatio float64  `yaml:"min_grounding_ratio"`
	ExtraStopwords    []string `yaml:"extra_stopwords"`

	StrengthWeight  float64 `yaml:"strength_weight"`
	GroundingWeight float64 `yaml:"grounding_weight"`
	OCRPenalty      float64 `yaml:"ocr_penalty"`

	Markers MarkerPolicy `yaml:"markers"`
}

// DefaultConfig returns the production audit settings.
func DefaultConfig() Config {
	return Config{
		Temperature:     0,
		MaxTokens:       400,
		MinTokens:       5,
		MaxChars:        800,
		MinWordLen:      4,
		StrengthWeight:  0.6,
		GroundingWeight: 0.4,
		OCRPenalty:      0.6,
		Markers:         DefaultMarkerPolicy(),
	}
}

// #endregion config

// #region outcome
// Rejection and failure reasons reported in Outcome.Reason.
const (
	ReasonEmptyResponse   = "empty_response"
	ReasonLLMError        = "llm_error"
	ReasonNoContext       = "no_context"
	ReasonNotFound        = "not_found"
	ReasonTooShort        = "too_short"
	ReasonTooLong         = "too_long"
	ReasonSoftMarker      = "soft_marker"
	ReasonUnsafeCertainty = "unsafe_certainty"
	ReasonUngrounded      = "ungrounded"
)

// Citation points at one piece of evidence shown to the model.
type Citation struct {
	ChunkID     string               `json:"chunk_id"`
	Source      string               `json:"source,omitempty"`
	Page        int                  `json:"page"`
	ContentType evidence.ContentType `json:"content_type"`
}

// Outcome reports facts about a generated answer. It carries no accept/refuse policy.
type Outcome struct {
	Answer       string  `json:"answer"`
	Confidence   float64 `json:"confidence"`
	Hallucinated bool    `json:"hallucinated"`
	NotFound     bool    `json:"notFound"`
	Failed       bool    `json:"failed"`
	Reason       string  `json:"reason,omitempty"`
	Marker       string  `json:"marker,omitempty"`

	GroundingRatio float64 `json:"groundingRatio"`
	ChunkStrength  float64 `json:"chunkStrength"`
	OCRRatio       float64 `json:"ocrRatio"`

	UsedChunks []evidence.Candidate `json:"-"`
	Citations  []Citation           `json:"citations,omitempty"`
}

// #endregion outcome
