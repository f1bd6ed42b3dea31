package pipeline

import (
	"context"
	"time"

	"github.com/danielpatrickdp/agri-rag/go-controller/internal/answer"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/evidence"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/gate"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/prompt"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/retrieval"
)

// #region collaborators
// Retriever produces ranked evidence. *retrieval.Retriever implements it.
type Retriever interface {
	Retrieve(ctx context.Context, req retrieval.Request) retrieval.Outcome
}

// Generator produces an audited answer. *answer.Generator implements it.
type Generator interface {
	Generate(ctx context.Context, bundle prompt.Bundle) answer.Outcome
}

// Embedder turns question text into a query vector. *codec.CodecClient implements it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// #endregion collaborators

// #region config
// Fusion weighs retrieval confidence against answer confidence.
type Fusion struct {
	Retrieval float64 `yaml:"retrieval"`
	Answer    float64 `yaml:"answer"`
}

// Config holds the arbiter's global policy.
type Config struct {
	AcceptThreshold    float64       `yaml:"accept_threshold"`
	DefaultCategory    string        `yaml:"default_category"`
	Normal             Fusion        `yaml:"normal_fusion"`
	Fast               Fusion        `yaml:"fast_fusion"`
	RequireAgriculture bool          `yaml:"require_agriculture"` // refuse questions with no agriculture keyword
	TopK               int           `yaml:"top_k"` // 0 defers to the retriever's top_k
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	NormalContext      prompt.Config `yaml:"-"`
	FastContext        prompt.Config `yaml:"-"`
}

// DefaultConfig returns the production arbiter policy.
func DefaultConfig() Config {
	return Config{
		AcceptThreshold: 0.5,
		DefaultCategory: gate.DefaultCategory,
		Normal:          Fusion{Retrieval: 0.55, Answer: 0.45},
		Fast:            Fusion{Retrieval: 0.65, Answer: 0.35},
		RequestTimeout:  45 * time.Second,
		NormalContext:   prompt.DefaultConfig(),
		FastContext:     prompt.FastConfig(),
	}
}

// #endregion config

// #region query
// Query is one caller question. Vectors may be supplied pre-computed; otherwise the
// arbiter embeds the question and its normalized form.
type Query struct {
	Text     string
	Category string
	Intent   string
	Language string
	Vectors  [][]float32
}

// #endregion query

// #region decision
// Status is the terminal state of a decision.
type Status string

const (
	StatusAnswer   Status = "answer"
	StatusNoAnswer Status = "no_answer"
)

// Arbiter-level refusal reasons. Retrieval failure reasons pass through unchanged.
const (
	ReasonInvalidQuery       = "invalid_query"
	ReasonOutOfDomain        = "out_of_domain"
	ReasonCategoryViolation  = "category_violation"
	ReasonHallucination      = "hallucination_detected"
	ReasonNotFoundInContext  = "not_found_in_context"
	ReasonLowFinalConfidence = "low_final_confidence"
	ReasonLLMFailure         = "llm_failure"
)

// Decision is the unit returned to the caller.
type Decision struct {
	ID            string            `json:"decisionId"`
	Status        Status            `json:"status"`
	Answer        string            `json:"answer,omitempty"`
	Confidence    float64           `json:"confidence"`
	Category      string            `json:"category"`
	Reason        string            `json:"reason,omitempty"`
	Message       string            `json:"message,omitempty"`
	Suggestion    string            `json:"suggestion,omitempty"`
	AllowFallback bool              `json:"allowFallback"`
	Citations     []answer.Citation `json:"citations,omitempty"`
	Diagnostics   Diagnostics       `json:"diagnostics"`
}

// Diagnostics is the full trace of one decision.
type Diagnostics struct {
	Query               QueryDiagnostics      `json:"query"`
	Retrieval           retrieval.Diagnostics `json:"retrieval"`
	RetrievalConfidence float64               `json:"retrievalConfidence"`
	ContentMix          evidence.ContentMix   `json:"contentMix"`
	Guard               *GuardDiagnostics     `json:"guard,omitempty"`
	Context             *ContextDiagnostics   `json:"context,omitempty"`
	Answer              AnswerDiagnostics     `json:"answer"`
	Fusion              *FusionDiagnostics    `json:"fusion,omitempty"`
	Cached              bool                  `json:"cached"`
	LatencyMS           int64                 `json:"latencyMs"`
}

type QueryDiagnostics struct {
	Normalized         string   `json:"normalized"`
	Intent             string   `json:"intent,omitempty"`
	Language           string   `json:"language,omitempty"`
	Keywords           []string `json:"keywords,omitempty"`
	AgricultureRelated bool     `json:"agricultureRelated"`
	Vectors            int      `json:"vectors"`
	EmbedError         bool     `json:"embedError,omitempty"`
}

type GuardDiagnostics struct {
	Stage      string            `json:"stage"` // "retrieval" | "context"
	Violations []gate.VetoSignal `json:"violations"`
}

type ContextDiagnostics struct {
	Fast       bool     `json:"fast"`
	UsedChunks []string `json:"usedChunks"`
}

type AnswerDiagnostics struct {
	Confidence     float64 `json:"confidence"`
	Hallucinated   bool    `json:"hallucinated,omitempty"`
	NotFound       bool    `json:"notFound,omitempty"`
	Failed         bool    `json:"failed,omitempty"`
	Reason         string  `json:"reason,omitempty"`
	Marker         string  `json:"marker,omitempty"`
	GroundingRatio float64 `json:"groundingRatio"`
	ChunkStrength  float64 `json:"chunkStrength"`
	OCRRatio       float64 `json:"ocrRatio"`
}

type FusionDiagnostics struct {
	Raw       float64 `json:"raw"`
	Ceiling   float64 `json:"ceiling"`
	Threshold float64 `json:"threshold"`
	Fast      bool    `json:"fast"`
}

// #endregion decision
