package retrieval

import (
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/evidence"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/query"
)

// #region config
// Config holds the ranking thresholds and limits of one retrieval pass.
type Config struct {
	TopK             int     `yaml:"top_k"`
	OverfetchFactor  int     `yaml:"overfetch_factor"`
	OverfetchCap     int     `yaml:"overfetch_cap"`
	ExtractionFloor  float64 `yaml:"extraction_floor"`   // document-quality gate, not relevance
	MinAdjustedScore float64 `yaml:"min_adjusted_score"` // candidates below are discarded
	WeakThreshold    float64 `yaml:"weak_threshold"`     // top score below fails low_confidence
	MinCoverage      int     `yaml:"min_coverage"`
	MaxPerPage       int     `yaml:"max_per_page"`
	MaxPerSource     int     `yaml:"max_per_source"`
	MaxMerged        int     `yaml:"max_merged"` // noise guard after merge

	ContentWeights map[evidence.ContentType]float64 `yaml:"content_weights"`

	LowExtraction        float64 `yaml:"low_extraction"`
	LowExtractionPenalty float64 `yaml:"low_extraction_penalty"`
	VeryLowExtraction    float64 `yaml:"very_low_extraction"`
	VeryLowPenalty       float64 `yaml:"very_low_penalty"`
	PriorityStep         float64 `yaml:"priority_step"`

	SingleSourcePenalty float64 `yaml:"single_source_penalty"`
	SinglePagePenalty   float64 `yaml:"single_page_penalty"`
}

// DefaultConfig returns the production ranking defaults.
func DefaultConfig() Config {
	return Config{
		TopK:             6,
		OverfetchFactor:  5,
		OverfetchCap:     30,
		ExtractionFloor:  0.25,
		MinAdjustedScore: 0.30,
		WeakThreshold:    0.40,
		MinCoverage:      2,
		MaxPerPage:       2,
		MaxPerSource:     3,
		MaxMerged:        40,
		ContentWeights: map[evidence.ContentType]float64{
			evidence.ContentTableRow:  1.35,
			evidence.ContentProcedure: 1.15,
			evidence.ContentText:      1.00,
			evidence.ContentOCR:       0.60,
		},
		LowExtraction:        0.6,
		LowExtractionPenalty: 0.75,
		VeryLowExtraction:    0.4,
		VeryLowPenalty:       0.5,
		PriorityStep:         0.05,
		SingleSourcePenalty:  0.85,
		SinglePagePenalty:    0.90,
	}
}

// #endregion config

// #region intent-rules
// IntentRule tilts ranking toward the content an intent needs.
type IntentRule struct {
	Boost    map[evidence.ContentType]float64
	TopKCap  int                  // 0 means no cap
	Requires evidence.ContentType // empty means nothing required
}

var intentRules = map[query.Intent]IntentRule{
	query.IntentEligibility: {
		Boost:   map[evidence.ContentType]float64{evidence.ContentTableRow: 1.2},
		TopKCap: 5,
	},
	query.IntentProcedure: {
		Boost:   map[evidence.ContentType]float64{evidence.ContentProcedure: 1.15},
		TopKCap: 7,
	},
	query.IntentNumeric: {
		Boost:    map[evidence.ContentType]float64{evidence.ContentTableRow: 1.2},
		Requires: evidence.ContentTableRow,
	},
}

// RuleFor returns the ranking rule of an intent. Intents without one get the zero rule.
func RuleFor(in query.Intent) IntentRule {
	return intentRules[in]
}

// #endregion intent-rules

// #region request
// Request is one retrieval call. Vectors are embeddings of the question and its variants.
type Request struct {
	Vectors  [][]float32
	Intent   query.Intent
	Language string
	Domain   string
	TopK     int // 0 uses Config.TopK
}

// #endregion request

// #region outcome
type Status string

const (
	StatusOK   Status = "ok"
	StatusFail Status = "fail"
)

// Failure reasons.
const (
	ReasonNoMatches            = "no_matches"
	ReasonAllLowConfidence     = "all_low_confidence"
	ReasonInsufficientCoverage = "insufficient_coverage"
	ReasonLowConfidence        = "low_confidence"
	ReasonMissingRequiredPfx   = "missing_required_"
)

// MissingRequired names the failure for an intent whose required content type is absent.
func MissingRequired(ct evidence.ContentType) string {
	return ReasonMissingRequiredPfx + string(ct)
}

// Diagnostics traces one retrieval pass.
type Diagnostics struct {
	Status              Status              `json:"status"`
	Reason              string              `json:"reason"`
	Intent              string              `json:"intent,omitempty"`
	RetrievalConfidence float64             `json:"retrievalConfidence"`
	ContentMix          evidence.ContentMix `json:"contentMix"`
	SourceDiversity     int                 `json:"sourceDiversity"`
	PageDiversity       int                 `json:"pageDiversity"`
	TopScore            float64             `json:"topScore"`
	Fetched             int                 `json:"fetched"`
	Malformed           int                 `json:"malformed"`
	BelowFloor          int                 `json:"belowFloor"`
	Merged              int                 `json:"merged"`
	Survivors           int                 `json:"survivors"`
	Returned            int                 `json:"returned"`
	FailedCalls         int                 `json:"failedCalls"`
	IndexError          bool                `json:"indexError,omitempty"` // every index call failed
}

// Outcome is a ranked evidence set or a tagged failure. A failed outcome has no chunks.
type Outcome struct {
	Chunks      []evidence.Candidate
	Diagnostics Diagnostics
}

// OK reports whether retrieval produced usable evidence.
func (o Outcome) OK() bool {
	return o.Diagnostics.Status == StatusOK
}

// #endregion outcome
