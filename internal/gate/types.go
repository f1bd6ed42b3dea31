package gate

// #region veto-type
// VetoType enumerates evidence-shape violations.
type VetoType string

const (
	VetoOCRForbidden  VetoType = "ocr_forbidden"
	VetoTableRequired VetoType = "table_required"
	VetoTextDominance VetoType = "text_dominance"
)

// #endregion veto-type

// #region veto-signal
// VetoSignal represents a detected guard violation.
type VetoSignal struct {
	Type   VetoType `json:"type"`
	Reason string   `json:"reason"`
}

// #endregion veto-signal

// #region category
// Category is the static trust profile of one question category.
type Category struct {
	DomainFilter          string  `yaml:"domain_filter" json:"domainFilter,omitempty"`
	OCRForbidden          bool    `yaml:"ocr_forbidden" json:"ocrForbidden"`
	TableRequired         bool    `yaml:"table_required" json:"tableRequired"`
	TextDominanceRequired bool    `yaml:"text_dominance_required" json:"textDominanceRequired"`
	ConfidenceCeiling     float64 `yaml:"confidence_ceiling" json:"confidenceCeiling"`
	FastMode              bool    `yaml:"fast_mode" json:"fastMode"`
}

// DefaultCategory is used when the caller names no category or an unknown one.
const DefaultCategory = "general"

// DefaultCategories returns the production category table.
func DefaultCategories() map[string]Category {
	return map[string]Category{
		"policy": {
			DomainFilter:          "policy",
			OCRForbidden:          true,
			TextDominanceRequired: true,
			ConfidenceCeiling:     0.9,
		},
		"market": {
			DomainFilter:      "market",
			TableRequired:     true,
			ConfidenceCeiling: 0.85,
			FastMode:          true,
		},
		"advisory": {
			DomainFilter:          "advisory",
			TextDominanceRequired: true,
			ConfidenceCeiling:     0.8,
		},
		"disease": {
			DomainFilter:      "disease",
			OCRForbidden:      true,
			ConfidenceCeiling: 0.5,
		},
		"statistics": {
			DomainFilter:      "statistics",
			TableRequired:     true,
			OCRForbidden:      true,
			ConfidenceCeiling: 0.9,
			FastMode:          true,
		},
		DefaultCategory: {
			TextDominanceRequired: true,
			ConfidenceCeiling:     0.7,
		},
	}
}

// #endregion category

// #region gate-decision
// GateDecision is the output of a guard evaluation.
type GateDecision struct {
	Action      string // "pass" | "reject"
	Reason      string
	Vetoed      bool
	VetoSignals []VetoSignal // non-empty if vetoed
}

// #endregion gate-decision
