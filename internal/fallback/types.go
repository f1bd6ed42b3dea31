package fallback

import "errors"

var (
	// ErrNotAllowed is returned for decisions whose refusal must not be escalated.
	ErrNotAllowed = errors.New("fallback: decision does not allow fallback")
	// ErrDisabled is returned when the operator has not enabled fallback.
	ErrDisabled = errors.New("fallback: disabled")
)

// Label marks every fallback answer as outside the document evidence.
const Label = "General knowledge, not from the indexed documents"

// #region config
// Config holds the general-knowledge generation parameters.
type Config struct {
	Enabled               bool    `yaml:"enabled"`
	Instruction           string  `yaml:"instruction"`
	DefinitionInstruction string  `yaml:"definition_instruction"`
	Temperature           float32 `yaml:"temperature"`
	MaxTokens             int     `yaml:"max_tokens"`
	DefinitionMaxTokens   int     `yaml:"definition_max_tokens"`
}

// DefaultConfig returns the fallback settings. Fallback is off until the operator enables it.
func DefaultConfig() Config {
	return Config{
		Instruction: "You are an agricultural expert.",
		DefinitionInstruction: "You are an agricultural expert.\n" +
			"Give a clear, textbook-style definition.\n" +
			"No advice. No recommendations.",
		Temperature:         0.3,
		MaxTokens:           350,
		DefinitionMaxTokens: 500,
	}
}

// #endregion config

// Result is one labelled general-knowledge answer.
type Result struct {
	Answer     string `json:"answer"`
	Label      string `json:"label"`
	DecisionID string `json:"decisionId"`
	Reason     string `json:"reason"`
}
