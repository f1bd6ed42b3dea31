package prompt

import (
	"strings"

	"github.com/danielpatrickdp/agri-rag/go-controller/internal/evidence"
)

// NotFoundSentinel is the exact reply the model is told to give when the context is silent.
const NotFoundSentinel = "Not found in the provided documents."

// #region config
// Config bounds how much evidence reaches the generator.
type Config struct {
	MaxChunks     int `yaml:"max_chunks"`
	MaxChunkChars int `yaml:"max_chunk_chars"`
	MaxTotalChars int `yaml:"max_total_chars"`
}

// DefaultConfig is used for categories that expect full answers.
func DefaultConfig() Config {
	return Config{MaxChunks: 6, MaxChunkChars: 900, MaxTotalChars: 6000}
}

// FastConfig is used for short-answer categories.
func FastConfig() Config {
	return Config{MaxChunks: 2, MaxChunkChars: 700, MaxTotalChars: 2200}
}

// #endregion config

// #region bundle
// Bundle is the prompt handed to the generator. UsedChunks is exactly the evidence shown,
// in order, with text as truncated.
type Bundle struct {
	SystemInstruction string
	UserPrompt        string
	UsedChunks        []evidence.Candidate
}

// Empty reports whether the bundle carries no evidence.
func (b Bundle) Empty() bool {
	return len(b.UsedChunks) == 0
}

// GroundingText is the corpus answers are grounded against: every used chunk's text,
// preceded by its source name so cited file names count as grounded.
func (b Bundle) GroundingText() string {
	var sb strings.Builder
	for _, c := range b.UsedChunks {
		if c.Source != "" {
			sb.WriteString(c.Source)
			sb.WriteByte('\n')
		}
		sb.WriteString(c.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// #endregion bundle
