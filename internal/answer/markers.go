package answer

import (
	"strings"
	"unicode"
)

// #region policy
// Verdict is what a marker phrase does to an answer.
type Verdict string

const (
	// VerdictReject rejects outright.
	VerdictReject Verdict = "reject"
	// VerdictRejectUnhedged rejects unless a hedge phrase is also present.
	VerdictRejectUnhedged Verdict = "reject_unhedged"
)

// MarkerRule maps one phrase to a verdict.
type MarkerRule struct {
	Phrase  string  `yaml:"phrase"`
	Verdict Verdict `yaml:"verdict"`
}

// MarkerPolicy is the table of speculative and over-certain phrasing. Phrases match on
// whole words, case-insensitively.
type MarkerPolicy struct {
	Rules  []MarkerRule `yaml:"rules"`
	Hedges []string     `yaml:"hedges"`
}

// DefaultMarkerPolicy returns the production table.
func DefaultMarkerPolicy() MarkerPolicy {
	return MarkerPolicy{
		Rules: []MarkerRule{
			{"generally", VerdictReject},
			{"generally speaking", VerdictReject},
			{"usually", VerdictReject},
			{"i think", VerdictReject},
			{"i believe", VerdictReject},
			{"in most cases", VerdictReject},
			{"as an ai", VerdictReject},
			{"as a language model", VerdictReject},
			{"always", VerdictRejectUnhedged},
			{"must apply", VerdictRejectUnhedged},
			{"recommended dose", VerdictRejectUnhedged},
			{"you should apply", VerdictRejectUnhedged},
			{"you should", VerdictRejectUnhedged},
			{"guaranteed", VerdictRejectUnhedged},
		},
		Hedges: []string{"may", "might", "depending on"},
	}
}

// #endregion policy

// #region audit
// Audit returns the reason and phrase of the first rule the text violates.
// ok is true when no rule fires.
func (p MarkerPolicy) Audit(text string) (reason, phrase string, ok bool) {
	words := wordString(text)
	hedged := false
	for _, h := range p.Hedges {
		if containsPhrase(words, h) {
			hedged = true
			break
		}
	}
	for _, r := range p.Rules {
		if !containsPhrase(words, r.Phrase) {
			continue
		}
		switch r.Verdict {
		case VerdictReject:
			return ReasonSoftMarker, r.Phrase, false
		case VerdictRejectUnhedged:
			if !hedged {
				return ReasonUnsafeCertainty, r.Phrase, false
			}
		}
	}
	return "", "", true
}

// wordString lowercases text and rewrites it as single-space separated words, padded
// with a space on each side.
func wordString(text string) string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsMark(r) && !unicode.IsDigit(r) && r != '\''
	})
	return " " + strings.Join(fields, " ") + " "
}

func containsPhrase(words, phrase string) bool {
	p := strings.TrimSpace(wordString(phrase))
	if p == "" {
		return false
	}
	return strings.Contains(words, " "+p+" ")
}

// #endregion audit
