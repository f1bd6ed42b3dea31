package query

import (
	"strings"
	"unicode"
)

// #region keywords

var numericKeywords = []string{
	"how much", "how many", "price", "rate of", "dose", "dosage", "quantity",
	"per acre", "per hectare", " kg", "quintal", "percent", "yield of", "msp",
}

var eligibilityKeywords = []string{
	"eligible", "eligibility", "who can apply", "qualify", "criteria", "entitled",
}

var procedureKeywords = []string{
	"how to", "how do i", "steps", "procedure", "process", "apply for", "register",
}

var definitionPrefixes = []string{
	"what is", "what are", "define", "meaning of",
}

// #endregion keywords

// #region detect

// DetectIntent classifies a question via keyword heuristics. No model call.
// Eligibility is checked before procedure so "who can apply" is not read as a how-to.
func DetectIntent(text string) Intent {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return IntentNone
	}
	for _, kw := range eligibilityKeywords {
		if strings.Contains(lower, kw) {
			return IntentEligibility
		}
	}
	for _, kw := range numericKeywords {
		if strings.Contains(lower, kw) {
			return IntentNumeric
		}
	}
	for _, kw := range procedureKeywords {
		if strings.Contains(lower, kw) {
			return IntentProcedure
		}
	}
	for _, p := range definitionPrefixes {
		if strings.HasPrefix(lower, p) {
			return IntentDefinition
		}
	}
	return IntentNone
}

// Resolve returns the caller's intent when it names a known one, else the detected intent.
func Resolve(explicit, text string) Intent {
	if in := ParseIntent(explicit); in != IntentNone {
		return in
	}
	return DetectIntent(text)
}

// #endregion detect

// #region person-guard

var personPatterns = compileAll(
	`\bwho is\b`,
	`\bbiography\b`,
	`\bborn\b`,
	`\bage\b`,
	`\bnet worth\b`,
)

// LooksLikePersonQuery flags questions about people, which the document set never covers.
func LooksLikePersonQuery(text string) bool {
	lower := strings.ToLower(text)
	for _, re := range personPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// IsBlank reports whether text carries nothing to search for.
func IsBlank(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// #endregion person-guard
