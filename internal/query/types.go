package query

// #region intent

// Intent steers retrieval toward the content type a question needs.
type Intent string

const (
	IntentNone        Intent = ""
	IntentNumeric     Intent = "numeric"
	IntentEligibility Intent = "eligibility"
	IntentProcedure   Intent = "procedure"
	IntentDefinition  Intent = "definition"
)

// ParseIntent maps caller input onto a known intent. Unknown values are IntentNone.
func ParseIntent(s string) Intent {
	switch Intent(s) {
	case IntentNumeric, IntentEligibility, IntentProcedure, IntentDefinition:
		return Intent(s)
	}
	return IntentNone
}

// #endregion intent

// #region normalized

// Normalized is a question after filler removal, synonym mapping and stop-word removal.
type Normalized struct {
	Query              string   `json:"normalized_query"`
	Keywords           []string `json:"keywords_found"`
	AgricultureRelated bool     `json:"is_agriculture_related"`
}

// #endregion normalized
