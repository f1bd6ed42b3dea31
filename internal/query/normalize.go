package query

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// #region vocabulary

var agricultureKeywords = toSet(
	// core
	"agri", "agriculture", "farm", "farming", "farmer", "crop", "crops", "soil", "water",
	"irrigation", "fertilizer", "pest", "disease", "weed", "seed", "harvest", "yield",
	"market", "mandi", "msp", "livestock", "dairy", "horticulture",
	// crops
	"rice", "wheat", "maize", "millet", "sorghum", "barley",
	"soybean", "groundnut", "chickpea", "lentil", "mustard", "sunflower",
	"tomato", "onion", "potato", "brinjal", "chili", "okra", "cabbage", "cauliflower",
	"mango", "banana", "apple", "grape", "orange", "coconut",
	// inputs
	"urea", "dap", "npk", "compost", "vermicompost", "manure",
	"insecticide", "pesticide", "fungicide", "herbicide",
	// weather
	"rainfall", "rain", "drought", "flood", "temperature", "climate",
	// practices
	"organic", "natural", "drip", "sprinkler",
	"rotation", "intercropping", "greenhouse", "polyhouse",
	// policy
	"scheme", "insurance", "subsidy", "pmfby", "kisan",
)

var queryStopwords = toSet(
	"what", "is", "are", "the", "a", "an", "of", "for", "to", "in", "on",
	"today", "now", "current", "latest", "please", "tell", "me",
	"give", "explain", "about", "can", "i", "we", "you", "sir", "bhai", "bhaiya",
)

var synonyms = map[string]string{
	"paddy":       "rice",
	"corn":        "maize",
	"chilies":     "chili",
	"fert":        "fertilizer",
	"fertilizers": "fertilizer",
	"rainfed":     "rainfall",
	"mandi":       "market",
	"price":       "market",
}

// Spoken filler phrases, removed before tokenizing.
var fillerPatterns = compileAll(
	`\bplease\b`,
	`\btell me\b`,
	`\bcan you\b`,
	`\bi want to know\b`,
	`\bwhat about\b`,
	`\bhow much\b`,
	`\bhow many\b`,
)

var (
	nonWord    = regexp.MustCompile(`[^\p{L}\p{M}\p{N}\s]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// #endregion vocabulary

// #region normalize

// Normalize prepares a question for embedding and cache keying. It does not
// translate or detect language.
func Normalize(text string) Normalized {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return Normalized{Keywords: []string{}}
	}

	for _, re := range fillerPatterns {
		lower = re.ReplaceAllString(lower, " ")
	}
	cleaned := strings.ReplaceAll(lower, "_", " ")
	cleaned = nonWord.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(whitespace.ReplaceAllString(cleaned, " "))

	var kept []string
	found := map[string]bool{}
	for _, tok := range strings.Fields(cleaned) {
		if mapped, ok := synonyms[tok]; ok {
			tok = mapped
		}
		if queryStopwords[tok] || utf8.RuneCountInString(tok) <= 1 {
			continue
		}
		kept = append(kept, tok)
		if agricultureKeywords[tok] {
			found[tok] = true
		}
	}

	keywords := make([]string, 0, len(found))
	for kw := range found {
		keywords = append(keywords, kw)
	}
	sort.Strings(keywords)

	return Normalized{
		Query:              strings.Join(kept, " "),
		Keywords:           keywords,
		AgricultureRelated: len(keywords) > 0,
	}
}

// #endregion normalize

// #region helpers

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// #endregion helpers
