package answer

import (
	"strings"
	"unicode"
)

// #region stopwords
// stopwords are excluded from grounding. Words shorter than the minimum length are
// dropped before this lookup, so only longer function words need listing.
var stopwords = map[string]bool{
	"about": true, "above": true, "after": true, "again": true, "also": true,
	"been": true, "before": true, "being": true, "below": true, "between": true,
	"both": true, "could": true, "does": true, "doing": true, "during": true,
	"each": true, "every": true, "from": true, "further": true, "have": true,
	"having": true, "here": true, "into": true, "just": true, "like": true,
	"more": true, "most": true, "much": true, "must": true, "only": true,
	"other": true, "over": true, "same": true, "shall": true, "should": true,
	"some": true, "such": true, "than": true, "that": true, "their": true,
	"them": true, "then": true, "there": true, "these": true, "they": true,
	"this": true, "those": true, "through": true, "under": true, "until": true,
	"very": true, "what": true, "when": true, "where": true, "which": true,
	"while": true, "will": true, "with": true, "would": true, "your": true,
	"yours": true, "source": true, "sources": true, "page": true,
}

// #endregion stopwords

// #region grounding
// grounder computes lexical overlap between an answer and its context.
type grounder struct {
	minLen int
	stop   map[string]bool
}

func newGrounder(minLen int, extra []string) grounder {
	stop := make(map[string]bool, len(stopwords)+len(extra))
	for w := range stopwords {
		stop[w] = true
	}
	for _, w := range extra {
		stop[strings.ToLower(w)] = true
	}
	return grounder{minLen: minLen, stop: stop}
}

// words splits text into lowercase letter runs. Combining marks stay inside a word,
// since Indic vowel signs and viramas are marks rather than letters.
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsMark(r)
	})
}

// contentWords returns the unique non-stop words of at least minLen letters.
func (g grounder) contentWords(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range words(text) {
		if len([]rune(w)) < g.minLen || g.stop[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// ratio is the fraction of the answer's content words that appear in the context.
// An answer with no content words has ratio 0.
func (g grounder) ratio(answer, context string) float64 {
	content := g.contentWords(answer)
	if len(content) == 0 {
		return 0
	}
	ctx := make(map[string]bool)
	for _, w := range words(context) {
		ctx[w] = true
	}
	found := 0
	for _, w := range content {
		if ctx[w] {
			found++
		}
	}
	return float64(found) / float64(len(content))
}

// #endregion grounding
