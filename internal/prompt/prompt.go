package prompt

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/danielpatrickdp/agri-rag/go-controller/internal/evidence"
)

// #region system-rules
const systemRules = `SYSTEM ROLE: Agriculture Document Assistant

INSTRUCTION PRIORITY (HIGHEST TO LOWEST):
1. System rules
2. Developer rules
3. User question
4. Provided context

RULES:
1. Answer ONLY using the provided CONTEXT blocks.
2. NEVER use prior or external knowledge.
3. If the answer is NOT explicitly present, respond EXACTLY with:
   '` + NotFoundSentinel + `'
4. Do NOT guess, infer, or generalize.
5. Prefer TABLE data over paragraph text for numeric or dosage answers.
6. If any context has LOW or UNKNOWN confidence, clearly warn the user.
7. Use simple, farmer-friendly language.
8. Keep answers short, precise, and actionable.
`

// #endregion system-rules

// #region build
// Build selects evidence in retrieval order and formats the prompt. It never re-ranks.
// language is the reply language; empty means the language of the question.
func Build(question string, ranked []evidence.Candidate, language string, cfg Config) Bundle {
	used := Select(ranked, cfg)
	if len(used) == 0 {
		return Bundle{
			SystemInstruction: systemRules,
			UserPrompt:        refusalPrompt(question),
		}
	}
	if language == "" {
		language = "same-as-question"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "USER QUESTION:\n%s\n\nCONTEXT:\n", question)
	for i, c := range used {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		writeBlock(&b, i+1, c)
	}
	b.WriteString("\n\nDEVELOPER INSTRUCTIONS:\n")
	b.WriteString("- Answer strictly from the context above.\n")
	b.WriteString("- Cite sources using (Source, Page).\n")
	b.WriteString("- If information is unclear or low confidence, warn explicitly.\n")
	fmt.Fprintf(&b, "- Respond in language: %s.\n\n", language)
	b.WriteString("ANSWER FORMAT:\n")
	b.WriteString("- Use bullet points if steps are involved.\n")
	b.WriteString("- Use a short paragraph otherwise.\n")
	b.WriteString("- End with a 'Sources' section.\n\n")
	b.WriteString("ANSWER:")

	return Bundle{
		SystemInstruction: systemRules,
		UserPrompt:        b.String(),
		UsedChunks:        used,
	}
}

func refusalPrompt(question string) string {
	return "USER QUESTION:\n" + question + "\n\n" +
		"CONTEXT:\nNo relevant documents were retrieved.\n\n" +
		"INSTRUCTION:\nRespond exactly with:\n'" + NotFoundSentinel + "'\n\n" +
		"ANSWER:"
}

func writeBlock(b *strings.Builder, idx int, c evidence.Candidate) {
	source := c.Source
	if source == "" {
		source = "unknown"
	}
	fmt.Fprintf(b, "[CONTEXT %d]\n", idx)
	fmt.Fprintf(b, "Source: %s\n", source)
	fmt.Fprintf(b, "Page: %d\n", c.Page)
	fmt.Fprintf(b, "Content-Type: %s\n", c.ContentType)
	fmt.Fprintf(b, "Confidence: %s\n", strconv.FormatFloat(c.ExtractionConfidence, 'f', 2, 64))
	fmt.Fprintf(b, "Chunk-ID: %s\n", c.ID)
	fmt.Fprintf(b, "Content:\n%s\n", c.Text)
}

// #endregion build

// #region select
// Select walks ranked candidates, skipping seen ids and truncating each text to the
// per-chunk cap. It stops at the chunk cap, or before the chunk that would overrun
// the character budget.
func Select(ranked []evidence.Candidate, cfg Config) []evidence.Candidate {
	seen := make(map[string]bool, len(ranked))
	var used []evidence.Candidate
	total := 0
	for _, c := range ranked {
		if cfg.MaxChunks > 0 && len(used) >= cfg.MaxChunks {
			break
		}
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true

		c.Text = truncate(c.Text, cfg.MaxChunkChars)
		n := utf8.RuneCountInString(c.Text)
		if cfg.MaxTotalChars > 0 && total+n > cfg.MaxTotalChars {
			break
		}
		total += n
		used = append(used, c)
	}
	return used
}

// truncate cuts s to at most limit runes.
func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	i := 0
	for pos := range s {
		if i == limit {
			return s[:pos]
		}
		i++
	}
	return s
}

// #endregion select
