package gate

import (
	"fmt"

	"github.com/danielpatrickdp/agri-rag/go-controller/internal/evidence"
)

// #region gate
// Evaluate checks a category's evidence-shape rules against a content mix.
// Every rule is checked so the decision lists all violations.
func Evaluate(cat Category, mix evidence.ContentMix) GateDecision {
	var vetoes []VetoSignal

	// 1. Scanned text is not trusted for this category.
	if cat.OCRForbidden && mix.Has(evidence.ContentOCR) {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoOCRForbidden,
			Reason: fmt.Sprintf("%d ocr chunk(s) in evidence", mix[evidence.ContentOCR]),
		})
	}

	// 2. Answers must rest on tabular data.
	if cat.TableRequired && !mix.Has(evidence.ContentTableRow) {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoTableRequired,
			Reason: "no table_row chunk in evidence",
		})
	}

	// 3. Prose or procedures must be present.
	if cat.TextDominanceRequired && !mix.Has(evidence.ContentText) && !mix.Has(evidence.ContentProcedure) {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoTextDominance,
			Reason: "no text or procedure chunk in evidence",
		})
	}

	if len(vetoes) > 0 {
		return GateDecision{
			Action:      "reject",
			Reason:      fmt.Sprintf("guard veto: %s: %s", vetoes[0].Type, vetoes[0].Reason),
			Vetoed:      true,
			VetoSignals: vetoes,
		}
	}

	return GateDecision{
		Action: "pass",
		Reason: fmt.Sprintf("passed guards: %d chunk(s)", mix.Total()),
	}
}

// #endregion gate

// #region resolve
// Resolve looks up a category by name. Empty and unknown names resolve to the default
// category; the returned name is the one actually used.
func Resolve(table map[string]Category, name string) (string, Category) {
	if cat, ok := table[name]; ok && name != "" {
		return name, cat
	}
	if cat, ok := table[DefaultCategory]; ok {
		return DefaultCategory, cat
	}
	// A table without a default still gets the most conservative profile.
	return DefaultCategory, Category{OCRForbidden: true, TextDominanceRequired: true, ConfidenceCeiling: 0.5}
}

// #endregion resolve
