package answer

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/danielpatrickdp/agri-rag/go-controller/internal/evidence"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/prompt"
)

// #region mock
type mockLLM struct {
	LLM

	reply string
	err   error

	calls   int
	lastReq Request
}

func (m *mockLLM) Generate(_ context.Context, req Request) (string, error) {
	m.calls++
	m.lastReq = req
	return m.reply, m.err
}

func bundleWith(contentType evidence.ContentType, score float64, texts ...string) prompt.Bundle {
	var used []evidence.Candidate
	for i, text := range texts {
		used = append(used, evidence.Candidate{
			Chunk: evidence.Chunk{
				ID:          "c" + string(rune('1'+i)),
				Text:        text,
				Source:      "advisory.pdf",
				Page:        i + 1,
				ContentType: contentType,
			},
			AdjustedScore: score,
		})
	}
	return prompt.Bundle{SystemInstruction: "sys", UserPrompt: "user", UsedChunks: used}
}

func generate(t *testing.T, reply string, b prompt.Bundle) Outcome {
	t.Helper()
	g := NewGenerator(&mockLLM{reply: reply}, DefaultConfig(), nil)
	return g.Generate(context.Background(), b)
}

// #endregion mock

// #region reject-tests
func TestGenerate_UnhedgedCertaintyRejected(t *testing.T) {
	b := bundleWith(evidence.ContentText, 0.9, "Tricyclazole controls leaf blast as listed in the table.")
	out := generate(t, "For leaf blast you should apply tricyclazole as listed in the table.", b)

	if !out.Hallucinated {
		t.Fatal("expected hallucinated=true")
	}
	if out.Confidence != 0.0 {
		t.Errorf("expected confidence 0, got %f", out.Confidence)
	}
	if out.Answer != "" {
		t.Errorf("expected discarded answer, got %q", out.Answer)
	}
	if out.Reason != ReasonUnsafeCertainty {
		t.Errorf("expected %s, got %s", ReasonUnsafeCertainty, out.Reason)
	}
}

func TestGenerate_HedgedCertaintyPasses(t *testing.T) {
	b := bundleWith(evidence.ContentText, 0.9, "Apply urea where soil tests show nitrogen deficiency.")
	out := generate(t, "You should apply urea only where soil tests may show nitrogen deficiency.", b)

	if out.Hallucinated {
		t.Fatalf("expected accepted answer, got reason %s marker %q", out.Reason, out.Marker)
	}
	if out.GroundingRatio != 1.0 {
		t.Errorf("expected full grounding, got %f", out.GroundingRatio)
	}
}

func TestGenerate_SoftMarkerRejected(t *testing.T) {
	b := bundleWith(evidence.ContentText, 0.9, "Rice seedlings are transplanted after twenty five days.")
	out := generate(t, "Rice seedlings are usually transplanted after twenty five days.", b)

	if !out.Hallucinated || out.Reason != ReasonSoftMarker {
		t.Errorf("expected soft marker rejection, got %+v", out)
	}
	if out.Marker != "usually" {
		t.Errorf("expected marker 'usually', got %q", out.Marker)
	}
}

func TestGenerate_TooShort(t *testing.T) {
	out := generate(t, "Yes, rice.", bundleWith(evidence.ContentText, 0.9, "rice"))
	if !out.Hallucinated || out.Reason != ReasonTooShort {
		t.Errorf("expected too_short, got %+v", out)
	}
}

func TestGenerate_TooLong(t *testing.T) {
	long := strings.Repeat("wheat grows well ", 60)
	out := generate(t, long, bundleWith(evidence.ContentText, 0.9, "wheat grows well"))
	if !out.Hallucinated || out.Reason != ReasonTooLong {
		t.Errorf("expected too_long, got reason %s", out.Reason)
	}
}

func TestGenerate_Ungrounded(t *testing.T) {
	b := bundleWith(evidence.ContentText, 0.9, "Mustard sowing starts in October.")
	out := generate(t, "Drip irrigation saves water during summer months here.", b)
	if !out.Hallucinated || out.Reason != ReasonUngrounded {
		t.Errorf("expected ungrounded rejection, got %+v", out)
	}
}

func TestGenerate_MinGroundingRatioKnob(t *testing.T) {
	b := bundleWith(evidence.ContentText, 0.8, "Apply urea after sowing.")
	reply := "Apply potash before sowing in each acre."

	cfg := DefaultConfig()
	g := NewGenerator(&mockLLM{reply: reply}, cfg, nil)
	if out := g.Generate(context.Background(), b); out.Hallucinated {
		t.Fatalf("default knob should accept ratio 0.5, got %s", out.Reason)
	}

	cfg.MinGroundingRatio = 0.6
	g = NewGenerator(&mockLLM{reply: reply}, cfg, nil)
	if out := g.Generate(context.Background(), b); !out.Hallucinated || out.Reason != ReasonUngrounded {
		t.Errorf("raised knob should reject ratio 0.5, got %+v", out)
	}
}

// #endregion reject-tests

// #region terminal-tests
func TestGenerate_NotFoundSentinel(t *testing.T) {
	out := generate(t, "Not found in the provided documents.", bundleWith(evidence.ContentText, 0.9, "x"))
	if !out.NotFound || out.Hallucinated || out.Failed {
		t.Errorf("expected not found only, got %+v", out)
	}
}

func TestGenerate_LLMError(t *testing.T) {
	g := NewGenerator(&mockLLM{err: errors.New("deadline")}, DefaultConfig(), nil)
	out := g.Generate(context.Background(), bundleWith(evidence.ContentText, 0.9, "x"))
	if !out.Failed || out.Reason != ReasonLLMError {
		t.Errorf("expected llm error, got %+v", out)
	}
}

func TestGenerate_EmptyReplyIsFailure(t *testing.T) {
	out := generate(t, "   \n", bundleWith(evidence.ContentText, 0.9, "x"))
	if !out.Failed || out.Reason != ReasonEmptyResponse {
		t.Errorf("expected empty response failure, got %+v", out)
	}
}

func TestGenerate_EmptyBundleSkipsModel(t *testing.T) {
	llm := &mockLLM{reply: "anything"}
	g := NewGenerator(llm, DefaultConfig(), nil)
	out := g.Generate(context.Background(), prompt.Bundle{})
	if llm.calls != 0 {
		t.Errorf("expected no model call, got %d", llm.calls)
	}
	if !out.NotFound || out.Reason != ReasonNoContext {
		t.Errorf("expected no_context, got %+v", out)
	}
}

// #endregion terminal-tests

// #region confidence-tests
func TestGenerate_ConfidenceBlend(t *testing.T) {
	// chunkStrength 0.8, grounding 2 of 4 content words, no OCR.
	b := bundleWith(evidence.ContentText, 0.8, "Apply urea after sowing.")
	out := generate(t, "Apply potash before sowing in each acre.", b)

	if out.Hallucinated {
		t.Fatalf("unexpected rejection: %s", out.Reason)
	}
	if out.GroundingRatio != 0.5 {
		t.Errorf("expected grounding 0.5, got %f", out.GroundingRatio)
	}
	if out.Confidence != 0.68 {
		t.Errorf("expected confidence 0.68, got %f", out.Confidence)
	}
	if len(out.Citations) != 1 || out.Citations[0].ChunkID != "c1" {
		t.Errorf("unexpected citations: %+v", out.Citations)
	}
}

func TestAnswerConfidence(t *testing.T) {
	if got := answerConfidence(0.8, 0.5, 0, 0.6, 0.4, 0.6); got != 0.68 {
		t.Errorf("expected 0.68, got %f", got)
	}
	// All OCR: factor 0.4.
	if got := answerConfidence(1, 1, 1, 0.6, 0.4, 0.6); got != 0.4 {
		t.Errorf("expected 0.4, got %f", got)
	}
}

func TestGenerate_OCRPenalty(t *testing.T) {
	b := bundleWith(evidence.ContentOCR, 1.0, "Apply urea after sowing.")
	out := generate(t, "Apply urea after sowing every season.", b)
	if out.Hallucinated {
		t.Fatalf("unexpected rejection: %s", out.Reason)
	}
	if out.OCRRatio != 1.0 {
		t.Errorf("expected ocr ratio 1, got %f", out.OCRRatio)
	}
	if out.Confidence > 0.4 {
		t.Errorf("expected OCR-penalized confidence <= 0.4, got %f", out.Confidence)
	}
}

func TestChunkStrength_Clamps(t *testing.T) {
	used := []evidence.Candidate{{AdjustedScore: 1.62}, {AdjustedScore: 0.4}}
	if got := chunkStrength(used); math.Abs(got-0.7) > 1e-9 {
		t.Errorf("expected 0.7, got %f", got)
	}
}

func TestGenerate_RequestParameters(t *testing.T) {
	llm := &mockLLM{reply: "Not found in the provided documents."}
	g := NewGenerator(llm, DefaultConfig(), nil)
	g.Generate(context.Background(), bundleWith(evidence.ContentText, 0.9, "x"))

	if llm.lastReq.Temperature != 0 || llm.lastReq.MaxTokens != 400 {
		t.Errorf("unexpected generation parameters: %+v", llm.lastReq)
	}
	if llm.lastReq.SystemPrompt != "sys" || llm.lastReq.UserPrompt != "user" {
		t.Errorf("prompt not forwarded: %+v", llm.lastReq)
	}
}

// #endregion confidence-tests

// #region policy-tests
func TestMarkerPolicy_WholeWords(t *testing.T) {
	p := DefaultMarkerPolicy()
	cases := []struct {
		text string
		ok   bool
	}{
		{"The scheme covers usual crop losses across districts.", true},
		{"Keep the hallways of the storage shed dry.", true},
		{"Generally, sow before the monsoon.", false},
		{"Farmers must apply for the card online.", false},
		{"Farmers must apply for the card online, depending on the district.", true},
		{"The recommended dose might differ by soil.", true},
		{"I THINK the rate is fine.", false},
		{"As an AI, I cannot advise on pesticide doses.", false},
	}
	for _, tc := range cases {
		if _, _, ok := p.Audit(tc.text); ok != tc.ok {
			t.Errorf("Audit(%q) ok=%v, want %v", tc.text, ok, tc.ok)
		}
	}
}

func TestMarkerPolicy_SwappableTable(t *testing.T) {
	p := MarkerPolicy{Rules: []MarkerRule{{Phrase: "surely", Verdict: VerdictReject}}}
	if _, phrase, ok := p.Audit("This will surely work."); ok || phrase != "surely" {
		t.Errorf("custom rule did not fire")
	}
	if _, _, ok := p.Audit("You should always do this."); !ok {
		t.Errorf("default rules should not apply to a custom table")
	}
}

func TestGrounder_Ratio(t *testing.T) {
	g := newGrounder(4, []string{"farmers"})
	// "farmers" is an extra stop word; "apply" is absent from the context.
	if got := g.ratio("Farmers apply neem cake", "neem cake is applied"); math.Abs(got-2.0/3.0) > 1e-9 {
		t.Errorf("expected 2/3, got %f", got)
	}
	if got := g.ratio("the and of", "anything"); got != 0 {
		t.Errorf("expected 0 for no content words, got %f", got)
	}
	if got := g.ratio("neem cake neem", "Neem cake"); got != 1.0 {
		t.Errorf("expected 1.0, got %f", got)
	}
}

func TestGrounder_NonLatinWords(t *testing.T) {
	g := newGrounder(4, nil)
	text := "पीएम किसान योजना के तहत सभी भूमिधारक किसान परिवार पात्र हैं।"
	if got := words(text); got[1] != "किसान" {
		t.Errorf("vowel signs split the word: %q", got)
	}
	if got := g.ratio(text, text); got != 1.0 {
		t.Errorf("expected 1.0 for a verbatim answer, got %f", got)
	}
	if got := g.ratio("ಭತ್ತದ ಬೆಳೆಗೆ ಯೂರಿಯಾ ಹಾಕಿ", "ಭತ್ತದ ಬೆಳೆಗೆ ಯೂರಿಯಾ ಹಾಕಿ"); got != 1.0 {
		t.Errorf("expected 1.0 for Kannada, got %f", got)
	}
}

func TestGenerate_GroundedHindiAnswerAccepted(t *testing.T) {
	text := "पीएम किसान योजना के तहत सभी भूमिधारक किसान परिवार पात्र हैं।"
	out := generate(t, text, bundleWith(evidence.ContentText, 0.8, text))
	if out.Hallucinated {
		t.Fatalf("unexpected rejection: %s (%s)", out.Reason, out.Marker)
	}
	if out.GroundingRatio != 1.0 {
		t.Errorf("expected grounding 1.0, got %f", out.GroundingRatio)
	}
}

func TestGrounder_CitedSourceNamesCount(t *testing.T) {
	b := bundleWith(evidence.ContentText, 0.8, "Apply neem cake before sowing.")
	out := generate(t, "Apply neem cake before sowing. Sources: advisory.pdf, page 1.", b)
	if out.Hallucinated {
		t.Fatalf("unexpected rejection: %s", out.Reason)
	}
	if out.GroundingRatio != 1.0 {
		t.Errorf("expected cited source to count as grounded, got %f", out.GroundingRatio)
	}
}

// #endregion policy-tests
