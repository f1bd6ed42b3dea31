package evidence

import (
	"errors"
	"testing"
)

func validMeta() map[string]any {
	return map[string]any{
		"chunk_id":     "c1",
		"text":         "Apply 50 kg urea per acre at tillering.",
		"source":       "rice_guide.pdf",
		"page":         float64(4),
		"content_type": "table_row",
		"language":     "en",
		"confidence":   0.92,
		"domain":       "crop",
	}
}

func TestFromMetadata_Valid(t *testing.T) {
	c, err := FromMetadata("vec-1", 0.81, validMeta())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ID != "c1" {
		t.Errorf("expected metadata chunk_id to win, got %q", c.ID)
	}
	if c.Page != 4 {
		t.Errorf("expected page 4, got %d", c.Page)
	}
	if c.ContentType != ContentTableRow {
		t.Errorf("expected table_row, got %q", c.ContentType)
	}
	if c.Priority != DefaultPriority {
		t.Errorf("expected default priority %d, got %d", DefaultPriority, c.Priority)
	}
	if c.RawScore != 0.81 {
		t.Errorf("expected raw score 0.81, got %f", c.RawScore)
	}
}

func TestFromMetadata_FallsBackToMatchID(t *testing.T) {
	meta := validMeta()
	delete(meta, "chunk_id")

	c, err := FromMetadata("vec-1", 0.5, meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ID != "vec-1" {
		t.Errorf("expected match id, got %q", c.ID)
	}
}

func TestFromMetadata_ExplicitPriority(t *testing.T) {
	meta := validMeta()
	meta["priority"] = float64(5)

	c, err := FromMetadata("", 0.5, meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Priority != 5 {
		t.Errorf("expected priority 5, got %d", c.Priority)
	}
}

func TestFromMetadata_Malformed(t *testing.T) {
	cases := map[string]func(map[string]any){
		"missing text":         func(m map[string]any) { delete(m, "text") },
		"unknown content type": func(m map[string]any) { m["content_type"] = "image" },
		"missing content type": func(m map[string]any) { delete(m, "content_type") },
		"missing confidence":   func(m map[string]any) { delete(m, "confidence") },
		"confidence above one": func(m map[string]any) { m["confidence"] = 1.4 },
		"non numeric page":     func(m map[string]any) { m["page"] = "N/A" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			meta := validMeta()
			mutate(meta)
			_, err := FromMetadata("vec-1", 0.5, meta)
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestFromMetadata_NoIDAtAll(t *testing.T) {
	meta := validMeta()
	delete(meta, "chunk_id")
	if _, err := FromMetadata("  ", 0.5, meta); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestFromMetadata_NilMetadata(t *testing.T) {
	if _, err := FromMetadata("x", 0.5, nil); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestMixOf(t *testing.T) {
	cands := []Candidate{
		{Chunk: Chunk{ID: "a", ContentType: ContentText}},
		{Chunk: Chunk{ID: "b", ContentType: ContentOCR}},
		{Chunk: Chunk{ID: "c", ContentType: ContentOCR}},
	}
	mix := MixOf(cands)
	if mix[ContentOCR] != 2 || mix[ContentText] != 1 {
		t.Errorf("unexpected mix: %v", mix)
	}
	if mix.Has(ContentTableRow) {
		t.Error("expected no table rows")
	}
	if mix.Total() != 3 {
		t.Errorf("expected total 3, got %d", mix.Total())
	}
}

func TestPageKey(t *testing.T) {
	c := Chunk{Source: "a.pdf", Page: 12}
	if c.PageKey() != "a.pdf#12" {
		t.Errorf("unexpected page key %q", c.PageKey())
	}
}
