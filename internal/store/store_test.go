package store_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielpatrickdp/agri-rag/go-controller/internal/logging"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/store"
)

func tempDB(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func logEntry(t *testing.T, s *store.Store, e logging.DecisionEntry) {
	t.Helper()
	if err := logging.LogDecision(s.DB(), e); err != nil {
		t.Fatalf("LogDecision: %v", err)
	}
}

func TestListDecisions_NewestFirst(t *testing.T) {
	s := tempDB(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		logEntry(t, s, logging.DecisionEntry{
			DecisionID: id,
			Query:      "q " + id,
			Category:   "general",
			Status:     "no_answer",
			Reason:     "no_matches",
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		})
	}

	recs, err := s.ListDecisions(2)
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].DecisionID != "c" || recs[1].DecisionID != "b" {
		t.Errorf("expected c,b got %s,%s", recs[0].DecisionID, recs[1].DecisionID)
	}
	if !recs[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("unexpected created_at %v", recs[0].CreatedAt)
	}
}

func TestListDecisions_SubsecondOrder(t *testing.T) {
	s := tempDB(t)
	base := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)
	logEntry(t, s, logging.DecisionEntry{
		DecisionID: "older", Query: "q", Category: "general", Status: "no_answer",
		CreatedAt: base.Add(100 * time.Millisecond),
	})
	logEntry(t, s, logging.DecisionEntry{
		DecisionID: "newer", Query: "q", Category: "general", Status: "no_answer",
		CreatedAt: base.Add(120 * time.Millisecond),
	})

	recs, err := s.ListDecisions(2)
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if len(recs) != 2 || recs[0].DecisionID != "newer" {
		t.Fatalf("expected newer first, got %+v", recs)
	}
	if !recs[1].CreatedAt.Equal(base.Add(100 * time.Millisecond)) {
		t.Errorf("unexpected created_at %v", recs[1].CreatedAt)
	}
}

func TestGetDecision(t *testing.T) {
	s := tempDB(t)
	logEntry(t, s, logging.DecisionEntry{
		DecisionID:      "d1",
		Query:           "urea dose",
		NormalizedQuery: "urea dose",
		Category:        "advisory",
		Status:          "answer",
		Answer:          "Apply 50 kg.",
		Confidence:      0.71,
		AllowFallback:   false,
		Cached:          true,
		DiagnosticsJSON: `{"cached":true}`,
		Latency:         250 * time.Millisecond,
	})

	rec, err := s.GetDecision("d1")
	if err != nil {
		t.Fatalf("GetDecision: %v", err)
	}
	if rec.Answer != "Apply 50 kg." || rec.Confidence != 0.71 || !rec.Cached || rec.LatencyMS != 250 {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.Reason != "" || rec.Intent != "" {
		t.Errorf("NULL columns should read back empty: %+v", rec)
	}

	if _, err := s.GetDecision("missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCountByReason(t *testing.T) {
	s := tempDB(t)
	for i, reason := range []string{"no_matches", "no_matches", "", "category_violation"} {
		status := "no_answer"
		if reason == "" {
			status = "answer"
		}
		logEntry(t, s, logging.DecisionEntry{
			DecisionID: string(rune('a' + i)),
			Query:      "q",
			Category:   "general",
			Status:     status,
			Reason:     reason,
		})
	}

	counts, err := s.CountByReason()
	if err != nil {
		t.Fatalf("CountByReason: %v", err)
	}
	if counts["no_answer/no_matches"] != 2 || counts["answer"] != 1 || counts["no_answer/category_violation"] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestNewStore_InMemory(t *testing.T) {
	s, err := store.NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()
	logEntry(t, s, logging.DecisionEntry{DecisionID: "m", Query: "q", Category: "general", Status: "answer"})
	recs, err := s.ListDecisions(10)
	if err != nil || len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d (%v)", len(recs), err)
	}
}
