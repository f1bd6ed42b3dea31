package logging

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE decision_log (
		decision_id      TEXT NOT NULL,
		query            TEXT NOT NULL,
		normalized_query TEXT,
		category         TEXT NOT NULL,
		intent           TEXT,
		language         TEXT,
		status           TEXT NOT NULL,
		reason           TEXT,
		answer           TEXT,
		confidence       REAL NOT NULL,
		allow_fallback   INTEGER NOT NULL,
		cached           INTEGER NOT NULL,
		diagnostics_json TEXT,
		latency_ms       INTEGER NOT NULL,
		created_at       TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-decision-tests
func TestLogDecision_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := DecisionEntry{
		DecisionID:      "d1",
		Query:           "urea dose for rice",
		NormalizedQuery: "urea dose rice",
		Category:        "advisory",
		Intent:          "numeric",
		Language:        "en",
		Status:          "answer",
		Answer:          "Apply 50 kg per acre.",
		Confidence:      0.72,
		AllowFallback:   false,
		DiagnosticsJSON: `{"retrieval":{"status":"ok"}}`,
		Latency:         1500 * time.Millisecond,
		CreatedAt:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := LogDecision(db, entry); err != nil {
		t.Fatalf("LogDecision: %v", err)
	}

	var status, category, createdAt string
	var confidence float64
	var allowFallback, latency int
	err := db.QueryRow(`SELECT status, category, confidence, allow_fallback, latency_ms, created_at FROM decision_log WHERE decision_id = 'd1'`).
		Scan(&status, &category, &confidence, &allowFallback, &latency, &createdAt)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if status != "answer" || category != "advisory" {
		t.Errorf("unexpected row: status=%s category=%s", status, category)
	}
	if confidence != 0.72 {
		t.Errorf("expected confidence 0.72, got %f", confidence)
	}
	if allowFallback != 0 {
		t.Errorf("expected allow_fallback 0, got %d", allowFallback)
	}
	if latency != 1500 {
		t.Errorf("expected 1500ms, got %d", latency)
	}
	if createdAt != "2026-01-01T00:00:00.000000000Z" {
		t.Errorf("unexpected created_at %s", createdAt)
	}
}

func TestLogDecision_NullsForEmpty(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := DecisionEntry{
		DecisionID:    "d2",
		Query:         "who is the minister",
		Category:      "general",
		Status:        "no_answer",
		Reason:        "out_of_domain",
		AllowFallback: false,
	}
	if err := LogDecision(db, entry); err != nil {
		t.Fatalf("LogDecision: %v", err)
	}

	var answer, intent, diag sql.NullString
	var createdAt string
	err := db.QueryRow(`SELECT answer, intent, diagnostics_json, created_at FROM decision_log WHERE decision_id = 'd2'`).
		Scan(&answer, &intent, &diag, &createdAt)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if answer.Valid || intent.Valid || diag.Valid {
		t.Errorf("expected NULLs, got answer=%v intent=%v diag=%v", answer, intent, diag)
	}
	if createdAt == "" {
		t.Error("expected created_at to default to now")
	}
}

func TestLogDecision_MissingTable(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := LogDecision(db, DecisionEntry{DecisionID: "x"}); err == nil {
		t.Fatal("expected error without decision_log table")
	}
}

// #endregion log-decision-tests

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(true)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if !logger.Core().Enabled(-1) {
		t.Error("verbose logger should enable debug")
	}
	quiet, err := NewLogger(false)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if quiet.Core().Enabled(-1) {
		t.Error("production logger should not enable debug")
	}
}
