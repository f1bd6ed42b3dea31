package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region log-decision
// LogDecision writes a decision entry to the decision_log table.
func LogDecision(db *sql.DB, entry DecisionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO decision_log (decision_id, query, normalized_query, category, intent, language, status,
			reason, answer, confidence, allow_fallback, cached, diagnostics_json, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.DecisionID,
		entry.Query,
		nullIfEmpty(entry.NormalizedQuery),
		entry.Category,
		nullIfEmpty(entry.Intent),
		nullIfEmpty(entry.Language),
		entry.Status,
		nullIfEmpty(entry.Reason),
		nullIfEmpty(entry.Answer),
		entry.Confidence,
		boolInt(entry.AllowFallback),
		boolInt(entry.Cached),
		nullIfEmpty(entry.DiagnosticsJSON),
		entry.Latency.Milliseconds(),
		entry.CreatedAt.UTC().Format(TimeLayout),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
