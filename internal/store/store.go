package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no decision has the requested id.
var ErrNotFound = errors.New("store: decision not found")

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS decision_log (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	decision_id      TEXT NOT NULL UNIQUE,
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
	cached           INTEGER NOT NULL DEFAULT 0,
	diagnostics_json TEXT,
	latency_ms       INTEGER NOT NULL DEFAULT 0,
	created_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decision_log_created ON decision_log(created_at);
`

// #endregion schema

// #region store-struct
// Store persists decisions in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations. ":memory:" is supported.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region accessors
// DB returns the underlying handle for writers such as logging.LogDecision.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion accessors

// #region queries
const selectColumns = `decision_id, query, normalized_query, category, intent, language, status, reason,
	answer, confidence, allow_fallback, cached, diagnostics_json, latency_ms, created_at`

// ListDecisions returns the most recent decisions, newest first.
func (s *Store) ListDecisions(limit int) ([]DecisionRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+selectColumns+` FROM decision_log ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var records []DecisionRecord
	for rows.Next() {
		rec, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetDecision returns a single decision by id.
func (s *Store) GetDecision(id string) (DecisionRecord, error) {
	row := s.db.QueryRow(`SELECT `+selectColumns+` FROM decision_log WHERE decision_id = ?`, id)
	rec, err := scanDecision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return DecisionRecord{}, ErrNotFound
	}
	return rec, err
}

// CountByReason tallies decisions per status and reason.
func (s *Store) CountByReason() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT status, COALESCE(reason, ''), COUNT(*) FROM decision_log GROUP BY status, reason`)
	if err != nil {
		return nil, fmt.Errorf("count decisions: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var status, reason string
		var n int
		if err := rows.Scan(&status, &reason, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		key := status
		if reason != "" {
			key += "/" + reason
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDecision(sc scanner) (DecisionRecord, error) {
	var rec DecisionRecord
	var normalized, intent, language, reason, answer, diag sql.NullString
	var allowFallback, cached int
	var createdStr string

	err := sc.Scan(&rec.DecisionID, &rec.Query, &normalized, &rec.Category, &intent, &language,
		&rec.Status, &reason, &answer, &rec.Confidence, &allowFallback, &cached, &diag,
		&rec.LatencyMS, &createdStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan decision: %w", err)
	}
	rec.NormalizedQuery = normalized.String
	rec.Intent = intent.String
	rec.Language = language.String
	rec.Reason = reason.String
	rec.Answer = answer.String
	rec.DiagnosticsJSON = diag.String
	rec.AllowFallback = allowFallback != 0
	rec.Cached = cached != 0
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

// #endregion queries
