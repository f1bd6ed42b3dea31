package store

import "time"

// #region decision-record
// DecisionRecord is one persisted terminal decision.
type DecisionRecord struct {
	DecisionID      string    `json:"decision_id"`
	Query           string    `json:"query"`
	NormalizedQuery string    `json:"normalized_query,omitempty"`
	Category        string    `json:"category"`
	Intent          string    `json:"intent,omitempty"`
	Language        string    `json:"language,omitempty"`
	Status          string    `json:"status"`
	Reason          string    `json:"reason,omitempty"`
	Answer          string    `json:"answer,omitempty"`
	Confidence      float64   `json:"confidence"`
	AllowFallback   bool      `json:"allow_fallback"`
	Cached          bool      `json:"cached"`
	DiagnosticsJSON string    `json:"diagnostics,omitempty"`
	LatencyMS       int64     `json:"latency_ms"`
	CreatedAt       time.Time `json:"created_at"`
}

// #endregion decision-record
