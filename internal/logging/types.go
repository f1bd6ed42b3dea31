package logging

import "time"

// TimeLayout is the created_at format. Fixed-width fractional seconds keep lexical
// order equal to time order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region decision-entry
// DecisionEntry is a single row in the decision_log table.
type DecisionEntry struct {
	DecisionID      string
	Query           string
	NormalizedQuery string
	Category        string
	Intent          string
	Language        string
	Status          string // "answer" | "no_answer"
	Reason          string
	Answer          string
	Confidence      float64
	AllowFallback   bool
	Cached          bool
	DiagnosticsJSON string
	Latency         time.Duration
	CreatedAt       time.Time
}

// #endregion decision-entry
