package codec

import "time"

// #region types

// Filter restricts a vector-index query by metadata.
type Filter struct {
	Language string
	Domain   string
}

// QueryRequest is one nearest-neighbour query against the index sidecar.
type QueryRequest struct {
	Vector []float32
	TopK   int
	Filter Filter
}

// Match is a single raw hit. Metadata carries the ingestion chunk fields.
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// Config bounds every sidecar call.
type Config struct {
	Timeout time.Duration
	Backoff time.Duration
}

// DefaultConfig returns the per-call deadline and retry backoff used in production.
func DefaultConfig() Config {
	return Config{
		Timeout: 5 * time.Second,
		Backoff: 200 * time.Millisecond,
	}
}

// #endregion types
