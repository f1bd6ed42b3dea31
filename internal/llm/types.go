package llm

import (
	"errors"
	"time"
)

// ErrEmptyResponse is returned when the model replies with no text.
var ErrEmptyResponse = errors.New("llm: empty response")

// #region config
// Config configures the Gemini client.
type Config struct {
	Model   string        `yaml:"model"`
	APIKey  string        `yaml:"-"`
	Timeout time.Duration `yaml:"timeout"`
	Backoff time.Duration `yaml:"backoff"`
}

// DefaultConfig returns the production model settings. The API key comes from the environment.
func DefaultConfig() Config {
	return Config{
		Model:   "gemini-2.0-flash",
		Timeout: 30 * time.Second,
		Backoff: 500 * time.Millisecond,
	}
}

// #endregion config
