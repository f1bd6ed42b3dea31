package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/danielpatrickdp/agri-rag/go-controller/internal/codec"
	"gopkg.in/yaml.v3"
)

// #region fixture-types

// Fixture is the top-level structure of a replay file.
type Fixture struct {
	Description string        `json:"description" yaml:"description"`
	Config      FixtureConfig `json:"config" yaml:"config"`
	Cases       []FixtureCase `json:"cases" yaml:"cases"`
}

// FixtureConfig overrides the policy knobs a fixture cares about. Unset fields keep the
// run's base options.
type FixtureConfig struct {
	AcceptThreshold   *float64 `json:"accept_threshold,omitempty" yaml:"accept_threshold,omitempty"`
	MinGroundingRatio *float64 `json:"min_grounding_ratio,omitempty" yaml:"min_grounding_ratio,omitempty"`
}

// FixtureMatch is one canned index hit.
type FixtureMatch struct {
	ID       string         `json:"id" yaml:"id"`
	Score    float64        `json:"score" yaml:"score"`
	Metadata map[string]any `json:"metadata" yaml:"metadata"`
}

// FixtureCase is one question with its canned collaborators and expected outcome.
// Calls[i] is what the index returns for the i-th query vector.
type FixtureCase struct {
	Name       string           `json:"name" yaml:"name"`
	Question   string           `json:"question" yaml:"question"`
	Category   string           `json:"category,omitempty" yaml:"category,omitempty"`
	Intent     string           `json:"intent,omitempty" yaml:"intent,omitempty"`
	Language   string           `json:"language,omitempty" yaml:"language,omitempty"`
	Calls      [][]FixtureMatch `json:"calls" yaml:"calls"`
	IndexError bool             `json:"index_error,omitempty" yaml:"index_error,omitempty"`
	Reply      string           `json:"reply,omitempty" yaml:"reply,omitempty"`
	ModelError bool             `json:"model_error,omitempty" yaml:"model_error,omitempty"`
	Expected   Expected         `json:"expected" yaml:"expected"`
}

// Expected is the decision a case must produce. A nil AllowFallback is not checked.
type Expected struct {
	Status        string `json:"status" yaml:"status"`
	Reason        string `json:"reason,omitempty" yaml:"reason,omitempty"`
	AllowFallback *bool  `json:"allow_fallback,omitempty" yaml:"allow_fallback,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads a fixture file. Files ending in .json are parsed as JSON, anything
// else as YAML.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &f)
	} else {
		err = yaml.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if len(f.Cases) == 0 {
		return nil, fmt.Errorf("fixture %s has no cases", path)
	}
	return &f, nil
}

// matches converts one call's canned hits to index matches.
func (c FixtureCase) matches(call int) []codec.Match {
	if call < 0 || call >= len(c.Calls) {
		return nil
	}
	out := make([]codec.Match, len(c.Calls[call]))
	for i, m := range c.Calls[call] {
		out[i] = codec.Match{ID: m.ID, Score: m.Score, Metadata: m.Metadata}
	}
	return out
}

// #endregion fixture-loader
