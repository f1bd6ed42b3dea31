package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/danielpatrickdp/agri-rag/go-controller/internal/answer"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/codec"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/fallback"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/gate"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/llm"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/pipeline"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/prompt"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/retrieval"
	"gopkg.in/yaml.v3"
)

// #region types
// Config is the full controller configuration.
type Config struct {
	Index      IndexConfig              `yaml:"index"`
	LLM        LLMConfig                `yaml:"llm"`
	Retrieval  retrieval.Config         `yaml:"retrieval"`
	Context    ContextConfig            `yaml:"context"`
	Answer     answer.Config            `yaml:"answer"`
	Arbiter    pipeline.Config          `yaml:"arbiter"`
	Categories map[string]gate.Category `yaml:"categories"`
	Cache      CacheConfig              `yaml:"cache"`
	Store      StoreConfig              `yaml:"store"`
	Fallback   fallback.Config          `yaml:"fallback"`
}

// IndexConfig addresses the vector-index sidecar.
type IndexConfig struct {
	Addr    string        `yaml:"addr"`
	Timeout time.Duration `yaml:"timeout"`
	Backoff time.Duration `yaml:"backoff"`
}

// LLMConfig selects the model. Generation parameters live under answer.
type LLMConfig struct {
	Model   string        `yaml:"model"`
	APIKey  string        `yaml:"-"`
	Timeout time.Duration `yaml:"timeout"`
	Backoff time.Duration `yaml:"backoff"`
}

// ContextConfig holds the context budgets for normal and fast categories.
type ContextConfig struct {
	Normal prompt.Config `yaml:"normal"`
	Fast   prompt.Config `yaml:"fast"`
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	Size    int  `yaml:"size"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

// #endregion types

// #region defaults
// DefaultConfig returns production defaults.
func DefaultConfig() *Config {
	idx := codec.DefaultConfig()
	model := llm.DefaultConfig()
	return &Config{
		Index:     IndexConfig{Addr: "localhost:50051", Timeout: idx.Timeout, Backoff: idx.Backoff},
		LLM:       LLMConfig{Model: model.Model, Timeout: model.Timeout, Backoff: model.Backoff},
		Retrieval: retrieval.DefaultConfig(),
		Context:   ContextConfig{Normal: prompt.DefaultConfig(), Fast: prompt.FastConfig()},
		Answer:    answer.DefaultConfig(),
		Arbiter:   pipeline.DefaultConfig(),
		// A file entry replaces the default entry of the same name; other defaults stay.
		Categories: gate.DefaultCategories(),
		Cache:      CacheConfig{Enabled: true, Size: 512},
		Store:      StoreConfig{Path: "agri_decisions.db"},
		Fallback:   fallback.DefaultConfig(),
	}
}

// #endregion defaults

// #region load
// Load reads a YAML file over the defaults and applies environment overrides.
// An empty path or a missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("AGRI_INDEX_ADDR"); v != "" {
		c.Index.Addr = v
	}
	if v := os.Getenv("AGRI_DB"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("AGRI_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("AGRI_ACCEPT_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("AGRI_ACCEPT_THRESHOLD: %w", err)
		}
		c.Arbiter.AcceptThreshold = f
	}
	if v := os.Getenv("AGRI_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AGRI_CACHE_SIZE: %w", err)
		}
		c.Cache.Size = n
	}
	if v := os.Getenv("AGRI_INDEX_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("AGRI_INDEX_TIMEOUT: %w", err)
		}
		c.Index.Timeout = d
	}
	if v := os.Getenv("AGRI_LLM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("AGRI_LLM_TIMEOUT: %w", err)
		}
		c.LLM.Timeout = d
	}
	return nil
}

// #endregion load

// #region validate
// Validate reports every out-of-range setting.
func (c *Config) Validate() error {
	var errs []error
	unit := func(name string, v float64) {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be in [0,1], got %v", name, v))
		}
	}
	positive := func(name string, v int) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}

	r := c.Retrieval
	unit("retrieval.extraction_floor", r.ExtractionFloor)
	unit("retrieval.min_adjusted_score", r.MinAdjustedScore)
	unit("retrieval.weak_threshold", r.WeakThreshold)
	positive("retrieval.top_k", r.TopK)
	positive("retrieval.overfetch_factor", r.OverfetchFactor)
	positive("retrieval.overfetch_cap", r.OverfetchCap)
	positive("retrieval.min_coverage", r.MinCoverage)
	positive("retrieval.max_per_page", r.MaxPerPage)
	positive("retrieval.max_per_source", r.MaxPerSource)
	positive("retrieval.max_merged", r.MaxMerged)

	for name, pc := range map[string]prompt.Config{"context.normal": c.Context.Normal, "context.fast": c.Context.Fast} {
		positive(name+".max_chunks", pc.MaxChunks)
		positive(name+".max_chunk_chars", pc.MaxChunkChars)
		positive(name+".max_total_chars", pc.MaxTotalChars)
	}

	unit("answer.min_grounding_ratio", c.Answer.MinGroundingRatio)
	unit("answer.ocr_penalty", c.Answer.OCRPenalty)
	positive("answer.max_chars", c.Answer.MaxChars)
	positive("answer.max_tokens", c.Answer.MaxTokens)

	unit("arbiter.accept_threshold", c.Arbiter.AcceptThreshold)
	for name, f := range map[string]pipeline.Fusion{"arbiter.normal_fusion": c.Arbiter.Normal, "arbiter.fast_fusion": c.Arbiter.Fast} {
		unit(name+".retrieval", f.Retrieval)
		unit(name+".answer", f.Answer)
	}

	if len(c.Categories) == 0 {
		errs = append(errs, errors.New("categories must not be empty"))
	}
	for name, cat := range c.Categories {
		unit("categories."+name+".confidence_ceiling", cat.ConfidenceCeiling)
	}
	if _, ok := c.Categories[c.Arbiter.DefaultCategory]; !ok {
		errs = append(errs, fmt.Errorf("arbiter.default_category %q is not a configured category", c.Arbiter.DefaultCategory))
	}

	if c.Index.Addr == "" {
		errs = append(errs, errors.New("index.addr must be set"))
	}
	if c.Fallback.Enabled && c.Fallback.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("fallback.max_tokens must be positive, got %d", c.Fallback.MaxTokens))
	}
	if c.Cache.Size < 0 {
		errs = append(errs, fmt.Errorf("cache.size must not be negative, got %d", c.Cache.Size))
	}
	return errors.Join(errs...)
}

// #endregion validate

// #region views
// CodecConfig returns the sidecar client settings.
func (c *Config) CodecConfig() codec.Config {
	return codec.Config{Timeout: c.Index.Timeout, Backoff: c.Index.Backoff}
}

// ModelConfig returns the language-model client settings.
func (c *Config) ModelConfig() llm.Config {
	return llm.Config{Model: c.LLM.Model, APIKey: c.LLM.APIKey, Timeout: c.LLM.Timeout, Backoff: c.LLM.Backoff}
}

// ArbiterConfig returns the arbiter policy with the context budgets filled in.
func (c *Config) ArbiterConfig() pipeline.Config {
	a := c.Arbiter
	a.NormalContext = c.Context.Normal
	a.FastContext = c.Context.Fast
	if a.TopK <= 0 {
		a.TopK = c.Retrieval.TopK
	}
	return a
}

// CacheSize returns the effective cache size; zero disables the cache.
func (c *Config) CacheSize() int {
	if !c.Cache.Enabled {
		return 0
	}
	return c.Cache.Size
}

// #endregion views
