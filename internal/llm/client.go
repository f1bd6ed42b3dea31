package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/danielpatrickdp/agri-rag/go-controller/internal/answer"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/retry"
	"google.golang.org/genai"
)

// #region client
// contentGenerator is the part of genai.Models the client calls.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client generates text with Gemini. It satisfies answer.LLM.
type Client struct {
	models contentGenerator
	cfg    Config
}

// NewClient creates a Gemini API client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{models: client.Models, cfg: cfg}, nil
}

// NewClientWithModels creates a Client over an injected generator.
// Used for testing without the Gemini API.
func NewClientWithModels(models contentGenerator, cfg Config) *Client {
	return &Client{models: models, cfg: cfg}
}

// #endregion client

// #region generate
// Generate runs one completion under the per-call deadline with a single transient retry.
func (c *Client) Generate(ctx context.Context, req answer.Request) (string, error) {
	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Temperature),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.SystemPrompt != "" {
		gc.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemPrompt}}}
	}
	contents := []*genai.Content{
		{Parts: []*genai.Part{{Text: req.UserPrompt}}, Role: "user"},
	}

	var text string
	p := retry.DefaultPolicy(c.cfg.Timeout)
	if c.cfg.Backoff > 0 {
		p.Backoff = c.cfg.Backoff
	}
	err := retry.Do(ctx, p, IsTransient, func(ctx context.Context) error {
		resp, err := c.models.GenerateContent(ctx, c.cfg.Model, contents, gc)
		if err != nil {
			return err
		}
		if resp == nil {
			return ErrEmptyResponse
		}
		text = strings.TrimSpace(resp.Text())
		if text == "" {
			return ErrEmptyResponse
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return text, nil
}

// #endregion generate

// #region transient
// IsTransient reports whether a model failure is worth the single retry:
// deadlines, rate limiting and server errors.
func IsTransient(err error) bool {
	if retry.IsDeadline(err) {
		return true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return transientCode(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return transientCode(apiErrPtr.Code)
	}
	return false
}

func transientCode(code int) bool {
	return code == 429 || code >= 500
}

// #endregion transient
