package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/danielpatrickdp/agri-rag/go-controller/internal/fallback"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/pipeline"
)

type jsonOutput struct {
	Decision pipeline.Decision `json:"decision"`
	Fallback *fallback.Result  `json:"fallback,omitempty"`
}

func printJSON(w io.Writer, d pipeline.Decision, fb *fallback.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonOutput{Decision: d, Fallback: fb})
}

func printText(w io.Writer, d pipeline.Decision, fb *fallback.Result) error {
	if d.Status == pipeline.StatusAnswer {
		fmt.Fprintf(w, "\n%s\n\n", d.Answer)
		for _, c := range d.Citations {
			fmt.Fprintf(w, "  [%s p.%d %s] %s\n", c.Source, c.Page, c.ContentType, c.ChunkID)
		}
		_, err := fmt.Fprintf(w, "[%s] category=%s confidence=%.3f cached=%t\n",
			d.ID, d.Category, d.Confidence, d.Diagnostics.Cached)
		return err
	}

	fmt.Fprintf(w, "\n%s\n", d.Message)
	if d.Suggestion != "" {
		fmt.Fprintf(w, "Suggestion: %s\n", d.Suggestion)
	}
	if fb != nil {
		fmt.Fprintf(w, "\n(%s)\n%s\n", fb.Label, fb.Answer)
	}
	_, err := fmt.Fprintf(w, "[%s] category=%s reason=%s allow_fallback=%t\n",
		d.ID, d.Category, d.Reason, d.AllowFallback)
	return err
}
