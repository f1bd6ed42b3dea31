package evidence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

// ErrMalformed marks an index match whose metadata cannot be turned into a Chunk.
var ErrMalformed = errors.New("malformed match metadata")

var validate = validator.New()

// #region raw-metadata

// rawMetadata mirrors the metadata map written by ingestion. Pointers distinguish
// absent keys from zero values.
type rawMetadata struct {
	ChunkID     string   `mapstructure:"chunk_id"`
	Text        string   `mapstructure:"text" validate:"required"`
	Source      string   `mapstructure:"source"`
	Page        int      `mapstructure:"page" validate:"gte=0"`
	ContentType string   `mapstructure:"content_type" validate:"required,oneof=text ocr table_row procedure"`
	Language    string   `mapstructure:"language"`
	Confidence  *float64 `mapstructure:"confidence" validate:"required,gte=0,lte=1"`
	Priority    *int     `mapstructure:"priority" validate:"omitempty,gte=0,lte=10"`
	Domain      string   `mapstructure:"domain"`
}

// #endregion raw-metadata

// #region from-metadata

// FromMetadata decodes and validates one vector-index match. The metadata chunk_id
// wins over the match id when both are present. Errors wrap ErrMalformed.
func FromMetadata(matchID string, score float64, meta map[string]any) (Candidate, error) {
	if meta == nil {
		return Candidate{}, fmt.Errorf("%w: no metadata", ErrMalformed)
	}

	var raw rawMetadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &raw,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Candidate{}, fmt.Errorf("build decoder: %w", err)
	}
	if err := dec.Decode(meta); err != nil {
		return Candidate{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := validate.Struct(raw); err != nil {
		return Candidate{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	id := strings.TrimSpace(raw.ChunkID)
	if id == "" {
		id = strings.TrimSpace(matchID)
	}
	if id == "" {
		return Candidate{}, fmt.Errorf("%w: missing chunk id", ErrMalformed)
	}

	priority := DefaultPriority
	if raw.Priority != nil {
		priority = *raw.Priority
	}

	return Candidate{
		Chunk: Chunk{
			ID:                   id,
			Text:                 raw.Text,
			Source:               raw.Source,
			Page:                 raw.Page,
			ContentType:          ContentType(raw.ContentType),
			Language:             raw.Language,
			ExtractionConfidence: *raw.Confidence,
			Priority:             priority,
			Domain:               raw.Domain,
		},
		RawScore: score,
	}, nil
}

// #endregion from-metadata
