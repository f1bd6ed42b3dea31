package evidence

import "strconv"

// #region content-type

// ContentType classifies how a chunk's text was extracted.
type ContentType string

const (
	ContentText      ContentType = "text"
	ContentOCR       ContentType = "ocr"
	ContentTableRow  ContentType = "table_row"
	ContentProcedure ContentType = "procedure"
)

// ContentTypes lists every known content type in a stable order.
var ContentTypes = []ContentType{ContentText, ContentOCR, ContentTableRow, ContentProcedure}

// Valid reports whether c is one of the known content types.
func (c ContentType) Valid() bool {
	switch c {
	case ContentText, ContentOCR, ContentTableRow, ContentProcedure:
		return true
	}
	return false
}

// #endregion content-type

// #region chunk

// DefaultPriority is assigned to chunks whose metadata carries no priority.
const DefaultPriority = 3

// Chunk is an immutable unit of extracted document evidence, produced by ingestion.
type Chunk struct {
	ID                   string      `json:"chunk_id"`
	Text                 string      `json:"text"`
	Source               string      `json:"source,omitempty"`
	Page                 int         `json:"page,omitempty"`
	ContentType          ContentType `json:"content_type"`
	Language             string      `json:"language,omitempty"`
	ExtractionConfidence float64     `json:"confidence"`
	Priority             int         `json:"priority"`
	Domain               string      `json:"domain,omitempty"`
}

// PageKey identifies a page within its source document.
func (c Chunk) PageKey() string {
	return c.Source + "#" + strconv.Itoa(c.Page)
}

// #endregion chunk

// #region candidate

// Candidate is a chunk scored against one query during a single retrieval call.
type Candidate struct {
	Chunk
	RawScore        float64 `json:"raw_score"`
	NormalizedScore float64 `json:"normalized_score"`
	AdjustedScore   float64 `json:"adjusted_score"`
}

// #endregion candidate

// #region content-mix

// ContentMix counts candidates per content type.
type ContentMix map[ContentType]int

// MixOf tallies the content types of the given candidates.
func MixOf(cands []Candidate) ContentMix {
	mix := make(ContentMix, len(ContentTypes))
	for _, c := range cands {
		mix[c.ContentType]++
	}
	return mix
}

// Has reports whether at least one candidate of type t is present.
func (m ContentMix) Has(t ContentType) bool {
	return m[t] > 0
}

// Total returns the number of candidates counted.
func (m ContentMix) Total() int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}

// #endregion content-mix
