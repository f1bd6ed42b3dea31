package pipeline

import (
	"strings"

	"github.com/danielpatrickdp/agri-rag/go-controller/internal/retrieval"
)

// #region messages
type notice struct {
	message    string
	suggestion string
}

var notices = map[string]notice{
	ReasonInvalidQuery: {
		"Please type a question.",
		"For example: What is the MSP for wheat this season?",
	},
	ReasonOutOfDomain: {
		"This system answers agriculture-related questions only.",
		"Ask about crops, farming practices, markets or schemes.",
	},
	retrieval.ReasonNoMatches: {
		"No documents matching this question were found.",
		"Try rephrasing with the crop, scheme or region name.",
	},
	retrieval.ReasonAllLowConfidence: {
		"The matching documents are too poorly scanned to answer from.",
		"Try a question covered by a clearer source document.",
	},
	retrieval.ReasonInsufficientCoverage: {
		"Only fragments of an answer were found in the documents.",
		"Ask a narrower question, for example about one crop or one scheme.",
	},
	retrieval.ReasonLowConfidence: {
		"No document closely matches this question.",
		"Add details such as the crop, season or location.",
	},
	ReasonCategoryViolation: {
		"The evidence found is not reliable enough for this kind of question.",
		"Please consult your local agriculture office or an official source.",
	},
	ReasonHallucination: {
		"The drafted answer could not be verified against the documents.",
		"Try rephrasing the question more specifically.",
	},
	ReasonNotFoundInContext: {
		"The documents found do not contain this answer.",
		"Try asking about a related topic.",
	},
	ReasonLowFinalConfidence: {
		"I am not confident enough in this answer to share it.",
		"Please confirm with an agriculture extension officer.",
	},
	ReasonLLMFailure: {
		"The answer service is temporarily unavailable.",
		"Please try again in a moment.",
	},
}

var missingRequiredNotice = notice{
	"The documents do not contain the table data this question needs.",
	"Ask about the process instead of exact figures, or name the scheme or crop.",
}

var defaultNotice = notice{
	"Unable to answer with available information.",
	"Try rephrasing or upload relevant documents.",
}

// noticeFor returns the user-facing message and suggestion for a refusal reason.
func noticeFor(reason string) (message, suggestion string) {
	n, ok := notices[reason]
	if !ok {
		n = defaultNotice
		if strings.HasPrefix(reason, retrieval.ReasonMissingRequiredPfx) {
			n = missingRequiredNotice
		}
	}
	return n.message, n.suggestion
}

// #endregion messages
