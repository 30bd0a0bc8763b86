package delegation

import (
	"github.com/google/uuid"

	"github.com/zombor/expense-cfo/internal/interpretation"
)

// Kind identifies the capability a request is addressed to.
type Kind string

const (
	// KindExtract requests receipt text extraction
	KindExtract Kind = "extract"
	// KindInterpret requests mapping of receipt text to a record
	KindInterpret Kind = "interpret"
	// KindNotify requests an outbound user notification
	KindNotify Kind = "notify"
)

// Request is the envelope handed to a delegated worker. The payload
// fields used depend on Kind; ID correlates the response back to the
// caller.
type Request struct {
	ID          uuid.UUID `json:"request_id"`
	Kind        Kind      `json:"kind"`
	UserID      string    `json:"user_id,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	RawText     string    `json:"raw_text,omitempty"`
	PriorAnswer string    `json:"prior_answer,omitempty"`
	Message     string    `json:"message,omitempty"`
}

// Response is the envelope a worker sends back. Text carries extraction
// output, Result carries interpretation output, and a non-empty Err means
// the stage failed.
type Response struct {
	ID     uuid.UUID             `json:"request_id"`
	Kind   Kind                  `json:"kind"`
	Text   string                `json:"text,omitempty"`
	Result interpretation.Result `json:"result,omitempty"`
	Err    string                `json:"error,omitempty"`
}
