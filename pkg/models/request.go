package models

import "time"

// Request is an incoming free-text work request. Requests are immutable:
// every field is set at creation and never changed afterwards.
type Request struct {
	// Text is the raw request text.
	Text string `json:"text"`
	// Workflow optionally names a workflow template to use verbatim,
	// bypassing classification.
	Workflow string `json:"workflow,omitempty"`
	// CreatedAt is when the request was accepted.
	CreatedAt time.Time `json:"created_at"`
}

// NewRequest creates a Request stamped with the current time.
func NewRequest(text, workflow string) Request {
	return Request{
		Text:      text,
		Workflow:  workflow,
		CreatedAt: time.Now(),
	}
}
