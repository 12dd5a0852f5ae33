package output

import (
	"encoding/json"
	"io"
)

// Envelope wraps --json command output: the payload, any warnings raised while
// producing it, and the error if the command failed.
type Envelope struct {
	Data     interface{} `json:"data,omitempty"`
	Warnings []*Warning  `json:"warnings,omitempty"`
	Error    *Error      `json:"error,omitempty"`
}

// NewEnvelope creates a new envelope with the given data.
func NewEnvelope(data interface{}) *Envelope {
	return &Envelope{
		Data:     data,
		Warnings: make([]*Warning, 0),
	}
}

// Encode serializes the envelope to a writer as indented JSON.
func (e *Envelope) Encode(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(e)
}
