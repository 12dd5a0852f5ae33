package output

import (
	"fmt"
	"time"
)

// Warning is a non-fatal condition reported alongside a command's result,
// e.g. a stale session reference or a disabled enforcement policy.
type Warning struct {
	Code      Code                   `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewWarningf creates a new warning with a formatted message.
func NewWarningf(code Code, format string, args ...interface{}) *Warning {
	return &Warning{
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
		Timestamp: time.Now().UTC(),
	}
}

// WithDetail adds a metadata field to the warning and returns it for chaining.
func (w *Warning) WithDetail(key string, value interface{}) *Warning {
	if w.Details == nil {
		w.Details = make(map[string]interface{})
	}
	w.Details[key] = value
	return w
}

// String returns a human-readable representation of the warning.
func (w *Warning) String() string {
	return "warning: " + w.Message
}
