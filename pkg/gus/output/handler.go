package output

import (
	"fmt"
	"io"
	"strings"
)

// Handler manages output emission based on mode and format.
// Warnings go to stderr (unless silent), data and success lines to stdout,
// and in JSON mode everything is collected into a single envelope.
type Handler struct {
	stdout   io.Writer
	stderr   io.Writer
	silent   bool
	json     bool
	warnings []*Warning
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithSilent sets silent mode (suppress warning output to stderr).
func WithSilent(silent bool) HandlerOption {
	return func(h *Handler) {
		h.silent = silent
	}
}

// WithJSON sets JSON output mode.
func WithJSON(json bool) HandlerOption {
	return func(h *Handler) {
		h.json = json
	}
}

// NewHandler creates a new output handler with the given writers and options.
func NewHandler(stdout, stderr io.Writer, opts ...HandlerOption) *Handler {
	h := &Handler{
		stdout:   stdout,
		stderr:   stderr,
		warnings: make([]*Warning, 0),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Warn records a warning and, in text mode, prints it immediately.
func (h *Handler) Warn(w *Warning) {
	h.warnings = append(h.warnings, w)
	if !h.silent && !h.json {
		_, _ = fmt.Fprintf(h.stderr, "warning: %s\n", w.Message)
	}
}

// Warnf creates and emits a warning with a formatted message.
func (h *Handler) Warnf(code Code, format string, args ...interface{}) {
	h.Warn(NewWarningf(code, format, args...))
}

// Infof prints an informational line to stderr (text mode, not silent).
// Used for status messages that must not pollute stdout, which the shell
// integration evaluates.
func (h *Handler) Infof(format string, args ...interface{}) {
	if h.silent || h.json {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	_, _ = fmt.Fprint(h.stderr, msg)
}

// Successf emits a formatted success message to stdout (text mode only).
func (h *Handler) Successf(format string, args ...interface{}) {
	if !h.json {
		_, _ = fmt.Fprintf(h.stdout, format+"\n", args...)
	}
}

// WriteData writes raw data to stdout (text mode only).
// Does not add a newline; caller is responsible for formatting.
func (h *Handler) WriteData(format string, args ...interface{}) {
	if !h.json {
		_, _ = fmt.Fprintf(h.stdout, format, args...)
	}
}

// WriteLine writes a line of output to stdout (text mode only).
func (h *Handler) WriteLine(message string) {
	if !h.json {
		if !strings.HasSuffix(message, "\n") {
			message += "\n"
		}
		_, _ = fmt.Fprint(h.stdout, message)
	}
}

// WriteJSON writes the JSON envelope with collected warnings and optional error.
func (h *Handler) WriteJSON(data interface{}, err *Error) error {
	env := NewEnvelope(data)
	env.Warnings = append(env.Warnings, h.warnings...)
	env.Error = err
	return env.Encode(h.stdout)
}

// Warnings returns collected warnings.
func (h *Handler) Warnings() []*Warning {
	return h.warnings
}

// IsJSON returns whether JSON mode is enabled.
func (h *Handler) IsJSON() bool {
	return h.json
}

// Stdout returns the stdout writer.
func (h *Handler) Stdout() io.Writer {
	return h.stdout
}

// Stderr returns the stderr writer.
func (h *Handler) Stderr() io.Writer {
	return h.stderr
}

// WithJSONMode returns a new handler with JSON mode set.
// The new handler shares stdout/stderr but has fresh warning collection.
func (h *Handler) WithJSONMode(enabled bool) *Handler {
	return &Handler{
		stdout:   h.stdout,
		stderr:   h.stderr,
		silent:   h.silent,
		json:     enabled,
		warnings: make([]*Warning, 0),
	}
}
