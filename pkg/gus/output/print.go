package output

import (
	"fmt"
	"io"
)

// PrintError writes an error message to the given writer and returns the exit code.
func PrintError(w io.Writer, err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	e := AsError(err)
	_, _ = fmt.Fprintf(w, "error: %s\n", e.Message)
	return e.ExitCode()
}
