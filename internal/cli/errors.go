package cli

import (
	"errors"
	"io"
	"os/exec"
	"syscall"

	"github.com/gusdev/gus/pkg/gus/output"
)

// ExitCode represents the exit code for an error.
// This is an alias to the output package.
type ExitCode = output.ExitCode

// Exit code constants - aliases to output package.
const (
	ExitSuccess          = output.ExitSuccess
	ExitGeneralError     = output.ExitGeneralError
	ExitConfigError      = output.ExitConfigError
	ExitIdentityError    = output.ExitIdentityError
	ExitKeyError         = output.ExitKeyError
	ExitGitError         = output.ExitGitError
	ExitNoActiveIdentity = output.ExitNoActiveIdentity
	ExitIdentityMismatch = output.ExitIdentityMismatch
)

// PrintError prints an error to w and returns the exit code.
// A git child that exited non-zero has already reported its own failure,
// so only its status is passed through.
func PrintError(w io.Writer, err error) ExitCode {
	if status, ok := GitExitStatus(err); ok {
		return ExitCode(status)
	}
	return output.PrintError(w, err)
}

// GitExitStatus extracts the exit status of a git child process from err.
// A child killed by a signal reports 128+signal, as shells do.
func GitExitStatus(err error) (int, bool) {
	if !output.IsCode(err, output.CodeGitError) {
		return 0, false
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 0, false
	}
	if code := exitErr.ExitCode(); code >= 0 {
		return code, true
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal()), true
	}
	return int(ExitGitError), true
}
