package output

// ExitCode represents numeric exit codes returned by the gus binary.
type ExitCode int

const (
	ExitSuccess          ExitCode = 0
	ExitGeneralError     ExitCode = 1
	ExitConfigError      ExitCode = 2
	ExitIdentityError    ExitCode = 3
	ExitKeyError         ExitCode = 4
	ExitGitError         ExitCode = 5
	ExitNoActiveIdentity ExitCode = 7
	ExitIdentityMismatch ExitCode = 8
)

// codeToExitCode maps structured codes to numeric exit codes.
var codeToExitCode = map[Code]ExitCode{
	// General errors (exit code 1)
	CodeGeneralError:    ExitGeneralError,
	CodeInvalidInput:    ExitGeneralError,
	CodeOperationFailed: ExitGeneralError,
	CodeUsageError:      ExitGeneralError,

	// Config errors (exit code 2)
	CodeConfigNotFound:   ExitConfigError,
	CodeConfigCorrupt:    ExitConfigError,
	CodeConfigSaveError:  ExitConfigError,
	CodeLockContention:   ExitConfigError,
	CodeInvalidPattern:   ExitConfigError,
	CodeDuplicatePattern: ExitConfigError,

	// Identity errors (exit code 3)
	CodeNotFound:      ExitIdentityError,
	CodeDuplicateID:   ExitIdentityError,
	CodeIdentityInUse: ExitIdentityError,

	// Key errors (exit code 4)
	CodeKeyError:           ExitKeyError,
	CodeKeyExists:          ExitKeyError,
	CodeKeyFileMissing:     ExitKeyError,
	CodePassphraseTooShort: ExitKeyError,
	CodeKeygenFailed:       ExitKeyError,

	// Git errors (exit code 5)
	CodeGitError: ExitGitError,

	// Session errors (exit code 7)
	CodeNoActiveIdentity: ExitNoActiveIdentity,

	// Enforcement errors (exit code 8)
	CodeIdentityMismatch: ExitIdentityMismatch,
}

// GetExitCode returns the numeric exit code for a structured code.
func (c Code) GetExitCode() ExitCode {
	if exit, ok := codeToExitCode[c]; ok {
		return exit
	}
	return ExitGeneralError
}

// Int returns the integer value of the exit code.
func (e ExitCode) Int() int {
	return int(e)
}
