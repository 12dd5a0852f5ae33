package output

// Code represents a structured error or warning code.
// These are stable string identifiers for machine-readable error handling.
type Code string

// Error codes - grouped by category
const (
	// General errors (exit code 1)
	CodeGeneralError    Code = "GENERAL_ERROR"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeOperationFailed Code = "OPERATION_FAILED"
	CodeUsageError      Code = "USAGE_ERROR"

	// Config errors (exit code 2)
	CodeConfigNotFound   Code = "CONFIG_NOT_FOUND"
	CodeConfigCorrupt    Code = "CONFIG_CORRUPT"
	CodeConfigSaveError  Code = "CONFIG_SAVE_ERROR"
	CodeLockContention   Code = "LOCK_CONTENTION"
	CodeInvalidPattern   Code = "INVALID_PATTERN"
	CodeDuplicatePattern Code = "DUPLICATE_PATTERN"

	// Identity errors (exit code 3)
	CodeNotFound      Code = "NOT_FOUND"
	CodeDuplicateID   Code = "DUPLICATE_ID"
	CodeIdentityInUse Code = "IDENTITY_IN_USE"

	// Key errors (exit code 4)
	CodeKeyError           Code = "KEY_ERROR"
	CodeKeyExists          Code = "KEY_EXISTS"
	CodeKeyFileMissing     Code = "KEY_FILE_MISSING"
	CodePassphraseTooShort Code = "PASSPHRASE_TOO_SHORT"
	CodeKeygenFailed       Code = "KEYGEN_FAILED"

	// Git errors (exit code 5)
	CodeGitError Code = "GIT_ERROR"

	// Session errors (exit code 7)
	CodeNoActiveIdentity Code = "NO_ACTIVE_IDENTITY"

	// Enforcement errors (exit code 8)
	CodeIdentityMismatch Code = "IDENTITY_MISMATCH"
)

// Warning codes
const (
	WarnStaleSession      Code = "STALE_SESSION"
	WarnSessionFromParent Code = "SESSION_FROM_PARENT"
	WarnAutoSwitchOff     Code = "AUTO_SWITCH_DISABLED"
	WarnKeyFileMissing    Code = "KEY_FILE_MISSING"
	WarnPermissive        Code = "ENFORCEMENT_DISABLED"
)
