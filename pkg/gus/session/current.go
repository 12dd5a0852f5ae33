package session

import (
	"os"
	"strings"
)

// EnvSessionID is exported by the shell integration so every gus invocation
// from one terminal agrees on the session id, even from subshells.
const EnvSessionID = "GUS_SESSION_ID"

// CurrentID returns the session id of the calling terminal.
func CurrentID() string {
	if id := strings.TrimSpace(os.Getenv(EnvSessionID)); id != "" {
		return id
	}
	return platformID()
}

// FromEnv reports whether CurrentID would come from the environment.
func FromEnv() bool {
	return strings.TrimSpace(os.Getenv(EnvSessionID)) != ""
}

// TerminalID derives the session id from the terminal alone, ignoring
// GUS_SESSION_ID. Shell setup uses it so that a new terminal never inherits
// the id of the shell that happened to start it.
func TerminalID() string {
	return platformID()
}
