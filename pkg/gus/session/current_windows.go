//go:build windows

package session

import (
	"fmt"
	"os"
)

// platformID falls back to the parent process, normally the shell.
func platformID() string {
	return fmt.Sprintf("ppid-%d", os.Getppid())
}
