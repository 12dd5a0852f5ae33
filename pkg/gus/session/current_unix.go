//go:build unix

package session

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// platformID uses the POSIX session id: every process started from one
// terminal shares the session of its login shell.
func platformID() string {
	sid, err := unix.Getsid(0)
	if err != nil {
		return fmt.Sprintf("ppid-%d", os.Getppid())
	}
	return fmt.Sprintf("sid-%d", sid)
}
