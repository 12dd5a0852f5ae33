package sshkey

import (
	"os"
	"os/exec"
	"runtime"
)

// ResolveKeygenProgram returns the ssh-keygen executable to use, or "" if
// none can be found.
// Priority:
// 1. Configured path (from config ssh_keygen_program)
// 2. "ssh-keygen" in PATH
// 3. Common install locations
func ResolveKeygenProgram(configured string) string {
	if configured != "" {
		return configured
	}
	if path, err := exec.LookPath("ssh-keygen"); err == nil {
		return path
	}
	for _, path := range commonKeygenPaths() {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() && (runtime.GOOS == "windows" || info.Mode()&0o111 != 0) {
			return path
		}
	}
	return ""
}

// commonKeygenPaths returns where OpenSSH is usually installed.
func commonKeygenPaths() []string {
	if runtime.GOOS == "windows" {
		return []string{`C:\Windows\System32\OpenSSH\ssh-keygen.exe`}
	}
	return []string{
		"/usr/bin/ssh-keygen",
		"/usr/local/bin/ssh-keygen",
		"/opt/homebrew/bin/ssh-keygen",
	}
}
