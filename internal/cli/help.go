package cli

import (
	"crypto/fips140"
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/gusdev/gus/pkg/gus/sshkey"
)

// VersionInfo represents version information as a structured object.
type VersionInfo struct {
	Version        string     `json:"version"`
	Commit         string     `json:"commit"`
	BuiltAt        string     `json:"builtAt"`
	GoBuildVersion string     `json:"goBuildVersion"`
	Keygen         string     `json:"keygen"`
	Crypto         CryptoInfo `json:"crypto"`
}

// CryptoInfo describes the crypto module used for in-process key generation.
type CryptoInfo struct {
	GOFIPS140 string `json:"GOFIPS140,omitempty"`
	Enabled   bool   `json:"enabled"`
}

func newVersionInfo(version, commit, date string) VersionInfo {
	if version == "" {
		version = "unknown"
	}
	if commit == "" {
		commit = "none"
	}
	if date == "" {
		date = "unknown"
	}
	keygen := sshkey.ResolveKeygenProgram("")
	if keygen == "" {
		keygen = "built-in"
	}
	return VersionInfo{
		Version:        version,
		Commit:         commit,
		BuiltAt:        date,
		GoBuildVersion: runtime.Version(),
		Keygen:         keygen,
		Crypto: CryptoInfo{
			GOFIPS140: fipsBuildSetting(),
			Enabled:   fips140.Enabled(),
		},
	}
}

// PrintVersion prints the version information
func PrintVersion(w io.Writer, version, commit, date string) {
	info := newVersionInfo(version, commit, date)
	_, _ = fmt.Fprintf(w, "version: %s\n", info.Version)
	_, _ = fmt.Fprintf(w, "commit: %s\n", info.Commit)
	_, _ = fmt.Fprintf(w, "built at: %s\n", info.BuiltAt)
	_, _ = fmt.Fprintf(w, "ssh-keygen: %s\n", info.Keygen)
	_, _ = fmt.Fprintf(w, "crypto: %s\n", cryptoStatus(info.Crypto))
}

// PrintVersionJSON prints version information as JSON.
func PrintVersionJSON(w io.Writer, version, commit, date string) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(newVersionInfo(version, commit, date))
}

func cryptoStatus(info CryptoInfo) string {
	if info.GOFIPS140 == "" {
		return "Go standard library (not FIPS validated)"
	}
	status := "FIPS 140-3 mode disabled"
	if info.Enabled {
		status = "FIPS 140-3 mode enabled"
	}
	return fmt.Sprintf("%s GOFIPS140=%s (%s)", runtime.Version(), info.GOFIPS140, status)
}

// fipsBuildSetting returns the GOFIPS140 setting used at build time, if any.
func fipsBuildSetting() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == "GOFIPS140" {
			return setting.Value
		}
	}
	return ""
}
