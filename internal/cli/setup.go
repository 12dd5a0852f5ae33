package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/gusdev/gus/internal/xdg"

	"github.com/gusdev/gus/pkg/gus/config"
	"github.com/gusdev/gus/pkg/gus/output"
	"github.com/gusdev/gus/pkg/gus/session"
	"github.com/gusdev/gus/pkg/gus/shell"
	"github.com/gusdev/gus/pkg/gus/sshkey"
	"github.com/gusdev/gus/pkg/gus/store"
)

// DetectShell returns the basename of $SHELL, or "sh".
func DetectShell() string {
	if sh := filepath.Base(os.Getenv("SHELL")); sh != "." && sh != "/" && sh != "" {
		return sh
	}
	return "sh"
}

// Setup prints the shell init script for shellName. appPath is the gus
// binary the script calls; empty means the running executable.
func (c *CLI) Setup(shellName, appPath string) *output.Error {
	if shellName == "" {
		shellName = DetectShell()
	}
	if !shell.IsSupported(shellName) {
		return output.NewErrorf(output.CodeInvalidInput, "unsupported shell %q (supported: bash, zsh, sh)", shellName)
	}
	if appPath == "" {
		exe, err := os.Executable()
		if err != nil {
			return output.NewErrorf(output.CodeGeneralError, "failed to locate the gus binary: %v", err)
		}
		appPath = exe
	}

	cfg, err := c.store.Load()
	if err != nil {
		return output.AsError(err)
	}

	// A new terminal must not inherit the session of the shell it was
	// started from.
	sid := session.TerminalID()
	c.output.WriteData("%s", shell.Setup(shell.SetupOptions{
		AppPath:    appPath,
		Name:       "gus",
		SessionID:  sid,
		ScriptPath: shell.ScriptPath(c.xdgPaths.SessionDir(), sid),
		AutoSwitch: cfg.AutoSwitchEnabled,
	}))
	return nil
}

// InitConfig writes a default configuration file and creates the gus
// directories. It fails if the file already exists.
func InitConfig(configPath string, stdout, stderr io.Writer) *output.Error {
	xdgPaths, err := xdg.NewPaths()
	if err != nil {
		return output.NewErrorf(output.CodeConfigNotFound, "failed to get XDG paths: %v", err)
	}
	configPath = ResolveConfigPath(configPath, false, stderr)

	if _, err := os.Stat(configPath); err == nil {
		return output.NewErrorf(output.CodeConfigSaveError, "config file already exists: %s", configPath)
	}
	if err := xdgPaths.EnsureDirs(); err != nil {
		return output.NewErrorf(output.CodeConfigSaveError, "failed to create gus directories: %v", err)
	}

	st := store.New(configPath, config.DefaultConfig(xdgPaths.KeyDir()))
	if _, err := st.Init(); err != nil {
		return output.AsError(err)
	}

	out := output.NewHandler(stdout, stderr)
	out.Successf("Initialized config file: %s", configPath)
	if sshkey.ResolveKeygenProgram("") == "" {
		out.Infof("ssh-keygen not found; keys will be generated in-process")
	}
	return nil
}
