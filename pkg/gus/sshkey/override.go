package sshkey

import (
	"os/exec"
	"strings"

	"github.com/gusdev/gus/pkg/gus/config"
	"github.com/gusdev/gus/pkg/gus/shell"
)

// Environment variables git consults to pick its ssh command.
const (
	EnvGitSSHCommand = "GIT_SSH_COMMAND"
	EnvGitSSH        = "GIT_SSH"
)

// KeyOverride selects one private key for one git invocation. It only ever
// touches the environment of the child process it is applied to, so it needs
// no cleanup and cannot leak into other terminals or later commands.
type KeyOverride struct {
	PrivatePath string
}

// Override builds the override for key.
func (b *Broker) Override(key config.KeyPair) KeyOverride {
	return KeyOverride{PrivatePath: key.PrivatePath}
}

// SSHCommand is the value for GIT_SSH_COMMAND: use exactly this key and
// nothing the agent or ssh config would offer first.
func (o KeyOverride) SSHCommand() string {
	return "ssh -i " + shell.Quote(o.PrivatePath) + " -o IdentitiesOnly=yes"
}

// Env returns base with any inherited ssh command selection replaced by this
// override.
func (o KeyOverride) Env(base []string) []string {
	env := make([]string, 0, len(base)+1)
	for _, kv := range base {
		if strings.HasPrefix(kv, EnvGitSSHCommand+"=") || strings.HasPrefix(kv, EnvGitSSH+"=") {
			continue
		}
		env = append(env, kv)
	}
	return append(env, EnvGitSSHCommand+"="+o.SSHCommand())
}

// Apply sets the override on cmd. If cmd.Env is nil the current process
// environment is used as the base.
func (o KeyOverride) Apply(cmd *exec.Cmd) {
	cmd.Env = o.Env(cmd.Environ())
}
