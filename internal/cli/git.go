package cli

import (
	"context"
	"os"
	"time"

	"github.com/gusdev/gus/pkg/gus/guard"
	"github.com/gusdev/gus/pkg/gus/output"
)

// Git runs git in dir through the enforcement guard. Network commands are
// refused unless the terminal's identity matches the repository author, and
// then run with that identity's SSH key.
func (c *CLI) Git(ctx context.Context, dir string, args []string) *output.Error {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return output.NewErrorf(output.CodeGeneralError, "failed to get working directory: %v", err)
		}
		dir = wd
	}
	_, err := c.guard.Run(ctx, c.sessionID, dir, args, guard.Stdio{
		Stdin:  c.stdin,
		Stdout: c.output.Stdout(),
		Stderr: c.output.Stderr(),
	})
	if err != nil {
		return output.AsError(err)
	}
	return nil
}

// Prune removes sessions idle for longer than olderThan. Zero uses the
// configured session TTL.
func (c *CLI) Prune(olderThan time.Duration) *output.Error {
	if olderThan <= 0 {
		cfg, err := c.store.Load()
		if err != nil {
			return output.AsError(err)
		}
		olderThan = cfg.SessionTTL
	}
	n, err := c.sessions.Prune(olderThan)
	if err != nil {
		return output.AsError(err)
	}
	c.output.Successf("Pruned %d session(s) idle for more than %s", n, olderThan)
	return nil
}
