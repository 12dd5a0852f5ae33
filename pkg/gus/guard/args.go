package guard

import (
	"path/filepath"
	"strings"
)

// networkCommands are the git subcommands that talk to a remote.
var networkCommands = map[string]bool{
	"clone":     true,
	"fetch":     true,
	"pull":      true,
	"push":      true,
	"ls-remote": true,
	"remote":    true,
	"submodule": true,
}

// globalsWithValue are git's global options that take a separate argument.
var globalsWithValue = map[string]bool{
	"-C":          true,
	"-c":          true,
	"--git-dir":   true,
	"--work-tree": true,
	"--namespace": true,
}

// Invocation is a parsed git command line.
type Invocation struct {
	Subcommand string
	// Dir is the directory git will run in after applying any -C options.
	Dir string
	// GitDir is the repository named by --git-dir, resolved against Dir.
	// Empty when the option is absent.
	GitDir string
}

// ParseArgs finds the subcommand in a git argument list, skipping global
// options, and applies -C and --git-dir the way git does.
func ParseArgs(dir string, args []string) Invocation {
	inv := Invocation{Dir: dir}
	var gitDir string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			inv.Subcommand = arg
			break
		}
		if v, ok := strings.CutPrefix(arg, "--git-dir="); ok {
			gitDir = v
			continue
		}
		if globalsWithValue[arg] && i+1 < len(args) {
			switch arg {
			case "-C":
				inv.Dir = resolveDir(inv.Dir, args[i+1])
			case "--git-dir":
				gitDir = args[i+1]
			}
			i++
		}
	}
	// git resolves a relative --git-dir after every -C has been applied.
	if gitDir != "" {
		inv.GitDir = resolveDir(inv.Dir, gitDir)
	}
	return inv
}

// IsNetwork reports whether the invocation contacts a remote.
func (inv Invocation) IsNetwork() bool {
	return networkCommands[inv.Subcommand]
}

func resolveDir(base, dir string) string {
	if dir == "" {
		return base
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(base, dir)
}
