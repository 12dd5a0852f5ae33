package guard

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopasspw/gitconfig"
)

// GitUser is the author identity git would use in a repository.
type GitUser struct {
	Name  string
	Email string
}

// ReadGitUser resolves user.name and user.email for the repository that
// contains dir, honouring git's scope order (environment, worktree, local,
// global, system). Outside a repository only the user and system scopes
// apply. A non-empty gitDir names the repository explicitly, as
// `git --git-dir` does.
func ReadGitUser(dir, gitDir string) GitUser {
	cs := gitconfig.New()
	cs.NoWrites = true

	gitDir, commonDir := FindGitDir(dir, gitDir)
	workdir := commonDir
	if commonDir != "" && gitDir != commonDir {
		if rel, err := filepath.Rel(commonDir, gitDir); err == nil {
			cs.WorktreeConfig = filepath.Join(rel, "config.worktree")
		}
	}
	cs.LoadAll(workdir)

	return GitUser{
		Name:  strings.TrimSpace(cs.Get("user.name")),
		Email: strings.TrimSpace(cs.Get("user.email")),
	}
}

// FindGitDir walks up from dir to the enclosing repository and returns its
// git directory and the common directory holding the shared config. The two
// differ for linked worktrees. Both are empty outside a repository.
// An explicit git directory wins over GIT_DIR, which wins over the walk.
func FindGitDir(dir, explicit string) (gitDir, commonDir string) {
	gitDir = explicit
	if gitDir == "" {
		gitDir = os.Getenv("GIT_DIR")
	}
	if gitDir != "" {
		if !filepath.IsAbs(gitDir) {
			gitDir = filepath.Join(dir, gitDir)
		}
		return gitDir, commonDirOf(gitDir)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", ""
	}
	for d := abs; ; d = filepath.Dir(d) {
		if g := gitDirAt(filepath.Join(d, ".git")); g != "" {
			return g, commonDirOf(g)
		}
		if filepath.Dir(d) == d {
			return "", ""
		}
	}
}

// gitDirAt resolves a .git entry: either the directory itself or a file
// with a "gitdir:" pointer, as used by worktrees and submodules.
func gitDirAt(dotGit string) string {
	info, err := os.Stat(dotGit)
	if err != nil {
		return ""
	}
	if info.IsDir() {
		return dotGit
	}

	f, err := os.Open(dotGit)
	if err != nil {
		return ""
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if target, ok := strings.CutPrefix(strings.TrimSpace(scanner.Text()), "gitdir:"); ok {
			target = strings.TrimSpace(target)
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(dotGit), target)
			}
			return filepath.Clean(target)
		}
	}
	return ""
}

// commonDirOf follows a worktree's "commondir" file, if any.
func commonDirOf(gitDir string) string {
	data, err := os.ReadFile(filepath.Join(gitDir, "commondir"))
	if err != nil {
		return gitDir
	}
	common := strings.TrimSpace(string(data))
	if !filepath.IsAbs(common) {
		common = filepath.Join(gitDir, common)
	}
	return filepath.Clean(common)
}
