package autoswitch

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// ErrNotAbsolute is returned for patterns that do not start at the root or
// the home directory.
var ErrNotAbsolute = errors.New("pattern must be absolute or start with ~/")

// Pattern is a compiled directory glob. Alternations are expanded up front,
// so a Pattern is a set of alternatives, each a list of path segments.
type Pattern struct {
	source string
	alts   [][]segment
}

// segment matches one path component. A nil glob is `**`.
type segment struct {
	g glob.Glob
}

// Compile parses a directory glob. Supported syntax: `*`, `?` and `[...]`
// within one path segment, `**` as a whole segment for any number of
// segments, `{a,b}` alternation (nestable), and a leading `~` for home.
func Compile(pattern, home string) (*Pattern, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, errors.New("pattern is empty")
	}

	expanded, err := expandBraces(pattern)
	if err != nil {
		return nil, err
	}

	p := &Pattern{source: pattern}
	for _, alt := range expanded {
		alt, err = expandHome(alt, home)
		if err != nil {
			return nil, err
		}
		if !filepath.IsAbs(filepath.FromSlash(alt)) {
			return nil, fmt.Errorf("%q: %w", alt, ErrNotAbsolute)
		}
		var segs []segment
		for _, seg := range splitPath(alt) {
			if seg == "**" {
				segs = append(segs, segment{})
				continue
			}
			g, err := glob.Compile(seg)
			if err != nil {
				return nil, fmt.Errorf("%q: malformed segment %q: %v", alt, seg, err)
			}
			segs = append(segs, segment{g: g})
		}
		p.alts = append(p.alts, segs)
	}
	return p, nil
}

// String returns the pattern as written.
func (p *Pattern) String() string {
	return p.source
}

// Match reports whether dir, or one of its ancestors, matches the pattern.
// dir must be absolute and already cleaned; symlinks are not resolved.
func (p *Pattern) Match(dir string) bool {
	segs := splitPath(dir)
	for _, alt := range p.alts {
		if matchPrefix(alt, segs) {
			return true
		}
	}
	return false
}

// matchPrefix reports whether pat matches some leading run of segs. Whatever
// remains of segs afterwards lies below the matched directory.
func matchPrefix(pat []segment, segs []string) bool {
	if len(pat) == 0 {
		return true
	}
	if pat[0].g == nil {
		for i := 0; i <= len(segs); i++ {
			if matchPrefix(pat[1:], segs[i:]) {
				return true
			}
		}
		return false
	}
	if len(segs) == 0 {
		return false
	}
	if !pat[0].g.Match(segs[0]) {
		return false
	}
	return matchPrefix(pat[1:], segs[1:])
}

// splitPath turns an absolute path into its segments using '/' separators.
func splitPath(p string) []string {
	p = strings.Trim(filepath.ToSlash(path.Clean(filepath.ToSlash(p))), "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func expandHome(p, home string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	if home == "" {
		return "", errors.New("cannot expand ~: home directory unknown")
	}
	return filepath.ToSlash(home) + p[1:], nil
}

// expandBraces expands the first top-level {a,b} group and recurses, so
// "~/{work,oss}/{a,b}" yields four alternatives.
func expandBraces(s string) ([]string, error) {
	open := -1
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '{':
			if depth == 0 {
				open = i
			}
			depth++
		case '}':
			if depth == 0 {
				return nil, fmt.Errorf("unmatched '}' in %q", s)
			}
			depth--
			if depth == 0 {
				var out []string
				for _, choice := range splitAlternatives(s[open+1 : i]) {
					rest, err := expandBraces(s[:open] + choice + s[i+1:])
					if err != nil {
						return nil, err
					}
					out = append(out, rest...)
				}
				return out, nil
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unmatched '{' in %q", s)
	}
	return []string{s}, nil
}

// splitAlternatives splits the body of a brace group at top-level commas.
func splitAlternatives(body string) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, body[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, body[start:])
}
