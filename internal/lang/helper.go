// Package lang maps the raw identifiers recorded by the IDE logger onto
// graph identities for one programming language.
package lang

import (
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// PatchKind is the kind of declared unit a navigation can land in.
type PatchKind string

const (
	PatchSource    PatchKind = "source_code"
	PatchChangelog PatchKind = "change_log"
	PatchOutput    PatchKind = "output"
	PatchFile      PatchKind = "file"
)

// Helper is the pluggable language knowledge used by the compiler, the
// navigation path builder and the prediction algorithms.
type Helper interface {
	// FixSlashes collapses every run of forward or back slashes into '/'.
	FixSlashes(s string) string

	// Normalize reduces a file path or FQN to its class path, or "" when
	// the identifier is not recognised.
	Normalize(id string) string

	// Package returns the package of id, or "".
	Package(id string) string

	// Project returns the root folder (project) of id, or "".
	Project(id string) string

	// HasCorrectExtension reports whether path is a source file of the language.
	HasCorrectExtension(path string) bool

	// PatchTypeForFile returns the patch kind navigations into path resolve to.
	PatchTypeForFile(path string) (PatchKind, bool)

	// FileOf returns the file path a patch FQN is declared in.
	FileOf(fqn string) (string, bool)

	// ClassOf returns the class FQN that owns a method FQN or file path.
	ClassOf(id string) (string, bool)

	// IsNavigablePatch reports whether id names a patch a programmer can
	// navigate to and which is therefore a ranking candidate.
	IsNavigablePatch(id string) bool

	// PatchHierarchy returns id followed by its ancestors, innermost first.
	PatchHierarchy(id string) []string

	// IsVariantOf reports whether a and b are the same unit in two
	// different variants (projects).
	IsVariantOf(a, b string) bool

	// VariantName returns the variant (project) id belongs to.
	VariantName(id string) string
}

var (
	regexFixSlashes = regexp.MustCompile(`[\\/]+`)
	regexFQN        = regexp.MustCompile(`^L([^;]+);.*`)
	regexProject    = regexp.MustCompile(`^/(.*?)/src/(.*)$`)
)

// base holds the language-independent parts of a Helper.
type base struct {
	extension string
	kinds     map[string]PatchKind
	exclude   gitignore.Matcher
}

func newBase(extension string, kinds map[string]PatchKind, excludes []string) base {
	b := base{extension: extension, kinds: kinds}
	if len(excludes) > 0 {
		patterns := make([]gitignore.Pattern, 0, len(excludes))
		for _, p := range excludes {
			p = strings.TrimSpace(p)
			if p == "" || strings.HasPrefix(p, "#") {
				continue
			}
			patterns = append(patterns, gitignore.ParsePattern(p, nil))
		}
		b.exclude = gitignore.NewMatcher(patterns)
	}
	return b
}

func (b base) FixSlashes(s string) string {
	return regexFixSlashes.ReplaceAllString(s, "/")
}

func (b base) HasCorrectExtension(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), b.extension)
}

// PatchTypeForFile matches the longest registered suffix so that
// "x.html.output" is not mistaken for a plain ".output" file.
func (b base) PatchTypeForFile(path string) (PatchKind, bool) {
	lower := strings.ToLower(path)
	best, bestLen := PatchKind(""), 0
	for suffix, kind := range b.kinds {
		if strings.HasSuffix(lower, suffix) && len(suffix) > bestLen {
			best, bestLen = kind, len(suffix)
		}
	}
	return best, bestLen > 0
}

// splitProject returns the project folder and the project-relative rest
// of a path (a leading "L" of an FQN is ignored).
func (b base) splitProject(s string) (string, string, bool) {
	s = b.FixSlashes(s)
	if strings.HasPrefix(s, "L/") {
		s = s[1:]
	}
	m := regexProject.FindStringSubmatch(s)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

func (b base) Project(id string) string {
	project, _, _ := b.splitProject(id)
	return project
}

func (b base) VariantName(id string) string {
	return b.Project(id)
}

func (b base) IsVariantOf(x, y string) bool {
	px, rx, okx := b.splitProject(x)
	py, ry, oky := b.splitProject(y)
	return okx && oky && px != py && rx == ry
}

// excluded reports whether path matches one of the configured exclude
// patterns. Paths are matched relative to their leading slash.
func (b base) excluded(path string) bool {
	if b.exclude == nil || path == "" {
		return false
	}
	parts := strings.Split(strings.Trim(b.FixSlashes(path), "/"), "/")
	return b.exclude.Match(parts, false)
}
