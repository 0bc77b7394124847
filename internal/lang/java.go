package lang

import (
	"regexp"
	"strings"
)

var regexJavaPath = regexp.MustCompile(`^(.*)\.java$`)

// JavaHelper understands the Eclipse-style identifiers the Java logger
// records: files are paths ending in .java and classes and methods are
// written as "L/project/src/pkg/Class;" and "L/project/src/pkg/Class;.m(I)V".
//
// Changelog and output patches are identified as "<file path>;.<name>".
type JavaHelper struct {
	base
}

var _ Helper = (*JavaHelper)(nil)

// NewJavaHelper creates a Java helper. Patches whose file matches one of the
// gitignore-style exclude patterns are never navigable.
func NewJavaHelper(excludes []string) *JavaHelper {
	kinds := map[string]PatchKind{
		".java":        PatchSource,
		".txt":         PatchChangelog,
		".html.output": PatchOutput,
	}
	return &JavaHelper{base: newBase(".java", kinds, excludes)}
}

// Normalize reduces "L/p/src/a/B;.m()V" and "/p/src/a/B.java" both to
// "/p/src/a/B".
func (h *JavaHelper) Normalize(id string) string {
	s := h.FixSlashes(id)
	if m := regexFQN.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	if m := regexJavaPath.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

// Package returns the slash-separated package of id, e.g.
// "Lorg/gjt/sp/jedit/View$Inner;" -> "org/gjt/sp/jedit".
func (h *JavaHelper) Package(id string) string {
	normalized := h.Normalize(id)
	if normalized == "" {
		return ""
	}
	rest := normalized
	if i := strings.LastIndex(rest, "/src/"); i >= 0 {
		rest = rest[i+len("/src/"):]
	}
	rest = strings.TrimPrefix(rest, "/")
	if i := strings.LastIndex(rest, "/"); i >= 0 {
		return rest[:i]
	}
	return ""
}

func (h *JavaHelper) isMethodFQN(id string) bool {
	return strings.HasPrefix(id, "L") && strings.Contains(id, ";") && strings.Contains(id, ".")
}

// FileOf returns the source file a patch is declared in.
func (h *JavaHelper) FileOf(fqn string) (string, bool) {
	s := h.FixSlashes(fqn)
	if m := regexFQN.FindStringSubmatch(s); m != nil {
		return outerClass(m[1]) + ".java", true
	}
	if i := strings.Index(s, ";"); i > 0 {
		return s[:i], true
	}
	if _, ok := h.PatchTypeForFile(s); ok {
		return s, true
	}
	return "", false
}

// ClassOf returns "L<normalized>;" for a method FQN or a .java path.
func (h *JavaHelper) ClassOf(id string) (string, bool) {
	normalized := h.Normalize(id)
	if normalized == "" {
		return "", false
	}
	return "L" + normalized + ";", true
}

// IsNavigablePatch reports whether id is a method, changelog or output
// patch whose file is not excluded.
func (h *JavaHelper) IsNavigablePatch(id string) bool {
	if !strings.Contains(id, ";") || !strings.Contains(id, ".") {
		return false
	}
	file, ok := h.FileOf(id)
	if !ok {
		return false
	}
	return !h.excluded(file)
}

// PatchHierarchy returns [patch, class, file, package] for method patches
// and [patch, file] for other patches. Ancestors that cannot be derived are
// left out.
func (h *JavaHelper) PatchHierarchy(id string) []string {
	hierarchy := []string{id}
	if !h.isMethodFQN(id) {
		if file, ok := h.FileOf(id); ok && file != id {
			hierarchy = append(hierarchy, file)
		}
		return hierarchy
	}

	if class, ok := h.ClassOf(id); ok && class != id {
		hierarchy = append(hierarchy, class)
	}
	if file, ok := h.FileOf(id); ok {
		hierarchy = append(hierarchy, file)
	}
	if pkg := h.Package(id); pkg != "" {
		hierarchy = append(hierarchy, pkg)
	}
	return hierarchy
}

// outerClass strips nested class suffixes: "a/B$C" -> "a/B".
func outerClass(normalized string) string {
	if i := strings.Index(normalized, "$"); i >= 0 {
		return normalized[:i]
	}
	return normalized
}
