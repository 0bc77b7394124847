// Package events holds the facts recorded by the IDE logger: structural and
// scent facts consumed by the graph compiler, method offset facts used for
// adjacency, and the navigation path replayed by the evaluator.
package events

// Action is the kind of a logged fact.
type Action int

const (
	ActionUnknown Action = iota
	ActionPackage
	ActionImports
	ActionExtends
	ActionImplements
	ActionMethodDeclaration
	ActionConstructorInvocation
	ActionMethodInvocation
	ActionVariableDeclaration
	ActionVariableType
	ActionConstructorInvocationScent
	ActionMethodDeclarationScent
	ActionMethodInvocationScent
	ActionMethodDeclarationOffset
	ActionMethodDeclarationLength
	ActionChangelogDeclaration
	ActionOutputDeclaration
	ActionTextSelectionOffset
	ActionSimilarPatch

	// ActionCount sizes tables indexed by Action.
	ActionCount
)

// actionNames are the strings the logger writes into the action column.
var actionNames = [ActionCount]string{
	ActionUnknown:                    "",
	ActionPackage:                    "Package",
	ActionImports:                    "Imports",
	ActionExtends:                    "Extends",
	ActionImplements:                 "Implements",
	ActionMethodDeclaration:          "Method declaration",
	ActionConstructorInvocation:      "Constructor invocation",
	ActionMethodInvocation:           "Method invocation",
	ActionVariableDeclaration:        "Variable declaration",
	ActionVariableType:               "Variable type",
	ActionConstructorInvocationScent: "Constructor invocation scent",
	ActionMethodDeclarationScent:     "Method declaration scent",
	ActionMethodInvocationScent:      "Method invocation scent",
	ActionMethodDeclarationOffset:    "Method declaration offset",
	ActionMethodDeclarationLength:    "Method declaration length",
	ActionChangelogDeclaration:       "Changelog declaration",
	ActionOutputDeclaration:          "Output declaration",
	ActionTextSelectionOffset:        "Text selection offset",
	ActionSimilarPatch:               "Similar patch",
}

var actionsByName = func() map[string]Action {
	m := make(map[string]Action, len(actionNames))
	for a, name := range actionNames {
		if name != "" {
			m[name] = Action(a)
		}
	}
	return m
}()

// ParseAction maps a logged action string to an Action. Unrecognised
// strings yield ActionUnknown.
func ParseAction(s string) Action {
	return actionsByName[s]
}

func (a Action) String() string {
	if a < 0 || a >= ActionCount || a == ActionUnknown {
		return "unknown"
	}
	return actionNames[a]
}

// IsStructural reports whether the fact describes code structure and feeds
// the topology pass.
func (a Action) IsStructural() bool {
	switch a {
	case ActionPackage, ActionImports, ActionExtends, ActionImplements,
		ActionMethodDeclaration, ActionConstructorInvocation, ActionMethodInvocation,
		ActionVariableDeclaration, ActionVariableType,
		ActionChangelogDeclaration, ActionOutputDeclaration:
		return true
	}
	return false
}

// IsScent reports whether the referrer of the fact carries source text.
func (a Action) IsScent() bool {
	switch a {
	case ActionConstructorInvocationScent, ActionMethodDeclarationScent, ActionMethodInvocationScent:
		return true
	}
	return false
}

// IsDeclaration reports whether the fact declares or locates a patch.
func (a Action) IsDeclaration() bool {
	switch a {
	case ActionMethodDeclaration, ActionMethodDeclarationOffset, ActionMethodDeclarationLength,
		ActionChangelogDeclaration, ActionOutputDeclaration:
		return true
	}
	return false
}
