package compiler

import (
	"strings"

	"github.com/Benny93/pfis-go/internal/events"
	"github.com/Benny93/pfis-go/internal/graph"
)

// targetTypes and referrerTypes give the category of each endpoint of a
// fact. A zero entry is NodeUndefined: the fact is skipped.
var targetTypes = [events.ActionCount]graph.NodeType{
	events.ActionPackage:                    graph.NodeFile,
	events.ActionImports:                    graph.NodeFile,
	events.ActionExtends:                    graph.NodeClass,
	events.ActionImplements:                 graph.NodeClass,
	events.ActionMethodDeclaration:          graph.NodeClass,
	events.ActionMethodInvocation:           graph.NodeMethod,
	events.ActionVariableType:               graph.NodeVariable,
	events.ActionConstructorInvocationScent: graph.NodeMethod,
	events.ActionMethodDeclarationScent:     graph.NodeMethod,
	events.ActionMethodInvocationScent:      graph.NodeMethod,
	events.ActionChangelogDeclaration:       graph.NodeFile,
	events.ActionOutputDeclaration:          graph.NodeFile,
}

var referrerTypes = [events.ActionCount]graph.NodeType{
	events.ActionPackage:              graph.NodePackage,
	events.ActionImports:              graph.NodeClass,
	events.ActionExtends:              graph.NodeClass,
	events.ActionImplements:           graph.NodeClass,
	events.ActionMethodDeclaration:    graph.NodeMethod,
	events.ActionMethodInvocation:     graph.NodeMethod,
	events.ActionVariableDeclaration:  graph.NodeVariable,
	events.ActionChangelogDeclaration: graph.NodeChangelog,
	events.ActionOutputDeclaration:    graph.NodeOutput,
}

// targetType returns the category of a fact's target. Variables are
// declared either in a class or in a method, told apart by the '.' of the
// method part.
func targetType(f events.Fact) graph.NodeType {
	if f.Action == events.ActionVariableDeclaration {
		if strings.Contains(f.Target, ".") {
			return graph.NodeMethod
		}
		return graph.NodeClass
	}
	return targetTypes[f.Action]
}

// referrerType returns the category of a fact's referrer. Single-letter
// variable types are JVM primitive descriptors.
func referrerType(f events.Fact) graph.NodeType {
	if f.Action == events.ActionVariableType {
		if len(f.Referrer) == 1 {
			return graph.NodePrimitive
		}
		return graph.NodeClass
	}
	return referrerTypes[f.Action]
}

// topology maps an action to the relation between its target and referrer.
var topology = [events.ActionCount]graph.EdgeType{
	events.ActionPackage:              graph.EdgeContains,
	events.ActionImports:              graph.EdgeImports,
	events.ActionExtends:              graph.EdgeExtends,
	events.ActionImplements:           graph.EdgeImplements,
	events.ActionMethodDeclaration:    graph.EdgeContains,
	events.ActionMethodInvocation:     graph.EdgeCalls,
	events.ActionVariableDeclaration:  graph.EdgeContains,
	events.ActionVariableType:         graph.EdgeTypeOf,
	events.ActionChangelogDeclaration: graph.EdgeContains,
	events.ActionOutputDeclaration:    graph.EdgeContains,
}
