// Package graph provides the typed foraging graph for PFIS.
//
// It defines the node categories that represent code-level entities
// (packages, files, classes, methods, ...) and vocabulary words, and the
// relation tags carried by the undirected edges between them.
package graph

// NodeType is the category of a graph node. A node's category is fixed
// when the node is first inserted.
type NodeType string

const (
	NodeUndefined NodeType = ""
	NodePackage   NodeType = "package"
	NodeFile      NodeType = "file"
	NodeClass     NodeType = "class"
	NodeMethod    NodeType = "method"
	NodeVariable  NodeType = "variable"
	NodePrimitive NodeType = "primitive"
	NodeWord      NodeType = "word"
	NodeSpecial   NodeType = "special"
	NodeVariant   NodeType = "variant"
	NodeChangelog NodeType = "changelog"
	NodeOutput    NodeType = "output"
)

// EdgeType is the relation tag of an undirected edge.
type EdgeType string

const (
	EdgeUndefined  EdgeType = ""
	EdgeContains   EdgeType = "contains"
	EdgeImports    EdgeType = "imports"
	EdgeExtends    EdgeType = "extends"
	EdgeImplements EdgeType = "implements"
	EdgeCalls      EdgeType = "calls"
	EdgeAdjacent   EdgeType = "adjacent"
	EdgeTypeOf     EdgeType = "type"
	EdgeVariantOf  EdgeType = "variant_of"
	EdgeSimilar    EdgeType = "similar"
)

// RootNode is the shared special node every package hangs off.
const RootNode = "Packages"

// StructuralEdgeTypes lists the relations stored in the base slot of an edge.
func StructuralEdgeTypes() []EdgeType {
	return []EdgeType{
		EdgeContains,
		EdgeImports,
		EdgeExtends,
		EdgeImplements,
		EdgeCalls,
		EdgeAdjacent,
		EdgeTypeOf,
	}
}

// AllEdgeTypes lists every relation, structural first.
func AllEdgeTypes() []EdgeType {
	return append(StructuralEdgeTypes(), EdgeVariantOf, EdgeSimilar)
}

// IsOverlay reports whether the relation is stored as a second edge next to
// the structural one instead of overwriting it.
func (e EdgeType) IsOverlay() bool {
	return e == EdgeVariantOf || e == EdgeSimilar
}

// IsValid reports whether e is one of the declared relations.
func (e EdgeType) IsValid() bool {
	for _, known := range AllEdgeTypes() {
		if e == known {
			return true
		}
	}
	return false
}

// ParseEdgeType converts a configuration string into an EdgeType.
func ParseEdgeType(s string) (EdgeType, bool) {
	e := EdgeType(s)
	return e, e.IsValid()
}

// nodeLevels is the hierarchy depth used by phased spreading. Categories
// without an entry have no level and are skipped by level-restricted passes.
var nodeLevels = map[NodeType]int{
	NodePackage:   0,
	NodeFile:      1,
	NodeClass:     1,
	NodeMethod:    2,
	NodeChangelog: 2,
	NodeOutput:    2,
	NodeWord:      3,
}

// MaxLevel is the deepest level of the hierarchy table.
const MaxLevel = 3

// Level returns the hierarchy depth of the category.
func (t NodeType) Level() (int, bool) {
	level, ok := nodeLevels[t]
	return level, ok
}

// IsPatch reports whether nodes of this category are navigable patches.
func (t NodeType) IsPatch() bool {
	return t == NodeMethod || t == NodeChangelog || t == NodeOutput
}
