// Package compiler incrementally builds the foraging graph from the facts
// of a recorded session.
package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Benny93/pfis-go/internal/events"
	"github.com/Benny93/pfis-go/internal/graph"
	"github.com/Benny93/pfis-go/internal/lang"
	"github.com/Benny93/pfis-go/internal/lexicon"
	"github.com/Benny93/pfis-go/internal/patches"
)

// Options selects optional graph topology.
type Options struct {
	// VariantTopology links every declared method or changelog to the same
	// unit in the other variants with a variant_of edge.
	VariantTopology bool
}

// Stats counts what the compiler has processed so far.
type Stats struct {
	Windows        int
	Facts          int
	Offsets        int
	Skipped        int
	WordCollisions int
}

// Compiler owns a graph and extends it window by window. It is not safe for
// concurrent use.
type Compiler struct {
	source    events.Source
	helper    lang.Helper
	tokenizer *lexicon.Tokenizer
	opts      Options
	logger    *slog.Logger

	graph *graph.KnowledgeGraph
	known *patches.KnownPatches
	bound time.Time
	stats Stats
}

// New creates a compiler with an empty graph.
func New(source events.Source, helper lang.Helper, tokenizer *lexicon.Tokenizer, opts Options, logger *slog.Logger) *Compiler {
	return &Compiler{
		source:    source,
		helper:    helper,
		tokenizer: tokenizer,
		opts:      opts,
		logger:    logger,
		graph:     graph.NewKnowledgeGraph(),
		known:     patches.New(helper),
	}
}

// Graph returns the graph built so far.
func (c *Compiler) Graph() *graph.KnowledgeGraph {
	return c.graph
}

// Bound returns the exclusive upper timestamp of the facts applied so far.
func (c *Compiler) Bound() time.Time {
	return c.bound
}

// Stats returns processing counters.
func (c *Compiler) Stats() Stats {
	return c.stats
}

// ExtendTo applies every fact logged in [Bound(), newBound) and advances
// the bound. Each fact first contributes its topology and then its scent;
// adjacency from the window's offsets is applied last. Extending to a bound
// that is not after the current one is a no-op.
func (c *Compiler) ExtendTo(ctx context.Context, newBound time.Time) error {
	if !newBound.After(c.bound) {
		return nil
	}

	facts, err := c.source.Facts(ctx, c.bound, newBound)
	if err != nil {
		return fmt.Errorf("fetching facts: %w", err)
	}
	offsets, err := c.source.Offsets(ctx, c.bound, newBound)
	if err != nil {
		return fmt.Errorf("fetching offsets: %w", err)
	}

	for _, f := range facts {
		if err := c.addTopology(f); err != nil {
			return fmt.Errorf("topology of %s at %s: %w", f.Action, f.Timestamp.Format(time.RFC3339Nano), err)
		}
		if err := c.addScent(f); err != nil {
			return fmt.Errorf("scent of %s at %s: %w", f.Action, f.Timestamp.Format(time.RFC3339Nano), err)
		}
	}
	if err := c.addAdjacency(offsets); err != nil {
		return fmt.Errorf("adjacency: %w", err)
	}

	c.stats.Windows++
	c.stats.Facts += len(facts)
	c.stats.Offsets += len(offsets)
	c.bound = newBound

	c.logger.Debug("graph extended",
		"bound", newBound,
		"facts", len(facts),
		"offsets", len(offsets),
		"nodes", c.graph.NodeCount(),
		"edges", c.graph.EdgeCount(),
	)
	return nil
}

// addScent links fact endpoints to the words they are made of. Structural
// facts contribute the verbatim words of both identities; scent facts link
// their target to the verbatim and the stemmed words of the source text.
func (c *Compiler) addScent(f events.Fact) error {
	switch {
	case f.Action.IsScent():
		tt := targetType(f)
		if tt == graph.NodeUndefined {
			c.skip(f)
			return nil
		}
		words := c.tokenizer.SplitVerbatim(f.Referrer)
		words = append(words, c.tokenizer.SplitCamelStem(f.Referrer)...)
		return c.linkWords(f.Target, tt, words)

	case f.Action.IsStructural():
		tt, rt := targetType(f), referrerType(f)
		if tt == graph.NodeUndefined || rt == graph.NodeUndefined {
			return nil
		}
		if err := c.linkWords(f.Target, tt, c.tokenizer.SplitVerbatim(f.Target)); err != nil {
			return err
		}
		return c.linkWords(f.Referrer, rt, c.tokenizer.SplitVerbatim(f.Referrer))
	}
	return nil
}

func (c *Compiler) linkWords(node string, nodeType graph.NodeType, words []string) error {
	for _, w := range words {
		if err := c.linkWord(node, nodeType, w); err != nil {
			return err
		}
	}
	return nil
}

// linkWord adds a contains edge from node to word.
func (c *Compiler) linkWord(node string, nodeType graph.NodeType, word string) error {
	return c.addEdge(node, word, nodeType, graph.NodeWord, graph.EdgeContains)
}

// addEdge inserts an edge unless one endpoint already exists as a word and
// is requested as code, or the other way round. Such clashes are counted and
// the edge is dropped; clashes between two code categories stay fatal.
func (c *Compiler) addEdge(n1, n2 string, t1, t2 graph.NodeType, rel graph.EdgeType) error {
	if c.wordClash(n1, t1) || c.wordClash(n2, t2) {
		return nil
	}
	return c.graph.AddEdge(n1, n2, t1, t2, rel)
}

func (c *Compiler) wordClash(node string, t graph.NodeType) bool {
	existing, ok := c.graph.NodeType(node)
	if !ok || existing == t || (existing != graph.NodeWord && t != graph.NodeWord) {
		return false
	}
	c.stats.WordCollisions++
	c.logger.Debug("word and code node share an identity", "node", node, "existing", existing, "requested", t)
	return true
}

func (c *Compiler) skip(f events.Fact) {
	c.stats.Skipped++
	c.logger.Debug("fact skipped", "action", f.Action, "target", f.Target)
}

// addTopology applies the relation table entry of a fact and the extra
// edges that tie files, classes and packages to the root.
func (c *Compiler) addTopology(f events.Fact) error {
	switch {
	case f.Action == events.ActionSimilarPatch:
		return c.addSimilar(f)
	case f.Action.IsStructural():
		return c.addStructure(f)
	}
	return nil
}

func (c *Compiler) addStructure(f events.Fact) error {
	tt, rt := targetType(f), referrerType(f)
	if tt == graph.NodeUndefined || rt == graph.NodeUndefined {
		c.skip(f)
		return nil
	}
	switch f.Action {
	case events.ActionPackage:
		if err := c.addEdge(f.Target, f.Referrer, tt, rt, graph.EdgeContains); err != nil {
			return err
		}
		if err := c.addEdge(graph.RootNode, f.Referrer, graph.NodeSpecial, rt, graph.EdgeContains); err != nil {
			return err
		}
		if class, ok := c.helper.ClassOf(f.Target); ok {
			return c.addEdge(f.Target, class, tt, graph.NodeClass, graph.EdgeContains)
		}
		c.logger.Debug("no class for file", "file", f.Target)
		return nil

	case events.ActionImports:
		class, ok := c.helper.ClassOf(f.Target)
		if !ok {
			c.skip(f)
			return nil
		}
		if err := c.addEdge(f.Target, class, tt, graph.NodeClass, graph.EdgeContains); err != nil {
			return err
		}
		if err := c.addEdge(class, f.Referrer, graph.NodeClass, rt, graph.EdgeImports); err != nil {
			return err
		}
		pkg := c.helper.Package(f.Target)
		if pkg == "" {
			return nil
		}
		if err := c.addEdge(pkg, f.Target, graph.NodePackage, tt, graph.EdgeContains); err != nil {
			return err
		}
		return c.addEdge(graph.RootNode, pkg, graph.NodeSpecial, graph.NodePackage, graph.EdgeContains)

	case events.ActionMethodInvocation:
		if err := c.addEdge(f.Target, f.Referrer, tt, rt, graph.EdgeCalls); err != nil {
			return err
		}
		if class, ok := c.helper.ClassOf(f.Referrer); ok {
			return c.addEdge(class, f.Referrer, graph.NodeClass, rt, graph.EdgeContains)
		}
		return nil

	case events.ActionMethodDeclaration, events.ActionChangelogDeclaration:
		if err := c.addEdge(f.Target, f.Referrer, tt, rt, graph.EdgeContains); err != nil {
			return err
		}
		if !c.opts.VariantTopology {
			return nil
		}
		if err := c.addVariants(f.Referrer, rt); err != nil {
			return err
		}
		return c.addVariants(f.Target, tt)

	default:
		return c.addEdge(f.Target, f.Referrer, tt, rt, topology[f.Action])
	}
}

// addVariants links node to every node of the same category that is the
// same unit in another variant.
func (c *Compiler) addVariants(node string, nodeType graph.NodeType) error {
	for _, other := range c.graph.NodesByType(nodeType) {
		if other == node || !c.helper.IsVariantOf(node, other) {
			continue
		}
		if err := c.addEdge(node, other, nodeType, nodeType, graph.EdgeVariantOf); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) addSimilar(f events.Fact) error {
	tt, ok := c.patchType(f.Target)
	if !ok {
		c.skip(f)
		return nil
	}
	rt, ok := c.patchType(f.Referrer)
	if !ok {
		c.skip(f)
		return nil
	}
	return c.addEdge(f.Target, f.Referrer, tt, rt, graph.EdgeSimilar)
}

// patchType prefers the category a patch already has in the graph.
func (c *Compiler) patchType(fqn string) (graph.NodeType, bool) {
	if t, ok := c.graph.NodeType(fqn); ok {
		return t, true
	}
	return patches.NodeTypeOf(c.helper, fqn)
}

// addAdjacency records the offsets of the window and links consecutive
// patches of every file that received a new offset.
func (c *Compiler) addAdjacency(offsets []events.OffsetFact) error {
	if len(offsets) == 0 {
		return nil
	}

	touched := make(map[string]bool)
	for _, o := range offsets {
		if !c.known.SetOffset(o.Method, o.StartOffset) {
			c.logger.Debug("offset for unplaceable patch", "method", o.Method)
			continue
		}
		touched[c.known.Get(o.Method).File] = true
	}

	for _, list := range c.known.AdjacentLists() {
		if !touched[list[0].File] {
			continue
		}
		for i := 1; i < len(list); i++ {
			cur, prev := list[i], list[i-1]
			if err := c.addEdge(cur.FQN, prev.FQN, cur.NodeType(), prev.NodeType(), graph.EdgeAdjacent); err != nil {
				return err
			}
		}
	}
	return nil
}
