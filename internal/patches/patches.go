// Package patches tracks the declared units (methods, changelog entries,
// output blocks) of a recorded session and resolves raw file offsets to
// them.
package patches

import (
	"sort"

	"github.com/Benny93/pfis-go/internal/graph"
	"github.com/Benny93/pfis-go/internal/lang"
)

// Patch is a declared unit with a byte-offset range. StartOffset and Length
// are -1 until the logger reports them.
type Patch struct {
	FQN         string
	File        string
	Kind        lang.PatchKind
	StartOffset int
	Length      int
}

// HasRange reports whether both offset and length are known.
func (p *Patch) HasRange() bool {
	return p.StartOffset >= 0 && p.Length >= 0
}

// Contains reports whether offset lies in [StartOffset, StartOffset+Length).
func (p *Patch) Contains(offset int) bool {
	if !p.HasRange() {
		return false
	}
	return offset >= p.StartOffset && offset < p.StartOffset+p.Length
}

// NodeType returns the graph category of the patch.
func (p *Patch) NodeType() graph.NodeType {
	switch p.Kind {
	case lang.PatchChangelog:
		return graph.NodeChangelog
	case lang.PatchOutput:
		return graph.NodeOutput
	case lang.PatchFile:
		return graph.NodeFile
	default:
		return graph.NodeMethod
	}
}

// KnownPatches is the mutable set of patches declared so far, updated as
// declaration, offset and length facts are replayed.
type KnownPatches struct {
	helper lang.Helper
	byFQN  map[string]*Patch
	byFile map[string][]*Patch
}

// New creates an empty set.
func New(helper lang.Helper) *KnownPatches {
	return &KnownPatches{
		helper: helper,
		byFQN:  make(map[string]*Patch),
		byFile: make(map[string][]*Patch),
	}
}

// Len returns the number of known patches.
func (k *KnownPatches) Len() int {
	return len(k.byFQN)
}

// Add registers fqn if it is not known yet and returns its patch. It returns
// false when the owning file cannot be derived from fqn.
func (k *KnownPatches) Add(fqn string) (*Patch, bool) {
	fqn = k.helper.FixSlashes(fqn)
	if p, ok := k.byFQN[fqn]; ok {
		return p, true
	}

	file, kind, ok := locate(k.helper, fqn)
	if !ok {
		return nil, false
	}

	p := &Patch{FQN: fqn, File: file, Kind: kind, StartOffset: -1, Length: -1}
	k.byFQN[fqn] = p
	k.byFile[file] = append(k.byFile[file], p)
	return p, true
}

// Get returns the patch for fqn, or nil.
func (k *KnownPatches) Get(fqn string) *Patch {
	return k.byFQN[k.helper.FixSlashes(fqn)]
}

// SetOffset records the start offset of fqn, registering it if needed.
func (k *KnownPatches) SetOffset(fqn string, offset int) bool {
	p, ok := k.Add(fqn)
	if ok {
		p.StartOffset = offset
	}
	return ok
}

// SetLength records the length of an already known patch.
func (k *KnownPatches) SetLength(fqn string, length int) bool {
	p := k.Get(fqn)
	if p == nil {
		return false
	}
	p.Length = length
	return true
}

// FindByOffset returns the patch of file whose range contains offset, or nil.
// When ranges overlap the latest declared patch wins.
func (k *KnownPatches) FindByOffset(file string, offset int) *Patch {
	list := k.byFile[k.helper.FixSlashes(file)]
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].Contains(offset) {
			return list[i]
		}
	}
	return nil
}

// AdjacentLists returns, for every file in path order, the patches with a
// known start offset sorted by that offset. Consecutive entries are
// physically adjacent declarations.
func (k *KnownPatches) AdjacentLists() [][]*Patch {
	files := make([]string, 0, len(k.byFile))
	for file := range k.byFile {
		files = append(files, file)
	}
	sort.Strings(files)

	var lists [][]*Patch
	for _, file := range files {
		var placed []*Patch
		for _, p := range k.byFile[file] {
			if p.StartOffset >= 0 {
				placed = append(placed, p)
			}
		}
		if len(placed) == 0 {
			continue
		}
		sort.SliceStable(placed, func(i, j int) bool {
			if placed[i].StartOffset != placed[j].StartOffset {
				return placed[i].StartOffset < placed[j].StartOffset
			}
			return placed[i].FQN < placed[j].FQN
		})
		lists = append(lists, placed)
	}
	return lists
}

// NodeTypeOf returns the graph category of the patch named fqn without
// registering it.
func NodeTypeOf(helper lang.Helper, fqn string) (graph.NodeType, bool) {
	file, kind, ok := locate(helper, helper.FixSlashes(fqn))
	if !ok {
		return graph.NodeUndefined, false
	}
	p := Patch{FQN: fqn, File: file, Kind: kind}
	return p.NodeType(), true
}

// locate derives the file and kind of a patch from its FQN. Patches in
// source files are methods.
func locate(helper lang.Helper, fqn string) (string, lang.PatchKind, bool) {
	file, ok := helper.FileOf(fqn)
	if !ok {
		return "", "", false
	}
	if helper.HasCorrectExtension(file) {
		return file, lang.PatchSource, true
	}
	if kind, ok := helper.PatchTypeForFile(file); ok {
		return file, kind, true
	}
	return file, lang.PatchSource, true
}
