package events

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Benny93/pfis-go/internal/lang"
	"github.com/Benny93/pfis-go/internal/patches"
)

// ErrMalformedPath is returned when gap removal finds a navigation sequence
// that cannot have been produced by the resolver.
var ErrMalformedPath = errors.New("malformed navigation path")

// Location is a point a programmer navigated to, optionally resolved to the
// patch that contains it.
type Location struct {
	Timestamp time.Time
	File      string
	Offset    int
	Kind      lang.PatchKind
	Patch     string

	// gap marks a location between two declarations.
	gap bool
}

// Resolved reports whether the location maps to a known patch.
func (l Location) Resolved() bool {
	return l.Patch != ""
}

// String returns the patch FQN, or "file@offset" for unresolved locations.
func (l Location) String() string {
	if l.Patch != "" {
		return l.Patch
	}
	return l.File + "@" + strconv.Itoa(l.Offset)
}

// Navigation is one move from a location to another. From is nil for the
// first navigation of a session.
type Navigation struct {
	From *Location
	To   Location
}

// ToUnknown reports whether the destination did not resolve to a patch.
func (n Navigation) ToUnknown() bool {
	return !n.To.Resolved()
}

// ToSameMethod reports whether source and destination are the same patch.
func (n Navigation) ToSameMethod() bool {
	return n.From != nil && n.From.Resolved() && n.From.Patch == n.To.Patch
}

// FromPatch returns the source patch FQN, or "".
func (n Navigation) FromPatch() string {
	if n.From == nil {
		return ""
	}
	return n.From.Patch
}

// FromString returns the printable source location.
func (n Navigation) FromString() string {
	if n.From == nil {
		return ""
	}
	return n.From.String()
}

func (n Navigation) String() string {
	return n.FromString() + " -> " + n.To.String()
}

// Path is the ordered navigation path of a session. Index 0 is the first
// navigation, which has no source and is never predicted.
type Path []Navigation

// Len returns the number of navigations.
func (p Path) Len() int {
	return len(p)
}

// PathOptions selects which patch kinds take part in the path.
type PathOptions struct {
	ExcludeChangelog bool
	ExcludeOutput    bool
}

func (o PathOptions) excludes(kind lang.PatchKind) bool {
	return (o.ExcludeChangelog && kind == lang.PatchChangelog) ||
		(o.ExcludeOutput && kind == lang.PatchOutput)
}

// BuildNavigationPath turns the text selection offsets of log into a
// navigation path.
//
// Selections repeating the previous file and offset are dropped. Each
// selection is resolved against the patches declared up to its timestamp.
// Navigations that stay inside one patch are collapsed, and navigations
// into the space between declarations are merged with the navigation that
// leaves that space.
func BuildNavigationPath(log *Log, opts PathOptions) (Path, error) {
	helper := log.Helper()
	selections, err := fileNavigations(log, opts)
	if err != nil {
		return nil, err
	}

	known := patches.New(helper)
	declarations := declarationRecords(log, opts)
	cursor := 0

	var path Path
	hasGap := false

	for _, to := range selections {
		for cursor < len(declarations) && !declarations[cursor].Timestamp.After(to.Timestamp) {
			applyDeclaration(known, declarations[cursor])
			cursor++
		}

		nav := Navigation{To: to}
		if len(path) > 0 {
			from := path[len(path)-1].To
			from.gap = false
			from.Patch = ""
			if p := known.FindByOffset(from.File, from.Offset); p != nil {
				from.Patch = p.FQN
			}
			nav.From = &from
		}
		if p := known.FindByOffset(to.File, to.Offset); p != nil {
			nav.To.Patch = p.FQN
		}

		if nav.ToSameMethod() {
			continue
		}
		if nav.From != nil && !nav.From.Resolved() {
			nav.From.gap = true
			path[len(path)-1].To.gap = true
			hasGap = true
		}
		path = append(path, nav)
	}

	if hasGap {
		return removeGaps(path)
	}
	return path, nil
}

// fileNavigations returns the de-duplicated text selections on files with a
// patch kind.
func fileNavigations(log *Log, opts PathOptions) ([]Location, error) {
	helper := log.Helper()

	var locations []Location
	prevFile, prevOffset, first := "", 0, true
	for _, r := range log.Records() {
		if r.Action != ActionTextSelectionOffset {
			continue
		}
		offset, err := strconv.Atoi(r.Referrer)
		if err != nil {
			return nil, fmt.Errorf("text selection in %q at %s: %w", r.Target, r.Timestamp.Format(time.RFC3339Nano), err)
		}

		duplicate := !first && prevFile == r.Target && prevOffset == offset
		prevFile, prevOffset, first = r.Target, offset, false
		if duplicate {
			continue
		}

		kind, ok := helper.PatchTypeForFile(r.Target)
		if !ok || opts.excludes(kind) {
			continue
		}
		locations = append(locations, Location{
			Timestamp: r.Timestamp,
			File:      r.Target,
			Offset:    offset,
			Kind:      kind,
		})
	}
	return locations, nil
}

func declarationRecords(log *Log, opts PathOptions) []Record {
	var records []Record
	for _, r := range log.Records() {
		switch r.Action {
		case ActionChangelogDeclaration:
			if opts.ExcludeChangelog {
				continue
			}
		case ActionOutputDeclaration:
			if opts.ExcludeOutput {
				continue
			}
		default:
			if !r.Action.IsDeclaration() {
				continue
			}
		}
		records = append(records, r)
	}
	return records
}

func applyDeclaration(known *patches.KnownPatches, r Record) {
	switch r.Action {
	case ActionMethodDeclaration, ActionChangelogDeclaration, ActionOutputDeclaration:
		known.Add(r.Referrer)
	case ActionMethodDeclarationOffset:
		if offset, err := strconv.Atoi(r.Referrer); err == nil && known.Get(r.Target) != nil {
			known.SetOffset(r.Target, offset)
		}
	case ActionMethodDeclarationLength:
		if length, err := strconv.Atoi(r.Referrer); err == nil {
			known.SetLength(r.Target, length)
		}
	}
}

// removeGaps merges every navigation into a gap with the navigation that
// leaves it.
func removeGaps(path Path) (Path, error) {
	var (
		final    Path
		gapStart *Location
		inGap    bool
	)

	for i, nav := range path {
		if !inGap {
			switch {
			case nav.From == nil:
				if nav.To.gap {
					gapStart, inGap = nil, true
				} else {
					final = append(final, nav)
				}
			case !nav.From.gap && nav.To.gap:
				gapStart, inGap = nav.From, true
			case nav.From.gap && nav.To.gap:
				return nil, fmt.Errorf("navigation %d leaves a gap it never entered: %w", i, ErrMalformedPath)
			default:
				if !nav.ToSameMethod() {
					final = append(final, nav)
				}
			}
			continue
		}

		switch {
		case nav.From != nil && nav.From.gap && !nav.To.gap:
			inGap = false
			merged := Navigation{From: gapStart, To: nav.To}
			if !merged.ToSameMethod() {
				final = append(final, merged)
			}
		case nav.From != nil && nav.From.gap && nav.To.gap:
			continue
		default:
			return nil, fmt.Errorf("navigation %d does not leave the open gap: %w", i, ErrMalformedPath)
		}
	}

	for i := range final {
		final[i].To.gap = false
		if final[i].From != nil {
			from := *final[i].From
			from.gap = false
			final[i].From = &from
		}
	}
	return final, nil
}
