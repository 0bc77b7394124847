package events

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/Benny93/pfis-go/internal/lang"
)

// Record is one raw row of the session log.
type Record struct {
	Timestamp time.Time
	Action    Action
	Target    string
	Referrer  string
}

// Fact is a structural, scent or similarity fact for the graph compiler.
type Fact struct {
	Action    Action
	Target    string
	Referrer  string
	Timestamp time.Time
}

// OffsetFact places a method declaration at a byte offset of its file.
type OffsetFact struct {
	File        string
	Method      string
	StartOffset int
	Timestamp   time.Time
}

// Source supplies the facts logged in a half-open time window
// [from, to), ordered by timestamp.
type Source interface {
	Facts(ctx context.Context, from, to time.Time) ([]Fact, error)
	Offsets(ctx context.Context, from, to time.Time) ([]OffsetFact, error)
}

// Log is an in-memory, timestamp-ordered session log.
type Log struct {
	helper  lang.Helper
	records []Record
}

var _ Source = (*Log)(nil)

// NewLog sorts records by timestamp (stable) and wraps them. Slashes in
// targets and referrers are normalised with helper.
func NewLog(helper lang.Helper, records []Record) *Log {
	sorted := make([]Record, len(records))
	for i, r := range records {
		r.Target = helper.FixSlashes(r.Target)
		r.Referrer = helper.FixSlashes(r.Referrer)
		sorted[i] = r
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return &Log{helper: helper, records: sorted}
}

// Len returns the number of records.
func (l *Log) Len() int {
	return len(l.records)
}

// Records returns the records in timestamp order. The slice must not be
// modified.
func (l *Log) Records() []Record {
	return l.records
}

// Helper returns the language helper the log was built with.
func (l *Log) Helper() lang.Helper {
	return l.helper
}

// window returns the records with from <= timestamp < to. A zero from
// means the start of the log.
func (l *Log) window(from, to time.Time) []Record {
	lo := 0
	if !from.IsZero() {
		lo = sort.Search(len(l.records), func(i int) bool {
			return !l.records[i].Timestamp.Before(from)
		})
	}
	hi := sort.Search(len(l.records), func(i int) bool {
		return !l.records[i].Timestamp.Before(to)
	})
	if hi < lo {
		return nil
	}
	return l.records[lo:hi]
}

// Facts returns the structural, scent and similarity facts in [from, to).
func (l *Log) Facts(ctx context.Context, from, to time.Time) ([]Fact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var facts []Fact
	for _, r := range l.window(from, to) {
		if !r.Action.IsStructural() && !r.Action.IsScent() && r.Action != ActionSimilarPatch {
			continue
		}
		facts = append(facts, Fact{
			Action:    r.Action,
			Target:    r.Target,
			Referrer:  r.Referrer,
			Timestamp: r.Timestamp,
		})
	}
	return facts, nil
}

// Offsets returns the method declaration offsets logged in [from, to).
func (l *Log) Offsets(ctx context.Context, from, to time.Time) ([]OffsetFact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var offsets []OffsetFact
	for _, r := range l.window(from, to) {
		if r.Action != ActionMethodDeclarationOffset {
			continue
		}
		offset, err := strconv.Atoi(r.Referrer)
		if err != nil {
			return nil, fmt.Errorf("offset of %q at %s: %w", r.Target, r.Timestamp.Format(time.RFC3339Nano), err)
		}
		file, _ := l.helper.FileOf(r.Target)
		offsets = append(offsets, OffsetFact{
			File:        file,
			Method:      r.Target,
			StartOffset: offset,
			Timestamp:   r.Timestamp,
		})
	}
	return offsets, nil
}
