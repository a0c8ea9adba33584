// Package selector decides which frames of an ordered sequence are
// near-duplicates of the frame kept before them.
//
// The scan keeps a single reference frame: the most recently kept one.
// Every following frame is measured against that reference only. A frame
// within the threshold is discarded and the reference stays put, so a run
// of small frame-to-frame changes cannot drift away from the first frame
// of the run unnoticed. A frame beyond the threshold is kept and becomes
// the new reference.
package selector

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/frame-dedup/internal/fingerprint"
)

var (
	ErrNegativeThreshold = errors.New("threshold must not be negative")
	ErrEmptySequence     = errors.New("sequence is empty")
	ErrDuplicateID       = errors.New("duplicate frame identifier")
)

// Entry is one frame of the input sequence.
type Entry struct {
	ID          string
	Fingerprint fingerprint.Fingerprint
}

// DistanceFunc measures two fingerprints. It must be symmetric and
// return zero for identical fingerprints.
type DistanceFunc func(a, b fingerprint.Fingerprint) int

// Observer is notified about every decision in sequence order.
// The first entry is reported as kept with distance 0.
type Observer interface {
	Kept(e Entry, distance int)
	Discarded(e Entry, reference Entry, distance int)
}

// Result is the outcome of a scan. Kept and Discarded are in sequence
// order and together cover every entry the scan visited.
type Result struct {
	Threshold int
	Kept      []string
	Discarded []string

	discard map[string]struct{}
}

// Contains reports whether id was selected for removal.
func (r *Result) Contains(id string) bool {
	_, ok := r.discard[id]
	return ok
}

// Visited is the number of entries the scan has decided on.
func (r *Result) Visited() int {
	return len(r.Kept) + len(r.Discarded)
}

// Selector is the streaming form of the scan. Entries must be offered in
// sequence order from a single goroutine.
type Selector struct {
	threshold int
	distance  DistanceFunc
	observer  Observer

	reference *Entry
	seen      map[string]struct{}
	result    Result
}

// New creates a Selector. A nil distance uses fingerprint.Distance; a nil
// observer is allowed.
func New(threshold int, distance DistanceFunc, observer Observer) (*Selector, error) {
	if threshold < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeThreshold, threshold)
	}
	if distance == nil {
		distance = fingerprint.Distance
	}
	return &Selector{
		threshold: threshold,
		distance:  distance,
		observer:  observer,
		seen:      make(map[string]struct{}),
		result: Result{
			Threshold: threshold,
			discard:   make(map[string]struct{}),
		},
	}, nil
}

// Offer decides on the next entry and reports whether it was kept.
func (s *Selector) Offer(e Entry) (bool, error) {
	if _, dup := s.seen[e.ID]; dup {
		return false, fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
	}
	s.seen[e.ID] = struct{}{}

	if s.reference == nil {
		s.keep(e, 0)
		return true, nil
	}

	d := s.distance(s.reference.Fingerprint, e.Fingerprint)
	if d <= s.threshold {
		s.result.Discarded = append(s.result.Discarded, e.ID)
		s.result.discard[e.ID] = struct{}{}
		if s.observer != nil {
			s.observer.Discarded(e, *s.reference, d)
		}
		return false, nil
	}

	s.keep(e, d)
	return true, nil
}

func (s *Selector) keep(e Entry, d int) {
	ref := e
	s.reference = &ref
	s.result.Kept = append(s.result.Kept, e.ID)
	if s.observer != nil {
		s.observer.Kept(e, d)
	}
}

// Reference returns the current reference entry, if any.
func (s *Selector) Reference() (Entry, bool) {
	if s.reference == nil {
		return Entry{}, false
	}
	return *s.reference, true
}

// Result returns the decisions made so far. The returned value must not
// be modified while the Selector is still in use.
func (s *Selector) Result() *Result {
	return &s.result
}

// Select runs the scan over a complete sequence. If ctx is cancelled
// the partial result is returned together with the context error; the
// entries decided so far remain a valid result.
func Select(ctx context.Context, entries []Entry, threshold int, distance DistanceFunc, observer Observer) (*Result, error) {
	s, err := New(threshold, distance, observer)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return s.Result(), ErrEmptySequence
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return s.Result(), err
		}
		if _, err := s.Offer(e); err != nil {
			return s.Result(), err
		}
	}
	return s.Result(), nil
}
