// Package interval models half-open time windows and the overlap rule used
// by every reservation check in the system.
package interval

import "time"

// Range is the half-open window [Start, End). End == Start is a zero-width
// instant.
type Range struct {
	Start time.Time
	End   time.Time
}

// New builds a Range from a start and an optional end. A nil end collapses
// the window to a zero-width instant at start, mirroring how events without
// an explicit end are stored.
func New(start time.Time, end *time.Time) Range {
	if end == nil {
		return Range{Start: start, End: start}
	}
	return Range{Start: start, End: *end}
}

// At returns the zero-width window representing a single point in time.
// Overlapping it against [s, e) answers "is t inside the window".
func At(t time.Time) Range {
	return Range{Start: t, End: t}
}

// Overlaps reports whether two half-open windows share at least one instant.
// The comparisons are strict: windows that merely touch at an endpoint do
// not overlap.
func (r Range) Overlaps(o Range) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// IsInstant reports whether the window is zero-width.
func (r Range) IsInstant() bool {
	return !r.End.After(r.Start)
}

// Contains reports whether t falls inside the window.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}
