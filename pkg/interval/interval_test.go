package interval

import (
	"testing"
	"time"
)

var base = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func at(h int) time.Time {
	return base.Add(time.Duration(h) * time.Hour)
}

func window(startHour, endHour int) Range {
	return Range{Start: at(startHour), End: at(endHour)}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Range
		want bool
	}{
		{"identical windows", window(0, 2), window(0, 2), true},
		{"partial overlap", window(0, 2), window(1, 3), true},
		{"b inside a", window(0, 4), window(1, 2), true},
		{"a inside b", window(1, 2), window(0, 4), true},
		{"disjoint", window(0, 1), window(2, 3), false},
		{"touching endpoints do not overlap", window(0, 2), window(2, 4), false},
		{"touching endpoints reversed", window(2, 4), window(0, 2), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("Overlaps() is not symmetric: reversed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOverlapsInstantQueryWindow(t *testing.T) {
	// A point-in-time check (start == end == now) must still detect windows
	// that are in progress at that instant.
	now := At(at(1))

	if !now.Overlaps(window(0, 2)) {
		t.Error("instant inside an open window should overlap")
	}
	if now.Overlaps(window(2, 4)) {
		t.Error("instant before a window should not overlap")
	}
	if now.Overlaps(window(0, 1)) {
		t.Error("instant at a window's end boundary should not overlap (half-open)")
	}
	if !At(at(0)).Overlaps(window(0, 1)) {
		t.Error("instant at a window's start boundary should overlap (half-open)")
	}
}

func TestNewCollapsesMissingEnd(t *testing.T) {
	r := New(at(1), nil)
	if !r.IsInstant() {
		t.Error("missing end should produce a zero-width window")
	}
	if !r.Start.Equal(r.End) {
		t.Errorf("expected End == Start, got Start=%v End=%v", r.Start, r.End)
	}

	end := at(3)
	r = New(at(1), &end)
	if r.IsInstant() {
		t.Error("explicit end should produce a non-degenerate window")
	}
}

func TestTwoInstantsNeverOverlap(t *testing.T) {
	// Two zero-width windows share no instant even when they coincide:
	// [t, t) is empty.
	if At(at(1)).Overlaps(At(at(1))) {
		t.Error("coincident instants should not overlap")
	}
	if At(at(1)).Overlaps(At(at(2))) {
		t.Error("distinct instants should not overlap")
	}
}

func TestContains(t *testing.T) {
	r := window(0, 2)
	if !r.Contains(at(0)) {
		t.Error("start is inside a half-open window")
	}
	if !r.Contains(at(1)) {
		t.Error("interior point is inside")
	}
	if r.Contains(at(2)) {
		t.Error("end is outside a half-open window")
	}
}
