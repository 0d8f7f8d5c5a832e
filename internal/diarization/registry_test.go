package diarization

import (
	"math"
	"reflect"
	"testing"
)

func TestRegistryAssignsNamesInFirstSeenOrder(t *testing.T) {
	r := NewRegistry()

	name, isNew := r.ResolveName(7)
	if name != "Speaker 1" || !isNew {
		t.Errorf("ResolveName(7) = (%q, %v), want (%q, true)", name, isNew, "Speaker 1")
	}
	name, isNew = r.ResolveName(2)
	if name != "Speaker 2" || !isNew {
		t.Errorf("ResolveName(2) = (%q, %v), want (%q, true)", name, isNew, "Speaker 2")
	}

	// Raw ids keep their names regardless of numeric value.
	name, isNew = r.ResolveName(7)
	if name != "Speaker 1" || isNew {
		t.Errorf("ResolveName(7) again = (%q, %v), want (%q, false)", name, isNew, "Speaker 1")
	}

	if got := r.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
	if got := r.Names(); !reflect.DeepEqual(got, []string{"Speaker 1", "Speaker 2"}) {
		t.Errorf("Names() = %v, want [Speaker 1 Speaker 2]", got)
	}
}

func TestRegistryTimingRunningAverage(t *testing.T) {
	r := NewRegistry()

	r.UpdateTiming(0, 2.0)
	p, ok := r.Profile(0)
	if !ok || p.AvgDuration != 2.0 || p.SegmentCount != 1 {
		t.Fatalf("Profile(0) = (%+v, %v), want avg 2.0 count 1", p, ok)
	}

	r.UpdateTiming(0, 4.0)
	p, _ = r.Profile(0)
	if math.Abs(p.AvgDuration-3.0) > 1e-9 || p.SegmentCount != 2 {
		t.Fatalf("Profile(0) = %+v, want avg 3.0 count 2", p)
	}

	r.UpdateTiming(0, 3.0)
	p, _ = r.Profile(0)
	if math.Abs(p.AvgDuration-3.0) > 1e-9 || p.SegmentCount != 3 {
		t.Fatalf("Profile(0) = %+v, want avg 3.0 count 3", p)
	}
}

func TestRegistryProfileMissing(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Profile(5); ok {
		t.Error("Profile(5) ok = true, want false for unseen speaker")
	}
}

func TestRegistryReset(t *testing.T) {
	r := NewRegistry()
	r.ResolveName(0)
	r.ResolveName(1)
	r.UpdateTiming(0, 2.0)
	r.Reset()

	if got := r.Count(); got != 0 {
		t.Errorf("Count() after Reset = %d, want 0", got)
	}
	if got := r.Names(); len(got) != 0 {
		t.Errorf("Names() after Reset = %v, want empty", got)
	}
	if _, ok := r.Profile(0); ok {
		t.Error("Profile(0) after Reset ok = true, want false")
	}

	// Numbering restarts from one.
	if name, _ := r.ResolveName(3); name != "Speaker 1" {
		t.Errorf("ResolveName(3) after Reset = %q, want %q", name, "Speaker 1")
	}
}
