package diarization

import "fmt"

// TimingProfile tracks the running average segment duration for one raw
// speaker id.
type TimingProfile struct {
	AvgDuration  float64
	SegmentCount int
}

// Registry assigns stable display names to raw speaker ids and owns the
// per-speaker timing profiles. Names are assigned in first-seen order
// ("Speaker 1", "Speaker 2", ...), never renamed and never reused within
// a session.
type Registry struct {
	names    map[int]string
	order    []int
	profiles map[int]TimingProfile
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		names:    make(map[int]string),
		profiles: make(map[int]TimingProfile),
	}
}

// ResolveName returns the display name for a raw speaker id, assigning
// the next "Speaker N" name on first sight. The second return value
// reports whether this call created the name.
func (r *Registry) ResolveName(speakerID int) (string, bool) {
	if name, ok := r.names[speakerID]; ok {
		return name, false
	}
	name := fmt.Sprintf("Speaker %d", len(r.names)+1)
	r.names[speakerID] = name
	r.order = append(r.order, speakerID)
	return name, true
}

// Count returns the number of distinct speakers seen so far.
func (r *Registry) Count() int {
	return len(r.names)
}

// Names returns the display names in first-seen order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.order))
	for _, id := range r.order {
		names = append(names, r.names[id])
	}
	return names
}

// UpdateTiming folds one finalized segment duration into the speaker's
// running average.
func (r *Registry) UpdateTiming(speakerID int, segmentDuration float64) {
	p, ok := r.profiles[speakerID]
	if !ok {
		r.profiles[speakerID] = TimingProfile{AvgDuration: segmentDuration, SegmentCount: 1}
		return
	}
	p.AvgDuration = (p.AvgDuration*float64(p.SegmentCount) + segmentDuration) / float64(p.SegmentCount+1)
	p.SegmentCount++
	r.profiles[speakerID] = p
}

// Profile returns the timing profile for a speaker, if one exists.
func (r *Registry) Profile(speakerID int) (TimingProfile, bool) {
	p, ok := r.profiles[speakerID]
	return p, ok
}

// Reset forgets all names and profiles.
func (r *Registry) Reset() {
	r.names = make(map[int]string)
	r.order = nil
	r.profiles = make(map[int]TimingProfile)
}
