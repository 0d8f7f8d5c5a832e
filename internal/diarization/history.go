package diarization

// DefaultHistorySize is the capacity of the speaker history window.
const DefaultHistorySize = 10

// HistoryWindow keeps a bounded FIFO of the most recently validated
// speaker ids and a per-speaker stability score derived from it.
//
// The score for a speaker is refreshed every time that speaker is
// recorded with at least three entries in the window: it is the fraction
// of interior window positions whose value agrees with at least one
// neighbor. The window is shared across speakers, so the score is a
// session-wide stability signal keyed by the speaker that most recently
// observed it, not a strictly per-speaker statistic. That is intentional
// and relied on by the vote scorer.
type HistoryWindow struct {
	entries  []int
	capacity int
	scores   map[int]float64
}

// NewHistoryWindow creates a window with the given capacity. Capacities
// below one fall back to DefaultHistorySize.
func NewHistoryWindow(capacity int) *HistoryWindow {
	if capacity < 1 {
		capacity = DefaultHistorySize
	}
	return &HistoryWindow{
		capacity: capacity,
		scores:   make(map[int]float64),
	}
}

// Record appends a validated speaker assignment, evicting the oldest
// entry when the window is full, and refreshes the stability score for
// the recorded speaker.
func (h *HistoryWindow) Record(speakerID int) {
	h.entries = append(h.entries, speakerID)
	if len(h.entries) > h.capacity {
		h.entries = h.entries[1:]
	}

	// Below three entries there are no interior positions to judge;
	// the speaker keeps its neutral score.
	n := len(h.entries)
	if n < 3 {
		return
	}
	stable := 0
	for i := 1; i < n-1; i++ {
		if h.entries[i] == h.entries[i-1] || h.entries[i] == h.entries[i+1] {
			stable++
		}
	}
	h.scores[speakerID] = float64(stable) / float64(n-2)
}

// ConsistencyScore returns the stability score for a speaker, or the
// neutral 0.5 for a speaker that has never been scored. O(1).
func (h *HistoryWindow) ConsistencyScore(speakerID int) float64 {
	if s, ok := h.scores[speakerID]; ok {
		return s
	}
	return 0.5
}

// Len returns the number of entries currently in the window.
func (h *HistoryWindow) Len() int {
	return len(h.entries)
}

// Reset discards all entries and scores.
func (h *HistoryWindow) Reset() {
	h.entries = h.entries[:0]
	h.scores = make(map[int]float64)
}
