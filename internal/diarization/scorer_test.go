package diarization

import (
	"math"
	"testing"
)

func uniformBatch(speakerID, n int, conf float64) []WordEvent {
	batch := make([]WordEvent, n)
	for i := range batch {
		batch[i] = WordEvent{
			Text:         "word",
			RawSpeakerID: speakerID,
			Confidence:   conf,
			StartTime:    float64(i),
			EndTime:      float64(i) + 0.5,
		}
	}
	return batch
}

func TestVoteScorerUniformBatch(t *testing.T) {
	s := newVoteScorer(NewHistoryWindow(10), 3)
	batch := uniformBatch(2, 5, 0.9)

	id, score := s.Propose(batch, 2)
	if id != 2 {
		t.Errorf("Propose() id = %d, want 2", id)
	}
	// Full count, 0.9 confidence, neutral history.
	want := 1.0*0.4 + 0.9*0.3 + 0.5*0.3
	if math.Abs(score-want) > 1e-9 {
		t.Errorf("Propose() score = %v, want %v", score, want)
	}
}

func TestVoteScorerOutlierOverruled(t *testing.T) {
	s := newVoteScorer(NewHistoryWindow(10), 3)
	batch := uniformBatch(0, 7, 0.9)
	batch[3].RawSpeakerID = 9

	id, _ := s.Propose(batch, 3)
	if id != 0 {
		t.Errorf("Propose() id = %d, want dominant speaker 0", id)
	}
}

func TestVoteScorerTieKeepsIncumbent(t *testing.T) {
	s := newVoteScorer(NewHistoryWindow(10), 3)
	batch := []WordEvent{
		{Text: "a", RawSpeakerID: 0, Confidence: 0.9, StartTime: 0.0, EndTime: 0.5},
		{Text: "b", RawSpeakerID: 1, Confidence: 0.9, StartTime: 0.6, EndTime: 1.1},
	}

	// Both candidates score identically; each word keeps its own label.
	if id, _ := s.Propose(batch, 0); id != 0 {
		t.Errorf("Propose(batch, 0) = %d, want 0", id)
	}
	if id, _ := s.Propose(batch, 1); id != 1 {
		t.Errorf("Propose(batch, 1) = %d, want 1", id)
	}
}

func TestVoteScorerHistoryBreaksTie(t *testing.T) {
	h := NewHistoryWindow(10)
	h.Record(1)
	h.Record(1)
	h.Record(1) // scores speaker 1 at 1.0
	s := newVoteScorer(h, 3)

	batch := []WordEvent{
		{Text: "a", RawSpeakerID: 0, Confidence: 0.9, StartTime: 0.0, EndTime: 0.5},
		{Text: "b", RawSpeakerID: 1, Confidence: 0.9, StartTime: 0.6, EndTime: 1.1},
	}

	// Counts and confidence are tied; speaker 1's stability wins even
	// against the word's own label.
	if id, _ := s.Propose(batch, 0); id != 1 {
		t.Errorf("Propose(batch, 0) = %d, want history-favored 1", id)
	}
}

func TestVoteScorerWindowClampedAtBoundaries(t *testing.T) {
	s := newVoteScorer(NewHistoryWindow(10), 3)
	batch := uniformBatch(0, 2, 0.9)

	// Must not panic and must use only the words that exist.
	if id, _ := s.Propose(batch, 0); id != 0 {
		t.Errorf("Propose(batch, 0) = %d, want 0", id)
	}
	if id, _ := s.Propose(batch, len(batch)-1); id != 0 {
		t.Errorf("Propose(batch, last) = %d, want 0", id)
	}
}

func TestVoteScorerRadiusFallback(t *testing.T) {
	s := newVoteScorer(NewHistoryWindow(10), 0)
	if s.radius != DefaultContextRadius {
		t.Errorf("radius = %d, want %d", s.radius, DefaultContextRadius)
	}
}
