package diarization

import "testing"

func validated(text string, speakerID int, conf, start, end float64) ValidatedWord {
	return ValidatedWord{
		WordEvent: WordEvent{
			Text:      text,
			StartTime: start,
			EndTime:   end,
		},
		AssignedSpeakerID:    speakerID,
		ValidationConfidence: conf,
	}
}

func TestGroupSegmentsEmpty(t *testing.T) {
	if got := groupSegments(nil); got != nil {
		t.Errorf("groupSegments(nil) = %v, want nil", got)
	}
}

func TestGroupSegmentsSingleWord(t *testing.T) {
	segs := groupSegments([]ValidatedWord{validated("hello", 0, 0.9, 0.0, 0.5)})
	if len(segs) != 1 {
		t.Fatalf("len(segments) = %d, want 1", len(segs))
	}
	seg := segs[0]
	if seg.Text() != "hello" || seg.SpeakerID != 0 {
		t.Errorf("segment = %+v, want single-word segment for speaker 0", seg)
	}
}

func TestGroupSegmentsSplitsOnSpeakerChange(t *testing.T) {
	segs := groupSegments([]ValidatedWord{
		validated("hello", 0, 0.8, 0.0, 0.5),
		validated("there", 0, 0.9, 0.6, 1.1),
		validated("hi", 1, 0.7, 2.5, 3.0),
		validated("back", 1, 0.6, 3.1, 3.6),
	})
	if len(segs) != 2 {
		t.Fatalf("len(segments) = %d, want 2", len(segs))
	}

	if got := segs[0].Text(); got != "hello there" {
		t.Errorf("segments[0].Text() = %q, want %q", got, "hello there")
	}
	if got := segs[1].Text(); got != "hi back" {
		t.Errorf("segments[1].Text() = %q, want %q", got, "hi back")
	}

	// Confidence is the max over member words.
	if segs[0].Confidence != 0.9 {
		t.Errorf("segments[0].Confidence = %v, want 0.9", segs[0].Confidence)
	}
	if segs[1].Confidence != 0.7 {
		t.Errorf("segments[1].Confidence = %v, want 0.7", segs[1].Confidence)
	}

	// Timestamps span exactly the member words.
	if segs[0].StartTime != 0.0 || segs[0].EndTime != 1.1 {
		t.Errorf("segments[0] span = [%v, %v], want [0.0, 1.1]", segs[0].StartTime, segs[0].EndTime)
	}
	if segs[1].StartTime != 2.5 || segs[1].EndTime != 3.6 {
		t.Errorf("segments[1] span = [%v, %v], want [2.5, 3.6]", segs[1].StartTime, segs[1].EndTime)
	}
}

func TestGroupSegmentsCoversEveryWordOnce(t *testing.T) {
	words := []ValidatedWord{
		validated("a", 0, 0.9, 0.0, 0.2),
		validated("b", 1, 0.9, 0.3, 0.5),
		validated("c", 0, 0.9, 0.6, 0.8),
		validated("d", 0, 0.9, 0.9, 1.1),
		validated("e", 1, 0.9, 1.2, 1.4),
	}
	segs := groupSegments(words)

	total := 0
	for _, seg := range segs {
		total += len(seg.Words)
	}
	if total != len(words) {
		t.Errorf("total words in segments = %d, want %d", total, len(words))
	}
	for i := 1; i < len(segs); i++ {
		if segs[i].SpeakerID == segs[i-1].SpeakerID {
			t.Errorf("adjacent segments %d and %d share speaker %d", i-1, i, segs[i].SpeakerID)
		}
	}
}

func TestSegmentDuration(t *testing.T) {
	seg := Segment{StartTime: 1.0, EndTime: 3.5}
	if got := seg.Duration(); got != 2.5 {
		t.Errorf("Duration() = %v, want 2.5", got)
	}
}
