package diarization

import "strings"

// Segment is a maximal run of consecutive validated words attributed to
// one speaker.
type Segment struct {
	SpeakerID  int
	Words      []string
	StartTime  float64
	EndTime    float64
	Confidence float64
}

// Text returns the segment's words joined with single spaces.
func (s Segment) Text() string {
	return strings.Join(s.Words, " ")
}

// Duration returns the segment span in seconds.
func (s Segment) Duration() float64 {
	return s.EndTime - s.StartTime
}

// groupSegments walks validated words in order and starts a new segment
// whenever the assigned speaker changes. Segment confidence is the
// maximum validation confidence of its member words. A single word is a
// valid one-word segment; empty input yields no segments.
func groupSegments(words []ValidatedWord) []Segment {
	if len(words) == 0 {
		return nil
	}

	segments := make([]Segment, 0, 1)
	cur := Segment{
		SpeakerID:  words[0].AssignedSpeakerID,
		Words:      []string{words[0].Text},
		StartTime:  words[0].StartTime,
		EndTime:    words[0].EndTime,
		Confidence: words[0].ValidationConfidence,
	}

	for _, w := range words[1:] {
		if w.AssignedSpeakerID == cur.SpeakerID {
			cur.Words = append(cur.Words, w.Text)
			cur.EndTime = w.EndTime
			if w.ValidationConfidence > cur.Confidence {
				cur.Confidence = w.ValidationConfidence
			}
			continue
		}
		segments = append(segments, cur)
		cur = Segment{
			SpeakerID:  w.AssignedSpeakerID,
			Words:      []string{w.Text},
			StartTime:  w.StartTime,
			EndTime:    w.EndTime,
			Confidence: w.ValidationConfidence,
		}
	}
	return append(segments, cur)
}
