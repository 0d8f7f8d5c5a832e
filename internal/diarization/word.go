// Package diarization implements the speaker-assignment validation and
// segmentation engine. It consumes word events that already carry a raw
// (noisy) speaker label from the upstream transcription engine, smooths
// out spurious speaker flips, groups words into per-speaker segments and
// maintains per-speaker statistics for the lifetime of a session.
package diarization

import "strings"

// WordEvent is one transcribed word with its raw diarization label.
// Immutable once created.
type WordEvent struct {
	Text         string
	RawSpeakerID int
	Confidence   float64 // 0.0 - 1.0
	StartTime    float64 // seconds from stream start
	EndTime      float64 // seconds from stream start
}

// Duration returns the spoken duration of the word in seconds.
func (w WordEvent) Duration() float64 {
	return w.EndTime - w.StartTime
}

// ValidatedWord is a WordEvent after voting and temporal validation.
type ValidatedWord struct {
	WordEvent
	AssignedSpeakerID    int
	ValidationConfidence float64
}

// RawWord is a word as delivered by the transcription engine. The speaker
// label and confidence are optional; timing may be absent, in which case
// both timestamps are zero and duration-based heuristics degrade to
// permissive behavior.
type RawWord struct {
	Text       string
	Speaker    *int
	Confidence *float64
	Start      float64
	End        float64
}

// RawResult is one transcription result from the engine: the full
// transcript text for the result plus optional word-level detail.
type RawResult struct {
	Transcript string
	Words      []RawWord
}

// defaultLabeledConfidence is assumed when the engine labels a word with
// a speaker but reports no confidence.
const defaultLabeledConfidence = 0.8

// normalizeWord converts one engine word into a WordEvent. Words without
// a speaker label fall back to speaker 0 with zero confidence. The second
// return value reports whether the word carried an explicit speaker label.
func normalizeWord(w RawWord) (WordEvent, bool) {
	ev := WordEvent{
		Text:      strings.TrimSpace(w.Text),
		StartTime: w.Start,
		EndTime:   w.End,
	}
	if w.Speaker == nil {
		return ev, false
	}
	ev.RawSpeakerID = *w.Speaker
	if w.Confidence != nil {
		ev.Confidence = *w.Confidence
	} else {
		ev.Confidence = defaultLabeledConfidence
	}
	return ev, true
}

// malformed reports whether a word event must be dropped: missing text or
// a negative duration means the upstream engine produced garbage for it.
func malformed(w WordEvent) bool {
	return w.Text == "" || w.Duration() < 0
}
