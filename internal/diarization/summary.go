package diarization

import (
	"fmt"
	"strings"
	"time"
)

// DurationUnknown is returned when the session duration cannot be
// computed from the transcript timestamps.
const DurationUnknown = "Unknown"

// SpeakerStats are per-speaker utterance and word counts.
type SpeakerStats struct {
	Utterances int `json:"utterances"`
	Words      int `json:"words"`
}

// SessionSummary is a snapshot of session statistics.
type SessionSummary struct {
	DiarizationActive bool                    `json:"diarization_enabled"`
	SpeakersDetected  int                     `json:"speakers_detected"`
	Speakers          []string                `json:"speakers"`
	SpeakerStats      map[string]SpeakerStats `json:"speaker_stats"`
	TotalUtterances   int                     `json:"total_utterances"`
	SessionDuration   string                  `json:"session_duration"`
}

// Summary computes the current session statistics from the transcript.
func (e *Engine) Summary() SessionSummary {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := make(map[string]SpeakerStats)
	for _, entry := range e.transcript {
		s := stats[entry.Speaker]
		s.Utterances++
		s.Words += len(strings.Fields(entry.Text))
		stats[entry.Speaker] = s
	}

	return SessionSummary{
		DiarizationActive: e.diarizationActive,
		SpeakersDetected:  e.registry.Count(),
		Speakers:          e.registry.Names(),
		SpeakerStats:      stats,
		TotalUtterances:   len(e.transcript),
		SessionDuration:   e.sessionDuration(),
	}
}

// sessionDuration is the wall-clock delta between the first and last
// transcript entries. Timestamps are HH:MM:SS only, so a session running
// across midnight wraps forward. Caller holds e.mu.
func (e *Engine) sessionDuration() string {
	if len(e.transcript) == 0 {
		return "00:00:00"
	}

	first, err := time.Parse("15:04:05", e.transcript[0].Time)
	if err != nil {
		return DurationUnknown
	}
	last, err := time.Parse("15:04:05", e.transcript[len(e.transcript)-1].Time)
	if err != nil {
		return DurationUnknown
	}

	d := last.Sub(first)
	if d < 0 {
		d += 24 * time.Hour
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
