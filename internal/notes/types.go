// Package notes generates structured meeting notes from a finished
// transcript. It is a collaborator of the session layer; the diarization
// core never depends on it.
package notes

import "context"

// MeetingNotes is the structured output of notes generation.
type MeetingNotes struct {
	Summary               string   `json:"summary"`
	KeyPoints             []string `json:"key_points"`
	ActionItems           []string `json:"action_items"`
	Decisions             []string `json:"decisions"`
	ParticipantsMentioned []string `json:"participants_mentioned"`
	NextSteps             []string `json:"next_steps"`
	PriorityActions       []string `json:"priority_actions"`
	MeetingType           string   `json:"meeting_type"`
}

// Generator produces meeting notes from a formatted transcript.
type Generator interface {
	// Generate produces notes for a "Name: text" formatted transcript
	Generate(ctx context.Context, transcript string) (*MeetingNotes, error)
}
