// Package session coordinates one client connection: it owns the STT
// client and the diarization engine for the connection, forwards audio
// upstream and fans validated transcript output back out to the client
// and the event publisher.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/meetingscribe/diarization-gateway/internal/config"
	"github.com/meetingscribe/diarization-gateway/internal/diarization"
	"github.com/meetingscribe/diarization-gateway/internal/events"
	"github.com/meetingscribe/diarization-gateway/internal/notes"
	"github.com/meetingscribe/diarization-gateway/internal/observability"
	"github.com/meetingscribe/diarization-gateway/internal/stt"
)

// Sender delivers messages to the connected client. Implementations
// must be safe for concurrent use.
type Sender interface {
	Send(v any) error
}

// Envelope is the wire form of every message pushed to the client.
type Envelope struct {
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// ControlMessage is a JSON command from the client.
type ControlMessage struct {
	Command string `json:"command"`
}

// Session is the per-connection state bundle. All diarization state is
// private to the session; concurrent sessions never share engines.
type Session struct {
	ID string

	cfg       *config.Config
	log       zerolog.Logger
	sttClient stt.Client
	engine    *diarization.Engine
	publisher *events.Publisher
	notesGen  notes.Generator // nil when notes are not configured
	sender    Sender

	frames  chan []byte
	done    chan struct{}
	started time.Time
	stop    sync.Once
}

// New creates a session wired to the given collaborators. notesGen may
// be nil.
func New(
	id string,
	cfg *config.Config,
	sttClient stt.Client,
	engine *diarization.Engine,
	publisher *events.Publisher,
	notesGen notes.Generator,
	sender Sender,
) *Session {
	queue := cfg.AudioQueueFrames
	if queue < 1 {
		queue = 64
	}
	return &Session{
		ID:        id,
		cfg:       cfg,
		log:       observability.SessionLogger(id),
		sttClient: sttClient,
		engine:    engine,
		publisher: publisher,
		notesGen:  notesGen,
		sender:    sender,
		frames:    make(chan []byte, queue),
		done:      make(chan struct{}),
	}
}

// Start opens the upstream STT stream and begins consuming results.
func (s *Session) Start() error {
	if err := s.sttClient.Start(); err != nil {
		return fmt.Errorf("failed to start STT session: %w", err)
	}

	s.started = time.Now()
	observability.RecordSessionStart()

	go s.forwardAudio()
	go s.consumeResults()

	s.log.Info().Msg("Session started")
	return nil
}

// HandleAudio enqueues one audio frame for the STT engine. Frames are
// dropped with a warning when the queue is full.
func (s *Session) HandleAudio(frame []byte) {
	buf := make([]byte, len(frame))
	copy(buf, frame)

	select {
	case s.frames <- buf:
	case <-s.done:
	default:
		s.log.Warn().Int("bytes", len(frame)).Msg("Audio queue full, dropping frame")
	}
}

// forwardAudio drains the frame queue into the STT client.
func (s *Session) forwardAudio() {
	for {
		select {
		case <-s.done:
			return
		case frame := <-s.frames:
			if err := s.sttClient.SendAudio(frame); err != nil {
				s.log.Error().Err(err).Msg("Failed to forward audio")
			}
		}
	}
}

// consumeResults runs final STT results through the diarization engine
// and delivers the output. The results channel is the single ordered
// stream for this session, so batches reach the engine in arrival
// order.
func (s *Session) consumeResults() {
	for {
		select {
		case <-s.done:
			return
		case result, ok := <-s.sttClient.Results():
			if !ok {
				s.Stop()
				return
			}
			if result == nil || !result.IsFinal {
				continue
			}
			s.processResult(result)
		}
	}
}

func (s *Session) processResult(result *stt.Result) {
	raw := diarization.RawResult{
		Transcript: result.Transcript,
		Words:      make([]diarization.RawWord, 0, len(result.Words)),
	}
	for _, w := range result.Words {
		rw := diarization.RawWord{
			Text:    w.Text,
			Speaker: w.Speaker,
			Start:   w.Start,
			End:     w.End,
		}
		if w.Confidence > 0 {
			conf := w.Confidence
			rw.Confidence = &conf
		}
		raw.Words = append(raw.Words, rw)
	}

	batch, err := s.engine.ProcessResult(raw)
	if err != nil {
		if errors.Is(err, diarization.ErrSessionStopped) {
			return
		}
		// Structural failure: terminate this session without touching
		// any other.
		s.log.Error().Err(err).Msg("Diarization failed, stopping session")
		s.sendError("transcription processing failed")
		s.Stop()
		return
	}

	for _, change := range batch.SpeakerChanges {
		s.send(Envelope{Type: "speaker_change", Data: change})
		s.publishSpeakerChange(change)
	}
	for _, entry := range batch.Entries {
		s.send(Envelope{Type: "transcript", Data: entry})
		s.publishTranscript(entry)
	}
}

// HandleControl dispatches one JSON control command from the client.
func (s *Session) HandleControl(raw []byte) {
	var msg ControlMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.log.Error().Err(err).Msg("Invalid control message")
		s.sendError("invalid JSON control message")
		return
	}

	switch msg.Command {
	case "get_summary":
		s.send(Envelope{Type: "summary", Data: s.engine.Summary()})

	case "clear_session":
		s.engine.ClearSession()
		s.send(Envelope{Type: "session_cleared"})

	case "generate_notes":
		s.generateNotes()

	case "stop":
		s.send(Envelope{Type: "session_stopped", Data: s.engine.Summary()})
		s.Stop()

	default:
		s.log.Warn().Str("command", msg.Command).Msg("Unknown control command")
		s.sendError("unknown command: " + msg.Command)
	}
}

// generateNotes runs notes generation off the control path; it can take
// tens of seconds against the notes API.
func (s *Session) generateNotes() {
	if s.notesGen == nil {
		s.sendError("meeting notes are not configured")
		return
	}
	transcript := s.engine.TranscriptText()
	if transcript == "" {
		s.sendError("no transcript to generate notes from")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
		defer cancel()

		meeting, err := s.notesGen.Generate(ctx, transcript)
		if err != nil {
			s.log.Error().Err(err).Msg("Notes generation failed")
			s.sendError("failed to generate meeting notes")
			return
		}
		s.send(Envelope{Type: "notes", Data: map[string]any{
			"notes":     meeting,
			"formatted": notes.Format(meeting),
		}})
	}()
}

// Stop terminates the session. Idempotent; the engine transition is
// terminal, so a reconnecting client gets a fresh session.
func (s *Session) Stop() {
	s.stop.Do(func() {
		close(s.done)
		s.engine.Stop()
		if err := s.sttClient.Stop(); err != nil {
			s.log.Error().Err(err).Msg("Failed to stop STT client")
		}
		if err := s.sttClient.Close(); err != nil {
			s.log.Error().Err(err).Msg("Failed to close STT client")
		}
		observability.RecordSessionEnd(s.started)
		s.log.Info().
			Int("utterances", s.engine.Summary().TotalUtterances).
			Msg("Session stopped")
	})
}

// Done is closed when the session has stopped.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) send(env Envelope) {
	if err := s.sender.Send(env); err != nil {
		s.log.Error().Err(err).Str("type", env.Type).Msg("Failed to send message to client")
	}
}

func (s *Session) sendError(message string) {
	s.send(Envelope{Type: "error", Message: message})
}

func (s *Session) publishTranscript(entry diarization.TranscriptEntry) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = s.publisher.PublishTranscript(ctx, s.ID, events.TranscriptEvent{
		Time:       entry.Time,
		Speaker:    entry.Speaker,
		SpeakerID:  entry.SpeakerID,
		Text:       entry.Text,
		Confidence: entry.Confidence,
	})
}

func (s *Session) publishSpeakerChange(change diarization.SpeakerChange) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = s.publisher.PublishSpeakerChange(ctx, s.ID, events.SpeakerEvent{
		SpeakerID:   change.SpeakerID,
		SpeakerName: change.SpeakerName,
	})
}
