package diarization

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/meetingscribe/diarization-gateway/internal/observability"
)

// State is the lifecycle state of a session engine.
type State int

const (
	// StateIdle - no words received yet.
	StateIdle State = iota
	// StateActive - receiving and processing word batches.
	StateActive
	// StateStopped - terminal; a new session requires a new engine.
	StateStopped
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateActive:
		return "ACTIVE"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// ErrSessionStopped is returned when a batch arrives after the session
// reached its terminal state.
var ErrSessionStopped = errors.New("session is stopped")

// TranscriptEntry is one finalized, speaker-attributed line of the
// session transcript. Time is the wall clock at processing, not the
// audio timestamp. Entries are never mutated after append.
type TranscriptEntry struct {
	Time       string  `json:"time"`
	Speaker    string  `json:"speaker"`
	SpeakerID  int     `json:"speaker_id"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	IsFinal    bool    `json:"is_final"`
}

// SpeakerChange signals that a new voice joined the session. It fires on
// first sight of each new speaker identity once more than one speaker is
// known, not on every turn change.
type SpeakerChange struct {
	SpeakerID   int    `json:"speaker_id"`
	SpeakerName string `json:"speaker_name"`
}

// BatchResult is everything one processed batch produced, in order.
type BatchResult struct {
	Entries        []TranscriptEntry
	SpeakerChanges []SpeakerChange
}

// Config tunes the validation engine. Zero values fall back to the
// documented defaults.
type Config struct {
	HistorySize              int
	ContextRadius            int
	MinSegmentDuration       float64
	MaxRapidSwitchTime       float64
	MinWordsForSpeakerChange int
}

// DefaultConfig returns the default engine tuning.
func DefaultConfig() Config {
	return Config{
		HistorySize:              DefaultHistorySize,
		ContextRadius:            DefaultContextRadius,
		MinSegmentDuration:       DefaultMinSegmentDuration,
		MaxRapidSwitchTime:       DefaultMaxRapidSwitchTime,
		MinWordsForSpeakerChange: DefaultMinWordsForSpeakerChange,
	}
}

// Engine owns all per-session diarization state: the history window, the
// speaker registry with its timing profiles, the ordered transcript and
// the last confirmed speaker anchor. It performs no I/O and never
// blocks. Batches from one session must arrive in order; the engine
// serializes callers internally, so it is safe to invoke from the
// transport's goroutines, but it never shares state across sessions.
type Engine struct {
	mu  sync.Mutex
	log zerolog.Logger

	state     State
	history   *HistoryWindow
	scorer    *voteScorer
	validator *temporalValidator
	registry  *Registry

	transcript        []TranscriptEntry
	lastConfirmed     *int
	diarizationActive bool

	now func() time.Time
}

// NewEngine creates a session engine with the given tuning.
func NewEngine(cfg Config, logger zerolog.Logger) *Engine {
	history := NewHistoryWindow(cfg.HistorySize)
	registry := NewRegistry()
	return &Engine{
		log:       logger,
		history:   history,
		scorer:    newVoteScorer(history, cfg.ContextRadius),
		validator: newTemporalValidator(registry, cfg.MinSegmentDuration, cfg.MaxRapidSwitchTime, cfg.MinWordsForSpeakerChange),
		registry:  registry,
		now:       time.Now,
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// ProcessResult ingests one transcription-engine result. Results without
// word-level detail fall back to a single segment attributed to the last
// confirmed speaker (speaker 0 on a fresh session). Results without
// transcript text are ignored.
func (e *Engine) ProcessResult(res RawResult) (BatchResult, error) {
	text := strings.TrimSpace(res.Transcript)
	if text == "" {
		return BatchResult{}, nil
	}

	if len(res.Words) == 0 {
		return e.processWholeResult(text)
	}

	words := make([]WordEvent, 0, len(res.Words))
	labeled := false
	for _, rw := range res.Words {
		ev, hasLabel := normalizeWord(rw)
		if hasLabel {
			labeled = true
		}
		words = append(words, ev)
	}
	if labeled {
		e.mu.Lock()
		if !e.diarizationActive {
			e.log.Info().Msg("speaker diarization confirmed working")
			e.diarizationActive = true
		}
		e.mu.Unlock()
	}
	return e.ProcessBatch(words)
}

// ProcessBatch validates speaker assignments for an ordered word batch
// and returns the finalized transcript entries plus any speaker-change
// notifications, in order. Malformed words are dropped with a warning;
// an empty batch returns an empty result without mutating any state.
func (e *Engine) ProcessBatch(words []WordEvent) (BatchResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateStopped {
		return BatchResult{}, ErrSessionStopped
	}

	clean := words[:0:0]
	for _, w := range words {
		if malformed(w) {
			e.log.Warn().
				Str("text", w.Text).
				Float64("duration", w.Duration()).
				Msg("dropping malformed word event")
			observability.RecordMalformedWord()
			continue
		}
		clean = append(clean, w)
	}
	if len(clean) == 0 {
		return BatchResult{}, nil
	}

	if e.state == StateIdle {
		e.state = StateActive
	}

	// The anchor stays fixed for the whole batch so that every word sees
	// the prior batch's confirmed speaker, not a mid-batch one.
	var anchor *int
	if e.lastConfirmed != nil {
		v := *e.lastConfirmed
		anchor = &v
	}

	validated := make([]ValidatedWord, 0, len(clean))
	for i := range clean {
		proposed, score := e.scorer.Propose(clean, i)
		assigned, guard := e.validator.Validate(proposed, clean, i, anchor)
		if guard != GuardNone {
			e.log.Debug().
				Str("guard", string(guard)).
				Int("proposed", proposed).
				Int("assigned", assigned).
				Str("text", clean[i].Text).
				Msg("temporal correction applied")
			observability.RecordValidatorCorrection(string(guard))
		}
		e.history.Record(assigned)
		validated = append(validated, ValidatedWord{
			WordEvent:            clean[i],
			AssignedSpeakerID:    assigned,
			ValidationConfidence: score,
		})
	}
	observability.RecordWordsProcessed(len(clean))

	var res BatchResult
	for _, seg := range groupSegments(validated) {
		entry, change := e.commitSegment(seg)
		res.Entries = append(res.Entries, entry)
		if change != nil {
			res.SpeakerChanges = append(res.SpeakerChanges, *change)
		}
	}
	observability.RecordSegments(len(res.Entries))
	return res, nil
}

// commitSegment finalizes one segment: resolves the display name,
// updates the speaker's timing profile, appends the transcript entry and
// advances the confirmed-speaker anchor. Caller holds e.mu.
func (e *Engine) commitSegment(seg Segment) (TranscriptEntry, *SpeakerChange) {
	name, isNew := e.registry.ResolveName(seg.SpeakerID)
	e.registry.UpdateTiming(seg.SpeakerID, seg.Duration())

	var change *SpeakerChange
	if isNew && e.registry.Count() > 1 {
		change = &SpeakerChange{SpeakerID: seg.SpeakerID, SpeakerName: name}
		observability.RecordSpeakerChange()
	}

	entry := TranscriptEntry{
		Time:       e.now().Format("15:04:05"),
		Speaker:    name,
		SpeakerID:  seg.SpeakerID,
		Text:       seg.Text(),
		Confidence: seg.Confidence,
		IsFinal:    true,
	}
	e.transcript = append(e.transcript, entry)

	last := seg.SpeakerID
	e.lastConfirmed = &last
	return entry, change
}

// processWholeResult attributes a result without word detail to the last
// confirmed speaker, defaulting to speaker 0.
func (e *Engine) processWholeResult(text string) (BatchResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateStopped {
		return BatchResult{}, ErrSessionStopped
	}
	if e.state == StateIdle {
		e.state = StateActive
	}

	speakerID := 0
	if e.lastConfirmed != nil {
		speakerID = *e.lastConfirmed
	}

	name, isNew := e.registry.ResolveName(speakerID)
	var res BatchResult
	if isNew && e.registry.Count() > 1 {
		res.SpeakerChanges = append(res.SpeakerChanges, SpeakerChange{SpeakerID: speakerID, SpeakerName: name})
		observability.RecordSpeakerChange()
	}

	entry := TranscriptEntry{
		Time:      e.now().Format("15:04:05"),
		Speaker:   name,
		SpeakerID: speakerID,
		Text:      text,
		IsFinal:   true,
	}
	e.transcript = append(e.transcript, entry)
	last := speakerID
	e.lastConfirmed = &last

	res.Entries = append(res.Entries, entry)
	observability.RecordSegments(1)
	return res, nil
}

// Transcript returns a copy of the session transcript in arrival order.
func (e *Engine) Transcript() []TranscriptEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]TranscriptEntry, len(e.transcript))
	copy(out, e.transcript)
	return out
}

// TranscriptText returns the transcript formatted as "Name: text" lines.
func (e *Engine) TranscriptText() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var b strings.Builder
	for i, entry := range e.transcript {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(entry.Speaker)
		b.WriteString(": ")
		b.WriteString(entry.Text)
	}
	return b.String()
}

// ClearSession resets all internal state to the Idle equivalent without
// destroying the instance. A stopped engine stays stopped: Stopped is
// terminal and a new session needs a new engine.
func (e *Engine) ClearSession() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.history.Reset()
	e.registry.Reset()
	e.transcript = nil
	e.lastConfirmed = nil
	e.diarizationActive = false
	if e.state != StateStopped {
		e.state = StateIdle
	}
}

// Stop moves the session to its terminal state. In-flight state is kept
// for final summary queries; further batches are rejected.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateStopped
}
