package diarization

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestEngine() *Engine {
	e := NewEngine(DefaultConfig(), zerolog.Nop())
	e.now = func() time.Time {
		return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	}
	return e
}

func word(text string, speakerID int, conf, start, end float64) WordEvent {
	return WordEvent{
		Text:         text,
		RawSpeakerID: speakerID,
		Confidence:   conf,
		StartTime:    start,
		EndTime:      end,
	}
}

func TestEngineCleanAlternation(t *testing.T) {
	e := newTestEngine()

	res, err := e.ProcessBatch([]WordEvent{
		word("hello", 0, 0.9, 0.0, 0.5),
		word("there", 0, 0.9, 0.6, 1.1),
		word("hi", 1, 0.9, 2.5, 3.0),
		word("back", 1, 0.9, 3.1, 3.6),
	})
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	if len(res.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2", len(res.Entries))
	}
	if res.Entries[0].Text != "hello there" || res.Entries[0].Speaker != "Speaker 1" {
		t.Errorf("Entries[0] = %+v, want %q by Speaker 1", res.Entries[0], "hello there")
	}
	if res.Entries[1].Text != "hi back" || res.Entries[1].Speaker != "Speaker 2" {
		t.Errorf("Entries[1] = %+v, want %q by Speaker 2", res.Entries[1], "hi back")
	}

	if len(res.SpeakerChanges) != 1 {
		t.Fatalf("len(SpeakerChanges) = %d, want 1", len(res.SpeakerChanges))
	}
	change := res.SpeakerChanges[0]
	if change.SpeakerID != 1 || change.SpeakerName != "Speaker 2" {
		t.Errorf("SpeakerChanges[0] = %+v, want speaker 1 as Speaker 2", change)
	}
}

func TestEngineNoChangeEventForFirstSpeaker(t *testing.T) {
	e := newTestEngine()

	res, err := e.ProcessBatch([]WordEvent{
		word("hello", 0, 0.9, 0.0, 0.5),
		word("everyone", 0, 0.9, 0.6, 1.2),
	})
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if len(res.SpeakerChanges) != 0 {
		t.Errorf("SpeakerChanges = %v, want none for a lone first speaker", res.SpeakerChanges)
	}
}

func TestEngineResistsFragmentation(t *testing.T) {
	e := newTestEngine()

	// Six short words with alternating raw labels and tight gaps. The
	// vote and rapid-switch logic should refuse to carve six segments
	// out of what is plainly one stretch of speech.
	batch := make([]WordEvent, 6)
	for i := range batch {
		start := float64(i) * 0.3
		batch[i] = word("word", i%2, 0.9, start, start+0.2)
	}

	res, err := e.ProcessBatch(batch)
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1 merged segment, got %+v", len(res.Entries), res.Entries)
	}
	if got := res.Entries[0].Text; got != "word word word word word word" {
		t.Errorf("Entries[0].Text = %q, want all six words", got)
	}
}

func TestEngineDropsMalformedWords(t *testing.T) {
	e := newTestEngine()

	res, err := e.ProcessBatch([]WordEvent{
		word("hello", 0, 0.9, 0.0, 0.5),
		word("", 0, 0.9, 0.6, 1.0),
		word("bad", 0, 0.9, 2.0, 1.0),
		word("world", 0, 0.9, 1.1, 1.6),
	})
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1", len(res.Entries))
	}
	if got := res.Entries[0].Text; got != "hello world" {
		t.Errorf("Entries[0].Text = %q, want %q", got, "hello world")
	}
}

func TestEngineEmptyBatchDoesNotMutate(t *testing.T) {
	e := newTestEngine()

	res, err := e.ProcessBatch(nil)
	if err != nil {
		t.Fatalf("ProcessBatch(nil) error = %v", err)
	}
	if len(res.Entries) != 0 || len(res.SpeakerChanges) != 0 {
		t.Errorf("ProcessBatch(nil) = %+v, want empty result", res)
	}
	if got := e.State(); got != StateIdle {
		t.Errorf("State() = %v, want StateIdle", got)
	}

	// A batch that is entirely malformed behaves the same.
	res, err = e.ProcessBatch([]WordEvent{word("", 0, 0.9, 0.0, 0.5)})
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if len(res.Entries) != 0 {
		t.Errorf("Entries = %v, want none", res.Entries)
	}
	if got := e.State(); got != StateIdle {
		t.Errorf("State() = %v, want StateIdle", got)
	}
}

func TestEngineStateTransitions(t *testing.T) {
	e := newTestEngine()
	if got := e.State(); got != StateIdle {
		t.Fatalf("initial State() = %v, want StateIdle", got)
	}

	if _, err := e.ProcessBatch([]WordEvent{word("hi", 0, 0.9, 0.0, 0.5)}); err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if got := e.State(); got != StateActive {
		t.Errorf("State() = %v, want StateActive", got)
	}

	e.Stop()
	if got := e.State(); got != StateStopped {
		t.Errorf("State() = %v, want StateStopped", got)
	}
}

func TestEngineRejectsBatchAfterStop(t *testing.T) {
	e := newTestEngine()
	e.Stop()

	_, err := e.ProcessBatch([]WordEvent{word("hi", 0, 0.9, 0.0, 0.5)})
	if !errors.Is(err, ErrSessionStopped) {
		t.Errorf("ProcessBatch() error = %v, want ErrSessionStopped", err)
	}

	_, err = e.ProcessResult(RawResult{Transcript: "hi"})
	if !errors.Is(err, ErrSessionStopped) {
		t.Errorf("ProcessResult() error = %v, want ErrSessionStopped", err)
	}
}

func TestEngineStopKeepsSummary(t *testing.T) {
	e := newTestEngine()
	if _, err := e.ProcessBatch([]WordEvent{word("hi", 0, 0.9, 0.0, 0.5)}); err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	e.Stop()

	summary := e.Summary()
	if summary.TotalUtterances != 1 {
		t.Errorf("TotalUtterances after Stop = %d, want 1", summary.TotalUtterances)
	}
}

func TestEngineProcessResultWithoutWords(t *testing.T) {
	e := newTestEngine()

	res, err := e.ProcessResult(RawResult{Transcript: "hello everyone"})
	if err != nil {
		t.Fatalf("ProcessResult() error = %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1", len(res.Entries))
	}
	entry := res.Entries[0]
	if entry.Speaker != "Speaker 1" || entry.SpeakerID != 0 {
		t.Errorf("entry = %+v, want fallback attribution to speaker 0", entry)
	}
	if entry.Text != "hello everyone" {
		t.Errorf("Text = %q, want %q", entry.Text, "hello everyone")
	}
}

func TestEngineProcessResultEmptyTranscript(t *testing.T) {
	e := newTestEngine()

	res, err := e.ProcessResult(RawResult{Transcript: "   "})
	if err != nil {
		t.Fatalf("ProcessResult() error = %v", err)
	}
	if len(res.Entries) != 0 {
		t.Errorf("Entries = %v, want none", res.Entries)
	}
	if got := e.State(); got != StateIdle {
		t.Errorf("State() = %v, want StateIdle", got)
	}
}

func TestEngineDiarizationActiveFlag(t *testing.T) {
	e := newTestEngine()
	if e.Summary().DiarizationActive {
		t.Error("DiarizationActive = true before any labeled word")
	}

	conf := 0.9
	spk := 0
	_, err := e.ProcessResult(RawResult{
		Transcript: "hello",
		Words: []RawWord{
			{Text: "hello", Speaker: &spk, Confidence: &conf, Start: 0.0, End: 0.5},
		},
	})
	if err != nil {
		t.Fatalf("ProcessResult() error = %v", err)
	}
	if !e.Summary().DiarizationActive {
		t.Error("DiarizationActive = false after labeled word")
	}
}

func TestEngineTranscriptText(t *testing.T) {
	e := newTestEngine()
	if _, err := e.ProcessBatch([]WordEvent{
		word("hello", 0, 0.9, 0.0, 0.5),
		word("there", 0, 0.9, 0.6, 1.1),
		word("hi", 1, 0.9, 2.5, 3.0),
		word("back", 1, 0.9, 3.1, 3.6),
	}); err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	want := "Speaker 1: hello there\nSpeaker 2: hi back"
	if got := e.TranscriptText(); got != want {
		t.Errorf("TranscriptText() = %q, want %q", got, want)
	}
}

func TestEngineTranscriptReturnsCopy(t *testing.T) {
	e := newTestEngine()
	if _, err := e.ProcessBatch([]WordEvent{word("hi", 0, 0.9, 0.0, 0.5)}); err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	entries := e.Transcript()
	entries[0].Text = "tampered"
	if got := e.Transcript()[0].Text; got != "hi" {
		t.Errorf("Transcript()[0].Text = %q, want %q", got, "hi")
	}
}

func TestEngineSummaryStats(t *testing.T) {
	e := newTestEngine()
	if _, err := e.ProcessBatch([]WordEvent{
		word("hello", 0, 0.9, 0.0, 0.5),
		word("there", 0, 0.9, 0.6, 1.1),
		word("hi", 1, 0.9, 2.5, 3.0),
		word("back", 1, 0.9, 3.1, 3.6),
	}); err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	summary := e.Summary()
	if summary.SpeakersDetected != 2 {
		t.Errorf("SpeakersDetected = %d, want 2", summary.SpeakersDetected)
	}
	if summary.TotalUtterances != 2 {
		t.Errorf("TotalUtterances = %d, want 2", summary.TotalUtterances)
	}
	s1 := summary.SpeakerStats["Speaker 1"]
	if s1.Utterances != 1 || s1.Words != 2 {
		t.Errorf("SpeakerStats[Speaker 1] = %+v, want 1 utterance of 2 words", s1)
	}
	s2 := summary.SpeakerStats["Speaker 2"]
	if s2.Utterances != 1 || s2.Words != 2 {
		t.Errorf("SpeakerStats[Speaker 2] = %+v, want 1 utterance of 2 words", s2)
	}
}

func TestEngineSessionDuration(t *testing.T) {
	e := newTestEngine()

	times := []time.Time{
		time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 10, 5, 30, 0, time.UTC),
	}
	i := 0
	e.now = func() time.Time {
		t := times[i]
		if i < len(times)-1 {
			i++
		}
		return t
	}

	if _, err := e.ProcessBatch([]WordEvent{word("hi", 0, 0.9, 0.0, 0.5)}); err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if _, err := e.ProcessBatch([]WordEvent{word("bye", 0, 0.9, 1.0, 1.5)}); err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	if got := e.Summary().SessionDuration; got != "00:05:30" {
		t.Errorf("SessionDuration = %q, want %q", got, "00:05:30")
	}
}

func TestEngineSessionDurationEmpty(t *testing.T) {
	e := newTestEngine()
	if got := e.Summary().SessionDuration; got != "00:00:00" {
		t.Errorf("SessionDuration = %q, want %q", got, "00:00:00")
	}
}

func TestEngineSessionDurationAcrossMidnight(t *testing.T) {
	e := newTestEngine()

	times := []time.Time{
		time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC),
		time.Date(2024, 3, 2, 0, 1, 0, 0, time.UTC),
	}
	i := 0
	e.now = func() time.Time {
		t := times[i]
		if i < len(times)-1 {
			i++
		}
		return t
	}

	if _, err := e.ProcessBatch([]WordEvent{word("hi", 0, 0.9, 0.0, 0.5)}); err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if _, err := e.ProcessBatch([]WordEvent{word("bye", 0, 0.9, 1.0, 1.5)}); err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	if got := e.Summary().SessionDuration; got != "00:02:00" {
		t.Errorf("SessionDuration = %q, want %q", got, "00:02:00")
	}
}

func TestEngineClearSession(t *testing.T) {
	e := newTestEngine()
	if _, err := e.ProcessBatch([]WordEvent{
		word("hello", 0, 0.9, 0.0, 0.5),
		word("there", 0, 0.9, 0.6, 1.1),
	}); err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	e.ClearSession()

	summary := e.Summary()
	if summary.TotalUtterances != 0 || summary.SpeakersDetected != 0 {
		t.Errorf("Summary after clear = %+v, want empty session", summary)
	}
	if got := e.State(); got != StateIdle {
		t.Errorf("State() = %v, want StateIdle", got)
	}

	// Speaker numbering restarts.
	res, err := e.ProcessBatch([]WordEvent{word("again", 5, 0.9, 0.0, 0.5)})
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if got := res.Entries[0].Speaker; got != "Speaker 1" {
		t.Errorf("Speaker after clear = %q, want %q", got, "Speaker 1")
	}
}

func TestEngineClearSessionKeepsStopped(t *testing.T) {
	e := newTestEngine()
	e.Stop()
	e.ClearSession()

	if got := e.State(); got != StateStopped {
		t.Errorf("State() = %v, want StateStopped", got)
	}
	if _, err := e.ProcessBatch([]WordEvent{word("hi", 0, 0.9, 0.0, 0.5)}); !errors.Is(err, ErrSessionStopped) {
		t.Errorf("ProcessBatch() error = %v, want ErrSessionStopped", err)
	}
}

func TestEngineAnchorSpansBatches(t *testing.T) {
	e := newTestEngine()

	// First batch establishes speaker 2 as the confirmed anchor.
	if _, err := e.ProcessBatch([]WordEvent{
		word("we", 2, 0.9, 0.0, 0.5),
		word("begin", 2, 0.9, 0.6, 1.1),
	}); err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	// Second batch opens with a suspicious rapid switch; the anchor from
	// the previous batch absorbs it.
	res, err := e.ProcessBatch([]WordEvent{
		word("so", 2, 0.9, 1.2, 1.7),
		word("uh", 6, 0.9, 1.8, 2.0),
		word("then", 2, 0.9, 2.1, 2.6),
	})
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1, got %+v", len(res.Entries), res.Entries)
	}
	if got := res.Entries[0].SpeakerID; got != 2 {
		t.Errorf("SpeakerID = %d, want anchored 2", got)
	}
}
