// Package stt abstracts the streaming speech-to-text engine behind an
// engine-neutral client interface carrying word-level speaker labels.
package stt

// Word is one transcribed word with optional diarization detail.
type Word struct {
	// Text is the word as transcribed
	Text string

	// Speaker is the raw diarization label, nil when the engine did not
	// attribute the word to a voice
	Speaker *int

	// Confidence is the word confidence (0.0 to 1.0) if available
	Confidence float64

	// Start is the word start offset in seconds from stream start
	Start float64

	// End is the word end offset in seconds from stream start
	End float64
}

// Result is one transcription result from the engine.
type Result struct {
	// Transcript is the full transcribed text for the result
	Transcript string

	// IsFinal indicates a final result (true) or interim (false)
	IsFinal bool

	// Confidence is the overall confidence score (0.0 to 1.0)
	Confidence float64

	// Words carries word-level detail; may be empty when the engine
	// provides none
	Words []Word
}

// Client is the interface for streaming speech-to-text clients.
type Client interface {
	// Start begins a new transcription session
	Start() error

	// SendAudio sends an audio chunk to the engine
	SendAudio(audioData []byte) error

	// Results returns the channel of transcription results
	Results() <-chan *Result

	// Stop stops the transcription session
	Stop() error

	// Close closes the client and cleans up resources
	Close() error
}
