package stt

import (
	"context"
	"fmt"
	"sync"
	"time"

	websocketv1api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket"
	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/meetingscribe/diarization-gateway/internal/config"
	"github.com/meetingscribe/diarization-gateway/internal/observability"
	"github.com/meetingscribe/diarization-gateway/internal/resilience"
)

// messageCallbackHandler implements the LiveMessageCallback interface.
// It embeds the default handler and overrides only the methods we need.
type messageCallbackHandler struct {
	*websocketv1api.DefaultCallbackHandler
	handler      func(*msginterfaces.MessageResponse)
	errorHandler func(*msginterfaces.ErrorResponse) error
}

// Message forwards transcription results to our handler.
func (m *messageCallbackHandler) Message(message *msginterfaces.MessageResponse) error {
	m.handler(message)
	return nil
}

// Error routes engine errors through our handler.
func (m *messageCallbackHandler) Error(errorResponse *msginterfaces.ErrorResponse) error {
	if m.errorHandler != nil {
		return m.errorHandler(errorResponse)
	}
	return m.DefaultCallbackHandler.Error(errorResponse)
}

// DeepgramClient implements Client using Deepgram's streaming API with
// speaker diarization enabled.
type DeepgramClient struct {
	config         *config.Config
	log            zerolog.Logger
	client         *listenClient.WSCallback
	results        chan *Result
	mu             sync.RWMutex
	isActive       bool
	ctx            context.Context
	cancel         context.CancelFunc
	circuitBreaker *resilience.CircuitBreaker
}

// NewDeepgramClient creates a new Deepgram streaming client.
func NewDeepgramClient(cfg *config.Config) *DeepgramClient {
	ctx, cancel := context.WithCancel(context.Background())

	circuitBreaker := resilience.NewCircuitBreaker(
		"deepgram",
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	)

	return &DeepgramClient{
		config:         cfg,
		log:            observability.GetLogger().With().Str("component", "stt").Logger(),
		results:        make(chan *Result, 100),
		ctx:            ctx,
		cancel:         cancel,
		circuitBreaker: circuitBreaker,
	}
}

// Start begins a new Deepgram streaming transcription session.
func (d *DeepgramClient) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isActive {
		return fmt.Errorf("deepgram client is already active")
	}

	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:       d.config.DeepgramModel,
		Language:    d.config.DeepgramLanguage,
		Punctuate:   true,
		SmartFormat: true,
		Diarize:     true, // word-level speaker labels
		Encoding:    d.config.DeepgramEncoding,
		Channels:    1,
		SampleRate:  d.config.DeepgramSampleRate,
	}

	callback := &messageCallbackHandler{
		DefaultCallbackHandler: websocketv1api.NewDefaultCallbackHandler(),
		handler:                d.handleMessage,
		errorHandler: func(errorResponse *msginterfaces.ErrorResponse) error {
			d.log.Error().Interface("response", errorResponse).Msg("Deepgram error")

			d.circuitBreaker.RecordResult(false)
			observability.UpdateCircuitBreakerState("deepgram", int(d.circuitBreaker.GetState()))
			observability.IncrementCircuitBreakerFailures("deepgram")

			select {
			case <-d.ctx.Done():
				return nil
			default:
				d.mu.Lock()
				d.isActive = false
				d.mu.Unlock()

				go d.attemptReconnect()
			}
			return nil
		},
	}

	client, err := listenClient.NewWSUsingCallback(
		d.ctx,
		d.config.DeepgramAPIKey,
		nil, // default client options
		tOptions,
		callback,
	)
	if err != nil {
		observability.RecordSTTRequest(false)
		return fmt.Errorf("failed to create Deepgram client: %w", err)
	}

	d.client = client
	d.isActive = true

	d.circuitBreaker.RecordResult(true)
	observability.UpdateCircuitBreakerState("deepgram", int(d.circuitBreaker.GetState()))
	observability.RecordSTTRequest(true)

	d.log.Info().
		Str("model", d.config.DeepgramModel).
		Str("language", d.config.DeepgramLanguage).
		Int("sample_rate", d.config.DeepgramSampleRate).
		Msg("Deepgram streaming client started with diarization")
	return nil
}

// handleMessage converts Deepgram messages into engine-neutral results.
func (d *DeepgramClient) handleMessage(msg *msginterfaces.MessageResponse) {
	if msg == nil {
		return
	}

	switch msg.Type {
	case "Metadata":
		d.log.Debug().Interface("metadata", msg.Metadata).Msg("Deepgram metadata")

	case "SpeechStarted":
		d.log.Debug().Msg("Deepgram: speech started")

	case "UtteranceEnd":
		d.log.Debug().Msg("Deepgram: utterance ended")

	case "Results", "Message":
		if len(msg.Channel.Alternatives) == 0 {
			return
		}

		alt := msg.Channel.Alternatives[0]
		if alt.Transcript == "" {
			return
		}

		result := &Result{
			Transcript: alt.Transcript,
			IsFinal:    msg.IsFinal,
			Confidence: alt.Confidence,
			Words:      make([]Word, 0, len(alt.Words)),
		}
		for _, w := range alt.Words {
			result.Words = append(result.Words, Word{
				Text:       w.Word,
				Speaker:    w.Speaker,
				Confidence: w.Confidence,
				Start:      w.Start,
				End:        w.End,
			})
		}

		kind := "interim"
		if msg.IsFinal {
			kind = "final"
		}

		select {
		case d.results <- result:
			observability.RecordSTTResult(kind)
			d.log.Debug().
				Bool("is_final", msg.IsFinal).
				Int("words", len(result.Words)).
				Float64("confidence", alt.Confidence).
				Msg("Deepgram transcription received")
		default:
			observability.RecordSTTResult("dropped")
			d.log.Warn().Msg("Result channel full, dropping transcription")
		}

	default:
		d.log.Debug().Str("type", msg.Type).Msg("Deepgram: unknown message type")
	}
}

// SendAudio sends an audio chunk to Deepgram.
func (d *DeepgramClient) SendAudio(audioData []byte) error {
	err := d.circuitBreaker.Call(func() error {
		d.mu.RLock()
		active := d.isActive
		client := d.client
		d.mu.RUnlock()

		if !active || client == nil {
			return fmt.Errorf("deepgram client is not active")
		}

		if _, err := client.Write(audioData); err != nil {
			go d.attemptReconnect()
			return fmt.Errorf("failed to send audio to Deepgram: %w", err)
		}

		observability.RecordAudioBytes(len(audioData))
		return nil
	})

	observability.UpdateCircuitBreakerState("deepgram", int(d.circuitBreaker.GetState()))
	if err != nil {
		observability.IncrementCircuitBreakerFailures("deepgram")
	}
	return err
}

// attemptReconnect re-establishes the Deepgram stream with backoff.
func (d *DeepgramClient) attemptReconnect() {
	select {
	case <-d.ctx.Done():
		return
	default:
	}

	d.mu.RLock()
	alreadyActive := d.isActive
	d.mu.RUnlock()
	if alreadyActive {
		return
	}

	reconnectConfig := &resilience.ReconnectConfig{
		MaxAttempts: d.config.ReconnectMaxAttempts,
		Backoff:     time.Duration(d.config.ReconnectBackoff) * time.Millisecond,
		Multiplier:  2.0,
		MaxBackoff:  30 * time.Second,
	}

	if err := resilience.Reconnect(d.ctx, d.Start, reconnectConfig); err != nil {
		d.log.Error().Err(err).Msg("Failed to reconnect Deepgram client")
	} else {
		d.log.Info().Msg("Successfully reconnected Deepgram client")
	}
}

// Results returns the channel of transcription results.
func (d *DeepgramClient) Results() <-chan *Result {
	return d.results
}

// Stop stops the Deepgram streaming session.
func (d *DeepgramClient) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.isActive {
		return nil
	}

	d.client.Finish()
	d.isActive = false
	d.log.Info().Msg("Deepgram streaming session stopped")
	return nil
}

// Close closes the client and cleans up resources.
func (d *DeepgramClient) Close() error {
	d.cancel()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isActive && d.client != nil {
		d.client.Finish()
		d.isActive = false
	}
	close(d.results)
	return nil
}
