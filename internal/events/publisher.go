// Package events publishes finalized transcript entries and
// speaker-change events to Kafka for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/meetingscribe/diarization-gateway/internal/observability"
)

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers            []string
	TopicTranscripts   string
	TopicSpeakerEvents string
	Enabled            bool
}

// Publisher publishes session events to separate Kafka topics. When
// disabled it runs in log-only mode and every publish succeeds.
type Publisher struct {
	writerTranscripts   *kafka.Writer
	writerSpeakerEvents *kafka.Writer
	topicTranscripts    string
	topicSpeakerEvents  string
	enabled             bool
}

// TranscriptEvent is the wire form of a finalized transcript entry.
type TranscriptEvent struct {
	EventType  string  `json:"eventType"`
	SessionID  string  `json:"sessionId"`
	Timestamp  int64   `json:"timestamp"`
	Time       string  `json:"time"`
	Speaker    string  `json:"speaker"`
	SpeakerID  int     `json:"speakerId"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// SpeakerEvent is the wire form of a new-speaker notification.
type SpeakerEvent struct {
	EventType   string `json:"eventType"`
	SessionID   string `json:"sessionId"`
	Timestamp   int64  `json:"timestamp"`
	SpeakerID   int    `json:"speakerId"`
	SpeakerName string `json:"speakerName"`
}

// New creates a Kafka event publisher with separate topics for
// transcripts and speaker events.
func New(cfg *Config) *Publisher {
	if cfg == nil || !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, event publisher in log-only mode")
		p := &Publisher{}
		if cfg != nil {
			p.topicTranscripts = cfg.TopicTranscripts
			p.topicSpeakerEvents = cfg.TopicSpeakerEvents
		}
		return p
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicTranscripts", cfg.TopicTranscripts).
		Str("topicSpeakerEvents", cfg.TopicSpeakerEvents).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerTranscripts:   newWriter(cfg.TopicTranscripts),
		writerSpeakerEvents: newWriter(cfg.TopicSpeakerEvents),
		topicTranscripts:    cfg.TopicTranscripts,
		topicSpeakerEvents:  cfg.TopicSpeakerEvents,
		enabled:             true,
	}
}

// PublishTranscript publishes a finalized transcript entry keyed by
// session ID.
func (p *Publisher) PublishTranscript(ctx context.Context, sessionID string, event TranscriptEvent) error {
	event.EventType = "meeting.transcript.final"
	event.SessionID = sessionID
	event.Timestamp = time.Now().UnixMilli()
	return p.publish(ctx, p.writerTranscripts, p.topicTranscripts, sessionID, event)
}

// PublishSpeakerChange publishes a new-speaker notification keyed by
// session ID.
func (p *Publisher) PublishSpeakerChange(ctx context.Context, sessionID string, event SpeakerEvent) error {
	event.EventType = "meeting.speaker.change"
	event.SessionID = sessionID
	event.Timestamp = time.Now().UnixMilli()
	return p.publish(ctx, p.writerSpeakerEvents, p.topicSpeakerEvents, sessionID, event)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		observability.RecordEventPublished(topic, nil)
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		observability.RecordEventPublished(topic, err)
		return err
	}

	observability.RecordEventPublished(topic, nil)
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerTranscripts != nil {
		if e := p.writerTranscripts.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing transcript writer")
			err = e
		}
	}
	if p.writerSpeakerEvents != nil {
		if e := p.writerSpeakerEvents.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing speaker event writer")
			err = e
		}
	}
	return err
}
