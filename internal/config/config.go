// Package config loads service configuration from the environment.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the diarization gateway.
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Deepgram STT API configuration
	DeepgramAPIKey     string `envconfig:"DEEPGRAM_API_KEY" required:"true"`
	DeepgramModel      string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`
	DeepgramLanguage   string `envconfig:"DEEPGRAM_LANGUAGE" default:"en"`
	DeepgramSampleRate int    `envconfig:"DEEPGRAM_SAMPLE_RATE" default:"16000"` // linear16 PCM from the browser
	DeepgramEncoding   string `envconfig:"DEEPGRAM_ENCODING" default:"linear16"`

	// Speaker validation tuning
	SpeakerHistorySize       int     `envconfig:"SPEAKER_HISTORY_SIZE" default:"10"`       // rolling window of validated assignments
	SpeakerContextRadius     int     `envconfig:"SPEAKER_CONTEXT_RADIUS" default:"3"`      // words each side considered by the vote scorer
	MinSegmentDuration       float64 `envconfig:"MIN_SEGMENT_DURATION" default:"0.3"`      // seconds
	MaxRapidSwitchTime       float64 `envconfig:"MAX_RAPID_SWITCH_TIME" default:"1.0"`     // seconds
	MinWordsForSpeakerChange int     `envconfig:"MIN_WORDS_FOR_SPEAKER_CHANGE" default:"2"`

	// Meeting notes (OpenAI) configuration; notes are disabled when the
	// key is empty
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY" default:""`
	NotesModel   string `envconfig:"NOTES_MODEL" default:"gpt-4o"`

	// Kafka event publishing (optional)
	KafkaEnabled            bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	KafkaBrokers            []string `envconfig:"KAFKA_BROKERS" default:""`
	KafkaTopicTranscripts   string   `envconfig:"KAFKA_TOPIC_TRANSCRIPTS" default:"meeting.transcript.final"`
	KafkaTopicSpeakerEvents string   `envconfig:"KAFKA_TOPIC_SPEAKER_EVENTS" default:"meeting.speaker.change"`

	// Audio forwarding
	AudioQueueFrames int `envconfig:"AUDIO_QUEUE_FRAMES" default:"64"` // buffered frames between websocket and STT

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // seconds
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"` // milliseconds
	ReconnectMaxAttempts       int `envconfig:"RECONNECT_MAX_ATTEMPTS" default:"5"`
	ReconnectBackoff           int `envconfig:"RECONNECT_BACKOFF" default:"1000"` // milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load reads configuration from a .env file if present, then from the
// environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without touching a .env file.
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.DeepgramAPIKey == "" {
		return nil, fmt.Errorf("DEEPGRAM_API_KEY is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}

	return &cfg, nil
}

// NotesEnabled reports whether meeting-notes generation is configured.
func (c *Config) NotesEnabled() bool {
	return c.OpenAIAPIKey != ""
}
