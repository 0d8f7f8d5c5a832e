package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meetingscribe/diarization-gateway/internal/config"
	"github.com/meetingscribe/diarization-gateway/internal/events"
	"github.com/meetingscribe/diarization-gateway/internal/notes"
	"github.com/meetingscribe/diarization-gateway/internal/observability"
	"github.com/meetingscribe/diarization-gateway/internal/stt"
	"github.com/meetingscribe/diarization-gateway/internal/transport"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("deepgram_model", cfg.DeepgramModel).
		Bool("kafka_enabled", cfg.KafkaEnabled).
		Bool("notes_enabled", cfg.NotesEnabled()).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Diarization Gateway starting")

	// Event publisher is shared across sessions
	publisher := events.New(&events.Config{
		Enabled:            cfg.KafkaEnabled,
		Brokers:            cfg.KafkaBrokers,
		TopicTranscripts:   cfg.KafkaTopicTranscripts,
		TopicSpeakerEvents: cfg.KafkaTopicSpeakerEvents,
	})
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close event publisher")
		}
	}()

	mux := http.NewServeMux()

	// Audio streaming WebSocket endpoint
	mux.HandleFunc("/streams/audio", transport.HandleAudioWS(cfg, publisher))

	// Health check endpoint
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	// Readiness checks validate configuration without making paid API calls
	checks := map[string]observability.HealthCheckFunc{
		"deepgram": func(ctx context.Context) (bool, error) {
			if client := stt.NewDeepgramClient(cfg); client == nil {
				return false, fmt.Errorf("failed to create Deepgram client")
			}
			return true, nil
		},
	}
	if cfg.NotesEnabled() {
		checks["notes"] = func(ctx context.Context) (bool, error) {
			if client := notes.NewOpenAIClient(cfg); client == nil {
				return false, fmt.Errorf("failed to create notes client")
			}
			return true, nil
		}
	}
	mux.HandleFunc("/ready", observability.ReadinessHandler(checks))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("ws://localhost:%s/streams/audio", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}
