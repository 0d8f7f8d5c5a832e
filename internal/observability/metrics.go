package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "meetingscribe_active_sessions",
		Help: "Number of active transcription sessions",
	})

	totalSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meetingscribe_sessions_total",
		Help: "Total number of transcription sessions",
	})

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "meetingscribe_session_duration_seconds",
		Help:    "Duration of transcription sessions in seconds",
		Buckets: []float64{10, 30, 60, 300, 600, 1800, 3600, 7200},
	})

	// Diarization metrics
	wordsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meetingscribe_words_processed_total",
		Help: "Total words run through speaker validation",
	})

	malformedWords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meetingscribe_malformed_words_total",
		Help: "Word events dropped for missing text or negative duration",
	})

	segmentsProduced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meetingscribe_segments_total",
		Help: "Speaker segments finalized",
	})

	speakerChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meetingscribe_speaker_changes_total",
		Help: "New speaker identities detected",
	})

	validatorCorrections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetingscribe_validator_corrections_total",
		Help: "Temporal validator corrections by guard",
	}, []string{"guard"})

	// STT metrics
	sttRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetingscribe_stt_requests_total",
		Help: "Total number of STT requests",
	}, []string{"status"})

	sttResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetingscribe_stt_results_total",
		Help: "STT results received, by kind",
	}, []string{"kind"}) // kind: "final", "interim", "dropped"

	audioBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meetingscribe_audio_bytes_total",
		Help: "Audio bytes forwarded to the STT engine",
	})

	// Event publisher metrics
	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetingscribe_events_published_total",
		Help: "Events published to the broker",
	}, []string{"topic", "status"})

	// Notes metrics
	notesRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetingscribe_notes_requests_total",
		Help: "Meeting-notes generation requests",
	}, []string{"status"})

	notesLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "meetingscribe_notes_latency_seconds",
		Help:    "Meeting-notes generation latency in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30},
	})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "meetingscribe_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetingscribe_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})
)

// RecordSessionStart records the start of a session.
func RecordSessionStart() {
	activeSessions.Inc()
	totalSessions.Inc()
}

// RecordSessionEnd records the end of a session and its duration.
func RecordSessionEnd(started time.Time) {
	activeSessions.Dec()
	sessionDuration.Observe(time.Since(started).Seconds())
}

// RecordWordsProcessed counts words run through validation.
func RecordWordsProcessed(n int) {
	wordsProcessed.Add(float64(n))
}

// RecordMalformedWord counts a dropped malformed word event.
func RecordMalformedWord() {
	malformedWords.Inc()
}

// RecordSegments counts finalized speaker segments.
func RecordSegments(n int) {
	segmentsProduced.Add(float64(n))
}

// RecordSpeakerChange counts a newly detected speaker identity.
func RecordSpeakerChange() {
	speakerChanges.Inc()
}

// RecordValidatorCorrection counts a temporal correction by guard name.
func RecordValidatorCorrection(guard string) {
	validatorCorrections.WithLabelValues(guard).Inc()
}

// RecordSTTRequest counts an STT request by outcome.
func RecordSTTRequest(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	sttRequests.WithLabelValues(status).Inc()
}

// RecordSTTResult counts a received STT result by kind.
func RecordSTTResult(kind string) {
	sttResults.WithLabelValues(kind).Inc()
}

// RecordAudioBytes counts audio bytes forwarded upstream.
func RecordAudioBytes(n int) {
	audioBytes.Add(float64(n))
}

// RecordEventPublished counts a broker publish by outcome.
func RecordEventPublished(topic string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	eventsPublished.WithLabelValues(topic, status).Inc()
}

// RecordNotesRequest counts a notes generation request and its latency.
func RecordNotesRequest(err error, elapsed time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	notesRequests.WithLabelValues(status).Inc()
	notesLatency.Observe(elapsed.Seconds())
}

// UpdateCircuitBreakerState records the state of a circuit breaker.
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures counts a circuit breaker failure.
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
