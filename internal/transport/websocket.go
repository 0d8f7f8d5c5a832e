// Package transport exposes the websocket surface of the gateway.
// Binary frames carry raw audio, text frames carry JSON control
// commands, and all server output is JSON envelopes.
package transport

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/meetingscribe/diarization-gateway/internal/config"
	"github.com/meetingscribe/diarization-gateway/internal/diarization"
	"github.com/meetingscribe/diarization-gateway/internal/events"
	"github.com/meetingscribe/diarization-gateway/internal/notes"
	"github.com/meetingscribe/diarization-gateway/internal/observability"
	"github.com/meetingscribe/diarization-gateway/internal/session"
	"github.com/meetingscribe/diarization-gateway/internal/stt"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  8192,
	WriteBufferSize: 8192,
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy is enforced upstream at the edge proxy.
		return true
	},
}

// wsSender serializes concurrent writes onto a single websocket
// connection; gorilla/websocket permits only one writer at a time.
type wsSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSender) Send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// HandleAudioWS returns the handler for the audio streaming endpoint.
// Every connection gets its own STT client and diarization engine;
// sessions share only the event publisher.
func HandleAudioWS(cfg *config.Config, publisher *events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log := observability.GetLogger()
			log.Error().Err(err).Msg("Websocket upgrade failed")
			return
		}
		defer conn.Close()

		sessionID := observability.NewSessionID()
		logger := observability.SessionLogger(sessionID)
		logger.Info().Str("remote", r.RemoteAddr).Msg("Client connected")

		engine := diarization.NewEngine(diarization.Config{
			HistorySize:              cfg.SpeakerHistorySize,
			ContextRadius:            cfg.SpeakerContextRadius,
			MinSegmentDuration:       cfg.MinSegmentDuration,
			MaxRapidSwitchTime:       cfg.MaxRapidSwitchTime,
			MinWordsForSpeakerChange: cfg.MinWordsForSpeakerChange,
		}, logger)

		var notesGen notes.Generator
		if cfg.NotesEnabled() {
			notesGen = notes.NewOpenAIClient(cfg)
		}

		sender := &wsSender{conn: conn}
		sess := session.New(sessionID, cfg, stt.NewDeepgramClient(cfg), engine, publisher, notesGen, sender)
		if err := sess.Start(); err != nil {
			logger.Error().Err(err).Msg("Failed to start session")
			_ = sender.Send(session.Envelope{Type: "error", Message: "failed to start transcription session"})
			return
		}
		defer sess.Stop()

		connected := sender.Send(session.Envelope{Type: "connected", Data: map[string]string{
			"session_id": sessionID,
		}})
		if connected != nil {
			logger.Error().Err(connected).Msg("Failed to send connected message")
			return
		}

		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Warn().Err(err).Msg("Websocket closed unexpectedly")
				} else {
					logger.Info().Msg("Client disconnected")
				}
				return
			}

			switch messageType {
			case websocket.BinaryMessage:
				sess.HandleAudio(data)
			case websocket.TextMessage:
				sess.HandleControl(data)
			}

			select {
			case <-sess.Done():
				return
			default:
			}
		}
	}
}
