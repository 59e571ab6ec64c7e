package http

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"club-survey-engine/internal/app"
	"club-survey-engine/internal/domain"
)

// WSHandler streams statistics snapshots for one survey: an initial snapshot
// on connect, then one per accepted submission. The feed is reporting-only;
// quiz-taking itself stays on the REST surface.
type WSHandler struct {
	service  *app.SurveyService
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewWSHandler(service *app.SurveyService, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

type statsMessage struct {
	Type    string                  `json:"type"`
	Payload domain.SurveyStatistics `json:"payload"`
}

// ServeStatistics upgrades the request and pushes statistics updates until
// the client goes away.
func (h *WSHandler) ServeStatistics(w http.ResponseWriter, r *http.Request) {
	surveyID := r.URL.Query().Get("surveyId")
	if surveyID == "" {
		http.Error(w, "missing surveyId", http.StatusBadRequest)
		return
	}

	// Validate the survey before upgrading so bad IDs get a plain 404.
	if _, err := h.service.Survey(r.Context(), surveyID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	updates, cancel := h.service.SubscribeStatistics(surveyID)
	defer cancel()

	initial, err := h.service.Statistics(r.Context(), surveyID)
	if err != nil {
		h.log.Warn().Err(err).Str("survey", surveyID).Msg("initial statistics failed")
		return
	}
	if err := conn.WriteJSON(statsMessage{Type: "statistics", Payload: initial}); err != nil {
		return
	}

	// Reader only detects close; clients send nothing meaningful here.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case stats, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(statsMessage{Type: "statistics", Payload: stats}); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
