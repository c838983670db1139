package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fragwatch/fragwatch/internal/timer"
	"github.com/rs/zerolog/log"
)

// timerView is the JSON shape of the /api/timer response.
type timerView struct {
	State       string `json:"state"`
	NextCheckAt int64  `json:"next_check_at,omitempty"`
	NextCheck   string `json:"next_check,omitempty"`
	FirstRun    bool   `json:"first_run,omitempty"`
}

// handleCheck runs exactly one evaluation and returns its result as JSON.
// Evaluations are serialized; concurrent triggers queue behind the mutex.
func (s *Server) handleCheck(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	res := s.engine.Run()
	s.mu.Unlock()

	status := http.StatusOK
	if res.Failed() {
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(res)
}

// handleTimer reports the cooldown state without side effects.
func (s *Server) handleTimer(w http.ResponseWriter, _ *http.Request) {
	view := timerView{State: "ARMED"}

	nextCheckAt, err := s.timerStore.Read()
	switch {
	case errors.Is(err, timer.ErrNotFound):
		// Absent timer means immediately eligible, not an error.
		view.FirstRun = true
	case err != nil:
		log.Error().Err(err).Msg("Failed to read the cooldown timer")
		http.Error(w, "Storage Error", http.StatusInternalServerError)
		return
	default:
		view.NextCheckAt = nextCheckAt
		view.NextCheck = timer.HumanTime(nextCheckAt)
		if time.Now().Unix() < nextCheckAt {
			view.State = "COOLING"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(view)
}

// handleHealth is the unauthenticated liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}
