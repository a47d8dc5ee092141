package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/medports/portwatch/internal/config"
	"github.com/medports/portwatch/internal/statestore"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"service": "portwatch",
		"ports":   s.cfg.AllowedPorts,
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleVessels returns the currently tracked vessel state
func (s *Server) handleVessels(w http.ResponseWriter, r *http.Request) {
	active, _, err := s.states.Load()
	if err != nil {
		if errors.Is(err, statestore.ErrNoValidState) {
			s.writeError(w, http.StatusInternalServerError, "state unavailable: no valid state file")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to load state")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"tracked": len(active),
		"vessels": active,
	})
}

// handleHistory returns the most recent archived port calls
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	records, err := s.archive.GetRecent(limit)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load history")
		s.writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(records),
		"records": records,
	})
}

// handleReport computes the monthly aggregate for an explicit month
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 2000 || year > 2100 {
		s.writeError(w, http.StatusBadRequest, "invalid year")
		return
	}

	monthNum, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || monthNum < 1 || monthNum > 12 {
		s.writeError(w, http.StatusBadRequest, "invalid month")
		return
	}

	agg, err := s.reportJob.RunForMonth(year, time.Month(monthNum))
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to build report")
		s.writeError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	s.writeJSON(w, http.StatusOK, agg)
}

// handleRun triggers a run outside the schedule.
// mode=monitor reconciles one snapshot; mode=report delivers the report
// for the most recently completed month.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	mode := config.RunMode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = config.ModeMonitor
	}

	switch mode {
	case config.ModeMonitor:
		if err := s.monitorJob.Run(); err != nil {
			s.log.Error().Err(err).Msg("Manual monitor run failed")
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	case config.ModeReport:
		if err := s.reportJob.Run(); err != nil {
			s.log.Error().Err(err).Msg("Manual report run failed")
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	default:
		s.writeError(w, http.StatusBadRequest, "mode must be monitor or report")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "completed", "mode": string(mode)})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
