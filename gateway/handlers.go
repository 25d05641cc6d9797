package gateway

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/benlarsendk/a320-checklist-companion/checklist"
	"github.com/benlarsendk/a320-checklist-companion/flight"
	"github.com/benlarsendk/a320-checklist-companion/settings"
	"github.com/benlarsendk/a320-checklist-companion/simbrief"
)

// itemRequest addresses one checklist item.
type itemRequest struct {
	Phase  string `json:"phase"`
	ItemID string `json:"item_id"`
}

// GET /api/state
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

// GET /api/checklist
func (s *Server) handleChecklists(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"checklists": s.engine.AllChecklists(),
	})
}

// GET /api/checklist/current
func (s *Server) handleCurrentChecklist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap := s.engine.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"phase":     snap.ChecklistState.Phase,
		"checklist": snap.ChecklistState.Checklist,
	})
}

// POST /api/checklist/{check,uncheck,toggle}
func (s *Server) handleItemOp(op string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req itemRequest
		if err := decodeBody(w, r, &req); err != nil || req.Phase == "" || req.ItemID == "" {
			writeError(w, http.StatusBadRequest, "phase and item_id are required")
			return
		}

		var ok bool
		switch op {
		case "check":
			ok = s.engine.CheckItem(req.Phase, req.ItemID)
		case "uncheck":
			ok = s.engine.UncheckItem(req.Phase, req.ItemID)
		default:
			ok = s.engine.ToggleItem(req.Phase, req.ItemID)
		}
		if !ok {
			writeError(w, http.StatusNotFound, "unknown phase or item")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// POST /api/checklist/next
func (s *Server) handleNextPhase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.engine.NextPhase() {
		writeError(w, http.StatusBadRequest, "No next phase available")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"phase":   s.engine.Snapshot().ChecklistState.Phase,
	})
}

// POST /api/checklist/prev
func (s *Server) handlePrevPhase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.engine.PrevPhase() {
		writeError(w, http.StatusBadRequest, "No previous phase available")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"phase":   s.engine.Snapshot().ChecklistState.Phase,
	})
}

// POST /api/checklist/reset
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.engine.Reset()
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// POST /api/checklist/phase
func (s *Server) handleSetPhase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Phase string `json:"phase"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	phase, err := flight.ParsePhase(req.Phase)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.engine.SetPhase(phase)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "phase": phase})
}

// POST /api/mode/{auto,manual}
func (s *Server) handleSetMode(mode string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.engine.SetMode(checklist.PhaseMode(mode))
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "mode": mode})
	}
}

// GET+POST /api/settings
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.settings.Get())

	case http.MethodPost:
		// Partial update: unknown fields keep their current values.
		updated := s.settings.Get()
		wasTraining := updated.TrainingMode
		if err := decodeBody(w, r, &updated); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		saved, err := s.settings.Update(func(cur *settings.Settings) { *cur = updated })
		if err != nil {
			s.logger.Error("Failed to save settings", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save settings")
			return
		}

		if saved.TrainingMode != wasTraining {
			if err := s.engine.SetTrainingMode(saved.TrainingMode); err != nil {
				s.logger.Error("Failed to switch checklist document", "error", err)
				writeError(w, http.StatusInternalServerError, "failed to switch checklist document")
				return
			}
		}
		writeJSON(w, http.StatusOK, saved)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// GET /api/flightplan
func (s *Server) handleFlightPlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	plan := s.simbrief.Plan()
	if plan == nil {
		writeError(w, http.StatusNotFound, "no flight plan loaded")
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// POST /api/flightplan/fetch
func (s *Server) handleFlightPlanFetch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	username := s.settings.SimBriefUsername()
	if username == "" {
		writeError(w, http.StatusBadRequest, "SimBrief username is not configured")
		return
	}

	plan, err := s.simbrief.FetchFlightPlan(r.Context(), username)
	if err != nil {
		var notFound *simbrief.UserNotFoundError
		var network *simbrief.NetworkError
		switch {
		case errors.Is(err, simbrief.ErrUsernameRequired):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &notFound):
			writeError(w, http.StatusNotFound, notFound.Message)
		case errors.As(err, &network):
			writeError(w, http.StatusServiceUnavailable, "SimBrief is unreachable")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	s.engine.SetPlan(plan)
	writeJSON(w, http.StatusOK, plan)
}

// POST /api/flightplan/clear
func (s *Server) handleFlightPlanClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.simbrief.Clear()
	s.engine.ClearPlan()
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GET /api/session/log
func (s *Server) handleSessionLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.session == nil {
		writeJSON(w, http.StatusOK, map[string]any{"entries": []any{}})
		return
	}
	entries, err := s.session.List(r.Context())
	if err != nil {
		s.logger.Error("Failed to list session log", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read session log")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// GET /api/voice/status
func (s *Server) handleVoiceStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.voice == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"enabled": false})
		return
	}
	writeJSON(w, http.StatusOK, s.voice.Status())
}

// POST /api/voice/settings
func (s *Server) handleVoiceSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	updated := s.settings.Get().Voice
	if err := decodeBody(w, r, &updated); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	saved, err := s.settings.Update(func(cur *settings.Settings) { cur.Voice = updated })
	if err != nil {
		s.logger.Error("Failed to save voice settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, saved.Voice)
}

// POST /api/voice/challenge
func (s *Server) handleVoiceChallenge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.voice == nil {
		writeError(w, http.StatusNotFound, "voice is disabled")
		return
	}
	var req itemRequest
	if err := decodeBody(w, r, &req); err != nil || req.Phase == "" || req.ItemID == "" {
		writeError(w, http.StatusBadRequest, "phase and item_id are required")
		return
	}

	cl := s.engine.AllChecklists()[req.Phase]
	if cl == nil {
		writeError(w, http.StatusNotFound, "unknown phase")
		return
	}
	item := cl.Item(req.ItemID)
	if item == nil {
		writeError(w, http.StatusNotFound, "unknown item")
		return
	}
	writeJSON(w, http.StatusOK, s.voice.ReadChallenge(item.ID, item.Challenge, item.Response))
}

// GET /api/network-info
func (s *Server) handleNetworkInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	addresses := localAddresses()
	urls := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		urls = append(urls, (&url.URL{
			Scheme: "http",
			Host:   net.JoinHostPort(addr, strconv.Itoa(s.port)),
		}).String())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"host":      s.host,
		"port":      s.port,
		"addresses": addresses,
		"urls":      urls,
	})
}
