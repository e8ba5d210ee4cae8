package server

import (
	"encoding/json"
	"net/http"
	"strconv"
)

type providerListRequest struct {
	Providers []ProviderConfig `json:"providers"`
}

type testProviderRequest struct {
	Provider ProviderConfig `json:"provider"`
}

type settingsResponse struct {
	VoteThreshold int `json:"vote_threshold"`
}

func (s *Server) handleGetProviders(w http.ResponseWriter, r *http.Request) {
	settings := s.loadSettings()
	// Secrets stay server-side; only shape and status go out.
	views := make([]map[string]any, 0, len(settings.Providers))
	for _, provider := range settings.Providers {
		views = append(views, map[string]any{
			"type":       provider.Type,
			"enabled":    provider.Enabled,
			"priority":   provider.Priority,
			"configured": provider.APIKey != "" || (provider.ClientID != "" && provider.ClientSecret != ""),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": views})
}

func (s *Server) handlePutProviders(w http.ResponseWriter, r *http.Request) {
	var req providerListRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for _, provider := range req.Providers {
		if provider.Type != providerRAWG && provider.Type != providerIGDB {
			writeError(w, http.StatusBadRequest, "unknown provider type: "+provider.Type)
			return
		}
	}
	encoded, err := json.Marshal(req.Providers)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save providers")
		return
	}
	if err := s.writeSetting(settingProviders, string(encoded)); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save providers")
		return
	}
	s.logger.Info("provider settings updated", "count", len(req.Providers))
	writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func (s *Server) handleTestProvider(w http.ResponseWriter, r *http.Request) {
	var req testProviderRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	provider, err := s.buildProvider(req.Provider)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := provider.Test(r.Context()); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "detail": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "detail": "provider reachable"})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings := s.loadSettings()
	writeJSON(w, http.StatusOK, settingsResponse{VoteThreshold: settings.VoteThreshold})
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsResponse
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.VoteThreshold < 1 {
		writeError(w, http.StatusBadRequest, "vote_threshold must be at least 1")
		return
	}
	if err := s.writeSetting(settingVoteThreshold, strconv.Itoa(req.VoteThreshold)); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}
