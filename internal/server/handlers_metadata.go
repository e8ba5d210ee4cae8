package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type pickImagesRequest struct {
	Provider  string `json:"provider"`
	Poster    string `json:"poster,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Logo      string `json:"logo,omitempty"`
	Backdrop  string `json:"backdrop,omitempty"`
}

func (s *Server) handleRefreshMetadata(w http.ResponseWriter, r *http.Request) {
	game, err := s.loadGame(s.db, chi.URLParam(r, "gameID"))
	if err != nil {
		writeRuleError(w, err)
		return
	}
	providers := s.buildProviders(s.loadSettings())
	if len(providers) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "no metadata providers are enabled")
		return
	}
	if err := s.refreshGameMetadata(r.Context(), game, providers); err != nil {
		writeRuleError(w, err)
		return
	}
	s.logger.Info("metadata refreshed", "game_id", game.PublicID, "title", game.Title)
	writeJSON(w, http.StatusOK, s.summarize(game))
}

// handlePickImages lets an admin re-point the image slots at any URL
// from the archived provider payloads instead of re-fetching.
func (s *Server) handlePickImages(w http.ResponseWriter, r *http.Request) {
	var req pickImagesRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	game, err := s.loadGame(s.db, chi.URLParam(r, "gameID"))
	if err != nil {
		writeRuleError(w, err)
		return
	}

	var payloads map[string]json.RawMessage
	if len(game.ProviderPayload) > 0 {
		if err := json.Unmarshal(game.ProviderPayload, &payloads); err != nil {
			writeError(w, http.StatusConflict, "stored provider payload is unreadable")
			return
		}
	}
	raw, ok := payloads[req.Provider]
	if !ok {
		writeError(w, http.StatusNotFound, "no stored payload for provider "+req.Provider)
		return
	}
	var archived providerDetails
	if err := json.Unmarshal(raw, &archived); err != nil {
		writeError(w, http.StatusConflict, "stored provider payload is unreadable")
		return
	}

	allowed := make(map[string]struct{})
	for _, candidate := range []*string{
		archived.Images.Poster, archived.Images.Thumbnail,
		archived.Images.Logo, archived.Images.Backdrop,
	} {
		if isSet(candidate) {
			allowed[strings.TrimSpace(*candidate)] = struct{}{}
		}
	}
	for _, shot := range archived.Screenshots {
		allowed[strings.TrimSpace(shot)] = struct{}{}
	}

	pick := func(target **string, value string) bool {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return true
		}
		if _, ok := allowed[trimmed]; !ok {
			return false
		}
		*target = strptr(trimmed)
		return true
	}
	if !pick(&game.PosterURL, req.Poster) ||
		!pick(&game.ThumbnailURL, req.Thumbnail) ||
		!pick(&game.LogoURL, req.Logo) ||
		!pick(&game.BackdropURL, req.Backdrop) {
		writeError(w, http.StatusUnprocessableEntity, "image url is not part of the stored provider payload")
		return
	}

	game.UpdatedAt = timeNowUTC()
	if err := s.db.Save(game).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save images")
		return
	}
	writeJSON(w, http.StatusOK, s.summarize(game))
}
