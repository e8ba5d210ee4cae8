package server

import (
	"errors"
	"net/http"

	"github.com/Vigno04/Cooplyst-sub000/internal/db"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

type addMediaRequest struct {
	URL       string `json:"url"`
	Kind      string `json:"kind"`
	Label     string `json:"label"`
	RunNumber *int   `json:"run_number,omitempty"`
}

type addDownloadRequest struct {
	URL       string `json:"url"`
	Label     string `json:"label"`
	SizeBytes int64  `json:"size_bytes"`
}

type mediaView struct {
	ID        uint   `json:"id"`
	Kind      string `json:"kind"`
	Label     string `json:"label"`
	URL       string `json:"url"`
	UserID    uint   `json:"user_id"`
	RunNumber *int   `json:"run_number,omitempty"`
}

func (s *Server) handleAddMedia(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	var req addMediaRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	mediaURL, err := validateURL(req.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	label, err := validateLabel(req.Label)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	game, err := s.loadGame(s.db, chi.URLParam(r, "gameID"))
	if err != nil {
		writeRuleError(w, err)
		return
	}
	kind := req.Kind
	if kind == "" {
		kind = "image"
	}
	now := timeNowUTC()
	record := db.Media{
		GameID:    game.ID,
		UserID:    user.ID,
		Kind:      kind,
		Label:     label,
		URL:       mediaURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.RunNumber != nil {
		run, err := findRun(s.db, game.ID, *req.RunNumber)
		if err != nil {
			writeRuleError(w, err)
			return
		}
		record.RunID = &run.ID
	}
	if err := s.db.Create(&record).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save media")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": record.ID})
}

func (s *Server) handleListMedia(w http.ResponseWriter, r *http.Request) {
	game, err := s.loadGame(s.db, chi.URLParam(r, "gameID"))
	if err != nil {
		writeRuleError(w, err)
		return
	}
	var records []db.Media
	if err := s.db.Where("game_id = ?", game.ID).Order("id").Find(&records).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list media")
		return
	}
	views := make([]mediaView, 0, len(records))
	for _, record := range records {
		view := mediaView{
			ID:     record.ID,
			Kind:   record.Kind,
			Label:  record.Label,
			URL:    record.URL,
			UserID: record.UserID,
		}
		if record.RunID != nil {
			var run db.Run
			if err := s.db.First(&run, *record.RunID).Error; err == nil {
				view.RunNumber = &run.RunNumber
			}
		}
		views = append(views, view)
	}
	writeJSON(w, http.StatusOK, map[string]any{"media": views})
}

// handleDeleteMedia removes an attachment record. Only the uploading
// user or an admin may delete it.
func (s *Server) handleDeleteMedia(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	game, err := s.loadGame(s.db, chi.URLParam(r, "gameID"))
	if err != nil {
		writeRuleError(w, err)
		return
	}
	mediaID, err := parseUint(chi.URLParam(r, "mediaID"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	var record db.Media
	if err := s.db.Where("id = ? AND game_id = ?", mediaID, game.ID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete media")
		return
	}
	if record.UserID != user.ID && !user.IsAdmin {
		writeRuleError(w, errForbidden)
		return
	}
	if err := s.db.Delete(&db.Media{}, record.ID).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete media")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddDownload(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	var req addDownloadRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	downloadURL, err := validateURL(req.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	label, err := validateLabel(req.Label)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	game, err := s.loadGame(s.db, chi.URLParam(r, "gameID"))
	if err != nil {
		writeRuleError(w, err)
		return
	}
	now := timeNowUTC()
	record := db.Download{
		GameID:    game.ID,
		UserID:    user.ID,
		Label:     label,
		URL:       downloadURL,
		SizeBytes: req.SizeBytes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.Create(&record).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save download")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": record.ID})
}

func (s *Server) handleListDownloads(w http.ResponseWriter, r *http.Request) {
	game, err := s.loadGame(s.db, chi.URLParam(r, "gameID"))
	if err != nil {
		writeRuleError(w, err)
		return
	}
	var records []db.Download
	if err := s.db.Where("game_id = ?", game.ID).Order("id").Find(&records).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list downloads")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"downloads": records})
}

func (s *Server) handleDeleteDownload(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	game, err := s.loadGame(s.db, chi.URLParam(r, "gameID"))
	if err != nil {
		writeRuleError(w, err)
		return
	}
	downloadID, err := parseUint(chi.URLParam(r, "downloadID"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	var record db.Download
	if err := s.db.Where("id = ? AND game_id = ?", downloadID, game.ID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete download")
		return
	}
	if record.UserID != user.ID && !user.IsAdmin {
		writeRuleError(w, errForbidden)
		return
	}
	if err := s.db.Delete(&db.Download{}, record.ID).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete download")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
