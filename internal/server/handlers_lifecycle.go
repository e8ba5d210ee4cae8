package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Vigno04/Cooplyst-sub000/internal/db"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type castVoteRequest struct {
	Value int `json:"value"`
}

type setStatusRequest struct {
	Status string `json:"status"`
}

type startRunRequest struct {
	Name string `json:"name"`
}

type ratingRequest struct {
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

type addPlayerRequest struct {
	UserID uint `json:"user_id"`
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	var req castVoteRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	threshold := s.loadSettings().VoteThreshold

	var game *db.Game
	var promoted bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		game, err = s.loadGame(tx, chi.URLParam(r, "gameID"))
		if err != nil {
			return err
		}
		promoted, err = castVote(tx, game, user.ID, req.Value, threshold)
		return err
	})
	if err != nil {
		writeRuleError(w, err)
		return
	}
	if promoted {
		s.logger.Info("game promoted to backlog", "game_id", game.PublicID, "threshold", threshold)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   game.Status,
		"promoted": promoted,
	})
}

func (s *Server) handleResetVotes(w http.ResponseWriter, r *http.Request) {
	var game *db.Game
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		game, err = s.loadGame(tx, chi.URLParam(r, "gameID"))
		if err != nil {
			return err
		}
		return resetVotes(tx, game)
	})
	if err != nil {
		writeRuleError(w, err)
		return
	}
	s.logger.Info("votes reset", "game_id", game.PublicID, "status", game.Status)
	writeJSON(w, http.StatusOK, map[string]any{"status": game.Status})
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	target := strings.TrimSpace(req.Status)

	var game *db.Game
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		game, err = s.loadGame(tx, chi.URLParam(r, "gameID"))
		if err != nil {
			return err
		}
		return forceStatus(tx, game, target)
	})
	if err != nil {
		writeRuleError(w, err)
		return
	}
	s.logger.Info("status forced", "game_id", game.PublicID, "status", game.Status)
	writeJSON(w, http.StatusOK, map[string]any{"status": game.Status})
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req startRunRequest
	if r.ContentLength > 0 {
		if err := readJSON(r.Body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var game *db.Game
	var run *db.Run
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		game, err = s.loadGame(tx, chi.URLParam(r, "gameID"))
		if err != nil {
			return err
		}
		run, err = startRun(tx, game, strings.TrimSpace(req.Name))
		return err
	})
	if err != nil {
		writeRuleError(w, err)
		return
	}
	s.logger.Info("run started", "game_id", game.PublicID, "run_number", run.RunNumber)
	writeJSON(w, http.StatusCreated, map[string]any{
		"run_number": run.RunNumber,
		"name":       run.Name,
		"status":     game.Status,
	})
}

func (s *Server) runFromRequest(tx *gorm.DB, r *http.Request, game *db.Game) (*db.Run, error) {
	number, err := strconv.Atoi(chi.URLParam(r, "runNumber"))
	if err != nil || number < 1 {
		return nil, errRunNotFound
	}
	return findRun(tx, game.ID, number)
}

func (s *Server) handleCompleteRun(w http.ResponseWriter, r *http.Request) {
	var game *db.Game
	var run *db.Run
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		game, err = s.loadGame(tx, chi.URLParam(r, "gameID"))
		if err != nil {
			return err
		}
		run, err = s.runFromRequest(tx, r, game)
		if err != nil {
			return err
		}
		return completeRun(tx, game, run)
	})
	if err != nil {
		writeRuleError(w, err)
		return
	}
	s.logger.Info("run completed", "game_id", game.PublicID, "run_number", run.RunNumber, "status", game.Status)
	writeJSON(w, http.StatusOK, map[string]any{"status": game.Status})
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	var game *db.Game
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		game, err = s.loadGame(tx, chi.URLParam(r, "gameID"))
		if err != nil {
			return err
		}
		run, err := s.runFromRequest(tx, r, game)
		if err != nil {
			return err
		}
		return deleteRun(tx, game, run)
	})
	if err != nil {
		writeRuleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": game.Status})
}

func (s *Server) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	var req ratingRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Comment) > maxCommentLength {
		writeError(w, http.StatusBadRequest, "comment is too long")
		return
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		game, err := s.loadGame(tx, chi.URLParam(r, "gameID"))
		if err != nil {
			return err
		}
		run, err := s.runFromRequest(tx, r, game)
		if err != nil {
			return err
		}
		return submitRating(tx, game, run, user.ID, req.Score, strings.TrimSpace(req.Comment))
	})
	if err != nil {
		writeRuleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func (s *Server) handleAddPlayer(w http.ResponseWriter, r *http.Request) {
	var req addPlayerRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	game, err := s.loadGame(s.db, chi.URLParam(r, "gameID"))
	if err != nil {
		writeRuleError(w, err)
		return
	}
	var count int64
	if err := s.db.Model(&db.User{}).Where("id = ?", req.UserID).Count(&count).Error; err != nil || count == 0 {
		writeRuleError(w, errUserNotFound)
		return
	}
	now := timeNowUTC()
	player := db.Player{GameID: game.ID, UserID: req.UserID, JoinedAt: now, CreatedAt: now, UpdatedAt: now}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&player).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "failed to add player")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"result": "ok"})
}

func (s *Server) handleRemovePlayer(w http.ResponseWriter, r *http.Request) {
	game, err := s.loadGame(s.db, chi.URLParam(r, "gameID"))
	if err != nil {
		writeRuleError(w, err)
		return
	}
	userID, err := parseUint(chi.URLParam(r, "userID"))
	if err != nil {
		writeRuleError(w, errUserNotFound)
		return
	}
	if err := s.db.Where("game_id = ? AND user_id = ?", game.ID, userID).Delete(&db.Player{}).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "failed to remove player")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
