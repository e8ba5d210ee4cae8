package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Vigno04/Cooplyst-sub000/internal/db"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type proposeGameRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	APIID       *string `json:"api_id,omitempty"`
	APIProvider *string `json:"api_provider,omitempty"`
}

type gameSummary struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Status          string  `json:"status"`
	StatusChangedAt string  `json:"status_changed_at"`
	YesVotes        int     `json:"yes_votes"`
	PosterURL       *string `json:"poster_url,omitempty"`
	ThumbnailURL    *string `json:"thumbnail_url,omitempty"`
}

type runView struct {
	RunNumber   int     `json:"run_number"`
	Name        string  `json:"name"`
	CompletedAt *string `json:"completed_at"`
}

type gameDetail struct {
	gameSummary
	Description   *string         `json:"description"`
	Genre         *string         `json:"genre"`
	ReleaseYear   *int            `json:"release_year"`
	ReleaseDate   *string         `json:"release_date"`
	Platforms     *string         `json:"platforms"`
	Rating        *float64        `json:"rating"`
	Developer     *string         `json:"developer"`
	AgeRating     *string         `json:"age_rating"`
	TimeToBeat    *string         `json:"time_to_beat"`
	PlayerCounts  *string         `json:"player_counts"`
	Coop          *string         `json:"coop"`
	OnlineOffline *string         `json:"online_offline"`
	Tags          *string         `json:"tags"`
	Website       *string         `json:"website"`
	LogoURL       *string         `json:"logo_url"`
	BackdropURL   *string         `json:"backdrop_url"`
	Screenshots   json.RawMessage `json:"screenshots"`
	Videos        json.RawMessage `json:"videos"`
	APIProvider   *string         `json:"api_provider"`
	MedianRating  *float64        `json:"median_rating"`
	Players       []string        `json:"players"`
	Runs          []runView       `json:"runs"`
}

func (s *Server) loadGame(tx *gorm.DB, publicID string) (*db.Game, error) {
	var game db.Game
	err := tx.Where("public_id = ?", publicID).First(&game).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errGameNotFound
		}
		return nil, err
	}
	return &game, nil
}

func (s *Server) handleProposeGame(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	var req proposeGameRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	title, err := validateTitle(req.Title)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if (req.APIID == nil) != (req.APIProvider == nil) {
		writeError(w, http.StatusBadRequest, "api_id and api_provider must be provided together")
		return
	}

	// Conflict checks run before the insert so a rejected propose
	// leaves nothing behind.
	key := titleKey(title)
	var count int64
	if err := s.db.Model(&db.Game{}).Where("title_key = ?", key).Count(&count).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create game")
		return
	}
	if count > 0 {
		writeRuleError(w, errDuplicateTitle)
		return
	}
	if req.APIID != nil {
		err := s.db.Model(&db.Game{}).
			Where("api_id = ? AND api_provider = ?", *req.APIID, *req.APIProvider).
			Count(&count).Error
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to create game")
			return
		}
		if count > 0 {
			writeRuleError(w, errDuplicateAPIID)
			return
		}
	}

	now := timeNowUTC()
	game := db.Game{
		PublicID:        uuid.NewString(),
		Status:          db.StatusProposed,
		StatusChangedAt: now,
		ProposedByID:    user.ID,
		Title:           title,
		TitleKey:        key,
		Description:     req.Description,
		APIID:           req.APIID,
		APIProvider:     req.APIProvider,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.db.Create(&game).Error; err != nil {
		if isUniqueViolation(err) {
			writeRuleError(w, errDuplicateTitle)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create game")
		return
	}
	s.logger.Info("game proposed", "game_id", game.PublicID, "title", game.Title, "user_id", user.ID)
	writeJSON(w, http.StatusCreated, s.summarize(&game))
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	page, perPage := parsePagination(r, 50, 200)
	query := s.db.Model(&db.Game{}).Order("created_at DESC")
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		if !db.ValidStatus(status) {
			writeRuleError(w, errInvalidStatus)
			return
		}
		query = query.Where("status = ?", status)
	}
	var games []db.Game
	if err := query.Offset((page - 1) * perPage).Limit(perPage).Find(&games).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list games")
		return
	}
	summaries := make([]gameSummary, 0, len(games))
	for i := range games {
		summaries = append(summaries, s.summarize(&games[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"games": summaries,
		"page":  page,
	})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	game, err := s.loadGame(s.db, chi.URLParam(r, "gameID"))
	if err != nil {
		writeRuleError(w, err)
		return
	}
	detail := gameDetail{
		gameSummary:   s.summarize(game),
		Description:   game.Description,
		Genre:         game.Genre,
		ReleaseYear:   game.ReleaseYear,
		ReleaseDate:   game.ReleaseDate,
		Platforms:     game.Platforms,
		Rating:        game.Rating,
		Developer:     game.Developer,
		AgeRating:     game.AgeRating,
		TimeToBeat:    game.TimeToBeat,
		PlayerCounts:  game.PlayerCounts,
		Coop:          game.Coop,
		OnlineOffline: game.OnlineOffline,
		Tags:          game.Tags,
		Website:       game.Website,
		LogoURL:       game.LogoURL,
		BackdropURL:   game.BackdropURL,
		Screenshots:   jsonListOrEmpty(game.Screenshots),
		Videos:        jsonListOrEmpty(game.Videos),
		APIProvider:   game.APIProvider,
	}
	median, ok, err := medianRating(s.db, game.ID)
	if err != nil {
		s.logger.Warn("failed to compute median rating", "game_id", game.PublicID, "error", err)
	} else if ok {
		detail.MedianRating = &median
	}
	detail.Players = s.playerNames(game.ID)
	var runs []db.Run
	if err := s.db.Where("game_id = ?", game.ID).Order("run_number").Find(&runs).Error; err == nil {
		for _, run := range runs {
			view := runView{RunNumber: run.RunNumber, Name: run.Name}
			if run.CompletedAt != nil {
				stamp := run.CompletedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
				view.CompletedAt = &stamp
			}
			detail.Runs = append(detail.Runs, view)
		}
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	game, err := s.loadGame(s.db, chi.URLParam(r, "gameID"))
	if err != nil {
		writeRuleError(w, err)
		return
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id IN (?)",
			tx.Model(&db.Run{}).Select("id").Where("game_id = ?", game.ID),
		).Delete(&db.Rating{}).Error; err != nil {
			return err
		}
		for _, model := range []any{&db.Run{}, &db.Vote{}, &db.Player{}, &db.Media{}, &db.Download{}} {
			if err := tx.Where("game_id = ?", game.ID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&db.Game{}, game.ID).Error
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete game")
		return
	}
	s.logger.Info("game deleted", "game_id", game.PublicID, "title", game.Title)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) summarize(game *db.Game) gameSummary {
	yes, err := yesVoteCount(s.db, game.ID)
	if err != nil {
		s.logger.Warn("failed to count yes-votes", "game_id", game.PublicID, "error", err)
		yes = 0
	}
	return gameSummary{
		ID:              game.PublicID,
		Title:           game.Title,
		Status:          game.Status,
		StatusChangedAt: game.StatusChangedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		YesVotes:        yes,
		PosterURL:       game.PosterURL,
		ThumbnailURL:    game.ThumbnailURL,
	}
}

func (s *Server) playerNames(gameID uint) []string {
	names := make([]string, 0)
	s.db.Model(&db.Player{}).
		Joins("JOIN users ON users.id = players.user_id").
		Where("players.game_id = ?", gameID).
		Order("players.id").
		Pluck("users.username", &names)
	return names
}

func jsonListOrEmpty(raw datatypes.JSON) json.RawMessage {
	if jsonListEmpty(raw) {
		return json.RawMessage("[]")
	}
	return json.RawMessage(raw)
}
