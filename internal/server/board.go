package server

import (
	"net/http"

	"github.com/Vigno04/Cooplyst-sub000/internal/db"
	"github.com/Vigno04/Cooplyst-sub000/internal/web"
)

var boardStatuses = []struct {
	status string
	label  string
}{
	{db.StatusProposed, "Proposed"},
	{db.StatusVoting, "Voting"},
	{db.StatusBacklog, "Backlog"},
	{db.StatusPlaying, "Playing"},
	{db.StatusCompleted, "Completed"},
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	columns := make([]web.BoardColumn, 0, len(boardStatuses))
	for _, entry := range boardStatuses {
		var games []db.Game
		if err := s.db.Where("status = ?", entry.status).Order("created_at").Find(&games).Error; err != nil {
			http.Error(w, "failed to load board", http.StatusInternalServerError)
			return
		}
		column := web.BoardColumn{Status: entry.status, Label: entry.label}
		for i := range games {
			yes, err := yesVoteCount(s.db, games[i].ID)
			if err != nil {
				s.logger.Warn("failed to count yes-votes", "game_id", games[i].PublicID, "error", err)
				yes = 0
			}
			column.Games = append(column.Games, web.BoardGame{
				Title:    games[i].Title,
				YesVotes: yes,
			})
		}
		columns = append(columns, column)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := web.Board(columns).Render(r.Context(), w); err != nil {
		s.logger.Warn("failed to render board", "error", err)
	}
}
