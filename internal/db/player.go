package db

import "time"

// Player marks a user as a participant of a game once it is promoted
// past voting. At most one membership per (game, user); duplicate
// inserts are no-ops.
type Player struct {
	ID        uint      `gorm:"primaryKey"`
	GameID    uint      `gorm:"index;not null;uniqueIndex:idx_players_game_user"`
	UserID    uint      `gorm:"index;not null;uniqueIndex:idx_players_game_user"`
	JoinedAt  time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
