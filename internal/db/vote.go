package db

import "time"

// Vote is a user's current vote on a game, one mutable row per
// (game, user). Casting again overwrites the value and timestamp.
type Vote struct {
	ID        uint      `gorm:"primaryKey"`
	GameID    uint      `gorm:"index;not null;uniqueIndex:idx_votes_game_user"`
	UserID    uint      `gorm:"index;not null;uniqueIndex:idx_votes_game_user"`
	Value     int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
