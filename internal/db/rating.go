package db

import "time"

// Rating is a player's score for a run, one mutable row per
// (run, user). Resubmitting overwrites rather than accumulates.
type Rating struct {
	ID        uint      `gorm:"primaryKey"`
	RunID     uint      `gorm:"index;not null;uniqueIndex:idx_ratings_run_user"`
	UserID    uint      `gorm:"index;not null;uniqueIndex:idx_ratings_run_user"`
	Score     int       `gorm:"not null"`
	Comment   string    `gorm:"size:600;not null;default:''"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
