package db

import "time"

// Run is one playthrough attempt of a game. RunNumber is 1-based and
// monotonic per game; numbers are never reused even after deletion.
type Run struct {
	ID          uint       `gorm:"primaryKey"`
	GameID      uint       `gorm:"index;not null;uniqueIndex:idx_runs_game_number"`
	RunNumber   int        `gorm:"not null;uniqueIndex:idx_runs_game_number"`
	Name        string     `gorm:"size:120;not null"`
	CompletedAt *time.Time `gorm:"index"`
	CreatedAt   time.Time  `gorm:"not null"`
	UpdatedAt   time.Time  `gorm:"not null"`

	Ratings []Rating `gorm:"constraint:OnDelete:CASCADE"`
}
