package db

import "time"

// Media and Download are append-only attachment records tied to a game
// (and optionally a run). The bytes live in external storage; only the
// reference is kept here. Deletable by the owning user or an admin.

type Media struct {
	ID        uint      `gorm:"primaryKey"`
	GameID    uint      `gorm:"index;not null"`
	RunID     *uint     `gorm:"index"`
	UserID    uint      `gorm:"index;not null"`
	Kind      string    `gorm:"size:32;not null"`
	Label     string    `gorm:"size:200;not null;default:''"`
	URL       string    `gorm:"size:600;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type Download struct {
	ID        uint      `gorm:"primaryKey"`
	GameID    uint      `gorm:"index;not null"`
	UserID    uint      `gorm:"index;not null"`
	Label     string    `gorm:"size:200;not null;default:''"`
	URL       string    `gorm:"size:600;not null"`
	SizeBytes int64     `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
