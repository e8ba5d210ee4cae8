package db

import (
	"time"

	"gorm.io/datatypes"
)

// Game statuses. Status is the single source of truth for where a game
// sits in the workflow; StatusChangedAt is touched on every transition.
const (
	StatusProposed  = "proposed"
	StatusVoting    = "voting"
	StatusBacklog   = "backlog"
	StatusPlaying   = "playing"
	StatusCompleted = "completed"
)

// ValidStatus reports whether value is one of the five game statuses.
func ValidStatus(value string) bool {
	switch value {
	case StatusProposed, StatusVoting, StatusBacklog, StatusPlaying, StatusCompleted:
		return true
	}
	return false
}

type Game struct {
	ID              uint      `gorm:"primaryKey"`
	PublicID        string    `gorm:"size:36;uniqueIndex;not null"`
	Status          string    `gorm:"size:16;not null;default:proposed"`
	StatusChangedAt time.Time `gorm:"not null"`
	ProposedByID    uint      `gorm:"index;not null"`

	// High-water mark for run numbers; keeps numbers monotonic per game
	// so a deleted run's number is never reused.
	RunCounter int `gorm:"not null;default:0"`

	Title    string `gorm:"size:200;not null"`
	TitleKey string `gorm:"size:200;uniqueIndex;not null"`

	Description   *string `gorm:"type:text"`
	Genre         *string `gorm:"size:200"`
	ReleaseYear   *int
	ReleaseDate   *string `gorm:"size:32"`
	Platforms     *string `gorm:"size:400"`
	Rating        *float64
	Developer     *string `gorm:"size:200"`
	AgeRating     *string `gorm:"size:64"`
	TimeToBeat    *string `gorm:"size:64"`
	PlayerCounts  *string `gorm:"size:64"`
	Coop          *string `gorm:"size:64"`
	OnlineOffline *string `gorm:"size:64"`
	Tags          *string `gorm:"size:400"`
	Website       *string `gorm:"size:400"`

	PosterURL    *string `gorm:"size:600"`
	ThumbnailURL *string `gorm:"size:600"`
	LogoURL      *string `gorm:"size:600"`
	BackdropURL  *string `gorm:"size:600"`
	Screenshots  datatypes.JSON
	Videos       datatypes.JSON

	// External identity used to fetch provider details directly instead of
	// re-searching. Unique as a pair when both are present.
	APIID       *string `gorm:"size:64;uniqueIndex:idx_games_api_identity"`
	APIProvider *string `gorm:"size:32;uniqueIndex:idx_games_api_identity"`

	// Raw per-provider detail snapshots keyed by provider name, kept so an
	// admin can re-pick alternate images without another fetch.
	ProviderPayload datatypes.JSON

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Votes     []Vote     `gorm:"constraint:OnDelete:CASCADE"`
	Players   []Player   `gorm:"constraint:OnDelete:CASCADE"`
	Runs      []Run      `gorm:"constraint:OnDelete:CASCADE"`
	Media     []Media    `gorm:"constraint:OnDelete:CASCADE"`
	Downloads []Download `gorm:"constraint:OnDelete:CASCADE"`
}
