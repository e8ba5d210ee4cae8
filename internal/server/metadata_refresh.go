package server

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Vigno04/Cooplyst-sub000/internal/db"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// fetchProviderDetails runs the per-provider lookup policy: a stored
// matching external identity is fetched directly by id, otherwise the
// provider is searched and the best-scoring candidate fetched. A
// provider error is logged and skipped; the remaining providers still
// run.
func (s *Server) fetchProviderDetails(ctx context.Context, game *db.Game, providers []metadataProvider) []*providerDetails {
	fetched := make([]*providerDetails, 0, len(providers))
	for _, provider := range providers {
		detail, err := s.fetchOneProvider(ctx, game, provider)
		if err != nil {
			s.logger.Warn("metadata provider failed",
				"provider", provider.Name(), "game_id", game.ID, "error", err)
			continue
		}
		if detail != nil {
			fetched = append(fetched, detail)
		}
	}
	return fetched
}

func (s *Server) fetchOneProvider(ctx context.Context, game *db.Game, provider metadataProvider) (*providerDetails, error) {
	if isSet(game.APIID) && isSet(game.APIProvider) && *game.APIProvider == provider.Name() {
		return provider.Details(ctx, *game.APIID)
	}
	results, err := provider.Search(ctx, game.Title)
	if err != nil {
		return nil, err
	}
	match := bestMatch(results, game.Title, game.ReleaseYear)
	if match == nil || strings.TrimSpace(match.APIID) == "" {
		return nil, nil
	}
	return provider.Details(ctx, match.APIID)
}

// applyMetadata copies merged values into the game's currently empty
// fields only; anything the game already has stays untouched.
// Screenshots and videos are treated as whole lists. Reports whether
// anything changed.
func applyMetadata(game *db.Game, merged *gameMetadata) bool {
	changed := false
	setStr := func(target **string, value *string) {
		if !isSet(*target) && isSet(value) {
			*target = value
			changed = true
		}
	}
	setStr(&game.Description, merged.Description)
	setStr(&game.Genre, merged.Genre)
	setStr(&game.ReleaseDate, merged.ReleaseDate)
	setStr(&game.Platforms, merged.Platforms)
	setStr(&game.Developer, merged.Developer)
	setStr(&game.AgeRating, merged.AgeRating)
	setStr(&game.TimeToBeat, merged.TimeToBeat)
	setStr(&game.PlayerCounts, merged.PlayerCounts)
	setStr(&game.Coop, merged.Coop)
	setStr(&game.OnlineOffline, merged.OnlineOffline)
	setStr(&game.Tags, merged.Tags)
	setStr(&game.Website, merged.Website)
	setStr(&game.PosterURL, merged.Images.Poster)
	setStr(&game.ThumbnailURL, merged.Images.Thumbnail)
	setStr(&game.LogoURL, merged.Images.Logo)
	setStr(&game.BackdropURL, merged.Images.Backdrop)
	if game.ReleaseYear == nil && merged.ReleaseYear != nil {
		game.ReleaseYear = merged.ReleaseYear
		changed = true
	}
	if game.Rating == nil && merged.Rating != nil {
		game.Rating = merged.Rating
		changed = true
	}
	if jsonListEmpty(game.Screenshots) && len(merged.Screenshots) > 0 {
		if encoded, err := json.Marshal(merged.Screenshots); err == nil {
			game.Screenshots = datatypes.JSON(encoded)
			changed = true
		}
	}
	if jsonListEmpty(game.Videos) && len(merged.Videos) > 0 {
		if encoded, err := json.Marshal(merged.Videos); err == nil {
			game.Videos = datatypes.JSON(encoded)
			changed = true
		}
	}
	return changed
}

func jsonListEmpty(raw datatypes.JSON) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null" || trimmed == "[]"
}

// archivePayloads stores each provider's full detail object verbatim,
// keyed by provider name, merged over any snapshots from earlier
// passes so an admin can re-pick alternate images later.
func archivePayloads(game *db.Game, details []*providerDetails) error {
	payloads := make(map[string]json.RawMessage)
	if len(game.ProviderPayload) > 0 {
		_ = json.Unmarshal(game.ProviderPayload, &payloads)
	}
	for _, detail := range details {
		encoded, err := json.Marshal(detail)
		if err != nil {
			return err
		}
		payloads[detail.Provider] = encoded
	}
	encoded, err := json.Marshal(payloads)
	if err != nil {
		return err
	}
	game.ProviderPayload = datatypes.JSON(encoded)
	return nil
}

// refreshGameMetadata runs one full merge pass for the game. When no
// provider contributes anything the game is left exactly as it was;
// a partial merge is applied and never rolled back.
func (s *Server) refreshGameMetadata(ctx context.Context, game *db.Game, providers []metadataProvider) error {
	details := s.fetchProviderDetails(ctx, game, providers)
	if len(details) == 0 {
		return errNoProviders
	}

	merged := mergeProviderDetails(details)
	applyMetadata(game, merged)
	if err := archivePayloads(game, details); err != nil {
		return err
	}
	if !isSet(game.APIID) || !isSet(game.APIProvider) {
		first := details[0]
		game.APIID = strptr(first.APIID)
		game.APIProvider = strptr(first.Provider)
	}
	game.UpdatedAt = timeNowUTC()

	return s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Save(game).Error
	})
}
