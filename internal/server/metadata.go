package server

import (
	"net/url"
	"strings"
)

// imageSet holds the four image slots a provider (or the merged
// result) can fill.
type imageSet struct {
	Poster    *string `json:"poster"`
	Thumbnail *string `json:"thumbnail"`
	Logo      *string `json:"logo"`
	Backdrop  *string `json:"backdrop"`
}

type videoEntry struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Provider string `json:"provider"`
}

// providerDetails is the normalized rich record every provider adapter
// returns; the merge consumes a priority-ordered list of these.
type providerDetails struct {
	Provider      string       `json:"provider"`
	APIID         string       `json:"api_id"`
	Title         *string      `json:"title"`
	Description   *string      `json:"description"`
	Genre         *string      `json:"genre"`
	ReleaseYear   *int         `json:"release_year"`
	ReleaseDate   *string      `json:"release_date"`
	Platforms     *string      `json:"platforms"`
	Rating        *float64     `json:"rating"`
	Developer     *string      `json:"developer"`
	Tags          *string      `json:"tags"`
	Website       *string      `json:"website"`
	AgeRating     *string      `json:"age_rating"`
	TimeToBeat    *string      `json:"time_to_beat"`
	PlayerCounts  *string      `json:"player_counts"`
	Coop          *string      `json:"coop"`
	OnlineOffline *string      `json:"online_offline"`
	Images        imageSet     `json:"images"`
	Screenshots   []string     `json:"screenshots"`
	Videos        []videoEntry `json:"videos"`
}

// gameMetadata is the merge output applied to a game's empty fields.
type gameMetadata struct {
	Title         *string      `json:"title"`
	Description   *string      `json:"description"`
	Genre         *string      `json:"genre"`
	ReleaseYear   *int         `json:"release_year"`
	ReleaseDate   *string      `json:"release_date"`
	Platforms     *string      `json:"platforms"`
	Rating        *float64     `json:"rating"`
	Developer     *string      `json:"developer"`
	Tags          *string      `json:"tags"`
	Website       *string      `json:"website"`
	AgeRating     *string      `json:"age_rating"`
	TimeToBeat    *string      `json:"time_to_beat"`
	PlayerCounts  *string      `json:"player_counts"`
	Coop          *string      `json:"coop"`
	OnlineOffline *string      `json:"online_offline"`
	Images        imageSet     `json:"images"`
	Screenshots   []string     `json:"screenshots"`
	Videos        []videoEntry `json:"videos"`
}

// mergeProviderDetails folds the fetched detail records, in priority
// order, into one metadata object. Scalars are first-set-wins: once a
// provider has contributed a field, later providers never override it.
func mergeProviderDetails(details []*providerDetails) *gameMetadata {
	merged := &gameMetadata{}
	for _, detail := range details {
		if detail == nil {
			continue
		}
		mergeScalars(merged, detail)
		merged.Screenshots = appendScreenshots(merged.Screenshots, detail.Screenshots)
		merged.Videos = append(merged.Videos, filterVideos(detail.Videos, detail.Provider)...)
	}
	merged.Videos = dedupeVideos(merged.Videos)
	applyImageFallbacks(&merged.Images)
	return merged
}

func mergeScalars(merged *gameMetadata, detail *providerDetails) {
	if !isSet(merged.Title) && isSet(detail.Title) {
		merged.Title = detail.Title
	}
	if !isSet(merged.Description) && isSet(detail.Description) {
		merged.Description = detail.Description
	}
	if !isSet(merged.Genre) && isSet(detail.Genre) {
		merged.Genre = detail.Genre
	}
	if !intSet(merged.ReleaseYear) && intSet(detail.ReleaseYear) {
		merged.ReleaseYear = detail.ReleaseYear
	}
	if !isSet(merged.ReleaseDate) && isSet(detail.ReleaseDate) {
		merged.ReleaseDate = detail.ReleaseDate
	}
	if !isSet(merged.Platforms) && isSet(detail.Platforms) {
		merged.Platforms = detail.Platforms
	}
	if !floatSet(merged.Rating) && floatSet(detail.Rating) {
		merged.Rating = detail.Rating
	}
	if !isSet(merged.Developer) && isSet(detail.Developer) {
		merged.Developer = detail.Developer
	}
	if !isSet(merged.Tags) && isSet(detail.Tags) {
		merged.Tags = detail.Tags
	}
	if !isSet(merged.Website) && isSet(detail.Website) {
		merged.Website = detail.Website
	}
	if !isSet(merged.AgeRating) && isSet(detail.AgeRating) {
		merged.AgeRating = detail.AgeRating
	}
	if !isSet(merged.TimeToBeat) && isSet(detail.TimeToBeat) {
		merged.TimeToBeat = detail.TimeToBeat
	}
	if !isSet(merged.PlayerCounts) && isSet(detail.PlayerCounts) {
		merged.PlayerCounts = detail.PlayerCounts
	}
	if !isSet(merged.Coop) && isSet(detail.Coop) {
		merged.Coop = detail.Coop
	}
	if !isSet(merged.OnlineOffline) && isSet(detail.OnlineOffline) {
		merged.OnlineOffline = detail.OnlineOffline
	}
	if !isSet(merged.Images.Poster) && isSet(detail.Images.Poster) {
		merged.Images.Poster = detail.Images.Poster
	}
	if !isSet(merged.Images.Thumbnail) && isSet(detail.Images.Thumbnail) {
		merged.Images.Thumbnail = detail.Images.Thumbnail
	}
	if !isSet(merged.Images.Logo) && isSet(detail.Images.Logo) {
		merged.Images.Logo = detail.Images.Logo
	}
	if !isSet(merged.Images.Backdrop) && isSet(detail.Images.Backdrop) {
		merged.Images.Backdrop = detail.Images.Backdrop
	}
}

// appendScreenshots unions screenshot URLs, deduplicated by exact
// string after trim, preserving first-seen order.
func appendScreenshots(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, shot := range existing {
		seen[shot] = struct{}{}
	}
	for _, shot := range incoming {
		trimmed := strings.TrimSpace(shot)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		existing = append(existing, trimmed)
	}
	return existing
}

// applyImageFallbacks fills the backdrop and thumbnail slots from the
// other slots when they ended up empty after the merge.
func applyImageFallbacks(images *imageSet) {
	if !isSet(images.Backdrop) {
		switch {
		case isSet(images.Poster):
			images.Backdrop = images.Poster
		case isSet(images.Thumbnail):
			images.Backdrop = images.Thumbnail
		}
	}
	if !isSet(images.Thumbnail) {
		switch {
		case isSet(images.Poster):
			images.Thumbnail = images.Poster
		case isSet(images.Backdrop):
			images.Thumbnail = images.Backdrop
		}
	}
}

// filterVideos keeps only trailers: an entry whose type or name
// mentions "trailer" (case-insensitively), with "gameplay trailer"
// classified separately.
func filterVideos(videos []videoEntry, provider string) []videoEntry {
	out := make([]videoEntry, 0, len(videos))
	for _, video := range videos {
		haystack := strings.ToLower(video.Type + " " + video.Name)
		switch {
		case strings.Contains(haystack, "gameplay trailer"):
			video.Type = "gameplay_trailer"
		case strings.Contains(haystack, "trailer"):
			video.Type = "trailer"
		default:
			continue
		}
		video.URL = canonicalVideoURL(video.URL)
		if video.Provider == "" {
			video.Provider = provider
		}
		out = append(out, video)
	}
	return out
}

// dedupeVideos removes duplicates by canonicalized URL plus normalized
// name, keeping first-seen order.
func dedupeVideos(videos []videoEntry) []videoEntry {
	seen := make(map[string]struct{}, len(videos))
	out := make([]videoEntry, 0, len(videos))
	for _, video := range videos {
		key := video.URL + "|" + titleKey(video.Name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, video)
	}
	return out
}

// canonicalVideoURL rewrites the three YouTube link shapes (watch?v=,
// youtu.be/<id>, /embed/<id>) to a single watch form and strips URL
// fragments for every other host.
func canonicalVideoURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return trimmed
	}
	host := strings.ToLower(parsed.Host)
	if id := youtubeVideoID(host, parsed); id != "" {
		return "https://www.youtube.com/watch?v=" + id
	}
	parsed.Fragment = ""
	return parsed.String()
}

func youtubeVideoID(host string, parsed *url.URL) string {
	switch {
	case host == "youtu.be" || host == "www.youtu.be":
		return strings.Trim(parsed.Path, "/")
	case strings.HasSuffix(host, "youtube.com"):
		if id := parsed.Query().Get("v"); id != "" {
			return id
		}
		if rest, ok := strings.CutPrefix(parsed.Path, "/embed/"); ok {
			return strings.Trim(rest, "/")
		}
	}
	return ""
}
