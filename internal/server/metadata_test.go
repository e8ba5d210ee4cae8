package server

import (
	"encoding/json"
	"testing"

	"github.com/Vigno04/Cooplyst-sub000/internal/db"

	"gorm.io/datatypes"
)

func TestMergeScalarsFirstSetWins(t *testing.T) {
	details := []*providerDetails{
		{
			Provider:    "rawg",
			Description: strptr("A co-op heist."),
		},
		{
			Provider:    "igdb",
			Description: strptr("Different text."),
			Rating:      floatptr(8.5),
		},
	}
	merged := mergeProviderDetails(details)
	if merged.Description == nil || *merged.Description != "A co-op heist." {
		t.Fatalf("description must come from the first provider, got %v", merged.Description)
	}
	if merged.Rating == nil || *merged.Rating != 8.5 {
		t.Fatalf("rating must fall through to the second provider, got %v", merged.Rating)
	}
}

func TestMergeSkipsEmptyAndNilValues(t *testing.T) {
	details := []*providerDetails{
		{Provider: "rawg", Genre: strptr("   ")},
		nil,
		{Provider: "igdb", Genre: strptr("Roguelike")},
	}
	merged := mergeProviderDetails(details)
	if merged.Genre == nil || *merged.Genre != "Roguelike" {
		t.Fatalf("whitespace-only value must not count as set, got %v", merged.Genre)
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	details := []*providerDetails{
		{
			Provider:    "rawg",
			Title:       strptr("Hades"),
			ReleaseYear: intptr(2020),
			Screenshots: []string{"https://img.example/1.jpg"},
		},
	}
	first := mergeProviderDetails(details)
	second := mergeProviderDetails(details)
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("merge must be deterministic:\n%s\n%s", a, b)
	}
}

func TestScreenshotsUnionDeduped(t *testing.T) {
	details := []*providerDetails{
		{Provider: "rawg", Screenshots: []string{"https://a/1.jpg", "https://a/2.jpg", ""}},
		{Provider: "igdb", Screenshots: []string{" https://a/2.jpg ", "https://b/3.jpg"}},
	}
	merged := mergeProviderDetails(details)
	want := []string{"https://a/1.jpg", "https://a/2.jpg", "https://b/3.jpg"}
	if len(merged.Screenshots) != len(want) {
		t.Fatalf("expected %d screenshots, got %v", len(want), merged.Screenshots)
	}
	for i, shot := range want {
		if merged.Screenshots[i] != shot {
			t.Fatalf("screenshot %d: expected %s, got %s", i, shot, merged.Screenshots[i])
		}
	}
}

func TestFilterVideosKeepsOnlyTrailers(t *testing.T) {
	videos := []videoEntry{
		{Name: "Launch Trailer", URL: "https://youtu.be/abc123"},
		{Name: "Gameplay Trailer", URL: "https://www.youtube.com/watch?v=def456"},
		{Name: "Dev Diary #4", URL: "https://youtu.be/zzz999"},
		{Type: "trailer", Name: "Teaser", URL: "https://www.youtube.com/embed/ghi789"},
	}
	out := filterVideos(videos, "rawg")
	if len(out) != 3 {
		t.Fatalf("expected 3 trailers, got %d: %v", len(out), out)
	}
	if out[0].Type != "trailer" || out[1].Type != "gameplay_trailer" || out[2].Type != "trailer" {
		t.Fatalf("unexpected classification: %v", out)
	}
	for _, video := range out {
		if video.Provider != "rawg" {
			t.Fatalf("provider must be stamped, got %q", video.Provider)
		}
	}
}

func TestCanonicalVideoURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"https://www.youtube.com/watch?v=abc123&t=42", "https://www.youtube.com/watch?v=abc123"},
		{"https://youtu.be/abc123", "https://www.youtube.com/watch?v=abc123"},
		{"https://www.youtube.com/embed/abc123", "https://www.youtube.com/watch?v=abc123"},
		{"https://vimeo.com/123456#chapter", "https://vimeo.com/123456"},
		{"not a url at all", "not a url at all"},
	}
	for _, tc := range cases {
		if got := canonicalVideoURL(tc.in); got != tc.want {
			t.Fatalf("canonicalVideoURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDedupeVideosAcrossLinkForms(t *testing.T) {
	details := []*providerDetails{
		{Provider: "rawg", Videos: []videoEntry{
			{Name: "Launch Trailer", URL: "https://www.youtube.com/watch?v=abc123"},
		}},
		{Provider: "igdb", Videos: []videoEntry{
			{Name: "Launch  trailer", URL: "https://youtu.be/abc123"},
			{Name: "Launch Trailer", URL: "https://youtu.be/other99"},
		}},
	}
	merged := mergeProviderDetails(details)
	if len(merged.Videos) != 2 {
		t.Fatalf("expected 2 videos after dedup, got %v", merged.Videos)
	}
	if merged.Videos[0].Provider != "rawg" {
		t.Fatalf("first occurrence must win, got provider %q", merged.Videos[0].Provider)
	}
}

func TestImageFallbacks(t *testing.T) {
	merged := mergeProviderDetails([]*providerDetails{
		{Provider: "rawg", Images: imageSet{Poster: strptr("https://img/poster.jpg")}},
	})
	if merged.Images.Backdrop == nil || *merged.Images.Backdrop != "https://img/poster.jpg" {
		t.Fatalf("backdrop must fall back to poster, got %v", merged.Images.Backdrop)
	}
	if merged.Images.Thumbnail == nil || *merged.Images.Thumbnail != "https://img/poster.jpg" {
		t.Fatalf("thumbnail must fall back to poster, got %v", merged.Images.Thumbnail)
	}

	merged = mergeProviderDetails([]*providerDetails{
		{Provider: "rawg", Images: imageSet{Thumbnail: strptr("https://img/thumb.jpg")}},
	})
	if merged.Images.Backdrop == nil || *merged.Images.Backdrop != "https://img/thumb.jpg" {
		t.Fatalf("backdrop must fall back to thumbnail, got %v", merged.Images.Backdrop)
	}

	merged = mergeProviderDetails([]*providerDetails{{Provider: "rawg"}})
	if merged.Images.Backdrop != nil || merged.Images.Thumbnail != nil {
		t.Fatalf("no fallback source means slots stay empty, got %+v", merged.Images)
	}
}

func TestApplyMetadataFillsOnlyEmptyFields(t *testing.T) {
	game := &db.Game{
		Description: strptr("Kept by hand."),
		Screenshots: datatypes.JSON(`["https://existing/shot.jpg"]`),
	}
	merged := &gameMetadata{
		Description: strptr("Provider text."),
		Genre:       strptr("Roguelike"),
		ReleaseYear: intptr(2020),
		Screenshots: []string{"https://new/shot.jpg"},
		Videos:      []videoEntry{{Type: "trailer", Name: "T", URL: "https://w", Provider: "rawg"}},
	}

	if changed := applyMetadata(game, merged); !changed {
		t.Fatal("expected changes to be reported")
	}
	if *game.Description != "Kept by hand." {
		t.Fatalf("existing description must survive, got %q", *game.Description)
	}
	if game.Genre == nil || *game.Genre != "Roguelike" {
		t.Fatalf("empty genre must be filled, got %v", game.Genre)
	}
	if game.ReleaseYear == nil || *game.ReleaseYear != 2020 {
		t.Fatalf("empty year must be filled, got %v", game.ReleaseYear)
	}
	if string(game.Screenshots) != `["https://existing/shot.jpg"]` {
		t.Fatalf("non-empty screenshot list must survive whole, got %s", game.Screenshots)
	}
	if jsonListEmpty(game.Videos) {
		t.Fatal("empty video list must be replaced")
	}

	if changed := applyMetadata(game, merged); changed {
		t.Fatal("second application must be a no-op")
	}
}

func TestArchivePayloadsMergesOverExisting(t *testing.T) {
	game := &db.Game{
		ProviderPayload: datatypes.JSON(`{"igdb":{"provider":"igdb","api_id":"old"}}`),
	}
	details := []*providerDetails{
		{Provider: "rawg", APIID: "42", Title: strptr("Hades")},
	}
	if err := archivePayloads(game, details); err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	var payloads map[string]json.RawMessage
	if err := json.Unmarshal(game.ProviderPayload, &payloads); err != nil {
		t.Fatalf("payload is not an object: %v", err)
	}
	if _, ok := payloads["igdb"]; !ok {
		t.Fatal("earlier snapshot must be preserved")
	}
	var rawg providerDetails
	if err := json.Unmarshal(payloads["rawg"], &rawg); err != nil {
		t.Fatalf("rawg snapshot unreadable: %v", err)
	}
	if rawg.APIID != "42" {
		t.Fatalf("expected archived api id 42, got %q", rawg.APIID)
	}
}
