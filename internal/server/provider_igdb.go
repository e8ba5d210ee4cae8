package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	igdbDefaultBaseURL  = "https://api.igdb.com/v4"
	igdbDefaultTokenURL = "https://id.twitch.tv/oauth2/token"
)

// igdbProvider talks to the IGDB query API. Requests carry an OAuth
// access token obtained via the Twitch client-credentials exchange and
// cached process-wide until near expiry.
type igdbProvider struct {
	clientID     string
	clientSecret string
	baseURL      string
	tokenURL     string
	client       *http.Client
	tokens       *tokenCache
}

func newIGDBProvider(clientID, clientSecret string, timeout time.Duration, tokens *tokenCache) *igdbProvider {
	return &igdbProvider{
		clientID:     strings.TrimSpace(clientID),
		clientSecret: strings.TrimSpace(clientSecret),
		baseURL:      igdbDefaultBaseURL,
		tokenURL:     igdbDefaultTokenURL,
		client:       &http.Client{Timeout: timeout},
		tokens:       tokens,
	}
}

func (p *igdbProvider) Name() string { return providerIGDB }

type igdbTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type igdbGame struct {
	ID               int     `json:"id"`
	Name             string  `json:"name"`
	Summary          string  `json:"summary"`
	FirstReleaseDate int64   `json:"first_release_date"`
	TotalRating      float64 `json:"total_rating"`
	URL              string  `json:"url"`
	Genres           []struct {
		Name string `json:"name"`
	} `json:"genres"`
	Platforms []struct {
		Name string `json:"name"`
	} `json:"platforms"`
	InvolvedCompanies []struct {
		Developer bool `json:"developer"`
		Company   struct {
			Name string `json:"name"`
		} `json:"company"`
	} `json:"involved_companies"`
	Cover struct {
		URL string `json:"url"`
	} `json:"cover"`
	Artworks []struct {
		URL string `json:"url"`
	} `json:"artworks"`
	Screenshots []struct {
		URL string `json:"url"`
	} `json:"screenshots"`
	Videos []struct {
		Name    string `json:"name"`
		VideoID string `json:"video_id"`
	} `json:"videos"`
	Themes []struct {
		Name string `json:"name"`
	} `json:"themes"`
	GameModes []struct {
		Name string `json:"name"`
	} `json:"game_modes"`
}

func (p *igdbProvider) accessToken(ctx context.Context) (string, error) {
	if p.clientID == "" || p.clientSecret == "" {
		return "", errors.New("igdb credentials are not configured")
	}
	cacheKey := "igdb:" + p.clientID
	if token, ok := p.tokens.get(cacheKey); ok {
		return token, nil
	}

	form := url.Values{}
	form.Set("client_id", p.clientID)
	form.Set("client_secret", p.clientSecret)
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("token exchange failed (%d)", resp.StatusCode)
	}
	var parsed igdbTokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", errors.New("token exchange returned no access token")
	}
	p.tokens.put(cacheKey, parsed.AccessToken, time.Duration(parsed.ExpiresIn)*time.Second)
	return parsed.AccessToken, nil
}

func (p *igdbProvider) query(ctx context.Context, endpoint, body string, dest any) error {
	token, err := p.accessToken(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/"+endpoint, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build igdb request: %w", err)
	}
	req.Header.Set("Client-ID", p.clientID)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach igdb: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read igdb response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("igdb request failed (%d)", resp.StatusCode)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("failed to parse igdb response: %w", err)
	}
	return nil
}

func (p *igdbProvider) Search(ctx context.Context, query string) ([]searchResult, error) {
	body := fmt.Sprintf("search %q; fields name,first_release_date; limit 10;", query)
	var games []igdbGame
	if err := p.query(ctx, "games", body, &games); err != nil {
		return nil, err
	}
	results := make([]searchResult, 0, len(games))
	for _, game := range games {
		results = append(results, searchResult{
			APIID:       strconv.Itoa(game.ID),
			Title:       game.Name,
			ReleaseYear: yearFromUnix(game.FirstReleaseDate),
		})
	}
	return results, nil
}

const igdbDetailFields = "fields name,summary,first_release_date,total_rating,url," +
	"genres.name,platforms.name,involved_companies.developer,involved_companies.company.name," +
	"cover.url,artworks.url,screenshots.url,videos.name,videos.video_id,themes.name,game_modes.name;"

func (p *igdbProvider) Details(ctx context.Context, apiID string) (*providerDetails, error) {
	id, err := strconv.Atoi(apiID)
	if err != nil {
		return nil, fmt.Errorf("invalid igdb id %q", apiID)
	}
	body := fmt.Sprintf("%s where id = %d;", igdbDetailFields, id)
	var games []igdbGame
	if err := p.query(ctx, "games", body, &games); err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return nil, fmt.Errorf("igdb returned no game for id %d", id)
	}
	game := games[0]

	details := &providerDetails{Provider: providerIGDB, APIID: apiID}
	if game.Name != "" {
		details.Title = strptr(game.Name)
	}
	if game.Summary != "" {
		details.Description = strptr(game.Summary)
	}
	if game.FirstReleaseDate > 0 {
		released := time.Unix(game.FirstReleaseDate, 0).UTC()
		details.ReleaseDate = strptr(released.Format("2006-01-02"))
		year := released.Year()
		details.ReleaseYear = &year
	}
	if game.TotalRating > 0 {
		// IGDB rates 0-100; normalize to 0-10.
		scaled := game.TotalRating / 10
		details.Rating = &scaled
	}
	if game.URL != "" {
		details.Website = strptr(game.URL)
	}
	if len(game.Genres) > 0 {
		names := make([]string, 0, len(game.Genres))
		for _, genre := range game.Genres {
			names = append(names, genre.Name)
		}
		details.Genre = strptr(strings.Join(names, ", "))
	}
	if len(game.Themes) > 0 {
		names := make([]string, 0, len(game.Themes))
		for _, theme := range game.Themes {
			names = append(names, theme.Name)
		}
		details.Tags = strptr(strings.Join(names, ", "))
	}
	if len(game.Platforms) > 0 {
		names := make([]string, 0, len(game.Platforms))
		for _, platform := range game.Platforms {
			names = append(names, platform.Name)
		}
		details.Platforms = strptr(strings.Join(names, ", "))
	}
	for _, involved := range game.InvolvedCompanies {
		if involved.Developer && involved.Company.Name != "" {
			details.Developer = strptr(involved.Company.Name)
			break
		}
	}
	for _, mode := range game.GameModes {
		lowered := strings.ToLower(mode.Name)
		if details.Coop == nil && strings.Contains(lowered, "co-operative") {
			details.Coop = strptr(mode.Name)
		}
		if details.OnlineOffline == nil && strings.Contains(lowered, "multiplayer") {
			details.OnlineOffline = strptr(mode.Name)
		}
	}
	if game.Cover.URL != "" {
		details.Images.Poster = strptr(igdbImageURL(game.Cover.URL, "t_cover_big"))
		details.Images.Thumbnail = strptr(igdbImageURL(game.Cover.URL, "t_cover_small"))
	}
	if len(game.Artworks) > 0 && game.Artworks[0].URL != "" {
		details.Images.Backdrop = strptr(igdbImageURL(game.Artworks[0].URL, "t_1080p"))
	}
	for _, shot := range game.Screenshots {
		if shot.URL != "" {
			details.Screenshots = append(details.Screenshots, igdbImageURL(shot.URL, "t_screenshot_big"))
		}
	}
	for _, video := range game.Videos {
		if video.VideoID != "" {
			details.Videos = append(details.Videos, videoEntry{
				Name: video.Name,
				URL:  "https://www.youtube.com/watch?v=" + video.VideoID,
			})
		}
	}
	return details, nil
}

func (p *igdbProvider) Test(ctx context.Context) error {
	var games []igdbGame
	return p.query(ctx, "games", "fields name; limit 1;", &games)
}

// igdbImageURL upgrades the protocol-relative thumbnail URLs IGDB
// returns to https and swaps in the requested size tag.
func igdbImageURL(raw, size string) string {
	out := raw
	if strings.HasPrefix(out, "//") {
		out = "https:" + out
	}
	return strings.Replace(out, "t_thumb", size, 1)
}

func yearFromUnix(ts int64) int {
	if ts <= 0 {
		return 0
	}
	return time.Unix(ts, 0).UTC().Year()
}
