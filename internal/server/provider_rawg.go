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

const rawgDefaultBaseURL = "https://api.rawg.io/api"

// rawgProvider talks to the RAWG REST API, authenticated with an API
// key query parameter.
type rawgProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func newRAWGProvider(apiKey string, timeout time.Duration) *rawgProvider {
	return &rawgProvider{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: rawgDefaultBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *rawgProvider) Name() string { return providerRAWG }

type rawgSearchResponse struct {
	Results []rawgCard `json:"results"`
}

type rawgCard struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Released string `json:"released"`
}

type rawgNamed struct {
	Name string `json:"name"`
}

type rawgDetailsResponse struct {
	ID             int         `json:"id"`
	Name           string      `json:"name"`
	DescriptionRaw string      `json:"description_raw"`
	Released       string      `json:"released"`
	Rating         float64     `json:"rating"`
	Website        string      `json:"website"`
	Playtime       int         `json:"playtime"`
	BackgroundImg  string      `json:"background_image"`
	BackgroundAdd  string      `json:"background_image_additional"`
	Genres         []rawgNamed `json:"genres"`
	Tags           []rawgNamed `json:"tags"`
	Developers     []rawgNamed `json:"developers"`
	ESRBRating     *rawgNamed  `json:"esrb_rating"`
	Platforms      []struct {
		Platform rawgNamed `json:"platform"`
	} `json:"platforms"`
}

type rawgScreenshotsResponse struct {
	Results []struct {
		Image string `json:"image"`
	} `json:"results"`
}

type rawgMoviesResponse struct {
	Results []struct {
		Name string `json:"name"`
		Data struct {
			Max string `json:"max"`
		} `json:"data"`
	} `json:"results"`
}

func (p *rawgProvider) get(ctx context.Context, path string, query url.Values, dest any) error {
	if p.apiKey == "" {
		return errors.New("rawg api key is not configured")
	}
	if query == nil {
		query = url.Values{}
	}
	query.Set("key", p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build rawg request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach rawg: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read rawg response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("rawg request failed (%d)", resp.StatusCode)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to parse rawg response: %w", err)
	}
	return nil
}

func (p *rawgProvider) Search(ctx context.Context, query string) ([]searchResult, error) {
	params := url.Values{}
	params.Set("search", query)
	params.Set("page_size", "10")
	var parsed rawgSearchResponse
	if err := p.get(ctx, "/games", params, &parsed); err != nil {
		return nil, err
	}
	results := make([]searchResult, 0, len(parsed.Results))
	for _, card := range parsed.Results {
		results = append(results, searchResult{
			APIID:       strconv.Itoa(card.ID),
			Title:       card.Name,
			ReleaseYear: yearFromDate(card.Released),
		})
	}
	return results, nil
}

func (p *rawgProvider) Details(ctx context.Context, apiID string) (*providerDetails, error) {
	var parsed rawgDetailsResponse
	if err := p.get(ctx, "/games/"+apiID, nil, &parsed); err != nil {
		return nil, err
	}

	details := &providerDetails{Provider: providerRAWG, APIID: apiID}
	if parsed.Name != "" {
		details.Title = strptr(parsed.Name)
	}
	if parsed.DescriptionRaw != "" {
		details.Description = strptr(parsed.DescriptionRaw)
	}
	if parsed.Released != "" {
		details.ReleaseDate = strptr(parsed.Released)
		if year := yearFromDate(parsed.Released); year != 0 {
			details.ReleaseYear = &year
		}
	}
	if names := joinNames(parsed.Genres); names != "" {
		details.Genre = strptr(names)
	}
	if names := joinNames(parsed.Tags); names != "" {
		details.Tags = strptr(names)
	}
	if len(parsed.Developers) > 0 {
		details.Developer = strptr(parsed.Developers[0].Name)
	}
	if parsed.ESRBRating != nil && parsed.ESRBRating.Name != "" {
		details.AgeRating = strptr(parsed.ESRBRating.Name)
	}
	if parsed.Website != "" {
		details.Website = strptr(parsed.Website)
	}
	if parsed.Rating > 0 {
		// RAWG rates 0-5; normalize to the 0-10 scale used everywhere else.
		scaled := parsed.Rating * 2
		details.Rating = &scaled
	}
	if parsed.Playtime > 0 {
		details.TimeToBeat = strptr(fmt.Sprintf("%d hours", parsed.Playtime))
	}
	if len(parsed.Platforms) > 0 {
		names := make([]string, 0, len(parsed.Platforms))
		for _, entry := range parsed.Platforms {
			if entry.Platform.Name != "" {
				names = append(names, entry.Platform.Name)
			}
		}
		if len(names) > 0 {
			details.Platforms = strptr(strings.Join(names, ", "))
		}
	}
	for _, tag := range parsed.Tags {
		lowered := strings.ToLower(tag.Name)
		if details.Coop == nil && strings.Contains(lowered, "co-op") {
			details.Coop = strptr(tag.Name)
		}
		if details.OnlineOffline == nil && (lowered == "online co-op" || lowered == "multiplayer") {
			details.OnlineOffline = strptr(tag.Name)
		}
	}
	if parsed.BackgroundImg != "" {
		details.Images.Poster = strptr(parsed.BackgroundImg)
		details.Images.Thumbnail = strptr(parsed.BackgroundImg)
	}
	if parsed.BackgroundAdd != "" {
		details.Images.Backdrop = strptr(parsed.BackgroundAdd)
	}

	// Screenshots and movies live behind their own endpoints; a failure
	// there degrades the record rather than failing the fetch.
	var shots rawgScreenshotsResponse
	if err := p.get(ctx, "/games/"+apiID+"/screenshots", nil, &shots); err == nil {
		for _, shot := range shots.Results {
			if shot.Image != "" {
				details.Screenshots = append(details.Screenshots, shot.Image)
			}
		}
	}
	var movies rawgMoviesResponse
	if err := p.get(ctx, "/games/"+apiID+"/movies", nil, &movies); err == nil {
		for _, movie := range movies.Results {
			if movie.Data.Max != "" {
				details.Videos = append(details.Videos, videoEntry{
					Name: movie.Name,
					URL:  movie.Data.Max,
				})
			}
		}
	}
	return details, nil
}

func (p *rawgProvider) Test(ctx context.Context) error {
	params := url.Values{}
	params.Set("page_size", "1")
	var parsed rawgSearchResponse
	return p.get(ctx, "/games", params, &parsed)
}

func joinNames(entries []rawgNamed) string {
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Name != "" {
			names = append(names, entry.Name)
		}
	}
	return strings.Join(names, ", ")
}

func yearFromDate(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
