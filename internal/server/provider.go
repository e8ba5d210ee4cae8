package server

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	providerRAWG = "rawg"
	providerIGDB = "igdb"
)

// searchResult is one basic card from a provider search.
type searchResult struct {
	APIID       string `json:"api_id"`
	Title       string `json:"title"`
	ReleaseYear int    `json:"release_year"`
}

// metadataProvider is the adapter contract every concrete provider
// implements. Adapters normalize their responses to the shapes the
// merge expects and never surface provider-specific wire formats.
type metadataProvider interface {
	Name() string
	Search(ctx context.Context, query string) ([]searchResult, error)
	Details(ctx context.Context, apiID string) (*providerDetails, error)
	Test(ctx context.Context) error
}

func (s *Server) buildProvider(cfg ProviderConfig) (metadataProvider, error) {
	timeout := time.Duration(s.cfg.ProviderTimeoutSeconds) * time.Second
	switch cfg.Type {
	case providerRAWG:
		return newRAWGProvider(cfg.APIKey, timeout), nil
	case providerIGDB:
		return newIGDBProvider(cfg.ClientID, cfg.ClientSecret, timeout, s.tokens), nil
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
}

func (s *Server) buildProviders(settings Settings) []metadataProvider {
	configs := settings.EnabledProviders()
	providers := make([]metadataProvider, 0, len(configs))
	for _, cfg := range configs {
		provider, err := s.buildProvider(cfg)
		if err != nil {
			s.logger.Warn("skipping provider", "type", cfg.Type, "error", err)
			continue
		}
		providers = append(providers, provider)
	}
	return providers
}

// normalizeMatchTitle lowercases and strips everything outside
// [a-z0-9] so punctuation and spacing differences do not affect
// match scoring.
func normalizeMatchTitle(title string) string {
	lowered := strings.ToLower(strings.TrimSpace(title))
	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// matchScore rates a search candidate against the wanted title/year:
// +3 exact normalized title, +1 substring either way, +2 exact year,
// +1 within one year.
func matchScore(candidate searchResult, title string, year *int) int {
	score := 0
	wanted := normalizeMatchTitle(title)
	got := normalizeMatchTitle(candidate.Title)
	if wanted != "" && got != "" {
		if wanted == got {
			score += 3
		} else if strings.Contains(got, wanted) || strings.Contains(wanted, got) {
			score++
		}
	}
	if year != nil && candidate.ReleaseYear != 0 {
		diff := candidate.ReleaseYear - *year
		if diff < 0 {
			diff = -diff
		}
		switch {
		case diff == 0:
			score += 2
		case diff <= 1:
			score++
		}
	}
	return score
}

// bestMatch picks the highest-scoring candidate; ties keep the
// first-encountered one. A candidate must score at least one point,
// so a result set with no title or year overlap yields no match.
func bestMatch(results []searchResult, title string, year *int) *searchResult {
	var best *searchResult
	bestScore := 0
	for i := range results {
		score := matchScore(results[i], title, year)
		if score > bestScore {
			best = &results[i]
			bestScore = score
		}
	}
	return best
}

// tokenCache caches one OAuth access token per credential pair until
// it nears expiry. A redundant concurrent refresh is harmless, merely
// wasteful, so the lock only guards the map itself.
type tokenCache struct {
	mu     sync.Mutex
	tokens map[string]cachedToken
}

type cachedToken struct {
	value     string
	expiresAt time.Time
}

const tokenExpiryMargin = 60 * time.Second

func newTokenCache() *tokenCache {
	return &tokenCache{tokens: make(map[string]cachedToken)}
}

func (c *tokenCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	token, ok := c.tokens[key]
	if !ok || time.Now().After(token.expiresAt.Add(-tokenExpiryMargin)) {
		return "", false
	}
	return token.value, true
}

func (c *tokenCache) put(key, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[key] = cachedToken{value: value, expiresAt: time.Now().Add(ttl)}
}
