package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Vigno04/Cooplyst-sub000/internal/db"
)

func doRequest(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

// registerUser creates an account over the API and returns its token.
// The first registration of a fresh database becomes the admin.
func registerUser(t *testing.T, handler http.Handler, username string) string {
	t.Helper()
	rec := doRequest(t, handler, http.MethodPost, "/api/register", "", map[string]string{
		"username": username,
		"password": "correct horse battery",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", username, rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &resp)
	if resp.Token == "" {
		t.Fatalf("register %s returned no token", username)
	}
	return resp.Token
}

func proposeGame(t *testing.T, handler http.Handler, token, title string) string {
	t.Helper()
	rec := doRequest(t, handler, http.MethodPost, "/api/games", token, map[string]string{"title": title})
	if rec.Code != http.StatusCreated {
		t.Fatalf("propose %s: status %d body %s", title, rec.Code, rec.Body.String())
	}
	var resp gameSummary
	decodeBody(t, rec, &resp)
	return resp.ID
}

func TestAuthRequiredAndAdminGate(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()

	if rec := doRequest(t, handler, http.MethodGet, "/api/games", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	admin := registerUser(t, handler, "alice")
	member := registerUser(t, handler, "bob")
	gameID := proposeGame(t, handler, admin, "Deep Rock Galactic")

	rec := doRequest(t, handler, http.MethodPut, "/api/games/"+gameID+"/status", member,
		map[string]string{"status": db.StatusBacklog})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, handler, http.MethodPut, "/api/games/"+gameID+"/status", admin,
		map[string]string{"status": db.StatusBacklog})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin transition failed: %d body %s", rec.Code, rec.Body.String())
	}
}

func TestLoginFlow(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()
	registerUser(t, handler, "alice")

	rec := doRequest(t, handler, http.MethodPost, "/api/login", "", map[string]string{
		"username": "alice",
		"password": "correct horse battery",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, handler, http.MethodPost, "/api/login", "", map[string]string{
		"username": "alice",
		"password": "wrong password",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodPost, "/api/login", "", map[string]string{
		"username": "nobody",
		"password": "whatever",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown user, got %d", rec.Code)
	}
}

func TestProposeRejectsDuplicateTitle(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()
	token := registerUser(t, handler, "alice")

	proposeGame(t, handler, token, "It Takes Two")
	rec := doRequest(t, handler, http.MethodPost, "/api/games", token,
		map[string]string{"title": "  it takes  TWO "})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate title, got %d body %s", rec.Code, rec.Body.String())
	}
}

func TestProposeRequiresPairedProviderIdentity(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()
	token := registerUser(t, handler, "alice")

	rec := doRequest(t, handler, http.MethodPost, "/api/games", token,
		map[string]string{"title": "Hades", "api_id": "42"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for api_id without api_provider, got %d", rec.Code)
	}
}

func TestVotingFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()
	tokens := []string{
		registerUser(t, handler, "alice"),
		registerUser(t, handler, "bob"),
		registerUser(t, handler, "carol"),
	}
	gameID := proposeGame(t, handler, tokens[0], "Lethal Company")

	var resp struct {
		Status   string `json:"status"`
		Promoted bool   `json:"promoted"`
	}
	for i, token := range tokens {
		rec := doRequest(t, handler, http.MethodPost, "/api/games/"+gameID+"/votes", token,
			map[string]int{"value": 1})
		if rec.Code != http.StatusOK {
			t.Fatalf("vote %d failed: %d body %s", i, rec.Code, rec.Body.String())
		}
		decodeBody(t, rec, &resp)
	}
	if !resp.Promoted || resp.Status != db.StatusBacklog {
		t.Fatalf("expected promotion on third vote, got %+v", resp)
	}

	// Voting is closed once the game leaves the open states.
	rec := doRequest(t, handler, http.MethodPost, "/api/games/"+gameID+"/votes", tokens[0],
		map[string]int{"value": 0})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 after promotion, got %d body %s", rec.Code, rec.Body.String())
	}
}

func TestVoteValueOutsideZeroOneIsRejectedWithReason(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()
	token := registerUser(t, handler, "alice")
	gameID := proposeGame(t, handler, token, "Factorio")

	rec := doRequest(t, handler, http.MethodPost, "/api/games/"+gameID+"/votes", token,
		map[string]int{"value": 2})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for invalid vote value, got %d body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Error string `json:"error"`
	}
	decodeBody(t, rec, &resp)
	if resp.Error != errInvalidVote.Error() {
		t.Fatalf("expected the specific rejection reason, got %q", resp.Error)
	}
}

func TestRunAndRatingFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()
	admin := registerUser(t, handler, "alice")
	outsider := registerUser(t, handler, "mallory")
	gameID := proposeGame(t, handler, admin, "Satisfactory")

	rec := doRequest(t, handler, http.MethodPut, "/api/games/"+gameID+"/status", admin,
		map[string]string{"status": db.StatusBacklog})
	if rec.Code != http.StatusOK {
		t.Fatalf("force backlog failed: %d", rec.Code)
	}
	rec = doRequest(t, handler, http.MethodPost, "/api/games/"+gameID+"/players", admin,
		map[string]uint{"user_id": 1})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add player failed: %d body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, handler, http.MethodPost, "/api/games/"+gameID+"/runs", admin, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start run failed: %d body %s", rec.Code, rec.Body.String())
	}
	var runResp struct {
		RunNumber int    `json:"run_number"`
		Status    string `json:"status"`
	}
	decodeBody(t, rec, &runResp)
	if runResp.RunNumber != 1 || runResp.Status != db.StatusPlaying {
		t.Fatalf("unexpected run response %+v", runResp)
	}

	ratingPath := fmt.Sprintf("/api/games/%s/runs/%d/rating", gameID, runResp.RunNumber)
	rec = doRequest(t, handler, http.MethodPut, ratingPath, outsider,
		map[string]any{"score": 8})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-player rating, got %d body %s", rec.Code, rec.Body.String())
	}
	rec = doRequest(t, handler, http.MethodPut, ratingPath, admin,
		map[string]any{"score": 12})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for out-of-range score, got %d", rec.Code)
	}
	rec = doRequest(t, handler, http.MethodPut, ratingPath, admin,
		map[string]any{"score": 8, "comment": "solid session"})
	if rec.Code != http.StatusOK {
		t.Fatalf("rating failed: %d body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, handler, http.MethodPost, ratingPath[:len(ratingPath)-len("/rating")]+"/complete", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete run failed: %d body %s", rec.Code, rec.Body.String())
	}
	var statusResp struct {
		Status string `json:"status"`
	}
	decodeBody(t, rec, &statusResp)
	if statusResp.Status != db.StatusCompleted {
		t.Fatalf("expected completed after last run, got %s", statusResp.Status)
	}

	var detail gameDetail
	rec = doRequest(t, handler, http.MethodGet, "/api/games/"+gameID, admin, nil)
	decodeBody(t, rec, &detail)
	if detail.MedianRating == nil || *detail.MedianRating != 8 {
		t.Fatalf("expected median 8, got %v", detail.MedianRating)
	}
}

func TestListGamesFiltersByStatus(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()
	token := registerUser(t, handler, "alice")
	proposeGame(t, handler, token, "Raft")
	backlogID := proposeGame(t, handler, token, "Valheim")
	rec := doRequest(t, handler, http.MethodPut, "/api/games/"+backlogID+"/status", token,
		map[string]string{"status": db.StatusBacklog})
	if rec.Code != http.StatusOK {
		t.Fatalf("force failed: %d", rec.Code)
	}

	var resp struct {
		Games []gameSummary `json:"games"`
	}
	rec = doRequest(t, handler, http.MethodGet, "/api/games?status=backlog", token, nil)
	decodeBody(t, rec, &resp)
	if len(resp.Games) != 1 || resp.Games[0].Title != "Valheim" {
		t.Fatalf("unexpected filtered list: %+v", resp.Games)
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/games?status=bogus", token, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for invalid status filter, got %d", rec.Code)
	}
}

func TestDeleteGameCascades(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()
	admin := registerUser(t, handler, "alice")
	gameID := proposeGame(t, handler, admin, "Core Keeper")

	rec := doRequest(t, handler, http.MethodPost, "/api/games/"+gameID+"/votes", admin,
		map[string]int{"value": 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("vote failed: %d", rec.Code)
	}
	rec = doRequest(t, handler, http.MethodDelete, "/api/games/"+gameID, admin, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete failed: %d body %s", rec.Code, rec.Body.String())
	}
	if n := countRows(t, s.db, &db.Game{}, ""); n != 0 {
		t.Fatalf("expected no games, got %d", n)
	}
	if n := countRows(t, s.db, &db.Vote{}, ""); n != 0 {
		t.Fatalf("expected votes to cascade, got %d", n)
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/games/"+gameID, admin, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestAdminSettingsEndpoints(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()
	admin := registerUser(t, handler, "alice")

	rec := doRequest(t, handler, http.MethodPut, "/api/settings", admin,
		map[string]int{"vote_threshold": 5})
	if rec.Code != http.StatusOK {
		t.Fatalf("put settings failed: %d body %s", rec.Code, rec.Body.String())
	}
	rec = doRequest(t, handler, http.MethodGet, "/api/settings", admin, nil)
	var settings settingsResponse
	decodeBody(t, rec, &settings)
	if settings.VoteThreshold != 5 {
		t.Fatalf("expected stored threshold 5, got %d", settings.VoteThreshold)
	}

	rec = doRequest(t, handler, http.MethodPut, "/api/settings", admin,
		map[string]int{"vote_threshold": 0})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for threshold below 1, got %d", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodPut, "/api/providers", admin, map[string]any{
		"providers": []map[string]any{
			{"type": "rawg", "enabled": true, "priority": 1, "api_key": "k"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("put providers failed: %d body %s", rec.Code, rec.Body.String())
	}
	rec = doRequest(t, handler, http.MethodGet, "/api/providers", admin, nil)
	var providerResp struct {
		Providers []map[string]any `json:"providers"`
	}
	decodeBody(t, rec, &providerResp)
	if len(providerResp.Providers) != 1 {
		t.Fatalf("expected one provider, got %+v", providerResp.Providers)
	}
	entry := providerResp.Providers[0]
	if entry["configured"] != true {
		t.Fatalf("expected configured=true, got %+v", entry)
	}
	if _, leaked := entry["api_key"]; leaked {
		t.Fatal("api key must never be returned")
	}

	rec = doRequest(t, handler, http.MethodPut, "/api/providers", admin, map[string]any{
		"providers": []map[string]any{{"type": "steam", "enabled": true}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown provider type, got %d", rec.Code)
	}
}
