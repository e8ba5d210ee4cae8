package server

import (
	"net/http"
	"testing"

	"github.com/Vigno04/Cooplyst-sub000/internal/db"
)

func TestTokenRoundTrip(t *testing.T) {
	s := newTestServer(t)
	user := &db.User{Username: "alice", IsAdmin: true}
	user.ID = 7

	token, err := s.issueToken(user)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	parsed, err := s.parseToken(token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if parsed.ID != 7 || parsed.Username != "alice" || !parsed.IsAdmin {
		t.Fatalf("unexpected claims: %+v", parsed)
	}
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	issuer := newTestServer(t)
	verifier := newTestServer(t)
	verifier.cfg.JWTSecret = "a different secret"

	user := &db.User{Username: "alice"}
	user.ID = 1
	token, err := issuer.issueToken(user)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := verifier.parseToken(token); err == nil {
		t.Fatal("expected rejection with mismatched secret")
	}
	if _, err := issuer.parseToken("not.a.token"); err == nil {
		t.Fatal("expected rejection of malformed token")
	}
}

func TestFirstRegisteredUserIsAdmin(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()
	registerUser(t, handler, "alice")
	registerUser(t, handler, "bob")

	var first, second db.User
	if err := s.db.Where("username = ?", "alice").First(&first).Error; err != nil {
		t.Fatalf("failed to load alice: %v", err)
	}
	if err := s.db.Where("username = ?", "bob").First(&second).Error; err != nil {
		t.Fatalf("failed to load bob: %v", err)
	}
	if !first.IsAdmin {
		t.Fatal("first user must be admin")
	}
	if second.IsAdmin {
		t.Fatal("second user must not be admin")
	}
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()

	rec := doRequest(t, handler, http.MethodPost, "/api/register", "", map[string]string{
		"username": "   ",
		"password": "long enough pass",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank username, got %d", rec.Code)
	}
	rec = doRequest(t, handler, http.MethodPost, "/api/register", "", map[string]string{
		"username": "alice",
		"password": "short",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short password, got %d", rec.Code)
	}
}
