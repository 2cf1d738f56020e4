package tenancy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/logging"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/database"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/models"
	"github.com/google/uuid"
)

type storeMock struct {
	accounts map[string]*models.Account
	users    map[uint]*models.User
}

func (s *storeMock) GetAccountFromAPIKey(apiKey string) (*models.Account, error) {
	if account, ok := s.accounts[apiKey]; ok {
		return account, nil
	}
	return nil, database.ErrNotFound
}

func (s *storeMock) GetUserFromID(id uint) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, database.ErrNotFound
}

func newResolverForTest() (*Resolver, *storeMock, *TokenIssuer) {
	key, _ := models.NewAPIKey()
	account := &models.Account{ID: uuid.New(), APIKey: key, Active: true, AdminID: 1}
	inactive := &models.Account{ID: uuid.New(), APIKey: "inactive", Active: false}

	store := &storeMock{
		accounts: map[string]*models.Account{key: account, "inactive": inactive},
		users: map[uint]*models.User{
			1: {ID: 1, Username: "member", Profile: &models.UserProfile{AccountID: account.ID, Account: account}},
			2: {ID: 2, Username: "loner"},
		},
	}

	tokens := NewTokenIssuer("secret", time.Minute, time.Hour)
	return NewResolver(store, tokens, logging.NewLogger()), store, tokens
}

func TestThatAValidAPIKeyResolvesTheAccount(t *testing.T) {
	resolver, store, _ := newResolverForTest()

	var key string
	for k, a := range store.accounts {
		if a.Active {
			key = k
		}
	}

	req, _ := http.NewRequest("POST", "/api/v1/readings/ingest", nil)
	req.Header.Set(APIKeyHeader, key)

	principal, err := resolver.Resolve(req)
	if err != nil {
		t.Fatal(err.Error())
	}

	if principal.Mode != ModeAPIKey || principal.Account.APIKey != key || principal.User != nil {
		t.Errorf("Unexpected principal %+v", principal)
	}
}

func TestThatUnknownAndInactiveAPIKeysAreRejectedBeforeTheHandler(t *testing.T) {
	resolver, _, _ := newResolverForTest()

	for _, key := range []string{"bogus", "inactive"} {
		called := false
		handler := resolver.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))

		req, _ := http.NewRequest("POST", "/api/v1/readings/ingest", nil)
		req.Header.Set(APIKeyHeader, key)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if called {
			t.Errorf("Handler must not run for key %q", key)
		}

		if w.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401 for key %q, got %d", key, w.Code)
		}

		body := map[string]string{}
		json.Unmarshal(w.Body.Bytes(), &body)
		if body["detail"] != "Invalid API key" {
			t.Errorf("Unexpected body %s", w.Body.String())
		}
	}
}

func TestThatABearerTokenResolvesTheUserAndAccount(t *testing.T) {
	resolver, store, tokens := newResolverForTest()
	pair, _ := tokens.Issue(store.users[1])

	req, _ := http.NewRequest("GET", "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.Access)

	principal, err := resolver.Resolve(req)
	if err != nil {
		t.Fatal(err.Error())
	}

	if principal.Mode != ModeSession || principal.User.ID != 1 || !principal.HasAccount() {
		t.Errorf("Unexpected principal %+v", principal)
	}
}

func TestThatTheAPIKeyWinsOverABearerToken(t *testing.T) {
	resolver, store, tokens := newResolverForTest()
	pair, _ := tokens.Issue(store.users[2])

	req, _ := http.NewRequest("POST", "/api/v1/readings/ingest", nil)
	req.Header.Set("Authorization", "Bearer "+pair.Access)
	req.Header.Set(APIKeyHeader, "bogus")

	if _, err := resolver.Resolve(req); err == nil {
		t.Error("Expected the bad API key to be rejected even with a valid token")
	}
}

func TestThatRequireAccountRejectsUsersWithoutProfile(t *testing.T) {
	resolver, store, tokens := newResolverForTest()
	pair, _ := tokens.Issue(store.users[2])

	handler := resolver.Authenticate(RequireAccount(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler must not run for a user without profile")
	})))

	req, _ := http.NewRequest("GET", "/api/v1/lands", nil)
	req.Header.Set("Authorization", "Bearer "+pair.Access)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", w.Code)
	}
}

func TestThatRequireSessionRejectsAnonymousAndAPIKeyCallers(t *testing.T) {
	resolver, store, _ := newResolverForTest()

	var key string
	for k, a := range store.accounts {
		if a.Active {
			key = k
		}
	}

	handler := resolver.Authenticate(RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler must not run without a session")
	})))

	for _, apiKey := range []string{"", key} {
		req, _ := http.NewRequest("GET", "/api/v1/readings/feed", nil)
		if apiKey != "" {
			req.Header.Set(APIKeyHeader, apiKey)
		}
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", w.Code)
		}
	}
}

func TestThatAnInvalidBearerTokenIsRejected(t *testing.T) {
	resolver, _, _ := newResolverForTest()

	req, _ := http.NewRequest("GET", "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")

	if _, err := resolver.Resolve(req); err == nil {
		t.Error("Expected an invalid token to be rejected")
	}
}
