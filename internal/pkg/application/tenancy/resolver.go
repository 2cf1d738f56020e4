package tenancy

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/logging"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/models"
)

//APIKeyHeader is the request header carrying an account API key
const APIKeyHeader = "X-API-Key"

var errInvalidAPIKey = errors.New("invalid api key")

//Store is the part of the datastore the resolver needs to identify callers
type Store interface {
	GetAccountFromAPIKey(apiKey string) (*models.Account, error)
	GetUserFromID(id uint) (*models.User, error)
}

//Resolver turns the credentials presented with a request into a Principal
type Resolver struct {
	store  Store
	tokens *TokenIssuer
	log    logging.Logger
}

//NewResolver creates a resolver that looks callers up in store
func NewResolver(store Store, tokens *TokenIssuer, log logging.Logger) *Resolver {
	return &Resolver{store: store, tokens: tokens, log: log}
}

//Authenticate resolves the caller and stores the principal in the request context.
//Requests presenting bad credentials are rejected here and never reach the next handler.
func (res *Resolver) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := res.Resolve(r)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, authenticationFailure(err))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

//Resolve identifies the caller of r. An API key takes precedence over a bearer token.
func (res *Resolver) Resolve(r *http.Request) (*Principal, error) {
	if apiKey := r.Header.Get(APIKeyHeader); apiKey != "" {
		return res.resolveAPIKey(apiKey)
	}

	if token, ok := bearerToken(r); ok {
		return res.resolveSession(token)
	}

	return anonymous, nil
}

func (res *Resolver) resolveAPIKey(apiKey string) (*Principal, error) {
	account, err := res.store.GetAccountFromAPIKey(apiKey)
	if err != nil {
		res.log.Infof("Rejected request with an unknown API key")
		return nil, errInvalidAPIKey
	}

	if subtle.ConstantTimeCompare([]byte(account.APIKey), []byte(apiKey)) != 1 || !account.Active {
		res.log.Infof("Rejected API key for account %s", account.ID)
		return nil, errInvalidAPIKey
	}

	return &Principal{Mode: ModeAPIKey, Account: account}, nil
}

func (res *Resolver) resolveSession(token string) (*Principal, error) {
	userID, err := res.tokens.ValidateAccess(token)
	if err != nil {
		return nil, err
	}

	user, err := res.store.GetUserFromID(userID)
	if err != nil {
		res.log.Infof("Access token refers to missing user %d", userID)
		return nil, ErrInvalidToken
	}

	principal := &Principal{Mode: ModeSession, User: user}
	if user.Profile != nil {
		principal.Profile = user.Profile
		principal.Account = user.Profile.Account
	}

	return principal, nil
}

func authenticationFailure(err error) string {
	if errors.Is(err, errInvalidAPIKey) {
		return "Invalid API key"
	}
	return "Given token not valid for any token type"
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}

	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

//RequireSession rejects requests that were not made by a logged in user
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if PrincipalFromContext(r.Context()).Mode != ModeSession {
			writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

//RequireAccount rejects logged in users that are not a member of any account
func RequireAccount(next http.Handler) http.Handler {
	return RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !PrincipalFromContext(r.Context()).HasAccount() {
			writeDetail(w, http.StatusForbidden, "User profile not found.")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
