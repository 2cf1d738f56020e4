package tenancy

import (
	"errors"
	"testing"
	"time"

	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/models"
)

func TestThatIssuedAccessTokensValidate(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute, time.Hour)

	pair, err := issuer.Issue(&models.User{ID: 42})
	if err != nil {
		t.Fatal(err.Error())
	}

	userID, err := issuer.ValidateAccess(pair.Access)
	if err != nil || userID != 42 {
		t.Errorf("Expected user 42, got %d (%v)", userID, err)
	}
}

func TestThatRefreshTokensAreNotAccessTokens(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute, time.Hour)
	pair, _ := issuer.Issue(&models.User{ID: 7})

	if _, err := issuer.ValidateAccess(pair.Refresh); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("A refresh token must not be accepted as access token, got %v", err)
	}

	if _, err := issuer.Refresh(pair.Access); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("An access token must not be accepted for refresh, got %v", err)
	}
}

func TestThatRefreshReturnsAUsableAccessToken(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute, time.Hour)
	pair, _ := issuer.Issue(&models.User{ID: 9})

	access, err := issuer.Refresh(pair.Refresh)
	if err != nil {
		t.Fatal(err.Error())
	}

	if userID, err := issuer.ValidateAccess(access); err != nil || userID != 9 {
		t.Errorf("Expected the refreshed token to identify user 9, got %d (%v)", userID, err)
	}
}

func TestThatExpiredTokensAreRejected(t *testing.T) {
	issuer := NewTokenIssuer("secret", -time.Minute, time.Hour)
	pair, _ := issuer.Issue(&models.User{ID: 1})

	if _, err := issuer.ValidateAccess(pair.Access); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected an expired token to be rejected, got %v", err)
	}
}

func TestThatTokensFromAnotherSecretAreRejected(t *testing.T) {
	pair, _ := NewTokenIssuer("one", time.Minute, time.Hour).Issue(&models.User{ID: 1})

	if _, err := NewTokenIssuer("two", time.Minute, time.Hour).ValidateAccess(pair.Access); err == nil {
		t.Error("A token signed with another secret must not validate")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatal(err.Error())
	}

	user := &models.User{PasswordHash: hash}

	if err := CheckPassword(user, "hunter2"); err != nil {
		t.Errorf("Expected the password to match, got %s", err.Error())
	}

	if err := CheckPassword(user, "hunter3"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
}
