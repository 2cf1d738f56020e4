package tenancy

import (
	"context"

	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/models"
	"github.com/google/uuid"
)

//Mode tells how the caller of a request was identified
type Mode int

const (
	//ModeAnonymous means no credentials were presented
	ModeAnonymous Mode = iota
	//ModeAPIKey means the request carried a valid account API key
	ModeAPIKey
	//ModeSession means the request carried a valid access token for a user
	ModeSession
)

func (m Mode) String() string {
	switch m {
	case ModeAPIKey:
		return "api-key"
	case ModeSession:
		return "session"
	default:
		return "anonymous"
	}
}

//Principal is the identity a request acts as. API key principals carry an account but no user.
//Session principals carry a user, and an account only when the user has a profile.
type Principal struct {
	Mode    Mode
	User    *models.User
	Profile *models.UserProfile
	Account *models.Account
}

//AccountID returns the id of the effective account, or uuid.Nil when there is none
func (p *Principal) AccountID() uuid.UUID {
	if p == nil || p.Account == nil {
		return uuid.Nil
	}
	return p.Account.ID
}

//HasAccount reports whether the request resolved to an account
func (p *Principal) HasAccount() bool {
	return p.AccountID() != uuid.Nil
}

type principalKey struct{}

var anonymous = &Principal{Mode: ModeAnonymous}

//WithPrincipal returns a copy of ctx that carries p
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

//PrincipalFromContext returns the principal stored by Authenticate, or an anonymous principal
func PrincipalFromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(principalKey{}).(*Principal); ok && p != nil {
		return p
	}
	return anonymous
}
