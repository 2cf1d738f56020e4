package tenancy

import (
	"errors"
	"testing"

	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/models"
	"github.com/google/uuid"
)

func TestThatAuthorizeAllowsTheOwningAccount(t *testing.T) {
	accountID := uuid.New()
	land := &models.Land{ID: uuid.New(), AccountID: accountID}
	stake := &models.Stake{ID: uuid.New(), LandID: land.ID, Land: land}
	reading := &models.Reading{ID: uuid.New(), StakeID: stake.ID, Stake: stake}

	for _, entity := range []models.OwnedEntity{land, stake, reading} {
		if err := Authorize(accountID, entity); err != nil {
			t.Errorf("Expected access to %T, got %s", entity, err.Error())
		}
	}
}

func TestThatAuthorizeDeniesOtherAccounts(t *testing.T) {
	land := &models.Land{ID: uuid.New(), AccountID: uuid.New()}
	stake := &models.Stake{ID: uuid.New(), LandID: land.ID, Land: land}

	if err := Authorize(uuid.New(), stake); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden, got %v", err)
	}
}

func TestThatAuthorizeDeniesUnresolvableChains(t *testing.T) {
	accountID := uuid.New()
	stake := &models.Stake{ID: uuid.New(), LandID: uuid.New()}

	if err := Authorize(accountID, stake); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected an unloaded chain to be denied, got %v", err)
	}
}

func TestThatAuthorizeDeniesRequestsWithoutAccount(t *testing.T) {
	land := &models.Land{ID: uuid.New(), AccountID: uuid.New()}

	if err := AuthorizePrincipal(anonymous, land); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected an anonymous principal to be denied, got %v", err)
	}
}

func TestThatOnlyTheAdminCanModifyTheAccount(t *testing.T) {
	admin := &models.User{ID: 1}
	member := &models.User{ID: 2}
	account := &models.Account{ID: uuid.New(), AdminID: admin.ID}

	asAdmin := &Principal{Mode: ModeSession, User: admin, Account: account}
	asMember := &Principal{Mode: ModeSession, User: member, Account: account}
	asOutsider := &Principal{Mode: ModeSession, User: &models.User{ID: 3}, Account: &models.Account{ID: uuid.New()}}

	if err := CanModifyAccount(asAdmin, account); err != nil {
		t.Errorf("The admin should be allowed, got %s", err.Error())
	}

	if err := CanModifyAccount(asMember, account); !errors.Is(err, ErrNotAccountAdmin) {
		t.Errorf("A member should get ErrNotAccountAdmin, got %v", err)
	}

	if err := CanModifyAccount(asOutsider, account); !errors.Is(err, ErrForbidden) {
		t.Errorf("An outsider should get ErrForbidden, got %v", err)
	}
}
