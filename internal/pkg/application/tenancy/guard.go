package tenancy

import (
	"errors"

	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/models"
	"github.com/google/uuid"
)

var (
	//ErrForbidden is returned when an entity exists but belongs to another account
	ErrForbidden = errors.New("forbidden")
	//ErrNotAccountAdmin is returned when a member tries to change an account they do not administer
	ErrNotAccountAdmin = errors.New("only the account admin may do this")
)

//Authorize allows access when entity resolves to accountID. An entity whose ownership chain
//can not be resolved is denied, as is a request without an account.
func Authorize(accountID uuid.UUID, entity models.OwnedEntity) error {
	if accountID == uuid.Nil || entity == nil {
		return ErrForbidden
	}

	owner, ok := entity.OwningAccountID()
	if !ok || owner != accountID {
		return ErrForbidden
	}

	return nil
}

//AuthorizePrincipal is Authorize for the principal's effective account
func AuthorizePrincipal(p *Principal, entity models.OwnedEntity) error {
	return Authorize(p.AccountID(), entity)
}

//CanModifyAccount allows updates and deletion of an account only to its admin
func CanModifyAccount(p *Principal, account *models.Account) error {
	if err := AuthorizePrincipal(p, account); err != nil {
		return err
	}

	if !account.IsAdministeredBy(p.User) {
		return ErrNotAccountAdmin
	}

	return nil
}
