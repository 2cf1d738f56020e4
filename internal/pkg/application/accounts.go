package application

import (
	"errors"
	"net/http"

	"github.com/agrosense/agrosense-api/internal/pkg/application/tenancy"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/logging"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/database"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/models"
	"github.com/go-chi/chi"
)

type accountInput struct {
	Name   *string `json:"name" validate:"required,min=1,max=255"`
	Active *bool   `json:"active"`
}

func addAccountRoutes(r chi.Router, svc *Services) {
	r.Get("/accounts", newAccountListHandler(svc.Log, svc.DB))
	r.Get("/accounts/{id}", newAccountDetailHandler(svc.Log, svc.DB))
	r.Put("/accounts/{id}", newUpdateAccountHandler(svc.Log, svc.DB, false))
	r.Patch("/accounts/{id}", newUpdateAccountHandler(svc.Log, svc.DB, true))
	r.Delete("/accounts/{id}", newDeleteAccountHandler(svc.Log, svc.DB))
}

//newAccountListHandler lists the accounts visible to the caller, which is only their own
func newAccountListHandler(log logging.Logger, db database.Datastore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, err := db.GetAccountFromID(principal(r).AccountID())
		if err != nil {
			writeInternalError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, []*models.Account{account})
	}
}

func loadAccount(w http.ResponseWriter, r *http.Request, log logging.Logger, db database.Datastore) (*models.Account, bool) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return nil, false
	}

	account, err := db.GetAccountFromID(id)
	if !authorizeLoaded(w, r, log, account, err, notFoundDetail) {
		return nil, false
	}

	return account, true
}

func newAccountDetailHandler(log logging.Logger, db database.Datastore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if account, ok := loadAccount(w, r, log, db); ok {
			writeJSON(w, http.StatusOK, account)
		}
	}
}

func requireAccountAdmin(w http.ResponseWriter, r *http.Request, account *models.Account) bool {
	err := tenancy.CanModifyAccount(principal(r), account)
	if errors.Is(err, tenancy.ErrNotAccountAdmin) {
		writeDetail(w, http.StatusForbidden, "Only the account admin may modify the account.")
		return false
	} else if err != nil {
		writeDetail(w, http.StatusForbidden, "Forbidden")
		return false
	}
	return true
}

func newUpdateAccountHandler(log logging.Logger, db database.Datastore, partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := loadAccount(w, r, log, db)
		if !ok || !requireAccountAdmin(w, r, account) {
			return
		}

		input := &accountInput{}
		if partial {
			input = &accountInput{Name: &account.Name, Active: &account.Active}
		}

		if !decodeAndValidate(w, r, input) {
			return
		}

		account.Name = *input.Name
		account.Active = input.Active == nil || *input.Active

		if err := db.UpdateAccount(account); err != nil {
			writeInternalError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, account)
	}
}

func newDeleteAccountHandler(log logging.Logger, db database.Datastore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := loadAccount(w, r, log, db)
		if !ok || !requireAccountAdmin(w, r, account) {
			return
		}

		if err := db.DeleteAccount(account.ID); err != nil && !errors.Is(err, database.ErrNotFound) {
			writeInternalError(w, log, err)
			return
		}

		log.Infof("Account %s deleted by user %d", account.ID, principal(r).User.ID)
		w.WriteHeader(http.StatusNoContent)
	}
}
