package application

import (
	"errors"
	"net/http"
	"time"

	"github.com/agrosense/agrosense-api/internal/pkg/application/tenancy"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/logging"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/database"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/models"
	"github.com/go-chi/chi"
)

type newUser struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func addUserRoutes(r chi.Router, svc *Services) {
	r.Get("/users", newUserListHandler(svc.Log, svc.DB))
	r.Post("/users", newCreateUserHandler(svc.Log, svc.DB))
}

func newUserListHandler(log logging.Logger, db database.Datastore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := db.GetUsersForAccount(principal(r).AccountID())
		if err != nil {
			writeInternalError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, users)
	}
}

//newCreateUserHandler lets the account admin add members to the account
func newCreateUserHandler(log logging.Logger, db database.Datastore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := principal(r)
		if !requireAccountAdmin(w, r, caller.Account) {
			return
		}

		input := &newUser{}
		if !decodeAndValidate(w, r, input) {
			return
		}

		hash, err := tenancy.HashPassword(input.Password)
		if err != nil {
			writeInternalError(w, log, err)
			return
		}

		user := &models.User{Username: input.Username, Email: input.Email, PasswordHash: hash}

		err = db.CreateUser(caller.AccountID(), user)
		if errors.Is(err, database.ErrAlreadyExists) {
			writeError(w, http.StatusBadRequest, "A user with that username already exists.")
			return
		} else if err != nil {
			writeInternalError(w, log, err)
			return
		}

		writeJSON(w, http.StatusCreated, user)
	}
}

func newCurrentUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, principal(r).User)
	}
}

type me struct {
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	AccountID    string     `json:"account_id"`
	AccountName  string     `json:"account_name"`
	LastAPILogin *time.Time `json:"last_api_login"`
}

//newMeHandler summarizes the caller together with the account they belong to
func newMeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := principal(r)

		writeJSON(w, http.StatusOK, &me{
			Username:     caller.User.Username,
			Email:        caller.User.Email,
			AccountID:    caller.Account.ID.String(),
			AccountName:  caller.Account.Name,
			LastAPILogin: caller.Profile.LastAPILogin,
		})
	}
}
