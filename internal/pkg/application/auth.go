package application

import (
	"errors"
	"net/http"
	"time"

	"github.com/agrosense/agrosense-api/internal/pkg/application/tenancy"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/logging"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/database"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/models"
)

type credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userStore interface {
	GetUserFromUsername(username string) (*models.User, error)
	UpdateLastAPILogin(userID uint, when time.Time) error
}

func newObtainTokenHandler(log logging.Logger, db userStore, tokens *tenancy.TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input := &credentials{}
		if !decodeAndValidate(w, r, input) {
			return
		}

		user, err := db.GetUserFromUsername(input.Username)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			writeInternalError(w, log, err)
			return
		}

		if tenancy.CheckPassword(user, input.Password) != nil {
			writeDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
			return
		}

		pair, err := tokens.Issue(user)
		if err != nil {
			writeInternalError(w, log, err)
			return
		}

		if user.Profile != nil {
			if err := db.UpdateLastAPILogin(user.ID, time.Now()); err != nil {
				log.Warnf("Failed to record api login for user %d: %s", user.ID, err.Error())
			}
		}

		writeJSON(w, http.StatusOK, pair)
	}
}

func newRefreshTokenHandler(tokens *tenancy.TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input := &struct {
			Refresh string `json:"refresh" validate:"required"`
		}{}

		if !decodeAndValidate(w, r, input) {
			return
		}

		access, err := tokens.Refresh(input.Refresh)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Token is invalid or expired")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"access": access})
	}
}

type signup struct {
	AccountName string `json:"account_name" validate:"required,max=255"`
	Username    string `json:"username" validate:"required,max=150"`
	Email       string `json:"email" validate:"omitempty,email"`
	Password    string `json:"password" validate:"required,min=8"`
}

type accountCreator interface {
	CreateAccountWithAdmin(accountName string, admin *models.User) (*models.Account, error)
}

func newSignupHandler(log logging.Logger, db accountCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input := &signup{}
		if !decodeAndValidate(w, r, input) {
			return
		}

		hash, err := tenancy.HashPassword(input.Password)
		if err != nil {
			writeInternalError(w, log, err)
			return
		}

		admin := &models.User{Username: input.Username, Email: input.Email, PasswordHash: hash}

		account, err := db.CreateAccountWithAdmin(input.AccountName, admin)
		if errors.Is(err, database.ErrAlreadyExists) {
			writeError(w, http.StatusBadRequest, "A user with that username already exists.")
			return
		} else if err != nil {
			writeInternalError(w, log, err)
			return
		}

		log.Infof("Created account %s with admin %s", account.ID, admin.Username)

		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"user":    admin,
			"account": account,
		})
	}
}
