package application

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/agrosense/agrosense-api/internal/pkg/application/tenancy"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/logging"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/database"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/models"
	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeInternalError(w http.ResponseWriter, log logging.Logger, err error) {
	log.Errorf("Request failed: %s", err.Error())
	writeDetail(w, http.StatusInternalServerError, "Internal server error.")
}

//decodeAndValidate decodes the request body on top of whatever input already holds and
//validates the result. Problems are written to w and reported as false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, input interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(input); err != nil {
		typeErr := &json.UnmarshalTypeError{}
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			writeError(w, http.StatusBadRequest, "Invalid value for field: "+typeErr.Field)
		} else {
			writeError(w, http.StatusBadRequest, "Malformed request body.")
		}
		return false
	}

	if err := validate.Struct(input); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}

	return true
}

func validationMessage(err error) string {
	fieldErrors := validator.ValidationErrors{}
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return err.Error()
	}

	fe := fieldErrors[0]
	if fe.Tag() == "required" {
		return "Missing field: " + fe.Field()
	}
	return "Invalid value for field: " + fe.Field()
}

const notFoundDetail = "Not found."

func idParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeDetail(w, http.StatusNotFound, notFoundDetail)
		return uuid.Nil, false
	}
	return id, true
}

//authorizeLoaded turns the result of a single entity lookup into a response: 404 when the
//entity does not exist, 403 when it belongs to another account. It reports whether the
//caller may go ahead.
func authorizeLoaded(w http.ResponseWriter, r *http.Request, log logging.Logger, entity models.OwnedEntity, err error, missing string) bool {
	if errors.Is(err, database.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, missing)
		return false
	} else if err != nil {
		writeInternalError(w, log, err)
		return false
	}

	if tenancy.AuthorizePrincipal(principal(r), entity) != nil {
		writeDetail(w, http.StatusForbidden, "Forbidden")
		return false
	}

	return true
}

func principal(r *http.Request) *tenancy.Principal {
	return tenancy.PrincipalFromContext(r.Context())
}
