package application

import (
	"errors"
	"net/http"

	"github.com/agrosense/agrosense-api/internal/pkg/application/tenancy"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/logging"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/database"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/models"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
)

type stakeInput struct {
	Land      *string  `json:"land" validate:"required,uuid"`
	Name      *string  `json:"name" validate:"required,min=1,max=255"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Active    *bool    `json:"active"`
	Removed   *bool    `json:"removed"`
}

func stakeInputFrom(stake *models.Stake) *stakeInput {
	land := stake.LandID.String()

	return &stakeInput{
		Land:      &land,
		Name:      &stake.Name,
		Latitude:  &stake.Latitude,
		Longitude: &stake.Longitude,
		Active:    &stake.Active,
		Removed:   &stake.Removed,
	}
}

func (in *stakeInput) applyTo(stake *models.Stake, land *models.Land) {
	stake.LandID = land.ID
	stake.Land = land
	stake.Name = *in.Name
	stake.Latitude = *in.Latitude
	stake.Longitude = *in.Longitude
	stake.Active = in.Active == nil || *in.Active
	stake.Removed = in.Removed != nil && *in.Removed
}

func addStakeRoutes(r chi.Router, svc *Services) {
	r.Get("/stakes", newStakeListHandler(svc.Log, svc.DB))
	r.Post("/stakes", newCreateStakeHandler(svc.Log, svc.DB))
	r.Get("/stakes/{id}", newStakeDetailHandler(svc.Log, svc.DB))
	r.Put("/stakes/{id}", newUpdateStakeHandler(svc.Log, svc.DB, false))
	r.Patch("/stakes/{id}", newUpdateStakeHandler(svc.Log, svc.DB, true))
	r.Delete("/stakes/{id}", newDeleteStakeHandler(svc.Log, svc.DB))
}

func newStakeListHandler(log logging.Logger, db database.Datastore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stakes, err := db.GetStakes(principal(r).AccountID())
		if err != nil {
			writeInternalError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, stakes)
	}
}

//targetLand resolves the land a stake is being placed in. Only the caller's own lands qualify.
func targetLand(w http.ResponseWriter, r *http.Request, log logging.Logger, db database.Datastore, in *stakeInput) (*models.Land, bool) {
	land, err := db.GetLandFromID(uuid.MustParse(*in.Land))
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "Invalid value for field: land")
		return nil, false
	} else if err != nil {
		writeInternalError(w, log, err)
		return nil, false
	}

	if tenancy.AuthorizePrincipal(principal(r), land) != nil {
		writeDetail(w, http.StatusForbidden, "Forbidden")
		return nil, false
	}

	return land, true
}

func newCreateStakeHandler(log logging.Logger, db database.Datastore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input := &stakeInput{}
		if !decodeAndValidate(w, r, input) {
			return
		}

		land, ok := targetLand(w, r, log, db, input)
		if !ok {
			return
		}

		stake := &models.Stake{}
		input.applyTo(stake, land)

		if err := db.CreateStake(stake); err != nil {
			writeInternalError(w, log, err)
			return
		}

		writeJSON(w, http.StatusCreated, stake)
	}
}

func loadStake(w http.ResponseWriter, r *http.Request, log logging.Logger, db database.Datastore) (*models.Stake, bool) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return nil, false
	}

	stake, err := db.GetStakeFromID(id)
	if !authorizeLoaded(w, r, log, stake, err, notFoundDetail) {
		return nil, false
	}

	return stake, true
}

func newStakeDetailHandler(log logging.Logger, db database.Datastore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if stake, ok := loadStake(w, r, log, db); ok {
			writeJSON(w, http.StatusOK, stake)
		}
	}
}

func newUpdateStakeHandler(log logging.Logger, db database.Datastore, partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stake, ok := loadStake(w, r, log, db)
		if !ok {
			return
		}

		input := &stakeInput{}
		if partial {
			input = stakeInputFrom(stake)
		}

		if !decodeAndValidate(w, r, input) {
			return
		}

		land, ok := targetLand(w, r, log, db, input)
		if !ok {
			return
		}

		input.applyTo(stake, land)

		if err := db.UpdateStake(stake); err != nil {
			writeInternalError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, stake)
	}
}

func newDeleteStakeHandler(log logging.Logger, db database.Datastore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stake, ok := loadStake(w, r, log, db)
		if !ok {
			return
		}

		if err := db.DeleteStake(stake.ID); err != nil && !errors.Is(err, database.ErrNotFound) {
			writeInternalError(w, log, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
