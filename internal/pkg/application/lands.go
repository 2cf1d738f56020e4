package application

import (
	"errors"
	"net/http"

	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/logging"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/database"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/models"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/weather"
	"github.com/go-chi/chi"
)

type landInput struct {
	Name        *string  `json:"name" validate:"required,min=1,max=255"`
	Description *string  `json:"description"`
	Latitude    *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude   *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Active      *bool    `json:"active"`
}

func landInputFrom(land *models.Land) *landInput {
	return &landInput{
		Name:        &land.Name,
		Description: &land.Description,
		Latitude:    &land.Latitude,
		Longitude:   &land.Longitude,
		Active:      &land.Active,
	}
}

func (in *landInput) applyTo(land *models.Land) {
	land.Name = *in.Name
	land.Latitude = *in.Latitude
	land.Longitude = *in.Longitude

	if in.Description != nil {
		land.Description = *in.Description
	}

	land.Active = in.Active == nil || *in.Active
}

func addLandRoutes(r chi.Router, svc *Services) {
	r.Get("/lands", newLandListHandler(svc.Log, svc.DB))
	r.Post("/lands", newCreateLandHandler(svc.Log, svc.DB))
	r.Get("/lands/{id}", newLandDetailHandler(svc.Log, svc.DB))
	r.Put("/lands/{id}", newUpdateLandHandler(svc.Log, svc.DB, false))
	r.Patch("/lands/{id}", newUpdateLandHandler(svc.Log, svc.DB, true))
	r.Delete("/lands/{id}", newDeleteLandHandler(svc.Log, svc.DB))
	r.Get("/lands/{id}/stakes", newStakesOfLandHandler(svc.Log, svc.DB))
	r.Get("/lands/{id}/live-weather", newLiveWeatherHandler(svc.Log, svc.DB, svc.Weather))
	r.Get("/lands/{id}/evapotranspiration", newEvapotranspirationHandler(svc.Log, svc.DB, svc.Evapotranspiration))
}

func newLandListHandler(log logging.Logger, db database.Datastore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lands, err := db.GetLands(principal(r).AccountID())
		if err != nil {
			writeInternalError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, lands)
	}
}

func newCreateLandHandler(log logging.Logger, db database.Datastore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input := &landInput{}
		if !decodeAndValidate(w, r, input) {
			return
		}

		land := &models.Land{AccountID: principal(r).AccountID()}
		input.applyTo(land)

		if err := db.CreateLand(land); err != nil {
			writeInternalError(w, log, err)
			return
		}

		writeJSON(w, http.StatusCreated, land)
	}
}

//loadLand fetches the land named by the id url parameter and checks that the caller may see it
func loadLand(w http.ResponseWriter, r *http.Request, log logging.Logger, db database.Datastore, missing string) (*models.Land, bool) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return nil, false
	}

	land, err := db.GetLandFromID(id)
	if !authorizeLoaded(w, r, log, land, err, missing) {
		return nil, false
	}

	return land, true
}

func newLandDetailHandler(log logging.Logger, db database.Datastore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if land, ok := loadLand(w, r, log, db, notFoundDetail); ok {
			writeJSON(w, http.StatusOK, land)
		}
	}
}

func newUpdateLandHandler(log logging.Logger, db database.Datastore, partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		land, ok := loadLand(w, r, log, db, notFoundDetail)
		if !ok {
			return
		}

		input := &landInput{}
		if partial {
			input = landInputFrom(land)
		}

		if !decodeAndValidate(w, r, input) {
			return
		}

		input.applyTo(land)

		if err := db.UpdateLand(land); err != nil {
			writeInternalError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, land)
	}
}

func newDeleteLandHandler(log logging.Logger, db database.Datastore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		land, ok := loadLand(w, r, log, db, notFoundDetail)
		if !ok {
			return
		}

		if err := db.DeleteLand(land.ID); err != nil && !errors.Is(err, database.ErrNotFound) {
			writeInternalError(w, log, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func newStakesOfLandHandler(log logging.Logger, db database.Datastore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		land, ok := loadLand(w, r, log, db, "Land not found")
		if !ok {
			return
		}

		stakes, err := db.GetStakesForLand(principal(r).AccountID(), land.ID)
		if err != nil {
			writeInternalError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, stakes)
	}
}

func newLiveWeatherHandler(log logging.Logger, db database.Datastore, source LiveWeather) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		land, ok := loadLand(w, r, log, db, "Land not found")
		if !ok {
			return
		}

		payload, err := source.CurrentWeather(r.Context(), land.Latitude, land.Longitude)
		if err != nil {
			writeUpstreamError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, payload)
	}
}

func newEvapotranspirationHandler(log logging.Logger, db database.Datastore, source Evapotranspiration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		land, ok := loadLand(w, r, log, db, "Land not found")
		if !ok {
			return
		}

		entries, err := source.Fetch(r.Context(), land.Latitude, land.Longitude)
		if err != nil {
			writeUpstreamError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, entries)
	}
}

func writeUpstreamError(w http.ResponseWriter, log logging.Logger, err error) {
	upstreamErr := &weather.UpstreamError{}
	if errors.As(err, &upstreamErr) {
		log.Warnf("Upstream %s failed: %s", upstreamErr.Provider, upstreamErr.Error())
	} else {
		log.Errorf("Weather lookup failed: %s", err.Error())
	}

	writeError(w, http.StatusBadGateway, err.Error())
}
