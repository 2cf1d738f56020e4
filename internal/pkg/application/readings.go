package application

import (
	"errors"
	"net/http"

	"github.com/agrosense/agrosense-api/internal/pkg/application/ingestion"
	"github.com/agrosense/agrosense-api/internal/pkg/application/tenancy"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/logging"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/database"
	"github.com/go-chi/chi"
)

func addReadingRoutes(r chi.Router, svc *Services) {
	r.Get("/readings", newReadingListHandler(svc.Log, svc.DB))
	r.Get("/readings/feed", newReadingListHandler(svc.Log, svc.DB))
	r.Get("/readings/{id}", newReadingDetailHandler(svc.Log, svc.DB))
	r.Get("/stakes/{id}/readings", newStakeReadingsHandler(svc.Log, svc.DB))
	r.Get("/stakes/{id}/latest-reading", newLatestReadingHandler(svc.Log, svc.DB))
}

//newIngestHandler accepts readings from devices holding an account API key, which are stored
//right away, and from logged in users, whose readings are queued
func newIngestHandler(log logging.Logger, service *ingestion.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := principal(r)

		switch caller.Mode {
		case tenancy.ModeAnonymous:
			writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		case tenancy.ModeSession:
			if !caller.HasAccount() {
				writeDetail(w, http.StatusForbidden, "User profile not found.")
				return
			}
		}

		submission, err := ingestion.DecodeSubmission(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if caller.Mode == tenancy.ModeSession {
			if err := service.Enqueue(caller.AccountID(), submission); err != nil {
				validationErr := &ingestion.ValidationError{}
				if errors.As(err, &validationErr) {
					writeError(w, http.StatusBadRequest, validationErr.Error())
					return
				}

				log.Errorf("Failed to queue reading: %s", err.Error())
				writeError(w, http.StatusServiceUnavailable, "Reading could not be queued")
				return
			}

			writeJSON(w, http.StatusAccepted, map[string]string{"message": "Reading submitted"})
			return
		}

		reading, err := service.IngestSync(caller.AccountID(), submission)
		if err != nil {
			validationErr := &ingestion.ValidationError{}

			switch {
			case errors.Is(err, ingestion.ErrStakeNotFound):
				writeError(w, http.StatusNotFound, "Stake not found")
			case errors.Is(err, tenancy.ErrForbidden):
				writeDetail(w, http.StatusForbidden, "Forbidden")
			case errors.Is(err, ingestion.ErrStakeRetired):
				writeError(w, http.StatusBadRequest, "Stake is not accepting readings")
			case errors.As(err, &validationErr):
				writeError(w, http.StatusBadRequest, validationErr.Error())
			default:
				writeInternalError(w, log, err)
			}
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{
			"status": "reading created",
			"id":     reading.ID.String(),
		})
	}
}

func newReadingListHandler(log logging.Logger, db database.Datastore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		readings, err := db.GetReadings(principal(r).AccountID())
		if err != nil {
			writeInternalError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, readings)
	}
}

func newReadingDetailHandler(log logging.Logger, db database.Datastore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}

		reading, err := db.GetReadingFromID(id)
		if !authorizeLoaded(w, r, log, reading, err, notFoundDetail) {
			return
		}

		writeJSON(w, http.StatusOK, reading)
	}
}

func newStakeReadingsHandler(log logging.Logger, db database.Datastore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}

		stake, err := db.GetStakeFromID(id)
		if !authorizeLoaded(w, r, log, stake, err, "Stake not found") {
			return
		}

		readings, err := db.GetReadingsForStake(principal(r).AccountID(), stake.ID)
		if err != nil {
			writeInternalError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, readings)
	}
}

func newLatestReadingHandler(log logging.Logger, db database.Datastore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}

		stake, err := db.GetStakeFromID(id)
		if !authorizeLoaded(w, r, log, stake, err, "Stake not found") {
			return
		}

		latest, err := db.GetLatestReadingForStake(stake.ID)
		if errors.Is(err, database.ErrNotFound) {
			writeDetail(w, http.StatusNotFound, "No readings")
			return
		} else if err != nil {
			writeInternalError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, latest)
	}
}
