package application

import (
	"net/http"

	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/logging"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/database"
	"github.com/go-chi/chi"
)

func addForecastRoutes(r chi.Router, svc *Services) {
	r.Get("/forecasts", newForecastListHandler(svc.Log, svc.DB))
	r.Get("/forecasts/{id}", newForecastDetailHandler(svc.Log, svc.DB))
}

func newForecastListHandler(log logging.Logger, db database.Datastore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		forecasts, err := db.GetWeatherForecasts(principal(r).AccountID())
		if err != nil {
			writeInternalError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, forecasts)
	}
}

func newForecastDetailHandler(log logging.Logger, db database.Datastore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}

		forecast, err := db.GetWeatherForecastFromID(id)
		if !authorizeLoaded(w, r, log, forecast, err, notFoundDetail) {
			return
		}

		writeJSON(w, http.StatusOK, forecast)
	}
}
