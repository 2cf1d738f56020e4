package application

import (
	"net/http"

	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/logging"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/messaging"
)

type pinger interface {
	Ping() error
}

const (
	statusOK    = "ok"
	statusError = "error"
)

//newHealthHandler reports whether the datastore and the queue are reachable
func newHealthHandler(log logging.Logger, db pinger, messenger MessagingContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := map[string]string{
			"status":   statusOK,
			"database": statusOK,
			"queue":    statusOK,
		}

		if db == nil {
			report["database"] = statusError
		} else if err := db.Ping(); err != nil {
			log.Errorf("Database health check failed: %s", err.Error())
			report["database"] = statusError
		}

		var publisher messaging.Publisher
		if messenger != nil {
			publisher = messenger
		}

		if err := messaging.CheckConnection(publisher, "health"); err != nil {
			log.Errorf("Queue health check failed: %s", err.Error())
			report["queue"] = statusError
		}

		code := http.StatusOK
		if report["database"] != statusOK || report["queue"] != statusOK {
			report["status"] = statusError
			code = http.StatusServiceUnavailable
		}

		writeJSON(w, code, report)
	}
}
