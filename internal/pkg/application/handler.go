package application

import (
	"compress/flate"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/agrosense/agrosense-api/internal/pkg/application/ingestion"
	"github.com/agrosense/agrosense-api/internal/pkg/application/tenancy"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/logging"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/database"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/weather"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/iot-for-tillgenglighet/messaging-golang/pkg/messaging"

	"github.com/rs/cors"
)

const shutdownTimeout = 10 * time.Second

//RequestRouter wraps the concrete router implementation
type RequestRouter struct {
	impl *chi.Mux
}

//Get accepts a pattern that should be routed to the handlerFn on a GET request
func (router *RequestRouter) Get(pattern string, handlerFn http.HandlerFunc) {
	router.impl.Get(pattern, handlerFn)
}

//Post accepts a pattern that should be routed to the handlerFn on a POST request
func (router *RequestRouter) Post(pattern string, handlerFn http.HandlerFunc) {
	router.impl.Post(pattern, handlerFn)
}

//ServeHTTP lets the router be used as an http.Handler
func (router *RequestRouter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	router.impl.ServeHTTP(w, r)
}

func newRequestRouter() *RequestRouter {
	router := &RequestRouter{impl: chi.NewRouter()}

	router.impl.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", tenancy.APIKeyHeader},
		AllowCredentials: true,
		Debug:            false,
	}).Handler)

	compressor := middleware.NewCompressor(flate.DefaultCompression, "application/json")
	router.impl.Use(compressor.Handler)
	router.impl.Use(middleware.Logger)
	router.impl.Use(middleware.StripSlashes)

	return router
}

//MessagingContext is an interface that allows mocking of messaging.Context parameters
type MessagingContext interface {
	PublishOnTopic(message messaging.TopicMessage) error
}

//LiveWeather returns the current weather at a coordinate
type LiveWeather interface {
	CurrentWeather(ctx context.Context, lat, lon float64) (map[string]interface{}, error)
}

//Evapotranspiration returns the evapotranspiration series closest to a coordinate
type Evapotranspiration interface {
	Fetch(ctx context.Context, lat, lon float64) ([]weather.EvapotranspirationEntry, error)
}

//Services holds the collaborators the request handlers depend on
type Services struct {
	Log                logging.Logger
	DB                 database.Datastore
	Messenger          MessagingContext
	Tokens             *tenancy.TokenIssuer
	Weather            LiveWeather
	Evapotranspiration Evapotranspiration
}

func createRequestRouter(svc *Services) *RequestRouter {
	router := newRequestRouter()

	resolver := tenancy.NewResolver(svc.DB, svc.Tokens, svc.Log)
	ingest := ingestion.NewService(svc.DB, svc.Messenger, svc.Log)

	health := newHealthHandler(svc.Log, svc.DB, svc.Messenger)
	router.Get("/health", health)

	router.impl.Route("/api", func(r chi.Router) {
		r.Post("/token", newObtainTokenHandler(svc.Log, svc.DB, svc.Tokens))
		r.Post("/token/refresh", newRefreshTokenHandler(svc.Tokens))

		r.Route("/v1", func(r chi.Router) {
			r.Get("/health", health)
			r.Post("/signup", newSignupHandler(svc.Log, svc.DB))

			r.Group(func(r chi.Router) {
				r.Use(resolver.Authenticate)

				r.Post("/readings/ingest", newIngestHandler(svc.Log, ingest))

				r.Group(func(r chi.Router) {
					r.Use(tenancy.RequireSession)

					r.Get("/users/me", newCurrentUserHandler())
				})

				r.Group(func(r chi.Router) {
					r.Use(tenancy.RequireAccount)

					r.Get("/me", newMeHandler())

					addReadingRoutes(r, svc)
					addLandRoutes(r, svc)
					addStakeRoutes(r, svc)
					addAccountRoutes(r, svc)
					addForecastRoutes(r, svc)
					addUserRoutes(r, svc)
				})
			})
		})
	})

	return router
}

//CreateRouterAndStartServing sets up the REST router and serves incoming requests until ctx is
//done, then shuts the server down gracefully
func CreateRouterAndStartServing(ctx context.Context, port string, svc *Services) error {
	server := &http.Server{Addr: ":" + port, Handler: createRequestRouter(svc)}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			svc.Log.Errorf("Failed to shut down gracefully: %s", err.Error())
		}
	}()

	svc.Log.Infof("Starting agrosense-api on port %s.\n", port)

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-stopped
	svc.Log.Infof("Server stopped")
	return nil
}
