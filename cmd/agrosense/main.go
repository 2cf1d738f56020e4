package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agrosense/agrosense-api/internal/pkg/application"
	"github.com/agrosense/agrosense-api/internal/pkg/application/forecasting"
	"github.com/agrosense/agrosense-api/internal/pkg/application/ingestion"
	"github.com/agrosense/agrosense-api/internal/pkg/application/tenancy"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/cache"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/config"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/logging"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/messaging"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/database"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/scheduler"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/weather"
	"github.com/spf13/pflag"
)

func main() {

	serviceName := "agrosense-api"

	port := pflag.String("port", "", "port to serve the api on, overrides SERVICE_PORT")
	envFile := pflag.String("env-file", "", "optional .env file to load before reading the environment")
	pflag.Parse()

	log := logging.NewLogger()

	if err := config.LoadEnvFile(*envFile); err != nil && *envFile != "" {
		log.Fatalf("Failed to load %s: %s", *envFile, err.Error())
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %s", err.Error())
	}

	if *port != "" {
		cfg.Port = *port
	}

	log = logging.NewLoggerWithLevel(cfg.LogLevel)
	log.Infof("Starting up %s ...", serviceName)

	db, err := database.NewDatabaseConnection(database.NewPostgreSQLConnector(cfg.Database, log), log)
	if err != nil {
		log.Fatalf("Failed to connect to the database: %s", err.Error())
	}

	svc := &application.Services{
		Log:    log,
		DB:     db,
		Tokens: tenancy.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
	}

	messenger, err := messaging.Connect(serviceName, log)
	if err != nil {
		log.Errorf("Readings submitted by users will not be queued until %s is restarted with a reachable broker", serviceName)
	} else {
		defer messenger.Close()

		worker := ingestion.NewWorker(db, log)
		messenger.RegisterTopicMessageHandler(ingestion.TopicName, worker.HandleDelivery)

		svc.Messenger = messenger
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	openWeather := weather.NewOpenWeatherClient(httpClient, cfg.OpenWeatherAPIKey)

	svc.Weather = openWeather
	svc.Evapotranspiration = weather.NewEvapotranspirationClient(
		httpClient,
		cache.NewMemoryCache(10*time.Minute),
		cfg.EvapotranspirationCacheTTL,
	)

	if cfg.ForecastInterval > 0 && cfg.OpenWeatherAPIKey != "" {
		recorder := forecasting.NewRecorder(openWeather, db, log)

		jobs := scheduler.New(cfg.ForecastInterval, cfg.ForecastInterval, log)
		if err := jobs.Schedule("weather forecasts", recorder.RecordAll); err != nil {
			log.Fatalf("Failed to schedule forecast snapshots: %s", err.Error())
		}

		jobs.Start()
		defer jobs.Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.CreateRouterAndStartServing(ctx, cfg.Port, svc); err != nil {
		log.Errorf("Server failed: %s", err.Error())
	}
}
