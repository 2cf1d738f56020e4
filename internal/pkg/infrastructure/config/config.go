package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

//Config holds every setting the service reads from its environment
type Config struct {
	Port     string
	LogLevel string

	Database DatabaseConfig

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	OpenWeatherAPIKey string

	// HTTPTimeout bounds every outbound call to a weather provider.
	HTTPTimeout time.Duration

	EvapotranspirationCacheTTL time.Duration

	// ForecastInterval controls how often weather snapshots are recorded per land. Zero disables it.
	ForecastInterval time.Duration
}

//DatabaseConfig contains the settings needed to reach the PostgreSQL server
type DatabaseConfig struct {
	Host     string
	User     string
	Name     string
	Password string
	SSLMode  string
}

//DSN formats the database settings as a libpq style connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s dbname=%s sslmode=%s password=%s", c.Host, c.User, c.Name, c.SSLMode, c.Password)
}

//ErrMissingJWTSecret is returned by Load when no token signing secret is configured
var ErrMissingJWTSecret = errors.New("AGROSENSE_JWT_SECRET must be set")

//LoadEnvFile merges the contents of a .env file into the process environment.
//Variables that are already set are left untouched.
func LoadEnvFile(path string) error {
	if path == "" {
		return godotenv.Load()
	}
	return godotenv.Load(path)
}

//Load reads the configuration from the environment, applying defaults where a variable is unset
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("SERVICE_PORT", "8880"),
		LogLevel:          getEnv("AGROSENSE_LOG_LEVEL", "info"),
		JWTSecret:         os.Getenv("AGROSENSE_JWT_SECRET"),
		OpenWeatherAPIKey: os.Getenv("OPENWEATHER_API_KEY"),
		Database: DatabaseConfig{
			Host:     os.Getenv("AGROSENSE_DB_HOST"),
			User:     os.Getenv("AGROSENSE_DB_USER"),
			Name:     os.Getenv("AGROSENSE_DB_NAME"),
			Password: os.Getenv("AGROSENSE_DB_PASSWORD"),
			SSLMode:  getEnv("AGROSENSE_DB_SSLMODE", "require"),
		},
	}

	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}

	durations := []struct {
		key      string
		fallback string
		target   *time.Duration
	}{
		{"AGROSENSE_ACCESS_TOKEN_TTL", "5m", &cfg.AccessTokenTTL},
		{"AGROSENSE_REFRESH_TOKEN_TTL", "24h", &cfg.RefreshTokenTTL},
		{"AGROSENSE_HTTP_TIMEOUT", "10s", &cfg.HTTPTimeout},
		{"AGROSENSE_EVAPO_CACHE_TTL", "1h", &cfg.EvapotranspirationCacheTTL},
		{"AGROSENSE_FORECAST_INTERVAL", "1h", &cfg.ForecastInterval},
	}

	for _, d := range durations {
		value, err := time.ParseDuration(getEnv(d.key, d.fallback))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		if value < 0 {
			return nil, fmt.Errorf("invalid %s: duration may not be negative", d.key)
		}
		*d.target = value
	}

	if cfg.HTTPTimeout == 0 {
		return nil, errors.New("invalid AGROSENSE_HTTP_TIMEOUT: outbound calls require a timeout")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
