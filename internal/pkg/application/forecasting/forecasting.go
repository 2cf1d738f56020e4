package forecasting

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/logging"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

//Source is the label stored on forecasts recorded from OpenWeatherMap
const Source = "openweathermap"

//WeatherSource returns the current weather document for a coordinate
type WeatherSource interface {
	CurrentWeather(ctx context.Context, lat, lon float64) (map[string]interface{}, error)
}

//Store is the part of the datastore the recorder needs
type Store interface {
	GetActiveLands() ([]models.Land, error)
	CreateWeatherForecast(forecast *models.WeatherForecast) error
}

//Recorder takes weather snapshots for lands and stores them as forecasts
type Recorder struct {
	source WeatherSource
	store  Store
	log    logging.Logger
}

//NewRecorder creates a recorder
func NewRecorder(source WeatherSource, store Store, log logging.Logger) *Recorder {
	return &Recorder{source: source, store: store, log: log}
}

//RecordAll takes one snapshot per active land. A failing land is logged and skipped.
func (r *Recorder) RecordAll(ctx context.Context) error {
	lands, err := r.store.GetActiveLands()
	if err != nil {
		return fmt.Errorf("failed to list active lands: %w", err)
	}

	failures := 0

	for idx := range lands {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if _, err := r.Record(ctx, &lands[idx]); err != nil {
			failures++
			r.log.Errorf("Failed to record weather for land %s: %s", lands[idx].ID, err.Error())
		}
	}

	if failures > 0 {
		return fmt.Errorf("weather snapshots failed for %d of %d lands", failures, len(lands))
	}

	return nil
}

//Record takes a snapshot of the current weather at land and stores it
func (r *Recorder) Record(ctx context.Context, land *models.Land) (*models.WeatherForecast, error) {
	payload, err := r.source.CurrentWeather(ctx, land.Latitude, land.Longitude)
	if err != nil {
		return nil, err
	}

	forecast, err := FromPayload(land.ID, payload)
	if err != nil {
		return nil, err
	}

	if err := r.store.CreateWeatherForecast(forecast); err != nil {
		return nil, err
	}

	return forecast, nil
}

//FromPayload maps an OpenWeatherMap current weather document onto a forecast. The full
//document is kept as the forecast's raw data.
func FromPayload(landID uuid.UUID, payload map[string]interface{}) (*models.WeatherForecast, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().UTC()
	if dt, ok := lookup(payload, "dt"); ok && dt > 0 {
		timestamp = time.Unix(int64(dt), 0).UTC()
	}

	forecast := &models.WeatherForecast{
		LandID:    landID,
		Timestamp: timestamp,
		Source:    Source,
		RawData:   datatypes.JSON(raw),
	}

	forecast.AirTemperature, _ = lookup(payload, "main", "temp")
	forecast.AirHumidity, _ = lookup(payload, "main", "humidity")
	forecast.WindSpeed, _ = lookup(payload, "wind", "speed")
	forecast.CloudCoverage, _ = lookup(payload, "clouds", "all")
	forecast.UVIndex, _ = lookup(payload, "uvi")

	if rain, ok := lookup(payload, "rain", "1h"); ok {
		forecast.Precipitation = rain
	} else {
		forecast.Precipitation, _ = lookup(payload, "rain", "3h")
	}

	if deg, ok := lookup(payload, "wind", "deg"); ok {
		forecast.WindDirection = int(deg)
	}

	return forecast, nil
}

//lookup follows path through nested objects and returns the number found at its end
func lookup(payload map[string]interface{}, path ...string) (float64, bool) {
	var current interface{} = payload

	for _, key := range path {
		object, ok := current.(map[string]interface{})
		if !ok {
			return 0, false
		}
		if current, ok = object[key]; !ok {
			return 0, false
		}
	}

	switch v := current.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
