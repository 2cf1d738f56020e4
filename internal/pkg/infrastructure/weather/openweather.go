package weather

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"
)

const openWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

//OpenWeatherClient looks up the current weather at a coordinate on OpenWeatherMap
type OpenWeatherClient struct {
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
	apiKey  string
	baseURL string
}

//NewOpenWeatherClient creates a client that authenticates with apiKey
func NewOpenWeatherClient(client *http.Client, apiKey string) *OpenWeatherClient {
	return &OpenWeatherClient{
		client:  client,
		circuit: newBreaker("openweathermap"),
		apiKey:  apiKey,
		baseURL: openWeatherURL,
	}
}

//CurrentWeather returns the provider's JSON document for lat/lon, in metric units, unmodified
func (o *OpenWeatherClient) CurrentWeather(ctx context.Context, lat, lon float64) (map[string]interface{}, error) {
	if o.apiKey == "" {
		return nil, o.failure("OpenWeatherMap error: api key is not configured", errors.New("missing api key"))
	}

	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set("appid", o.apiKey)
	values.Set("units", "metric")

	resp, err := get(ctx, o.client, o.circuit, fmt.Sprintf("%s?%s", o.baseURL, values.Encode()))
	if err != nil {
		return nil, o.failure("OpenWeatherMap error: "+err.Error(), err)
	}

	if resp.status != http.StatusOK {
		return nil, o.failure(fmt.Sprintf("OpenWeatherMap error %d: %s", resp.status, string(resp.body)), nil)
	}

	payload := map[string]interface{}{}

	decoder := json.NewDecoder(bytes.NewReader(resp.body))
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return nil, o.failure("OpenWeatherMap error: unreadable response: "+err.Error(), err)
	}

	return payload, nil
}

func (o *OpenWeatherClient) failure(message string, err error) error {
	return &UpstreamError{Provider: "openweathermap", Message: message, Err: err}
}
