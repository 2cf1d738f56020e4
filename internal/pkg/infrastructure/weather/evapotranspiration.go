package weather

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/cache"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"
)

const ipmaBaseURL = "https://api.ipma.pt/open-data/observation/climate/evapotranspiration"

//EvapotranspirationEntry is one dated reference evapotranspiration value as published by IPMA
type EvapotranspirationEntry struct {
	Date string `json:"date"`
	ETo  string `json:"eto"`
}

//EvapotranspirationClient fetches evapotranspiration series for the district closest to a
//coordinate and keeps each district's series in the injected cache.
type EvapotranspirationClient struct {
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
	cache   cache.Cache
	ttl     time.Duration
	baseURL string
	group   singleflight.Group
}

//NewEvapotranspirationClient creates a client that caches each district's series for ttl
func NewEvapotranspirationClient(client *http.Client, c cache.Cache, ttl time.Duration) *EvapotranspirationClient {
	return &EvapotranspirationClient{
		client:  client,
		circuit: newBreaker("ipma"),
		cache:   c,
		ttl:     ttl,
		baseURL: ipmaBaseURL,
	}
}

//CacheKey returns the key a district's series is cached under
func CacheKey(district string) string {
	return "evapo_" + district
}

//Fetch returns the evapotranspiration series of the district closest to lat/lon
func (e *EvapotranspirationClient) Fetch(ctx context.Context, lat, lon float64) ([]EvapotranspirationEntry, error) {
	district := ClosestDistrict(lat, lon)
	key := CacheKey(district)

	if cached, ok := e.cache.Get(key); ok {
		if entries, ok := cached.([]EvapotranspirationEntry); ok {
			return entries, nil
		}
	}

	// the shared download must outlive any single caller; each caller still stops waiting
	// when its own context is done
	flight := e.group.DoChan(key, func() (interface{}, error) {
		entries, err := e.download(context.WithoutCancel(ctx), district)
		if err != nil {
			return nil, &UpstreamError{
				Provider: "ipma",
				Message:  "IPMA fetch error: " + err.Error(),
				Err:      err,
			}
		}

		e.cache.Set(key, entries, e.ttl)
		return entries, nil
	})

	select {
	case <-ctx.Done():
		return nil, &UpstreamError{
			Provider: "ipma",
			Message:  "IPMA fetch error: " + ctx.Err().Error(),
			Err:      ctx.Err(),
		}
	case result := <-flight:
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Val.([]EvapotranspirationEntry), nil
	}
}

func (e *EvapotranspirationClient) download(ctx context.Context, district string) ([]EvapotranspirationEntry, error) {
	url := fmt.Sprintf("%s/%s.csv", e.baseURL, district)

	resp, err := get(ctx, e.client, e.circuit, url)
	if err != nil {
		return nil, err
	}

	if resp.status != http.StatusOK {
		return nil, fmt.Errorf("%d %s for url: %s", resp.status, http.StatusText(resp.status), url)
	}

	entries, err := parseEvapotranspirationCSV(resp.body)
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, errors.New("no evapotranspiration data found in CSV")
	}

	return entries, nil
}

//parseEvapotranspirationCSV reads a semicolon separated file with a header row and keeps the
//rows that carry both a "data" and an "eto" value
func parseEvapotranspirationCSV(body []byte) ([]EvapotranspirationEntry, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(body, []byte("\ufeff"))))
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	dateColumn, etoColumn := -1, -1
	for idx, name := range header {
		switch strings.TrimSpace(name) {
		case "data":
			dateColumn = idx
		case "eto":
			etoColumn = idx
		}
	}

	if dateColumn < 0 || etoColumn < 0 {
		return nil, nil
	}

	entries := []EvapotranspirationEntry{}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		if dateColumn >= len(record) || etoColumn >= len(record) {
			continue
		}

		date := strings.TrimSpace(record[dateColumn])
		eto := strings.TrimSpace(record[etoColumn])
		if date == "" || eto == "" {
			continue
		}

		entries = append(entries, EvapotranspirationEntry{Date: date, ETo: eto})
	}

	return entries, nil
}
