package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	defaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	defaultForecastURL  = "https://api.open-meteo.com/v1/forecast"
)

// Weather answers current-conditions questions via Open-Meteo: geocode the
// location, then fetch the current temperature and wind.
type Weather struct {
	client          *http.Client
	geocodingURL    string
	forecastURL     string
	defaultLocation string
	logger          *zap.Logger
}

type WeatherConfig struct {
	GeocodingURL    string
	ForecastURL     string
	DefaultLocation string
	Timeout         time.Duration
}

func NewWeather(cfg WeatherConfig, logger *zap.Logger) *Weather {
	if cfg.GeocodingURL == "" {
		cfg.GeocodingURL = defaultGeocodingURL
	}
	if cfg.ForecastURL == "" {
		cfg.ForecastURL = defaultForecastURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Weather{
		client:          &http.Client{Timeout: cfg.Timeout},
		geocodingURL:    cfg.GeocodingURL,
		forecastURL:     cfg.ForecastURL,
		defaultLocation: cfg.DefaultLocation,
		logger:          logger,
	}
}

func (w *Weather) Execute(ctx context.Context, command string) (string, error) {
	location := ExtractLocation(command)
	if location == "" {
		location = w.defaultLocation
	}
	if location == "" {
		return "Which city would you like the weather for?", nil
	}

	lat, lon, name, err := w.geocode(ctx, location)
	if err != nil {
		w.logger.Error("Geocoding failed", zap.Error(err), zap.String("location", location))
		return fmt.Sprintf("Sorry, I couldn't find a place called %s.", location), nil
	}

	body, err := w.get(ctx, fmt.Sprintf("%s?latitude=%f&longitude=%f&current_weather=true", w.forecastURL, lat, lon))
	if err != nil {
		return "", fmt.Errorf("fetching forecast: %w", err)
	}

	current := gjson.GetBytes(body, "current_weather")
	if !current.Exists() {
		return "", fmt.Errorf("forecast response missing current_weather")
	}
	temp := current.Get("temperature").Float()
	wind := current.Get("windspeed").Float()
	return fmt.Sprintf("It's %.1f degrees in %s with wind at %.0f kilometers per hour.", temp, name, wind), nil
}

func (w *Weather) geocode(ctx context.Context, location string) (lat, lon float64, name string, err error) {
	body, err := w.get(ctx, fmt.Sprintf("%s?name=%s&count=1", w.geocodingURL, url.QueryEscape(location)))
	if err != nil {
		return 0, 0, "", fmt.Errorf("geocoding request: %w", err)
	}
	first := gjson.GetBytes(body, "results.0")
	if !first.Exists() {
		return 0, 0, "", fmt.Errorf("no geocoding result for %q", location)
	}
	return first.Get("latitude").Float(), first.Get("longitude").Float(), first.Get("name").String(), nil
}

func (w *Weather) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// ExtractLocation pulls the place name out of phrasings like "weather in
// paris" or "forecast for tokyo".
func ExtractLocation(command string) string {
	q := strings.ToLower(command)
	for _, sep := range []string{" in ", " for "} {
		if idx := strings.LastIndex(q, sep); idx >= 0 {
			return strings.Trim(q[idx+len(sep):], "?., ")
		}
	}
	return ""
}
