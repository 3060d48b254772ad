// Package weather serves OpenWeatherMap lookups as MCP tools.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.openweathermap.org/data/2.5"
	defaultTimeout = 10 * time.Second

	// forecastEntries covers four days of three-hour slots.
	forecastEntries = 32
	maxBodyBytes    = 2 << 20
)

// APIError is a non-2xx reply from the weather provider.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "unknown error"
	}
	return msg
}

type ClientOptions struct {
	BaseURL    string
	APIKey     string
	Units      string
	Lang       string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client queries the OpenWeatherMap 2.5 API.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	units   string
	lang    string
}

func NewClient(opts ClientOptions) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	units := strings.TrimSpace(opts.Units)
	if units == "" {
		units = "metric"
	}
	return &Client{
		http:    httpClient,
		baseURL: baseURL,
		apiKey:  opts.APIKey,
		units:   units,
		lang:    strings.TrimSpace(opts.Lang),
	}
}

type condition struct {
	Description string `json:"description"`
}

type currentResponse struct {
	Weather []condition `json:"weather"`
	Main    struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
}

type forecastResponse struct {
	List []struct {
		DtTxt   string      `json:"dt_txt"`
		Weather []condition `json:"weather"`
		Main    struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
	} `json:"list"`
}

type climateResponse struct {
	List []struct {
		Dt      int64       `json:"dt"`
		Weather []condition `json:"weather"`
		Temp    struct {
			Day float64 `json:"day"`
			Min float64 `json:"min"`
			Max float64 `json:"max"`
		} `json:"temp"`
	} `json:"list"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Now describes the current conditions for city.
func (c *Client) Now(ctx context.Context, city string) (string, error) {
	var payload currentResponse
	if err := c.get(ctx, "/weather", city, &payload); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s weather: %s, temperature: %s",
		city, firstDescription(payload.Weather), c.temperature(payload.Main.Temp)), nil
}

// Forecast4Days lists the next four days in three-hour steps.
func (c *Client) Forecast4Days(ctx context.Context, city string) (string, error) {
	var payload forecastResponse
	if err := c.get(ctx, "/forecast", city, &payload); err != nil {
		return "", err
	}
	if payload.List == nil {
		return "", &APIError{Status: http.StatusOK}
	}

	items := payload.List
	if len(items) > forecastEntries {
		items = items[:forecastEntries]
	}
	lines := make([]string, 0, len(items)+1)
	lines = append(lines, fmt.Sprintf("%s 4-day forecast:", city))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("%s: %s, temperature: %s",
			item.DtTxt, firstDescription(item.Weather), c.temperature(item.Main.Temp)))
	}
	return strings.Join(lines, "\n"), nil
}

// ForecastMonth lists the daily climate forecast for the coming month.
func (c *Client) ForecastMonth(ctx context.Context, city string) (string, error) {
	var payload climateResponse
	if err := c.get(ctx, "/forecast/climate", city, &payload); err != nil {
		return "", err
	}
	if payload.List == nil {
		return "", &APIError{Status: http.StatusOK}
	}

	lines := make([]string, 0, len(payload.List)+1)
	lines = append(lines, fmt.Sprintf("%s daily forecast this month:", city))
	for _, item := range payload.List {
		date := time.Unix(item.Dt, 0).UTC().Format(time.DateOnly)
		lines = append(lines, fmt.Sprintf("%s: %s, day: %s, min: %s, max: %s",
			date,
			firstDescription(item.Weather),
			c.temperature(item.Temp.Day),
			c.temperature(item.Temp.Min),
			c.temperature(item.Temp.Max),
		))
	}
	return strings.Join(lines, "\n"), nil
}

func (c *Client) endpoint(path, city string) (string, error) {
	parsed, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid weather endpoint: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid weather endpoint %q", c.baseURL)
	}

	parsed.Path = strings.TrimSuffix(parsed.Path, "/") + path
	q := parsed.Query()
	q.Set("q", city)
	q.Set("appid", c.apiKey)
	q.Set("units", c.units)
	if c.lang != "" {
		q.Set("lang", c.lang)
	}
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

func (c *Client) get(ctx context.Context, path, city string, out any) error {
	city = strings.TrimSpace(city)
	if city == "" {
		return fmt.Errorf("city is required")
	}

	endpoint, err := c.endpoint(path, city)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr errorResponse
		_ = json.Unmarshal(body, &apiErr)
		return &APIError{Status: resp.StatusCode, Message: apiErr.Message}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode weather response: %w", err)
	}
	return nil
}

func (c *Client) temperature(v float64) string {
	switch c.units {
	case "imperial":
		return fmt.Sprintf("%g°F", v)
	case "standard":
		return fmt.Sprintf("%gK", v)
	default:
		return fmt.Sprintf("%g°C", v)
	}
}

func firstDescription(conditions []condition) string {
	if len(conditions) == 0 {
		return ""
	}
	return strings.TrimSpace(conditions[0].Description)
}
