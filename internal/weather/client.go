// Package weather fetches the current temperature of a city from the
// OpenWeatherMap current-weather API.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rewired-gh/tempwatch/internal/models"
)

// KelvinOffset converts Kelvin to Celsius: C = K - KelvinOffset.
const KelvinOffset = 273.15

// DefaultBaseURL is the public OpenWeatherMap endpoint.
const DefaultBaseURL = "https://api.openweathermap.org"

// FetchError reports a failed live-weather request. StatusCode is zero when
// no HTTP response was received (timeout, connection error).
type FetchError struct {
	City       string
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("fetch current weather for %s: status %d: %s", e.City, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch current weather for %s: status %d", e.City, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetch current weather for %s: %v", e.City, e.Err)
	default:
		return fmt.Sprintf("fetch current weather for %s: %s", e.City, e.Message)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the request failed because a deadline expired.
func (e *FetchError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// Client provides access to the current-weather endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	now        func() time.Time
}

// currentWeatherResponse is the subset of the provider payload we read.
// "cod" is a number on success and sometimes a string on errors.
type currentWeatherResponse struct {
	Cod     json.RawMessage `json:"cod"`
	Message string          `json:"message"`
	Name    string          `json:"name"`
	Main    *struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
}

// NewClient creates a client. timeout bounds each request end to end.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

// FetchCurrent returns the current temperature of city in Celsius.
// Failures are returned as *FetchError and are never retried.
func (c *Client) FetchCurrent(ctx context.Context, city string) (*models.CurrentReading, error) {
	if strings.TrimSpace(city) == "" {
		return nil, fmt.Errorf("%w: city must not be empty", models.ErrInvalidInput)
	}
	if c.apiKey == "" {
		return nil, &FetchError{City: city, Message: "api key is not configured"}
	}

	u, err := url.Parse(c.baseURL + "/data/2.5/weather")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("q", city)
	q.Set("appid", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{City: city, Err: redactKey(err, c.apiKey)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &FetchError{City: city, StatusCode: resp.StatusCode, Err: err}
	}

	var payload currentWeatherResponse
	decodeErr := json.Unmarshal(body, &payload)

	if resp.StatusCode != http.StatusOK {
		msg := payload.Message
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &FetchError{City: city, StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, &FetchError{City: city, StatusCode: resp.StatusCode, Message: "malformed response body", Err: decodeErr}
	}
	if payload.Main == nil {
		return nil, &FetchError{City: city, StatusCode: resp.StatusCode, Message: "response has no temperature"}
	}

	return &models.CurrentReading{
		City:         city,
		TemperatureC: KelvinToCelsius(payload.Main.Temp),
		FetchedAt:    c.now(),
	}, nil
}

// KelvinToCelsius converts a Kelvin temperature to Celsius.
func KelvinToCelsius(k float64) float64 {
	return k - KelvinOffset
}

// redactKey strips the API key from transport errors, which embed the request URL.
func redactKey(err error, key string) error {
	var urlErr *url.Error
	if key == "" || !errors.As(err, &urlErr) {
		return err
	}
	return &url.Error{
		Op:  urlErr.Op,
		URL: strings.ReplaceAll(urlErr.URL, key, "REDACTED"),
		Err: urlErr.Err,
	}
}
