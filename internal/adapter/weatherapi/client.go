// Package weatherapi fetches current conditions from the WeatherAPI.com
// current-conditions endpoint.
package weatherapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/karttrack/karttrack/internal/domain"
)

// Client implements weather.Source against WeatherAPI.com.
type Client struct {
	apiKey     string
	query      string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a weather client. query is the location passed as "q"
// (city name or "lat,lon").
func NewClient(apiKey, query string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		query:  query,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.weatherapi.com/v1",
		logger:  logger,
	}
}

// Current fetches the current conditions and stamps them with the capture
// wall clock. All numeric readings are kept as decimals exactly as reported
// so the sample comparison key stays value-exact.
func (c *Client) Current(ctx context.Context) (domain.WeatherSample, error) {
	params := url.Values{
		"key": {c.apiKey},
		"q":   {c.query},
	}
	fullURL := fmt.Sprintf("%s/current.json?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.WeatherSample{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WeatherSample{}, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.WeatherSample{}, fmt.Errorf("weather API error: status %d: %s", resp.StatusCode, body)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.WeatherSample{}, fmt.Errorf("decode response: %w", err)
	}

	cur := payload.Current
	return domain.WeatherSample{
		CapturedAt:      domain.Now(),
		TempC:           cur.TempC,
		IsDay:           cur.IsDay == 1,
		ConditionCode:   cur.Condition.Code,
		ConditionText:   cur.Condition.Text,
		WindKph:         cur.WindKph,
		WindDegree:      cur.WindDegree,
		PressureMb:      cur.PressureMb,
		PrecipitationMm: cur.PrecipMm,
		Humidity:        cur.Humidity,
		Cloud:           cur.Cloud,
		FeelsLikeC:      cur.FeelslikeC,
		DewPointC:       cur.DewpointC,
	}, nil
}

// WeatherAPI response types.

type response struct {
	Current current `json:"current"`
}

type current struct {
	TempC      decimal.Decimal `json:"temp_c"`
	IsDay      int             `json:"is_day"`
	Condition  condition       `json:"condition"`
	WindKph    decimal.Decimal `json:"wind_kph"`
	WindDegree decimal.Decimal `json:"wind_degree"`
	PressureMb decimal.Decimal `json:"pressure_mb"`
	PrecipMm   decimal.Decimal `json:"precip_mm"`
	Humidity   decimal.Decimal `json:"humidity"`
	Cloud      decimal.Decimal `json:"cloud"`
	FeelslikeC decimal.Decimal `json:"feelslike_c"`
	DewpointC  decimal.Decimal `json:"dewpoint_c"`
}

type condition struct {
	Code int    `json:"code"`
	Text string `json:"text"`
}
