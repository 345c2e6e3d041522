package weatherapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karttrack/karttrack/internal/domain"
)

const currentBody = `{
  "current": {
    "temp_c": 21.5,
    "is_day": 1,
    "condition": {"text": "Partly cloudy", "code": 1003},
    "wind_kph": 15.1,
    "wind_degree": 250,
    "pressure_mb": 1012.0,
    "precip_mm": 0.2,
    "humidity": 71,
    "cloud": 50,
    "feelslike_c": 21.5,
    "dewpoint_c": 16.0
  }
}`

func testClient(baseURL string) *Client {
	return &Client{
		apiKey:     "test-key",
		query:      "Batumi",
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestCurrentDecodesReadings(t *testing.T) {
	capturedAt := time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(capturedAt))
	t.Cleanup(func() { domain.SetClock(nil) })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/current.json", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "Batumi", r.URL.Query().Get("q"))
		w.Write([]byte(currentBody)) //nolint:errcheck
	}))
	defer srv.Close()

	sample, err := testClient(srv.URL).Current(context.Background())
	require.NoError(t, err)

	assert.Equal(t, capturedAt, sample.CapturedAt)
	assert.Equal(t, "21.5", sample.TempC.String())
	assert.True(t, sample.IsDay)
	assert.Equal(t, 1003, sample.ConditionCode)
	assert.Equal(t, "Partly cloudy", sample.ConditionText)
	assert.Equal(t, "15.1", sample.WindKph.String())
	assert.Equal(t, "0.2", sample.PrecipitationMm.String())
	assert.Equal(t, "50", sample.Cloud.String())
	assert.Equal(t, "16", sample.DewPointC.String())
}

func TestCurrentNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"code":2006,"message":"API key is invalid."}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Current(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestCurrentMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"current":`)) //nolint:errcheck
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Current(context.Background())
	assert.Error(t, err)
}
