package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karttrack/karttrack/internal/domain"
)

func sampleWith(precip, cloud, wind string) domain.WeatherSample {
	return domain.WeatherSample{
		CapturedAt:      time.Date(2024, time.April, 26, 15, 0, 0, 0, time.UTC),
		TempC:           decimal.RequireFromString("21.5"),
		PrecipitationMm: decimal.RequireFromString(precip),
		Cloud:           decimal.RequireFromString(cloud),
		WindKph:         decimal.RequireFromString(wind),
	}
}

func TestClassifySession_Thresholds(t *testing.T) {
	tests := []struct {
		name    string
		precip  string
		cloud   string
		wind    string
		weather domain.WeatherKind
		sky     domain.SkyKind
		wind_   domain.WindKind
	}{
		{"wet overcast windy", "2.5", "90", "20", domain.WeatherWet, domain.SkyOvercast, domain.WindWindy},
		{"damp cloudy calm", "1.5", "50", "10", domain.WeatherDamp, domain.SkyCloudy, domain.WindNone},
		{"dry clear calm", "0.5", "10", "10", domain.WeatherDry, domain.SkyClear, domain.WindNone},
		{"precip boundary stays damp", "2", "50", "10", domain.WeatherDamp, domain.SkyCloudy, domain.WindNone},
		{"precip boundary stays dry", "1", "50", "10", domain.WeatherDry, domain.SkyCloudy, domain.WindNone},
		{"cloud boundary is cloudy", "0", "15", "10", domain.WeatherDry, domain.SkyCloudy, domain.WindNone},
		{"cloud boundary is overcast", "0", "70", "10", domain.WeatherDry, domain.SkyOvercast, domain.WindNone},
		{"wind boundary is windy", "0", "10", "15", domain.WeatherDry, domain.SkyClear, domain.WindWindy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := domain.ClassifySession(sampleWith(tt.precip, tt.cloud, tt.wind))

			require.NotNil(t, info.Weather)
			require.NotNil(t, info.Sky)
			require.NotNil(t, info.Wind)
			require.NotNil(t, info.AirTempC)
			assert.Equal(t, tt.weather, *info.Weather)
			assert.Equal(t, tt.sky, *info.Sky)
			assert.Equal(t, tt.wind_, *info.Wind)
			assert.True(t, info.AirTempC.Equal(decimal.RequireFromString("21.5")))
			assert.Nil(t, info.TrackTempC)
			assert.Nil(t, info.TrackTempApproximation)
			assert.Nil(t, info.TrackConfig)
		})
	}
}

func TestSessionInfoIsZero(t *testing.T) {
	assert.True(t, domain.SessionInfo{}.IsZero())

	temp := decimal.RequireFromString("28")
	assert.False(t, domain.SessionInfo{TrackTempC: &temp}.IsZero())

	config := domain.TrackConfigLong
	assert.False(t, domain.SessionInfo{TrackConfig: &config}.IsZero())
}

func TestComparisonKeyIgnoresTimestampAndText(t *testing.T) {
	a := sampleWith("0.5", "10", "10")
	b := a
	b.CapturedAt = a.CapturedAt.Add(time.Minute)
	b.ConditionText = "Partly cloudy"

	assert.Equal(t, a.ComparisonKey(), b.ComparisonKey())

	c := a
	c.Cloud = decimal.RequireFromString("11")
	assert.NotEqual(t, a.ComparisonKey(), c.ComparisonKey())
}
