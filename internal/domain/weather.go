package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// WeatherSample is one observation of current conditions at the track.
// Samples are immutable once created.
type WeatherSample struct {
	CapturedAt      time.Time       `json:"capturedAt"`
	TempC           decimal.Decimal `json:"tempC"`
	IsDay           bool            `json:"isDay"`
	ConditionCode   int             `json:"conditionCode"`
	ConditionText   string          `json:"conditionText"`
	WindKph         decimal.Decimal `json:"windKph"`
	WindDegree      decimal.Decimal `json:"windDegree"`
	PressureMb      decimal.Decimal `json:"pressureMb"`
	PrecipitationMm decimal.Decimal `json:"precipitationMm"`
	Humidity        decimal.Decimal `json:"humidity"`
	Cloud           decimal.Decimal `json:"cloud"`
	FeelsLikeC      decimal.Decimal `json:"feelsLikeC"`
	DewPointC       decimal.Decimal `json:"dewPointC"`
}

// ComparisonKey canonicalizes every reading except the capture time and the
// free-text condition description. Two samples with equal keys carry no new
// information, so the gatherer stores only the first.
func (s WeatherSample) ComparisonKey() string {
	isDay := "0"
	if s.IsDay {
		isDay = "1"
	}
	return strings.Join([]string{
		s.TempC.String(),
		isDay,
		strconv.Itoa(s.ConditionCode),
		s.WindKph.String(),
		s.WindDegree.String(),
		s.PressureMb.String(),
		s.PrecipitationMm.String(),
		s.Humidity.String(),
		s.Cloud.String(),
		s.FeelsLikeC.String(),
		s.DewPointC.String(),
	}, "|")
}
