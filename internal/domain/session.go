package domain

import "github.com/shopspring/decimal"

// Bucketed session conditions, stored as integers in the session table.
// Values are part of the durable schema; append only.
type (
	WeatherKind int
	SkyKind     int
	WindKind    int
	TrackTemp   int
	TrackConfig int
)

const (
	WeatherDry WeatherKind = iota
	WeatherDamp
	WeatherWet
)

const (
	SkyClear SkyKind = iota
	SkyCloudy
	SkyOvercast
)

const (
	WindNone WindKind = iota
	WindWindy
)

const (
	TrackTempCold TrackTemp = iota
	TrackTempCool
	TrackTempWarm
	TrackTempHot
)

const (
	TrackConfigShort TrackConfig = iota
	TrackConfigLong
	TrackConfigReverse
	TrackConfigShortReverse
)

// SessionInfo is per-session annotated metadata. The weather-derived fields
// are set automatically once per session; the track fields arrive later from
// a human entry path. All fields are optional: a nil field in an update
// means "leave as is" (sparse merge).
type SessionInfo struct {
	Weather                *WeatherKind     `json:"weather,omitempty"`
	Sky                    *SkyKind         `json:"sky,omitempty"`
	Wind                   *WindKind        `json:"wind,omitempty"`
	AirTempC               *decimal.Decimal `json:"airTempC,omitempty"`
	TrackTempC             *decimal.Decimal `json:"trackTempC,omitempty"`
	TrackTempApproximation *TrackTemp       `json:"trackTempApproximation,omitempty"`
	TrackConfig            *TrackConfig     `json:"trackConfig,omitempty"`
}

// IsZero reports whether the update carries no fields at all. Such an update
// is invalid: it would neither insert nor change anything.
func (i SessionInfo) IsZero() bool {
	return i.Weather == nil && i.Sky == nil && i.Wind == nil &&
		i.AirTempC == nil && i.TrackTempC == nil &&
		i.TrackTempApproximation == nil && i.TrackConfig == nil
}

// Classification thresholds. Precipitation in mm, cloud in percent, wind in
// kph, matching the feed's units.
var (
	precipWet  = decimal.NewFromInt(2)
	precipDamp = decimal.NewFromInt(1)
	cloudClear = decimal.NewFromInt(15)
	cloudOver  = decimal.NewFromInt(70)
	windCalm   = decimal.NewFromInt(15)
)

// ClassifySession derives the automatic SessionInfo fields from a weather
// sample: precipitation >2mm is Wet, >1mm Damp, else Dry; cloud <15% is
// Clear, <70% Cloudy, else Overcast; wind <15kph is NoWind. Air temperature
// is copied as reported.
func ClassifySession(s WeatherSample) SessionInfo {
	weather := WeatherDry
	if s.PrecipitationMm.GreaterThan(precipWet) {
		weather = WeatherWet
	} else if s.PrecipitationMm.GreaterThan(precipDamp) {
		weather = WeatherDamp
	}

	sky := SkyOvercast
	if s.Cloud.LessThan(cloudClear) {
		sky = SkyClear
	} else if s.Cloud.LessThan(cloudOver) {
		sky = SkyCloudy
	}

	wind := WindWindy
	if s.WindKph.LessThan(windCalm) {
		wind = WindNone
	}

	airTemp := s.TempC
	return SessionInfo{
		Weather:  &weather,
		Sky:      &sky,
		Wind:     &wind,
		AirTempC: &airTemp,
	}
}
