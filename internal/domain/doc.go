// Package domain models kart lap-timing telemetry and weather observations.
//
// # Data Sources
//
// Lap telemetry comes from the track's live-timing feed, a JSON endpoint
// polled every few seconds. The payload carries a head-info block (current
// session number and track layout length, both strings) and a "results"
// table where each row is a heterogeneous positional array. Only three row
// positions matter here:
//
//	index 2: kart identifier (string)
//	index 3: lap number within the session
//	index 6: lap time, a decimal string when the lap has a valid time
//
// The feed supplies no per-row timestamps; accepted rows are stamped with
// the wall clock at parse time. Rows without a decimal-parseable time (pit
// laps, in-progress laps, placeholder rows) are dropped individually.
//
// Weather comes from the WeatherAPI.com current-conditions endpoint. All
// numeric readings are kept as decimals exactly as reported, because the
// comparison key that suppresses redundant samples relies on value-exact
// equality.
//
// # Session Identity
//
// The feed's session number resets periodically and repeats across days, so
// it cannot identify a session on its own. A session id is the civil day
// ordinal (days since 0001-01-01, proleptic Gregorian) joined with the
// session number, e.g. "738636-12". The same scheme has been used since the
// first deployment, so ids remain stable across the stored history.
package domain
