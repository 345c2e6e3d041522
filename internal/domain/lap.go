package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Day is a UTC calendar day in "2006-01-02" form. Used as the partition key
// for lap history and as part of the dedup identity.
type Day string

// DayOf returns the UTC calendar day of t.
func DayOf(t time.Time) Day {
	return Day(t.UTC().Format("2006-01-02"))
}

// LapEntry is one completed lap as reported by the timing feed.
// Entries are immutable once created.
type LapEntry struct {
	// RecordedAt is the capture wall-clock time, not a feed timestamp;
	// the feed reports none.
	RecordedAt  time.Time       `json:"recordedAt"`
	Session     int             `json:"session"`
	TotalLength string          `json:"totalLength"`
	Kart        string          `json:"kart"`
	Lap         int             `json:"lap"`
	Time        decimal.Decimal `json:"time"`
}

// LapIdentity is the dedup key for a lap. At most one LapEntry with a given
// identity is ever persisted; later polls reporting the same identity are
// dropped even if other fields differ.
type LapIdentity struct {
	Day     Day
	Session int
	Kart    string
	Lap     int
}

// Identity returns the dedup key of the entry within the given day.
func (e LapEntry) Identity(day Day) LapIdentity {
	return LapIdentity{Day: day, Session: e.Session, Kart: e.Kart, Lap: e.Lap}
}

// SessionID returns the cross-day session key. Raw session numbers repeat
// daily, so the id prefixes them with the capture day's civil ordinal.
func (e LapEntry) SessionID() string {
	return fmt.Sprintf("%d-%d", dayOrdinal(e.RecordedAt), e.Session)
}

// dayOrdinal returns the number of days between 0001-01-01 and t's UTC
// calendar day in the proleptic Gregorian calendar.
func dayOrdinal(t time.Time) int {
	y, m, d := t.UTC().Date()
	return daysFromCivil(y, int(m), d) + unixEpochOrdinal
}

// unixEpochOrdinal is the ordinal of 1970-01-01.
const unixEpochOrdinal = 719162

// daysFromCivil converts a civil date to days since 1970-01-01.
// Howard Hinnant's algorithm; exact for the whole Gregorian range, which
// time.Duration arithmetic is not.
func daysFromCivil(y, m, d int) int {
	if m <= 2 {
		y--
	}
	era := y
	if y < 0 {
		era -= 399
	}
	era /= 400
	yoe := y - era*400
	var doy int
	if m > 2 {
		doy = (153*(m-3)+2)/5 + d - 1
	} else {
		doy = (153*(m+9)+2)/5 + d - 1
	}
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + doe - 719468
}
