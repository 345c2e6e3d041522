package domain_test

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karttrack/karttrack/internal/domain"
)

var frozenAt = time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC)

func freezeClock(t *testing.T) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(frozenAt))
	t.Cleanup(func() { domain.SetClock(nil) })
}

func TestParseFeed(t *testing.T) {
	raw := []byte(`{
		"headinfo": {"number": "12", "len": "600m"},
		"results": [
			["1", "P", "Kart 7", "3", "x", "y", "39.505"],
			["2", "P", "Kart 9", "1", "x", "y", ""]
		]
	}`)

	feed, err := domain.ParseFeed(raw)
	require.NoError(t, err)

	assert.Equal(t, "12", feed.HeadInfo.Number)
	assert.Equal(t, "600m", feed.HeadInfo.Len)
	assert.Len(t, feed.Results, 2)
}

func TestParseFeed_MalformedJSON(t *testing.T) {
	_, err := domain.ParseFeed([]byte(`{"headinfo": `))
	require.Error(t, err)
}

func TestParseLapRow_Valid(t *testing.T) {
	freezeClock(t)

	head := domain.RawHeadInfo{Number: "12", Len: "600m"}
	row := []any{"1", "P", "Kart 7", "3", "x", "y", "39.505"}

	entry, err := domain.ParseLapRow(head, row)
	require.NoError(t, err)

	assert.Equal(t, frozenAt, entry.RecordedAt)
	assert.Equal(t, 12, entry.Session)
	assert.Equal(t, "600m", entry.TotalLength)
	assert.Equal(t, "Kart 7", entry.Kart)
	assert.Equal(t, 3, entry.Lap)
	assert.True(t, entry.Time.Equal(decimal.RequireFromString("39.505")))
}

func TestParseLapRow_NumericFieldsCoerced(t *testing.T) {
	freezeClock(t)

	// Some feed revisions report kart and lap as JSON numbers.
	head := domain.RawHeadInfo{Number: "5", Len: "600m"}
	row := []any{"1", "P", float64(7), float64(3), "x", "y", "41.2"}

	entry, err := domain.ParseLapRow(head, row)
	require.NoError(t, err)
	assert.Equal(t, "7", entry.Kart)
	assert.Equal(t, 3, entry.Lap)
}

func TestParseLapRow_Rejections(t *testing.T) {
	freezeClock(t)
	head := domain.RawHeadInfo{Number: "12", Len: "600m"}

	tests := []struct {
		name string
		head domain.RawHeadInfo
		row  []any
	}{
		{"empty time", head, []any{"1", "P", "Kart 7", "3", "x", "y", ""}},
		{"non-numeric time", head, []any{"1", "P", "Kart 7", "3", "x", "y", "DNF"}},
		{"nil time", head, []any{"1", "P", "Kart 7", "3", "x", "y", nil}},
		{"short row", head, []any{"1", "P"}},
		{"missing kart", head, []any{"1", "P", nil, "3", "x", "y", "39.505"}},
		{"non-integer lap", head, []any{"1", "P", "Kart 7", "abc", "x", "y", "39.505"}},
		{"non-numeric session", domain.RawHeadInfo{Number: "final"}, []any{"1", "P", "Kart 7", "3", "x", "y", "39.505"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.ParseLapRow(tt.head, tt.row)
			require.Error(t, err)
		})
	}
}

func TestSessionID_StableAcrossDays(t *testing.T) {
	// 1970-01-01 has civil ordinal 719162; 2024-04-26 is 19839 days later.
	epochEntry := domain.LapEntry{RecordedAt: time.Unix(0, 0).UTC(), Session: 5}
	assert.Equal(t, "719162-5", epochEntry.SessionID())

	entry := domain.LapEntry{RecordedAt: frozenAt, Session: 12}
	assert.Equal(t, "739001-12", entry.SessionID())

	// Same raw session number on the next day yields a different id.
	nextDay := domain.LapEntry{RecordedAt: frozenAt.Add(24 * time.Hour), Session: 12}
	assert.Equal(t, "739002-12", nextDay.SessionID())
}

func TestIdentityIgnoresTimeAndTimestamp(t *testing.T) {
	day := domain.DayOf(frozenAt)
	a := domain.LapEntry{RecordedAt: frozenAt, Session: 12, Kart: "Kart 7", Lap: 3, Time: decimal.RequireFromString("39.505")}
	b := domain.LapEntry{RecordedAt: frozenAt.Add(3 * time.Second), Session: 12, Kart: "Kart 7", Lap: 3, Time: decimal.RequireFromString("40.1")}

	assert.Equal(t, a.Identity(day), b.Identity(day))
}

func TestDayOf(t *testing.T) {
	assert.Equal(t, domain.Day("2024-04-26"), domain.DayOf(frozenAt))
	late := time.Date(2024, time.April, 26, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, domain.Day("2024-04-26"), domain.DayOf(late))
}
