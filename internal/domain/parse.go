package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Positions of the fields we consume inside a results row. The feed rows are
// heterogeneous positional arrays; everything else in them is presentation
// data for the live screen.
const (
	rowKartIndex = 2
	rowLapIndex  = 3
	rowTimeIndex = 6
)

// RawFeed mirrors the timing feed payload.
type RawFeed struct {
	HeadInfo RawHeadInfo `json:"headinfo"`
	Results  [][]any     `json:"results"`
}

// RawHeadInfo is the feed's header block. Both fields arrive as strings.
type RawHeadInfo struct {
	Number string `json:"number"` // current session number
	Len    string `json:"len"`    // track length / layout label
}

// ParseFeed decodes the raw feed body.
func ParseFeed(raw []byte) (RawFeed, error) {
	var feed RawFeed
	if err := json.Unmarshal(raw, &feed); err != nil {
		return RawFeed{}, fmt.Errorf("parse timing feed: %w", err)
	}
	return feed, nil
}

// ParseLapRow converts one positional row into a LapEntry stamped with the
// package clock's current time. A row is accepted only when its time field
// is a non-empty decimal string and the kart and lap fields coerce to their
// expected types; any failure rejects just this row.
func ParseLapRow(head RawHeadInfo, row []any) (LapEntry, error) {
	timeField := stringAt(row, rowTimeIndex)
	if strings.TrimSpace(timeField) == "" {
		return LapEntry{}, fmt.Errorf("row has no lap time")
	}
	lapTime, err := decimal.NewFromString(timeField)
	if err != nil {
		return LapEntry{}, fmt.Errorf("lap time %q is not numeric", timeField)
	}

	session, err := strconv.Atoi(head.Number)
	if err != nil {
		return LapEntry{}, fmt.Errorf("session number %q is not numeric", head.Number)
	}

	kart := stringAt(row, rowKartIndex)
	if kart == "" {
		return LapEntry{}, fmt.Errorf("row has no kart identifier")
	}

	lap, err := intAt(row, rowLapIndex)
	if err != nil {
		return LapEntry{}, fmt.Errorf("lap number: %w", err)
	}

	return LapEntry{
		RecordedAt:  Now(),
		Session:     session,
		TotalLength: head.Len,
		Kart:        kart,
		Lap:         lap,
		Time:        lapTime,
	}, nil
}

// stringAt renders the row field at i as a string, or "" when absent or nil.
// JSON numbers come through as float64; integral values print without a
// fractional part.
func stringAt(row []any, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	switch v := row[i].(type) {
	case string:
		return v
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func intAt(row []any, i int) (int, error) {
	s := stringAt(row, i)
	if s == "" {
		return 0, fmt.Errorf("field %d is empty", i)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("field %d %q is not an integer", i, s)
	}
	return n, nil
}
