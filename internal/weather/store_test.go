package weather_test

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karttrack/karttrack/internal/domain"
	"github.com/karttrack/karttrack/internal/weather"
)

var base = time.Date(2024, time.April, 26, 12, 0, 0, 0, time.UTC)

func sampleAt(offset time.Duration) domain.WeatherSample {
	return domain.WeatherSample{
		CapturedAt: base.Add(offset),
		TempC:      decimal.NewFromInt(int64(offset / time.Second)),
	}
}

func TestMostRecentBefore(t *testing.T) {
	s := weather.NewStore()
	s.Append(sampleAt(10 * time.Second))
	s.Append(sampleAt(20 * time.Second))
	s.Append(sampleAt(30 * time.Second))

	got, ok := s.MostRecentBefore(base.Add(25 * time.Second))
	require.True(t, ok)
	assert.Equal(t, base.Add(20*time.Second), got.CapturedAt)

	// Strictly before: a lookup at an exact capture time returns the
	// preceding sample.
	got, ok = s.MostRecentBefore(base.Add(30 * time.Second))
	require.True(t, ok)
	assert.Equal(t, base.Add(20*time.Second), got.CapturedAt)

	_, ok = s.MostRecentBefore(base.Add(5 * time.Second))
	assert.False(t, ok)
}

func TestMostRecentBefore_Empty(t *testing.T) {
	s := weather.NewStore()
	_, ok := s.MostRecentBefore(base)
	assert.False(t, ok)
}

func TestMostRecentBefore_UnorderedAppends(t *testing.T) {
	s := weather.NewStore()
	s.Append(sampleAt(30 * time.Second))
	s.Append(sampleAt(10 * time.Second))
	s.Append(sampleAt(20 * time.Second))

	got, ok := s.MostRecentBefore(base.Add(25 * time.Second))
	require.True(t, ok)
	assert.Equal(t, base.Add(20*time.Second), got.CapturedAt)
}

func TestCompaction(t *testing.T) {
	s := weather.NewStore()
	for i := 0; i < 20001; i++ {
		s.Append(sampleAt(time.Duration(i) * time.Second))
	}

	// The triggering append compacts down to the newest 10000 and then adds.
	assert.Equal(t, 10001, s.Len())

	// Lookups over the retained range stay correct.
	got, ok := s.MostRecentBefore(base.Add(20000 * time.Second))
	require.True(t, ok)
	assert.Equal(t, base.Add(19999*time.Second), got.CapturedAt)

	// Discarded history legitimately resolves to nothing.
	_, ok = s.MostRecentBefore(base.Add(time.Second))
	assert.False(t, ok)
}

func TestConcurrentAppendAndLookup(t *testing.T) {
	s := weather.NewStore()
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 25000; i++ {
			s.Append(sampleAt(time.Duration(i) * time.Second))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.MostRecentBefore(base.Add(time.Duration(i) * time.Minute))
		}
	}()
	wg.Wait()

	assert.LessOrEqual(t, s.Len(), 20000)
}
