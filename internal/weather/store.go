// Package weather holds the in-memory weather timeline and the gatherer
// loop that feeds it.
package weather

import (
	"sync"
	"time"

	"github.com/karttrack/karttrack/internal/domain"
)

// Compaction bounds for the timeline. When the sample count reaches
// maxSamples the store keeps only the newest retainSamples. At one sample a
// minute the upper bound covers roughly two weeks, far beyond the window
// any live session correlation needs.
const (
	maxSamples    = 20000
	retainSamples = 10000
)

// Store is a bounded, append-ordered timeline of weather samples. Appends
// and lookups are safe for concurrent use; a lookup racing a compaction
// sees either the pre- or post-compaction view, never a partial one.
type Store struct {
	mu      sync.Mutex
	samples []domain.WeatherSample
}

// NewStore creates an empty timeline.
func NewStore() *Store {
	return &Store{}
}

// Append adds a sample, compacting the timeline first when it has grown past
// the upper bound. Samples are typically appended in capture order since the
// gatherer polls sequentially, but nothing here requires it.
func (s *Store) Append(sample domain.WeatherSample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.samples) >= maxSamples {
		kept := make([]domain.WeatherSample, retainSamples)
		copy(kept, s.samples[len(s.samples)-retainSamples:])
		s.samples = kept
	}
	s.samples = append(s.samples, sample)
}

// MostRecentBefore returns the latest stored sample captured strictly before
// t, or false when no stored sample predates t. After a compaction, lookups
// for timestamps older than the earliest retained sample legitimately return
// false.
func (s *Store) MostRecentBefore(t time.Time) (domain.WeatherSample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best domain.WeatherSample
	found := false
	// Full scan rather than binary search: appends are not guaranteed to be
	// in timestamp order.
	for _, sample := range s.samples {
		if !sample.CapturedAt.Before(t) {
			continue
		}
		if !found || sample.CapturedAt.After(best.CapturedAt) {
			best = sample
			found = true
		}
	}
	return best, found
}

// Len returns the number of samples currently retained.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples)
}
