package utils

import (
	"sort"
	"sync"
	"time"
)

// SampleTracker stores recent duration samples and computes percentiles.
// The service uses it for push-processing diagnostics only; published
// metric values never come from here.
type SampleTracker struct {
	mu      sync.RWMutex
	samples []time.Duration
	maxSize int
}

// NewSampleTracker creates a tracker storing up to maxSize samples.
func NewSampleTracker(maxSize int) *SampleTracker {
	if maxSize <= 0 {
		maxSize = 512
	}
	return &SampleTracker{maxSize: maxSize}
}

// Observe records a new duration.
func (t *SampleTracker) Observe(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.samples = append(t.samples, d)
	if len(t.samples) > t.maxSize {
		// Drop oldest sample to bound memory.
		copy(t.samples[0:], t.samples[1:])
		t.samples = t.samples[:t.maxSize]
	}
}

// Percentile returns the percentile (0-100) duration. Returns zero if no
// samples have been observed.
func (t *SampleTracker) Percentile(p float64) time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.samples) == 0 {
		return 0
	}

	sorted := append([]time.Duration(nil), t.samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	index := int((p / 100.0) * float64(len(sorted)-1))
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

// Count returns number of samples recorded.
func (t *SampleTracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.samples)
}
