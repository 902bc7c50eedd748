package utils

import (
	"testing"
	"time"
)

func TestSampleTrackerPercentile(t *testing.T) {
	tracker := NewSampleTracker(10)
	durations := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond, 40 * time.Millisecond, 50 * time.Millisecond}
	for _, d := range durations {
		tracker.Observe(d)
	}

	if tracker.Count() != len(durations) {
		t.Fatalf("expected count %d, got %d", len(durations), tracker.Count())
	}

	p95 := tracker.Percentile(95)
	if p95 < 40*time.Millisecond {
		t.Fatalf("expected percentile >= 40ms, got %v", p95)
	}
}

func TestSampleTrackerBoundedSize(t *testing.T) {
	tracker := NewSampleTracker(3)
	for i := 0; i < 10; i++ {
		tracker.Observe(time.Duration(i) * time.Millisecond)
	}
	if tracker.Count() != 3 {
		t.Fatalf("expected tracker size 3, got %d", tracker.Count())
	}
}

func TestSampleTrackerEmpty(t *testing.T) {
	tracker := NewSampleTracker(8)
	if got := tracker.Percentile(95); got != 0 {
		t.Fatalf("expected zero percentile without samples, got %v", got)
	}
}

func TestFormatMillis(t *testing.T) {
	if got := FormatMillis(250); got != "250ms" {
		t.Fatalf("got %q", got)
	}
	if got := FormatMillis(1500); got != "1.50s" {
		t.Fatalf("got %q", got)
	}
}

func TestMillisBetween(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(1500 * time.Millisecond)
	if got := MillisBetween(start, end); got != 1500 {
		t.Fatalf("expected 1500, got %f", got)
	}
	// Order does not matter.
	if got := MillisBetween(end, start); got != 1500 {
		t.Fatalf("expected 1500 regardless of order, got %f", got)
	}
}
