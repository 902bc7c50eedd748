package models

import "math"

// Metric identifies one of the aggregated web-vital metrics.
type Metric string

const (
	MetricCLS Metric = "cls"
	MetricINP Metric = "inp"
)

// Rect is an axis-aligned box in CSS pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns the rectangle surface, treating negative extents as zero.
func (r Rect) Area() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// ShiftSource attributes part of a layout shift to one element.
type ShiftSource struct {
	Element      ElementRef `json:"element"`
	PreviousRect Rect       `json:"previous_rect"`
	CurrentRect  Rect       `json:"current_rect"`
}

// LayoutShiftRecord is one raw layout-shift observation. Records are
// immutable once observed; aggregates derive new values from them.
type LayoutShiftRecord struct {
	Score          float64       `json:"score"`
	StartTime      float64       `json:"start_time"`
	HadRecentInput bool          `json:"had_recent_input"`
	Sources        []ShiftSource `json:"sources,omitempty"`
}

// Valid reports whether the record carries usable numeric fields. Malformed
// records are dropped by the aggregator rather than surfaced as errors.
func (r LayoutShiftRecord) Valid() bool {
	return finiteNonNegative(r.Score) && finiteNonNegative(r.StartTime)
}

// InteractionType enumerates the interaction kinds tracked for INP.
type InteractionType string

const (
	InteractionClick    InteractionType = "click"
	InteractionKeypress InteractionType = "keypress"
	InteractionTap      InteractionType = "tap"
)

// PhaseBreakdown decomposes interaction latency into its causal phases.
// The three phases sum to the total latency within rounding error.
type PhaseBreakdown struct {
	InputDelay         float64 `json:"input_delay"`
	ProcessingDuration float64 `json:"processing_duration"`
	PresentationDelay  float64 `json:"presentation_delay"`
}

// Valid reports whether every phase is a usable non-negative number.
func (p PhaseBreakdown) Valid() bool {
	return finiteNonNegative(p.InputDelay) &&
		finiteNonNegative(p.ProcessingDuration) &&
		finiteNonNegative(p.PresentationDelay)
}

// ScriptAttribution ties part of an interaction's processing cost to a script.
type ScriptAttribution struct {
	SourceURL    string  `json:"source_url"`
	FunctionName string  `json:"function_name,omitempty"`
	CharPosition int     `json:"char_position,omitempty"`
	Duration     float64 `json:"duration"`
	ThirdParty   bool    `json:"third_party"`
}

// InteractionRecord is one raw interaction observation.
type InteractionRecord struct {
	ID               uint64              `json:"id"`
	Type             InteractionType     `json:"type"`
	Latency          float64             `json:"latency"`
	Target           ElementRef          `json:"target"`
	StartTime        float64             `json:"start_time"`
	Phases           PhaseBreakdown      `json:"phases"`
	Scripts          []ScriptAttribution `json:"scripts,omitempty"`
	LongestEventType string              `json:"longest_event_type,omitempty"`
}

// Valid reports whether the record carries usable numeric fields.
func (r InteractionRecord) Valid() bool {
	return finiteNonNegative(r.Latency) &&
		finiteNonNegative(r.StartTime) &&
		r.Phases.Valid()
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
