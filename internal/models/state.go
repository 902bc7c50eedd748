package models

import "time"

// Rating is the three-step ordinal scale shared by all metrics.
type Rating string

const (
	RatingGood             Rating = "good"
	RatingNeedsImprovement Rating = "needs-improvement"
	RatingPoor             Rating = "poor"
)

// SessionWindow is a temporally bounded group of layout shifts treated as
// one contiguous visual disturbance. A window is mutated only while it is
// the current one; once superseded it is immutable.
type SessionWindow struct {
	Value     float64             `json:"value"`
	Entries   []LayoutShiftRecord `json:"entries"`
	StartTime float64             `json:"start_time"`
	EndTime   float64             `json:"end_time"`
}

// Clone returns a deep copy so published snapshots never alias the
// aggregator's working window.
func (w SessionWindow) Clone() SessionWindow {
	out := w
	out.Entries = append([]LayoutShiftRecord(nil), w.Entries...)
	return out
}

// CLSState is the published snapshot for cumulative layout shift. The value
// is always a pure function of the entry history and can be recomputed by
// replay; it is never set independently.
type CLSState struct {
	Value          *float64            `json:"value"`
	Rating         Rating              `json:"rating,omitempty"`
	Loading        bool                `json:"loading"`
	Entries        []LayoutShiftRecord `json:"entries"`
	Windows        []SessionWindow     `json:"windows"`
	LargestWindow  *SessionWindow      `json:"largest_window,omitempty"`
	LargestShift   *LayoutShiftRecord  `json:"largest_shift,omitempty"`
	ShiftCount     int                 `json:"shift_count"`
	IgnoredShifts  int                 `json:"ignored_shifts"`
	AverageShift   *float64            `json:"average_shift,omitempty"`
	Issues         []Issue             `json:"issues"`
	DroppedRecords int                 `json:"dropped_records"`
}

// ScriptStat aggregates attributed cost per script source URL.
type ScriptStat struct {
	URL           string  `json:"url"`
	TotalDuration float64 `json:"total_duration"`
	Occurrences   int     `json:"occurrences"`
}

// INPState is the published snapshot for interaction latency. The value is
// the worst tracked interaction's latency, recomputable from Interactions.
type INPState struct {
	Value                     *float64            `json:"value"`
	Rating                    Rating              `json:"rating,omitempty"`
	Loading                   bool                `json:"loading"`
	Interactions              []InteractionRecord `json:"interactions"`
	InteractionCount          int                 `json:"interaction_count"`
	SlowestInteraction        *InteractionRecord  `json:"slowest_interaction,omitempty"`
	SlowestPhases             *PhaseBreakdown     `json:"slowest_phases,omitempty"`
	TopSlowScripts            []ScriptStat        `json:"top_slow_scripts"`
	AverageLatency            *float64            `json:"average_latency,omitempty"`
	GoodInteractionPercentage float64             `json:"good_interaction_percentage"`
	Issues                    []Issue             `json:"issues"`
	DroppedRecords            int                 `json:"dropped_records"`
}

// IssuePattern is a recurring issue signature mined across archived sessions.
type IssuePattern struct {
	ID                  string    `json:"id"`
	Type                IssueType `json:"type"`
	ElementDescriptor   string    `json:"element_descriptor,omitempty"`
	Occurrences         int       `json:"occurrences"`
	Sessions            int       `json:"sessions"`
	Prevalence          float64   `json:"prevalence"`
	AverageContribution float64   `json:"average_contribution"`
	Suggestion          string    `json:"suggestion,omitempty"`
	LastSeen            time.Time `json:"last_seen"`
}
