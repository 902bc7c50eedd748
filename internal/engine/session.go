package engine

import (
	"log/slog"

	"github.com/vitalstack/vitals-engine/internal/models"
)

// Session-window bounds from the CLS specification. Both are inclusive: a
// shift at exactly the gap or span limit still joins the window.
const (
	maxWindowGapMs  = 1000.0
	maxWindowSpanMs = 5000.0
)

// SessionAggregator groups layout shifts into session windows and maintains
// the running cumulative score. The cumulative score is the maximum window
// value ever produced, not the sum across windows: a single animation or
// resize burst must not inflate the score indefinitely.
type SessionAggregator struct {
	opts   Options
	logger *slog.Logger

	entries       []models.LayoutShiftRecord
	windows       []models.SessionWindow
	lastShiftTime float64
	hasWindow     bool

	largestWindow int // index into windows, -1 when none
	largestShift  *models.LayoutShiftRecord

	ignored int
	dropped int

	// Consecutive-window shift streaks per element descriptor, evidence
	// for the animation-shift rule.
	streaks   map[string]int
	prevElems map[string]struct{}
	curElems  map[string]struct{}
}

// NewSessionAggregator constructs an empty aggregator.
func NewSessionAggregator(opts Options, logger *slog.Logger) *SessionAggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionAggregator{
		opts:          opts,
		logger:        logger,
		largestWindow: -1,
		streaks:       make(map[string]int),
		prevElems:     make(map[string]struct{}),
		curElems:      make(map[string]struct{}),
	}
}

// Observe folds one layout-shift record into the aggregate. It reports
// whether the record was accepted; malformed records are dropped and
// counted, never surfaced as errors, so a poison record cannot take the
// stream down.
func (a *SessionAggregator) Observe(rec models.LayoutShiftRecord) bool {
	if !rec.Valid() {
		a.dropped++
		a.logger.Warn("dropping malformed layout-shift record",
			slog.Float64("score", rec.Score), slog.Float64("start_time", rec.StartTime))
		return false
	}

	a.entries = append(a.entries, rec)

	// Shifts following recent input are user-expected movement: retained
	// for audit but excluded from windowing and the score.
	if rec.HadRecentInput {
		a.ignored++
		return true
	}

	if a.needsNewWindow(rec) {
		a.openWindow(rec)
	}

	cur := &a.windows[len(a.windows)-1]
	cur.Entries = append(cur.Entries, rec)
	cur.Value += rec.Score
	cur.EndTime = rec.StartTime
	a.lastShiftTime = rec.StartTime

	a.noteSources(rec)

	// Strict comparisons keep the earliest maximum on ties.
	if a.largestWindow < 0 || cur.Value > a.windows[a.largestWindow].Value {
		a.largestWindow = len(a.windows) - 1
	}
	if a.largestShift == nil || rec.Score > a.largestShift.Score {
		copied := rec
		a.largestShift = &copied
	}

	if a.opts.Debug {
		a.logger.Debug("layout shift observed",
			slog.Float64("score", rec.Score),
			slog.Float64("start_time", rec.StartTime),
			slog.Int("window", len(a.windows)-1),
			slog.Float64("window_value", cur.Value))
	}
	return true
}

func (a *SessionAggregator) needsNewWindow(rec models.LayoutShiftRecord) bool {
	if !a.hasWindow {
		return true
	}
	cur := a.windows[len(a.windows)-1]
	return rec.StartTime-a.lastShiftTime > maxWindowGapMs ||
		rec.StartTime-cur.StartTime > maxWindowSpanMs
}

func (a *SessionAggregator) openWindow(rec models.LayoutShiftRecord) {
	a.windows = append(a.windows, models.SessionWindow{
		StartTime: rec.StartTime,
		EndTime:   rec.StartTime,
	})
	a.hasWindow = true

	a.prevElems = a.curElems
	a.curElems = make(map[string]struct{})
	for desc := range a.streaks {
		if _, ok := a.prevElems[desc]; !ok {
			delete(a.streaks, desc)
		}
	}
}

func (a *SessionAggregator) noteSources(rec models.LayoutShiftRecord) {
	for _, src := range rec.Sources {
		desc := src.Element.Describe()
		if _, seen := a.curElems[desc]; seen {
			continue
		}
		a.curElems[desc] = struct{}{}
		a.streaks[desc]++
	}
}

// Score returns the cumulative CLS score, false while no window exists.
func (a *SessionAggregator) Score() (float64, bool) {
	if a.largestWindow < 0 {
		return 0, false
	}
	return a.windows[a.largestWindow].Value, true
}

// WindowStreak returns how many consecutive windows, including the open
// one, the element has shifted in.
func (a *SessionAggregator) WindowStreak(descriptor string) int {
	return a.streaks[descriptor]
}

// Dropped returns the number of malformed records discarded so far.
func (a *SessionAggregator) Dropped() int { return a.dropped }

// State publishes an immutable snapshot. Every slice and pointer is a copy;
// later pushes are never observable through a handed-out snapshot.
func (a *SessionAggregator) State(issues []models.Issue) models.CLSState {
	st := models.CLSState{
		Entries:        append([]models.LayoutShiftRecord(nil), a.entries...),
		Windows:        make([]models.SessionWindow, 0, len(a.windows)),
		ShiftCount:     len(a.entries),
		IgnoredShifts:  a.ignored,
		Issues:         append([]models.Issue(nil), issues...),
		DroppedRecords: a.dropped,
		Loading:        a.largestWindow < 0,
	}
	for _, w := range a.windows {
		st.Windows = append(st.Windows, w.Clone())
	}
	if a.largestWindow >= 0 {
		value := a.windows[a.largestWindow].Value
		st.Value = &value
		st.Rating = rateWith(models.MetricCLS, value, a.opts.Threshold)
		best := a.windows[a.largestWindow].Clone()
		st.LargestWindow = &best
	}
	if a.largestShift != nil {
		copied := *a.largestShift
		st.LargestShift = &copied
	}
	if counted := len(a.entries) - a.ignored; counted > 0 {
		sum := 0.0
		for _, w := range a.windows {
			sum += w.Value
		}
		avg := sum / float64(counted)
		st.AverageShift = &avg
	}
	return st
}

// Reset discards all state. Safe at any time, including mid-window; calling
// it twice in a row is a no-op the second time.
func (a *SessionAggregator) Reset() {
	a.entries = nil
	a.windows = nil
	a.hasWindow = false
	a.lastShiftTime = 0
	a.largestWindow = -1
	a.largestShift = nil
	a.ignored = 0
	a.dropped = 0
	a.streaks = make(map[string]int)
	a.prevElems = make(map[string]struct{})
	a.curElems = make(map[string]struct{})
}
