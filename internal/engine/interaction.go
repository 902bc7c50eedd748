package engine

import (
	"log/slog"
	"sort"

	"github.com/vitalstack/vitals-engine/internal/models"
)

// InteractionAggregator tracks interaction latency and publishes the worst
// observed interaction as the running INP value. This is a single-session
// worst-case approximation, not the multi-interaction percentile used for
// field data.
type InteractionAggregator struct {
	opts   Options
	logger *slog.Logger

	interactions []models.InteractionRecord
	count        int
	totalLatency float64
	slowest      int // index into interactions, -1 when none

	scriptTotals map[string]*scriptTotal
	scriptOrder  []string

	dropped int
}

type scriptTotal struct {
	duration    float64
	occurrences int
}

// NewInteractionAggregator constructs an empty aggregator.
func NewInteractionAggregator(opts Options, logger *slog.Logger) *InteractionAggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MinInteractionLatency == 0 {
		opts.MinInteractionLatency = DefaultOptions().MinInteractionLatency
	}
	return &InteractionAggregator{
		opts:         opts,
		logger:       logger,
		slowest:      -1,
		scriptTotals: make(map[string]*scriptTotal),
	}
}

// Record folds one interaction into the aggregate and reports whether the
// record entered detailed tracking. Interactions below the minimum latency
// are counted but not tracked: deep attribution is expensive and noisy for
// fast interactions. Malformed records are dropped and counted.
func (a *InteractionAggregator) Record(rec models.InteractionRecord) bool {
	if !rec.Valid() {
		a.dropped++
		a.logger.Warn("dropping malformed interaction record",
			slog.Uint64("id", rec.ID), slog.Float64("latency", rec.Latency))
		return false
	}

	a.count++
	if rec.Latency < a.opts.MinInteractionLatency {
		return false
	}

	a.interactions = append(a.interactions, rec)
	a.totalLatency += rec.Latency

	// Strict comparison keeps the first maximal interaction on ties.
	if a.slowest < 0 || rec.Latency > a.interactions[a.slowest].Latency {
		a.slowest = len(a.interactions) - 1
	}

	for _, script := range rec.Scripts {
		if script.SourceURL == "" {
			continue
		}
		agg, ok := a.scriptTotals[script.SourceURL]
		if !ok {
			agg = &scriptTotal{}
			a.scriptTotals[script.SourceURL] = agg
			a.scriptOrder = append(a.scriptOrder, script.SourceURL)
		}
		agg.duration += script.Duration
		agg.occurrences++
	}

	if a.opts.Debug {
		a.logger.Debug("interaction tracked",
			slog.Uint64("id", rec.ID),
			slog.String("type", string(rec.Type)),
			slog.Float64("latency", rec.Latency))
	}
	return true
}

// Value returns the current INP value, false while nothing is tracked.
func (a *InteractionAggregator) Value() (float64, bool) {
	if a.slowest < 0 {
		return 0, false
	}
	return a.interactions[a.slowest].Latency, true
}

// Dropped returns the number of malformed records discarded so far.
func (a *InteractionAggregator) Dropped() int { return a.dropped }

// TopSlowScripts returns per-script cost aggregates ordered by total
// duration descending; ties keep first-seen order.
func (a *InteractionAggregator) TopSlowScripts() []models.ScriptStat {
	stats := make([]models.ScriptStat, 0, len(a.scriptOrder))
	for _, url := range a.scriptOrder {
		agg := a.scriptTotals[url]
		stats = append(stats, models.ScriptStat{
			URL:           url,
			TotalDuration: agg.duration,
			Occurrences:   agg.occurrences,
		})
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].TotalDuration > stats[j].TotalDuration
	})
	return stats
}

// State publishes an immutable snapshot; all slices and pointers are copies.
func (a *InteractionAggregator) State(issues []models.Issue) models.INPState {
	st := models.INPState{
		Interactions:     append([]models.InteractionRecord(nil), a.interactions...),
		InteractionCount: a.count,
		TopSlowScripts:   a.TopSlowScripts(),
		Issues:           append([]models.Issue(nil), issues...),
		DroppedRecords:   a.dropped,
		Loading:          a.slowest < 0,
	}
	if a.slowest >= 0 {
		value := a.interactions[a.slowest].Latency
		st.Value = &value
		st.Rating = rateWith(models.MetricINP, value, a.opts.Threshold)

		slowest := a.interactions[a.slowest]
		st.SlowestInteraction = &slowest
		phases := slowest.Phases
		st.SlowestPhases = &phases
	}
	if tracked := len(a.interactions); tracked > 0 {
		avg := a.totalLatency / float64(tracked)
		st.AverageLatency = &avg

		good := 0
		for _, rec := range a.interactions {
			if rateWith(models.MetricINP, rec.Latency, a.opts.Threshold) == models.RatingGood {
				good++
			}
		}
		st.GoodInteractionPercentage = float64(good) / float64(tracked) * 100
	}
	return st
}

// Reset discards all state; idempotent.
func (a *InteractionAggregator) Reset() {
	a.interactions = nil
	a.count = 0
	a.totalLatency = 0
	a.slowest = -1
	a.scriptTotals = make(map[string]*scriptTotal)
	a.scriptOrder = nil
	a.dropped = 0
}
