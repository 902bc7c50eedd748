package engine

import (
	"log/slog"
	"sync/atomic"

	"github.com/vitalstack/vitals-engine/internal/models"
)

// Engine owns both metric aggregates and runs classification on each push.
// It is single-threaded by contract: the caller delivers one record at a
// time and each push commits completely before the next, so no operation
// here blocks or locks. Consumers only ever receive immutable snapshots.
type Engine struct {
	opts   Options
	logger *slog.Logger

	cls *SessionAggregator
	inp *InteractionAggregator

	pack atomic.Pointer[RulePack]

	clsIssues []models.Issue
	inpIssues []models.Issue

	fontLoads []float64

	onCLS func(models.CLSState)
	onINP func(models.INPState)
}

// New validates opts and constructs an engine. Configuration misuse fails
// here, never mid-stream.
func New(opts Options, logger *slog.Logger) (*Engine, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MinInteractionLatency == 0 {
		opts.MinInteractionLatency = DefaultOptions().MinInteractionLatency
	}
	if opts.LongTaskThreshold == 0 {
		opts.LongTaskThreshold = DefaultOptions().LongTaskThreshold
	}

	e := &Engine{
		opts:   opts,
		logger: logger,
		cls:    NewSessionAggregator(opts, logger),
		inp:    NewInteractionAggregator(opts, logger),
	}
	e.pack.Store(DefaultRulePack())
	return e, nil
}

// SetRulePack swaps the classifier rule pack. Safe to call from the rule
// pack watcher goroutine; in-flight pushes keep the pack they started with.
func (e *Engine) SetRulePack(p *RulePack) {
	if p == nil {
		p = DefaultRulePack()
	}
	e.pack.Store(p)
}

// OnCLSChange registers the snapshot listener for layout-shift updates.
func (e *Engine) OnCLSChange(fn func(models.CLSState)) { e.onCLS = fn }

// OnINPChange registers the snapshot listener for interaction updates.
func (e *Engine) OnINPChange(fn func(models.INPState)) { e.onINP = fn }

// NoteFontLoad records a font-load signal used as web-font-shift evidence.
func (e *Engine) NoteFontLoad(t float64) {
	e.fontLoads = append(e.fontLoads, t)
	// Signals older than the attribution window can never match again.
	cutoff := t - 2*fontShiftWindowMs
	trimmed := e.fontLoads[:0]
	for _, f := range e.fontLoads {
		if f >= cutoff {
			trimmed = append(trimmed, f)
		}
	}
	e.fontLoads = trimmed
}

// ObserveShift folds one layout-shift record in, classifies it, and
// notifies the CLS listener per the publish policy. It reports whether the
// record was accepted and returns any issues the record produced.
func (e *Engine) ObserveShift(rec models.LayoutShiftRecord) (bool, []models.Issue) {
	before, hadBefore := e.cls.Score()
	if !e.cls.Observe(rec) {
		return false, nil
	}

	var issues []models.Issue
	if !rec.HadRecentInput {
		ev := ShiftEvidence{
			FontLoadTimes: e.fontLoads,
			WindowStreaks: e.windowStreaks(rec),
		}
		issues = ClassifyShift(rec, ev, e.opts, e.pack.Load())
		e.clsIssues = append(e.clsIssues, issues...)
	}

	after, hasAfter := e.cls.Score()
	worse := hasAfter && (!hadBefore || after > before)
	if e.onCLS != nil && (e.opts.ReportAllChanges || worse) {
		e.onCLS(e.CLSState())
	}
	return true, issues
}

// RecordInteraction folds one interaction record in, classifies it when it
// enters detailed tracking, and notifies the INP listener per the publish
// policy. It reports whether the record was accepted, whether it entered
// detailed tracking, and any issues it produced.
func (e *Engine) RecordInteraction(rec models.InteractionRecord) (accepted, tracked bool, issues []models.Issue) {
	if !rec.Valid() {
		e.inp.Record(rec) // counts the drop
		return false, false, nil
	}

	before, hadBefore := e.inp.Value()
	tracked = e.inp.Record(rec)
	if tracked {
		issues = ClassifyInteraction(rec, e.opts, e.pack.Load())
		e.inpIssues = append(e.inpIssues, issues...)
	}

	after, hasAfter := e.inp.Value()
	worse := hasAfter && (!hadBefore || after > before)
	if e.onINP != nil && (e.opts.ReportAllChanges || worse) {
		e.onINP(e.INPState())
	}
	return true, tracked, issues
}

// CLSState publishes the current layout-shift snapshot.
func (e *Engine) CLSState() models.CLSState {
	return e.cls.State(e.clsIssues)
}

// INPState publishes the current interaction snapshot.
func (e *Engine) INPState() models.INPState {
	return e.inp.State(e.inpIssues)
}

// Reset atomically discards all aggregate state, issue history, and
// evidence. Safe at any time, including mid-window, and idempotent.
func (e *Engine) Reset() {
	e.cls.Reset()
	e.inp.Reset()
	e.clsIssues = nil
	e.inpIssues = nil
	e.fontLoads = nil
}

func (e *Engine) windowStreaks(rec models.LayoutShiftRecord) map[string]int {
	if len(rec.Sources) == 0 {
		return nil
	}
	streaks := make(map[string]int, len(rec.Sources))
	for _, src := range rec.Sources {
		desc := src.Element.Describe()
		streaks[desc] = e.cls.WindowStreak(desc)
	}
	return streaks
}
