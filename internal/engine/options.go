package engine

import "github.com/vitalstack/vitals-engine/internal/utils"

// Options configures one engine instance. Misconfiguration fails at
// construction time; observation never fails on options.
type Options struct {
	// Threshold overrides the local good/poor boundary used for this
	// instance's ratings. It does not change the published thresholds.
	Threshold *float64

	// ReportAllChanges publishes a snapshot on every accepted record
	// instead of only when the metric value worsens.
	ReportAllChanges bool

	// Debug logs every accepted record.
	Debug bool

	// DetectIssues enables the issue classifier.
	DetectIssues bool

	// TrackAttribution enables rules that need element or script evidence.
	// Purely numeric rules stay active when it is off.
	TrackAttribution bool

	// MinInteractionLatency is the floor below which interactions are
	// counted but excluded from detailed tracking and attribution.
	MinInteractionLatency float64

	// LongTaskThreshold is the processing-duration budget in milliseconds
	// used by the long-task family of rules.
	LongTaskThreshold float64

	// PageOrigin marks first-party script URLs for third-party detection.
	PageOrigin string
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		DetectIssues:          true,
		TrackAttribution:      true,
		MinInteractionLatency: 40,
		LongTaskThreshold:     50,
	}
}

func (o Options) validate() error {
	if o.Threshold != nil && *o.Threshold < 0 {
		return utils.NewAppError("engine.Options", "threshold must not be negative", nil)
	}
	if o.MinInteractionLatency < 0 {
		return utils.NewAppError("engine.Options", "minInteractionLatency must not be negative", nil)
	}
	if o.LongTaskThreshold < 0 {
		return utils.NewAppError("engine.Options", "longTaskThreshold must not be negative", nil)
	}
	return nil
}
