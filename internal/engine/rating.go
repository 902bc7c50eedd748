package engine

import "github.com/vitalstack/vitals-engine/internal/models"

// Published rating thresholds. A value at the good boundary still rates
// good; a value at the poor boundary still rates needs-improvement.
const (
	CLSGoodThreshold = 0.1
	CLSPoorThreshold = 0.25
	INPGoodThreshold = 200.0
	INPPoorThreshold = 500.0
)

// Rate maps a metric value onto the ordinal rating scale. It is total over
// value >= 0. Callers with no measurement yet must not call Rate with a
// default; an absent value maps to an absent rating, never to good.
func Rate(metric models.Metric, value float64) models.Rating {
	good, poor := Thresholds(metric)
	switch {
	case value <= good:
		return models.RatingGood
	case value <= poor:
		return models.RatingNeedsImprovement
	default:
		return models.RatingPoor
	}
}

// Thresholds returns the published good/poor boundaries for a metric.
func Thresholds(metric models.Metric) (good, poor float64) {
	switch metric {
	case models.MetricINP:
		return INPGoodThreshold, INPPoorThreshold
	default:
		return CLSGoodThreshold, CLSPoorThreshold
	}
}

// rateWith applies an optional local good-boundary override while keeping
// the published poor boundary. Overrides never change global thresholds.
func rateWith(metric models.Metric, value float64, goodOverride *float64) models.Rating {
	good, poor := Thresholds(metric)
	if goodOverride != nil {
		good = *goodOverride
		if good > poor {
			poor = good
		}
	}
	switch {
	case value <= good:
		return models.RatingGood
	case value <= poor:
		return models.RatingNeedsImprovement
	default:
		return models.RatingPoor
	}
}
