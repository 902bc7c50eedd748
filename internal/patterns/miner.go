package patterns

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/vitalstack/vitals-engine/internal/archive"
	"github.com/vitalstack/vitals-engine/internal/models"
)

// Store abstracts persistence for mined patterns.
type Store interface {
	StorePatterns(ctx context.Context, patterns []models.IssuePattern) error
}

// Miner aggregates recurring issue signatures across archived sessions. A
// signature is the pair (issue type, element descriptor): the same element
// producing the same class of problem across many page sessions is a site
// defect, not a one-off.
type Miner struct {
	store  Store
	logger *slog.Logger
}

// NewMiner constructs a Miner; store may be nil for dry runs.
func NewMiner(logger *slog.Logger, store Store) *Miner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Miner{store: store, logger: logger}
}

// Mine analyses archived issues and returns aggregated patterns ordered by
// prevalence. sessionCount is the number of archived sessions the issues
// were drawn from.
func (m *Miner) Mine(ctx context.Context, issues []archive.IssueRecord, sessionCount int) ([]models.IssuePattern, error) {
	if len(issues) == 0 || sessionCount == 0 {
		return nil, nil
	}

	aggregates := make(map[string]*signatureAggregate)
	var order []string
	for _, rec := range issues {
		key := signatureKey(rec.Issue.Type, rec.Issue.ElementDescriptor)
		agg, ok := aggregates[key]
		if !ok {
			agg = &signatureAggregate{
				issueType:  rec.Issue.Type,
				element:    rec.Issue.ElementDescriptor,
				suggestion: rec.Issue.Suggestion,
				sessions:   make(map[int64]struct{}),
			}
			aggregates[key] = agg
			order = append(order, key)
		}
		agg.occurrences++
		agg.totalContribution += rec.Issue.Contribution
		agg.sessions[rec.SessionID] = struct{}{}
	}

	now := time.Now().UTC()
	patterns := make([]models.IssuePattern, 0, len(order))
	for _, key := range order {
		agg := aggregates[key]
		patterns = append(patterns, models.IssuePattern{
			ID:                  key,
			Type:                agg.issueType,
			ElementDescriptor:   agg.element,
			Occurrences:         agg.occurrences,
			Sessions:            len(agg.sessions),
			Prevalence:          float64(len(agg.sessions)) / float64(sessionCount),
			AverageContribution: agg.totalContribution / float64(agg.occurrences),
			Suggestion:          agg.suggestion,
			LastSeen:            now,
		})
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].Prevalence > patterns[j].Prevalence
	})

	if m.store != nil && len(patterns) > 0 {
		if err := m.store.StorePatterns(ctx, patterns); err != nil {
			m.logger.Warn("pattern store failed", slog.Any("error", err))
		}
	}

	return patterns, nil
}

type signatureAggregate struct {
	issueType         models.IssueType
	element           string
	suggestion        string
	occurrences       int
	totalContribution float64
	sessions          map[int64]struct{}
}

func signatureKey(t models.IssueType, element string) string {
	if element == "" {
		return string(t)
	}
	return fmt.Sprintf("%s|%s", t, element)
}
