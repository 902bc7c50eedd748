package patterns

import (
	"context"
	"math"
	"testing"

	"github.com/vitalstack/vitals-engine/internal/archive"
	"github.com/vitalstack/vitals-engine/internal/models"
)

func issueRecord(session int64, t models.IssueType, element string, contribution float64) archive.IssueRecord {
	return archive.IssueRecord{
		SessionID: session,
		Page:      "checkout",
		Issue: models.Issue{
			Type:              t,
			ElementDescriptor: element,
			Contribution:      contribution,
		},
	}
}

func TestMinerGroupsBySignature(t *testing.T) {
	miner := NewMiner(nil, nil)
	issues := []archive.IssueRecord{
		issueRecord(1, models.IssueAdEmbedShift, "iframe.ad-slot", 0.1),
		issueRecord(2, models.IssueAdEmbedShift, "iframe.ad-slot", 0.3),
		issueRecord(2, models.IssueAdEmbedShift, "iframe.ad-slot", 0.2),
		issueRecord(3, models.IssueLongTask, "button#buy", 80),
	}

	patterns, err := miner.Mine(context.Background(), issues, 4)
	if err != nil {
		t.Fatalf("mine failed: %v", err)
	}
	if len(patterns) != 2 {
		t.Fatalf("expected 2 patterns, got %d", len(patterns))
	}

	ad := patterns[0]
	if ad.Type != models.IssueAdEmbedShift {
		t.Fatalf("expected the more prevalent pattern first, got %s", ad.Type)
	}
	if ad.Occurrences != 3 || ad.Sessions != 2 {
		t.Fatalf("unexpected aggregate %+v", ad)
	}
	if math.Abs(ad.Prevalence-0.5) > 1e-9 {
		t.Fatalf("expected prevalence 0.5, got %f", ad.Prevalence)
	}
	if math.Abs(ad.AverageContribution-0.2) > 1e-9 {
		t.Fatalf("expected average contribution 0.2, got %f", ad.AverageContribution)
	}
}

func TestMinerStoresResults(t *testing.T) {
	var stored []models.IssuePattern
	store := StoreFunc(func(_ context.Context, patterns []models.IssuePattern) error {
		stored = patterns
		return nil
	})

	miner := NewMiner(nil, store)
	_, err := miner.Mine(context.Background(), []archive.IssueRecord{
		issueRecord(1, models.IssueWebFontShift, "p.body", 0.02),
	}, 1)
	if err != nil {
		t.Fatalf("mine failed: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected pattern persisted, got %d", len(stored))
	}
	if stored[0].ID != "web-font-shift|p.body" {
		t.Fatalf("unexpected signature %q", stored[0].ID)
	}
}

func TestMinerEmptyInput(t *testing.T) {
	miner := NewMiner(nil, nil)
	patterns, err := miner.Mine(context.Background(), nil, 0)
	if err != nil {
		t.Fatalf("mine failed: %v", err)
	}
	if patterns != nil {
		t.Fatalf("expected no patterns, got %d", len(patterns))
	}
}
