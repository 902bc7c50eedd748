package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalstack/vitals-engine/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "vitals.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreSaveAndListSessions(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	clsValue := 0.3
	_, err := store.SaveCLS(ctx, "checkout", models.CLSState{
		Value:      &clsValue,
		Rating:     models.RatingPoor,
		ShiftCount: 4,
		Issues: []models.Issue{{
			Type:              models.IssueImageWithoutDimensions,
			ElementDescriptor: "img.hero",
			Contribution:      0.2,
			Suggestion:        "size the image",
			Timestamp:         120,
		}},
	})
	require.NoError(t, err)

	inpValue := 230.0
	_, err = store.SaveINP(ctx, "home", models.INPState{
		Value:            &inpValue,
		Rating:           models.RatingNeedsImprovement,
		InteractionCount: 7,
	})
	require.NoError(t, err)

	all, err := store.ListSessions(ctx, "", "", time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)

	cls, err := store.ListSessions(ctx, "checkout", models.MetricCLS, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, cls, 1)
	assert.Equal(t, models.MetricCLS, cls[0].Metric)
	assert.Equal(t, models.RatingPoor, cls[0].Rating)
	require.NotNil(t, cls[0].Value)
	assert.InDelta(t, 0.3, *cls[0].Value, 1e-9)
	assert.Equal(t, 4, cls[0].EntryCount)
}

func TestStoreSaveLoadingSession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// A session can end before any window exists; value stays null.
	_, err := store.SaveCLS(ctx, "home", models.CLSState{Loading: true, ShiftCount: 0})
	require.NoError(t, err)

	sessions, err := store.ListSessions(ctx, "home", models.MetricCLS, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Nil(t, sessions[0].Value)
}

func TestStoreListIssues(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	value := 0.2
	id, err := store.SaveCLS(ctx, "checkout", models.CLSState{
		Value:  &value,
		Rating: models.RatingNeedsImprovement,
		Issues: []models.Issue{
			{Type: models.IssueAdEmbedShift, ElementDescriptor: "iframe.ad-slot", Contribution: 0.15},
			{Type: models.IssueDynamicContent, ElementDescriptor: "div.recs", Contribution: 0.05},
		},
	})
	require.NoError(t, err)

	issues, err := store.ListIssues(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, id, issues[0].SessionID)
	assert.Equal(t, "checkout", issues[0].Page)
	assert.Equal(t, models.IssueAdEmbedShift, issues[0].Issue.Type)
}

func TestStorePatternsUpsert(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	pattern := models.IssuePattern{
		ID:                  "ad-embed-shift|iframe.ad-slot",
		Type:                models.IssueAdEmbedShift,
		ElementDescriptor:   "iframe.ad-slot",
		Occurrences:         3,
		Sessions:            2,
		Prevalence:          0.5,
		AverageContribution: 0.12,
		LastSeen:            time.Now().UTC(),
	}
	require.NoError(t, store.StorePatterns(ctx, []models.IssuePattern{pattern}))

	pattern.Occurrences = 5
	pattern.Prevalence = 0.8
	require.NoError(t, store.StorePatterns(ctx, []models.IssuePattern{pattern}))

	patterns, err := store.ListPatterns(ctx)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, 5, patterns[0].Occurrences)
	assert.InDelta(t, 0.8, patterns[0].Prevalence, 1e-9)
}
