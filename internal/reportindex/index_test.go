package reportindex_test

import (
	"context"
	"io"
	"testing"

	"github.com/myrjola/foundit/internal/embedding"
	"github.com/myrjola/foundit/internal/models"
	"github.com/myrjola/foundit/internal/reportindex"
	"github.com/myrjola/foundit/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

type listerFunc func(ctx context.Context, kind models.ReportKind) ([]models.Report, error)

func (f listerFunc) List(ctx context.Context, kind models.ReportKind) ([]models.Report, error) {
	return f(ctx, kind)
}

var reports = []models.Report{
	{ID: "lost-wallet", Kind: models.ReportKindLost, ReporterID: "alice", Description: "black leather wallet with bus card"},
	{ID: "lost-umbrella", Kind: models.ReportKindLost, ReporterID: "bob", Description: "blue umbrella with wooden handle"},
	{ID: "found-wallet", Kind: models.ReportKindFound, ReporterID: "carol", Description: "found black leather wallet"},
	{ID: "found-keys", Kind: models.ReportKindFound, ReporterID: "dave", Description: "keys on a red ring"},
	{ID: "found-umbrella", Kind: models.ReportKindFound, ReporterID: "erin", Description: "umbrella, blue, wooden handle"},
}

func newIndex(t *testing.T) *reportindex.Index {
	t.Helper()
	idx, err := reportindex.New(embedding.NewHashEmbedder(embedding.DefaultHashDimension), testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	return idx
}

func TestIndex_Match(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	idx := newIndex(t)

	empty, err := idx.Match(ctx, reports[0], 3)
	require.NoError(t, err)
	require.Empty(t, empty)

	lister := listerFunc(func(_ context.Context, _ models.ReportKind) ([]models.Report, error) {
		return reports, nil
	})
	require.NoError(t, idx.Rebuild(ctx, lister))
	require.Equal(t, len(reports), idx.Count())

	matches, err := idx.Match(ctx, reports[0], 10)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	require.Equal(t, "found-wallet", matches[0].ReportID)
	require.Equal(t, "carol", matches[0].ReporterID)
	for i, m := range matches {
		require.Equal(t, models.ReportKindFound, m.Kind)
		if i > 0 {
			require.LessOrEqual(t, m.Similarity, matches[i-1].Similarity)
		}
	}

	matches, err = idx.Match(ctx, reports[4], 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "lost-umbrella", matches[0].ReportID)
}

func TestIndex_AddReplaces(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	idx := newIndex(t)

	require.NoError(t, idx.Add(ctx, reports[0], reports[2]))
	updated := reports[2]
	updated.Description = "keys on a red ring"
	require.NoError(t, idx.Add(ctx, updated))
	require.Equal(t, 2, idx.Count())

	matches, err := idx.Match(ctx, reports[0], 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "keys on a red ring", matches[0].Description)
}
