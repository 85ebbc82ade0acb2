package source

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ratings-engine/internal/model"
)

var datasetNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func testDataset() *Dataset {
	return NewDataset().WithNow(func() time.Time { return datasetNow })
}

func TestDatasetLookupByName(t *testing.T) {
	t.Parallel()

	out, err := testDataset().Fetch(context.Background(),
		model.Entity{LegalName: "Microsoft Corporation"}, model.Agencies)
	require.NoError(t, err)
	require.Len(t, out, 3)

	sp := out[model.AgencySP]
	assert.Equal(t, "AAA", sp.Token)
	assert.Equal(t, model.MethodDataset, sp.Method)
	assert.Equal(t, model.ScaleSPFitch, sp.Scale)
	require.NotNil(t, sp.AsOf)
	assert.True(t, sp.AsOf.Before(datasetNow))
	assert.Contains(t, sp.SourceRef, "dataset:")
	assert.Equal(t, "Aaa", out[model.AgencyMoodys].Token)
}

func TestDatasetLookupVariants(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		entity model.Entity
	}{
		{"ticker", model.Entity{Ticker: "MSFT"}},
		{"isin", model.Entity{ISIN: "US5949181045"}},
		{"lowercase alias", model.Entity{LegalName: "microsoft"}},
		{"accented name", model.Entity{LegalName: "Petróleo Brasileiro S.A."}},
		{"accent-free form", model.Entity{LegalName: "Petroleo Brasileiro"}},
		{"query fallback", model.Entity{Query: "vale"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			out, err := testDataset().Fetch(context.Background(), tc.entity, model.Agencies)
			require.NoError(t, err)
			assert.NotEmpty(t, out)
		})
	}
}

func TestDatasetMissReturnsNothing(t *testing.T) {
	t.Parallel()

	out, err := testDataset().Fetch(context.Background(),
		model.Entity{LegalName: "Completely Unknown Industries"}, model.Agencies)
	assert.NoError(t, err)
	assert.Empty(t, out)
}

func TestDatasetFillsOnlyMissingAgencies(t *testing.T) {
	t.Parallel()

	out, err := testDataset().Fetch(context.Background(),
		model.Entity{Ticker: "MSFT"}, []model.Agency{model.AgencyFitch})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Contains(t, out, model.AgencyFitch)
}

func TestDatasetPartialCoverage(t *testing.T) {
	t.Parallel()

	// Apple has no Fitch entry in the table.
	out, err := testDataset().Fetch(context.Background(),
		model.Entity{Ticker: "AAPL"}, model.Agencies)
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.NotContains(t, out, model.AgencyFitch)
}
