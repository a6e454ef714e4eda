package split

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/dataset"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/models"
)

func TestComputeStats(t *testing.T) {
	corpus := buildCorpus(t, [][2]int{
		{3, 1}, {0, 5}, {1, 0}, {2, 2},
	})

	cfg := Config{TestSize: 0.5, Seed: 17}
	a, err := NewPartitioner(cfg).Split(corpus)
	require.NoError(t, err)

	stats := ComputeStats(corpus, a, cfg)

	assert.Equal(t, 4, stats.TotalDocs)
	assert.Equal(t, stats.TotalDocs, stats.TrainDocs+stats.TestDocs)
	assert.Equal(t, 6, stats.TotalClaims)
	assert.Equal(t, stats.TotalClaims, stats.TrainClaims+stats.TestClaims)
	assert.Equal(t, 8, stats.TotalNonClaims)
	assert.Equal(t, stats.TotalNonClaims, stats.TrainNonClaims+stats.TestNonClaims)
	assert.InDelta(t, 8.0/6.0, stats.RatioGlobal, 1e-9)
	assert.InDelta(t, float64(stats.TestClaims)/6.0, stats.AchievedSize, 1e-9)

	report := stats.Report()
	assert.Contains(t, report, "=== Split summary ===")
	assert.Contains(t, report, "Total documents:      4")
	assert.Contains(t, report, "Total claims:         6")
}

func TestAssignment_Materialize(t *testing.T) {
	docs := []models.Document{
		{Document: "a.txt", Items: []models.Item{{Claim: &models.ClaimLabel{Value: true, Valid: true}}}},
		{Document: "b.txt", Items: []models.Item{{Claim: &models.ClaimLabel{Value: false, Valid: true}}}},
		{Document: "c.txt", Items: []models.Item{{Claim: &models.ClaimLabel{Value: true, Valid: true}}}},
	}

	corpus, err := dataset.Summarize(docs)
	require.NoError(t, err)

	a, err := NewPartitioner(Config{TestSize: 0.5, Seed: 2}).Split(corpus)
	require.NoError(t, err)

	train, test := a.Materialize(docs)
	assert.Equal(t, len(docs), len(train)+len(test))

	ids := make(map[string]bool)
	for _, d := range append(train, test...) {
		ids[d.Document] = true
	}
	assert.Len(t, ids, 3, "every document should appear exactly once across the splits")
}
