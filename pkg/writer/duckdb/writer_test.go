package duckdb

import (
	"database/sql"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/CitFinder/pkg/pairing"
	"github.com/ChrisMcGann/CitFinder/pkg/quant"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
}

func TestWriteResults(t *testing.T) {
	s := openInMemory(t)

	results := []quant.Result{
		{
			Protein: "P12345|TEST_HUMAN", Sequence: "PEPRTIDE",
			CitXIC: 60, ArgXIC: 40, CitPercent: 60, PercentDefined: true,
			Provenance:  pairing.CitPaired,
			CitFileName: "run1.mgf", ArgFileName: "run1.mgf",
			CitCharge: 2, ArgCharge: 2, CitSpectrumID: 10, ArgSpectrumID: 20,
			Score: 13, MatchScore: 8.5,
		},
		{
			Protein: "P12345|TEST_HUMAN", Sequence: "GARK",
			CitPercent: math.NaN(), Provenance: pairing.ArgPaired,
		},
		{
			Protein: "Q99999|OTHER", Sequence: "SAMPLER",
			CitXIC: 12, CitPercent: 100, PercentDefined: true,
			Provenance: pairing.Lone, CitSpectrumID: 40,
		},
	}

	require.NoError(t, s.WriteResults("run-a", results))
	require.NoError(t, s.WriteResults("run-b", results[:1]))

	n, err := s.CountResults("run-a")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var percent sql.NullFloat64
	require.NoError(t, s.DB().QueryRow(
		"SELECT cit_percent FROM quantification_results WHERE run_id = ? AND sequence = ?", "run-a", "GARK",
	).Scan(&percent))
	assert.False(t, percent.Valid)

	var provenance string
	var matchScore float64
	var citID int64
	require.NoError(t, s.DB().QueryRow(
		"SELECT provenance, match_score, cit_spectrum_id FROM quantification_results WHERE run_id = ?", "run-b",
	).Scan(&provenance, &matchScore, &citID))
	assert.Equal(t, "Cit-paired", provenance)
	assert.Equal(t, 8.5, matchScore)
	assert.Equal(t, int64(10), citID)

	require.NoError(t, s.ClearRun("run-a"))
	n, err = s.CountResults("run-a")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestWriteNoResults(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteResults("empty", nil))
}
