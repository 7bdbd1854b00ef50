package ions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/CitFinder/pkg/core"
)

func TestMatchFindsLadderPeaks(t *testing.T) {
	ladder, err := Calculate("PEPTIDE", nil, nil)
	require.NoError(t, err)

	peaks := []core.Peak{
		{MZ: ladder[core.IonB][1] + 0.2, Intensity: 10},
		{MZ: ladder[core.IonY][2] - 0.1, Intensity: 20},
		{MZ: 1500, Intensity: 5},
	}

	matches := Match(peaks, &ladder, 0.4)

	assert.True(t, matches.Has(core.IonB, 1))
	assert.True(t, matches.Has(core.IonY, 2))
	assert.False(t, matches.Has(core.IonB, 0))
	for _, m := range matches {
		assert.NotEqual(t, 1500.0, m.ObservedMZ)
		assert.InDelta(t, m.ObservedMZ, m.TheoreticalMZ, 0.4)
	}
}

func TestMatchToleranceIsInclusive(t *testing.T) {
	ladder := core.Ladder{}
	for _, f := range core.IonFamilies {
		ladder[f] = []float64{0}
	}
	ladder[core.IonB][0] = 100

	matches := Match([]core.Peak{{MZ: 100.5, Intensity: 1}}, &ladder, 0.5)
	assert.Equal(t, 1, matches.Count(core.IonB))
}

func TestMatchKeepsDuplicates(t *testing.T) {
	// Two close ladder entries within tolerance of one peak, and two peaks
	// within tolerance of one ladder entry.
	ladder := core.Ladder{}
	for _, f := range core.IonFamilies {
		ladder[f] = []float64{0, 0}
	}
	ladder[core.IonB][0] = 200.0
	ladder[core.IonB][1] = 200.3

	peaks := []core.Peak{
		{MZ: 200.1, Intensity: 1},
		{MZ: 200.2, Intensity: 1},
	}

	matches := Match(peaks, &ladder, 0.4)

	assert.Equal(t, 4, matches.Count(core.IonB))
	var idx []int
	for _, m := range matches {
		if m.Family == core.IonB {
			idx = append(idx, m.Index)
		}
	}
	assert.Equal(t, []int{0, 1, 0, 1}, idx)
}

func TestAnnotate(t *testing.T) {
	ident := &core.Identification{
		Sequence:    "PEPRTIDE",
		DomainStart: 1,
		Modifications: []core.Modification{
			{Residue: "R", Position: 4, Mass: core.CitrullinationDelta},
		},
	}
	modB, modY := ident.ModificationMaps()
	s := &core.Spectrum{Ident: ident, ModB: modB, ModY: modY}

	ladder, err := Calculate("PEPRTIDE", modB, modY)
	require.NoError(t, err)
	s.Peaks = []core.Peak{{MZ: ladder[core.IonB][4], Intensity: 100}}

	require.NoError(t, Annotate(s, 0.4))
	assert.Equal(t, ladder, s.Ladder)
	assert.True(t, s.Matches.Has(core.IonB, 4))
}
