package ions

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/CitFinder/pkg/core"
)

var approx = cmpopts.EquateApprox(0, 1e-6)

func TestComplementarity(t *testing.T) {
	const seq = "PEPTIDE"
	ladder, err := Calculate(seq, nil, nil)
	require.NoError(t, err)

	residues, _ := core.ResidueMasses(seq)
	var residueSum float64
	for _, m := range residues {
		residueSum += m
	}
	want := residueSum + core.MassH2O + 2*core.ProtonMass

	n := len(seq)
	for i := 0; i <= n-2; i++ {
		got := ladder[core.IonB][i] + ladder[core.IonY][n-2-i]
		if math.Abs(got-want) > 1e-6 {
			t.Errorf("b[%d] + y[%d] = %.6f, want %.6f", i, n-2-i, got, want)
		}
	}
}

func TestCalculateLengthsAndOffsets(t *testing.T) {
	ladder, err := Calculate("GAR", nil, nil)
	require.NoError(t, err)

	for _, f := range core.IonFamilies {
		assert.Len(t, ladder.Family(f), 3, "family %s", f)
	}

	g, _ := core.ResidueMass('G')
	a, _ := core.ResidueMass('A')
	r, _ := core.ResidueMass('R')

	wantB := []float64{g + core.ProtonMass, g + a + core.ProtonMass, g + a + r + core.ProtonMass}
	wantY := []float64{
		r + core.MassH2O + core.ProtonMass,
		r + a + core.MassH2O + core.ProtonMass,
		r + a + g + core.MassH2O + core.ProtonMass,
	}
	if diff := cmp.Diff(wantB, ladder.Family(core.IonB), approx); diff != "" {
		t.Errorf("b ladder mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantY, ladder.Family(core.IonY), approx); diff != "" {
		t.Errorf("y ladder mismatch (-want +got):\n%s", diff)
	}

	for i := 0; i < 3; i++ {
		assert.InDelta(t, wantB[i]-core.MassCO, ladder[core.IonA][i], 1e-9)
		assert.InDelta(t, wantB[i]-core.MassOH, ladder[core.IonB17][i], 1e-9)
		assert.InDelta(t, wantB[i]-core.MassH2O, ladder[core.IonB18][i], 1e-9)
		assert.InDelta(t, wantY[i]-core.MassOH, ladder[core.IonY17][i], 1e-9)
		assert.InDelta(t, wantY[i]-core.MassH2O, ladder[core.IonY18][i], 1e-9)
	}
}

func TestCalculateWithModifications(t *testing.T) {
	plain, err := Calculate("PEPRTIDE", nil, nil)
	require.NoError(t, err)

	// citrulline at position 3: b index 3, y index 8-1-3 = 4
	modded, err := Calculate("PEPRTIDE",
		map[int]float64{3: core.CitrullinationDelta, 42: 100},
		map[int]float64{4: core.CitrullinationDelta})
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		wantB := 0.0
		if i >= 3 {
			wantB = core.CitrullinationDelta
		}
		wantY := 0.0
		if i >= 4 {
			wantY = core.CitrullinationDelta
		}
		assert.InDelta(t, wantB, modded[core.IonB][i]-plain[core.IonB][i], 1e-9, "b[%d]", i)
		assert.InDelta(t, wantY, modded[core.IonY][i]-plain[core.IonY][i], 1e-9, "y[%d]", i)
	}
}

func TestCalculateRejectsUnknownResidue(t *testing.T) {
	_, err := Calculate("PEPXIDE", nil, nil)
	assert.Error(t, err)
	_, err = Calculate("", nil, nil)
	assert.Error(t, err)
}

func TestPotentialCitrullination(t *testing.T) {
	const seq = "PEPRTIDE"
	base, err := Calculate(seq, nil, nil)
	require.NoError(t, err)

	shifted, r := PotentialCitrullination(base, seq)
	require.Equal(t, 3, r)

	// Same shape as a ladder computed with the modification in place,
	// differing only in the shift constant.
	identified, err := Calculate(seq,
		map[int]float64{3: core.CitrullinationShift},
		map[int]float64{4: core.CitrullinationShift})
	require.NoError(t, err)

	for _, f := range core.IonFamilies {
		if diff := cmp.Diff(identified.Family(f), shifted.Family(f), approx); diff != "" {
			t.Errorf("%s ladder mismatch (-want +got):\n%s", f, diff)
		}
	}

	// base is untouched
	assert.InDelta(t, base[core.IonB][3]+core.CitrullinationShift, shifted[core.IonB][3], 1e-9)
	plain, _ := Calculate(seq, nil, nil)
	assert.Equal(t, plain, base)
}

func TestPotentialCitrullinationWithoutArginine(t *testing.T) {
	base, err := Calculate("PEPTIDE", nil, nil)
	require.NoError(t, err)

	shifted, r := PotentialCitrullination(base, "PEPTIDE")
	assert.Equal(t, -1, r)
	assert.Equal(t, base, shifted)
}
