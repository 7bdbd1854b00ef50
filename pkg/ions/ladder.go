// Package ions builds theoretical fragment ion ladders and matches observed
// peaks against them.
package ions

import (
	"fmt"
	"strings"

	"github.com/ChrisMcGann/CitFinder/pkg/core"
)

// Calculate builds the seven fragment ladders of a sequence. modB holds mass
// deltas keyed by b-series index, modY by y-series index. Keys outside the
// sequence are ignored.
func Calculate(sequence string, modB, modY map[int]float64) (core.Ladder, error) {
	var ladder core.Ladder

	residues, ok := core.ResidueMasses(sequence)
	if !ok {
		return ladder, fmt.Errorf("sequence %q contains an unknown residue", sequence)
	}
	if len(residues) == 0 {
		return ladder, fmt.Errorf("empty sequence")
	}

	n := len(residues)
	b := make([]float64, n)
	y := make([]float64, n)

	var sum float64
	for i := 0; i < n; i++ {
		sum += residues[i] + modB[i]
		if i == 0 {
			sum += core.ProtonMass
		}
		b[i] = sum
	}

	sum = 0
	for i := 0; i < n; i++ {
		sum += residues[n-1-i] + modY[i]
		if i == 0 {
			sum += core.MassH2O + core.ProtonMass
		}
		y[i] = sum
	}

	fillLadder(&ladder, b, y)
	return ladder, nil
}

// fillLadder sets the b and y series and derives the neutral-loss families.
func fillLadder(l *core.Ladder, b, y []float64) {
	n := len(b)
	for _, f := range core.IonFamilies {
		l[f] = make([]float64, n)
	}
	copy(l[core.IonB], b)
	copy(l[core.IonY], y)
	for i := 0; i < n; i++ {
		l[core.IonA][i] = b[i] - core.MassCO
		l[core.IonB17][i] = b[i] - core.MassOH
		l[core.IonB18][i] = b[i] - core.MassH2O
		l[core.IonY17][i] = y[i] - core.MassOH
		l[core.IonY18][i] = y[i] - core.MassH2O
	}
}

// PotentialCitrullination derives the ladder of a hypothetical citrullinated
// form of sequence from its unmodified ladder. Every b-series entry from the
// first arginine onward and every y-series entry whose fragment contains that
// arginine is shifted by core.CitrullinationShift. It returns the shifted
// ladder and the arginine position, or the base ladder and -1 when the
// sequence has no arginine.
func PotentialCitrullination(base core.Ladder, sequence string) (core.Ladder, int) {
	r := strings.Index(sequence, core.CitrullinationResidue)
	if r < 0 || r >= base.Len() {
		return base, -1
	}

	n := base.Len()
	b := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		b[i] = base[core.IonB][i]
		if i >= r {
			b[i] += core.CitrullinationShift
		}
		y[i] = base[core.IonY][i]
		if core.YFragmentStart(i, n) <= r {
			y[i] += core.CitrullinationShift
		}
	}

	var shifted core.Ladder
	fillLadder(&shifted, b, y)
	return shifted, r
}
