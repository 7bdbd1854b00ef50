package score

import (
	"github.com/ChrisMcGann/CitFinder/pkg/core"
)

// HasCorrectCitMassShift checks the theoretical m/z of one position in a
// citrullinated and an arginine spectrum. Fragments holding the citrulline
// must be heavier by core.CitrullinationShift, all others must coincide.
// The tolerance is a fifth of the fragment tolerance.
func HasCorrectCitMassShift(citMZ, argMZ, fragmentTolerance float64, containsCit bool) bool {
	tol := fragmentTolerance / 5
	if containsCit {
		return core.IsApproximately(citMZ-core.CitrullinationShift, argMZ, tol)
	}
	return core.IsApproximately(citMZ, argMZ, tol)
}

// MatchScore compares a citrullinated spectrum with an arginine spectrum of
// the same sequence. Every position matched by the same family in both is
// counted when the ladders show the expected shift. citIndex is the
// sequence position of the citrullinated residue.
func MatchScore(cit, arg *core.Spectrum, citIndex int, st *Settings) float64 {
	n := cit.Ladder.Len()
	if m := arg.Ladder.Len(); m < n {
		n = m
	}
	if n == 0 {
		return 0
	}

	citCov := cit.Matches.Coverage(n)
	argCov := arg.Matches.Coverage(n)

	var total float64
	for i := 0; i < n; i++ {
		for _, f := range core.IonFamilies {
			if !citCov[f][i] || !argCov[f][i] {
				continue
			}
			if HasCorrectCitMassShift(cit.Ladder[f][i], arg.Ladder[f][i], st.FragmentTolerance,
				containsCitrullination(f, i, n, citIndex)) {
				total += st.matchWeight(f)
			}
		}
	}
	return core.RoundFloat(total, 1)
}
