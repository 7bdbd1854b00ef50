package score

import (
	"math"
	"sort"

	"github.com/ChrisMcGann/CitFinder/pkg/core"
)

// ms2LossOrder is the order in which families are tried at one position.
var ms2LossOrder = [...]core.IonFamily{
	core.IonA, core.IonB, core.IonB17, core.IonB18,
	core.IonY, core.IonY17, core.IonY18,
}

// CitScore scores s as a citrullinated spectrum and stores the result, along
// with the isocyanic loss m/z values found, on s. The citrullinated residue
// is s.CitIndex. Identified spectra contribute their e-value, raw
// candidates contribute st.UnidentifiedEValue.
func CitScore(s *core.Spectrum, st *Settings) float64 {
	s.IsoCyanicMZMS1 = -1
	s.IsoCyanicLossMZ = nil

	if !ValidFragmentation(s.Matches, s.Sequence()) {
		s.CitScore = 0
		return 0
	}

	var total float64
	if mz, ok := MS1IsocyanicLoss(s.Parent, s.PrecursorMZ, st.CyanicLossTolerance); ok {
		s.IsoCyanicMZMS1 = mz
		total += st.MS1Bonus
	}

	ms2, losses := MS2IsocyanicLosses(s, s.CitIndex, st)
	s.IsoCyanicLossMZ = losses
	total += ms2

	evalue := st.UnidentifiedEValue
	if s.Ident != nil {
		evalue = s.Ident.EValue
	}
	total += -math.Log10(evalue)

	s.CitScore = core.RoundFloat(total, 1)
	return s.CitScore
}

// MS1IsocyanicLoss looks for the precursor minus isocyanic acid in the parent
// scan and returns the first peak m/z within tolerance.
func MS1IsocyanicLoss(parent *core.RawScan, precursorMZ, tolerance float64) (float64, bool) {
	if parent == nil {
		return -1, false
	}
	target := precursorMZ - core.IsocyanicAcidLoss
	for _, p := range parent.Peaks {
		if core.IsApproximately(p.MZ, target, tolerance) {
			return p.MZ, true
		}
	}
	return -1, false
}

// MS2IsocyanicLosses counts fragment peaks that sit one isocyanic acid below
// a matched fragment containing the citrullinated residue. Peaks are visited
// from high to low m/z. At each position the first family (a, b, b-17, b-18,
// y, y-17, y-18) explaining the peak is counted; a peak lying one loss above
// an already counted loss peak is skipped. It returns the weighted count and
// the counted m/z values.
func MS2IsocyanicLosses(s *core.Spectrum, citIndex int, st *Settings) (float64, []float64) {
	n := s.Ladder.Len()
	if n == 0 {
		return 0, nil
	}
	cov := s.Matches.Coverage(n)

	mz := s.MZValues()
	sort.Sort(sort.Reverse(sort.Float64Slice(mz)))

	var score float64
	var losses []float64
	for _, obs := range mz {
		for i := 0; i < n; i++ {
			if lossPrecursor(losses, obs, st.CyanicLossTolerance) {
				continue
			}
			for _, f := range ms2LossOrder {
				if !cov[f][i] || !containsCitrullination(f, i, n, citIndex) {
					continue
				}
				if core.IsApproximately(obs, s.Ladder[f][i]-core.IsocyanicAcidLoss, st.CyanicLossTolerance) {
					losses = append(losses, obs)
					score += st.lossWeight(f)
					break
				}
			}
		}
	}
	return score, losses
}

// lossPrecursor reports whether mz lies one isocyanic acid above a counted loss.
func lossPrecursor(losses []float64, mz, tolerance float64) bool {
	for _, loss := range losses {
		if core.IsApproximately(loss+core.IsocyanicAcidLoss, mz, tolerance) {
			return true
		}
	}
	return false
}
