package ions

import (
	"math"

	"github.com/ChrisMcGann/CitFinder/pkg/core"
)

// Match records every (peak, family, index) combination whose theoretical m/z
// lies within tolerance of the observed m/z. Matches are not deduplicated: a
// peak explaining several ladder positions is recorded once per position,
// and a position explained by several peaks is recorded once per peak.
func Match(peaks []core.Peak, ladder *core.Ladder, tolerance float64) core.IonMatches {
	var matches core.IonMatches
	n := ladder.Len()
	for _, p := range peaks {
		for _, f := range core.IonFamilies {
			series := ladder.Family(f)
			for i := 0; i < n; i++ {
				if math.Abs(p.MZ-series[i]) <= tolerance {
					matches = append(matches, core.MatchedIon{
						Family:        f,
						Index:         i,
						ObservedMZ:    p.MZ,
						TheoreticalMZ: series[i],
					})
				}
			}
		}
	}
	return matches
}

// Annotate computes the ladder of s from its sequence and modification maps
// and matches the spectrum peaks against it.
func Annotate(s *core.Spectrum, tolerance float64) error {
	ladder, err := Calculate(s.Sequence(), s.ModB, s.ModY)
	if err != nil {
		return err
	}
	s.Ladder = ladder
	s.Matches = Match(s.Peaks, &s.Ladder, tolerance)
	return nil
}
