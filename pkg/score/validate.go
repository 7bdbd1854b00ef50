package score

import (
	"math"
	"strings"

	"github.com/ChrisMcGann/CitFinder/pkg/core"
)

// ValidFragmentation decides whether the ion coverage of a spectrum can tell
// a citrullinated arginine apart from a deamidated N or Q, which carry the
// same mass change. A sequence without R is never valid; one without N or Q
// is always valid. Otherwise some position between the closest R and N/Q
// pair (inclusive) must be covered by a b ion, or by the y ion that starts
// at that position.
func ValidFragmentation(matches core.IonMatches, sequence string) bool {
	if !strings.Contains(sequence, "R") {
		return false
	}
	if !strings.ContainsAny(sequence, "NQ") {
		return true
	}

	start, end := closestAmbiguousRange(sequence)
	n := len(sequence)
	cov := matches.Coverage(n)
	for k := start; k <= end; k++ {
		if cov[core.IonB][k] || cov[core.IonY][n-1-k] {
			return true
		}
	}
	return false
}

// closestAmbiguousRange returns the inclusive position range spanned by the
// closest R and N/Q pair. Ties keep the first pair found, scanning R
// positions in order against N positions then Q positions.
func closestAmbiguousRange(sequence string) (int, int) {
	var args, nqs []int
	for i, aa := range sequence {
		if aa == 'R' {
			args = append(args, i)
		}
	}
	for i, aa := range sequence {
		if aa == 'N' {
			nqs = append(nqs, i)
		}
	}
	for i, aa := range sequence {
		if aa == 'Q' {
			nqs = append(nqs, i)
		}
	}

	bestR, bestNQ := -1, -1
	distance := math.MaxInt
	for _, r := range args {
		for _, nq := range nqs {
			d := r - nq
			if d < 0 {
				d = -d
			}
			if d < distance {
				bestR, bestNQ, distance = r, nq, d
			}
		}
	}

	if bestR < bestNQ {
		return bestR, bestNQ
	}
	return bestNQ, bestR
}
