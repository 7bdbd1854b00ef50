package quant

import (
	"math"
	"strings"

	"github.com/ChrisMcGann/CitFinder/pkg/pairing"
)

// Result is one row of the quantification table.
type Result struct {
	Protein  string
	Sequence string

	CitXIC         float64
	ArgXIC         float64
	CitPercent     float64 // NaN when PercentDefined is false
	PercentDefined bool

	Provenance pairing.Provenance

	CitFileName      string
	ArgFileName      string // empty for Lone entries
	CitRetentionTime float64
	ArgRetentionTime float64
	CitCharge        int
	ArgCharge        int
	CitSpectrumID    int
	ArgSpectrumID    int

	Score      float64 // CitScore of the citrullinated side
	MatchScore float64
}

// StripProteinPrefix removes the database prefix of a protein label, i.e.
// everything up to and including the first '|'.
func StripProteinPrefix(label string) string {
	if i := strings.IndexByte(label, '|'); i >= 0 {
		return label[i+1:]
	}
	return label
}

// Percent returns cit/(cit+arg)*100. The percentage is undefined, and NaN
// is returned, when both currents are zero.
func Percent(cit, arg float64) (float64, bool) {
	total := cit + arg
	if total == 0 {
		return math.NaN(), false
	}
	return cit / total * 100, true
}
