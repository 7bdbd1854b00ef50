package core

import "fmt"

// IonFamily identifies a fragment ion series.
type IonFamily int

const (
	IonA IonFamily = iota
	IonB
	IonB17
	IonB18
	IonY
	IonY17
	IonY18

	numIonFamilies
)

// IonFamilies lists every family in ladder order.
var IonFamilies = [...]IonFamily{IonA, IonB, IonB17, IonB18, IonY, IonY17, IonY18}

var ionFamilyNames = [...]string{"a", "b", "b-17", "b-18", "y", "y-17", "y-18"}

func (f IonFamily) String() string {
	if f < 0 || f >= numIonFamilies {
		return fmt.Sprintf("IonFamily(%d)", int(f))
	}
	return ionFamilyNames[f]
}

// NTerminal reports whether the family belongs to the a/b series.
func (f IonFamily) NTerminal() bool {
	return f <= IonB18
}

// IsLoss reports whether the family is a -17 or -18 neutral loss variant.
func (f IonFamily) IsLoss() bool {
	switch f {
	case IonB17, IonB18, IonY17, IonY18:
		return true
	}
	return false
}

// Ladder holds the theoretical fragment m/z for every family, one entry per
// sequence position. b-series entries are indexed from the N-terminus and
// y-series entries from the C-terminus.
type Ladder [numIonFamilies][]float64

// Len returns the ladder length (the sequence length).
func (l *Ladder) Len() int {
	return len(l[IonB])
}

// Mass returns the theoretical m/z of family f at index i.
func (l *Ladder) Mass(f IonFamily, i int) float64 {
	return l[f][i]
}

// Family returns the full series for f.
func (l *Ladder) Family(f IonFamily) []float64 {
	return l[f]
}

// MatchedIon records one observed peak explaining one ladder position.
type MatchedIon struct {
	Family        IonFamily
	Index         int
	ObservedMZ    float64
	TheoreticalMZ float64
}

// IonMatches is the ordered list of matches for one spectrum. The same peak
// may appear several times and the same (family, index) may be matched by
// several peaks.
type IonMatches []MatchedIon

// Has reports whether family f was matched at index i.
func (m IonMatches) Has(f IonFamily, i int) bool {
	for _, ion := range m {
		if ion.Family == f && ion.Index == i {
			return true
		}
	}
	return false
}

// Count returns the number of matches of family f, duplicates included.
func (m IonMatches) Count(f IonFamily) int {
	n := 0
	for _, ion := range m {
		if ion.Family == f {
			n++
		}
	}
	return n
}

// Coverage returns, per family, the set of matched indexes for a sequence of
// length n. Indexes outside [0, n) are ignored.
func (m IonMatches) Coverage(n int) [numIonFamilies][]bool {
	var cov [numIonFamilies][]bool
	for f := range cov {
		cov[f] = make([]bool, n)
	}
	for _, ion := range m {
		if ion.Index >= 0 && ion.Index < n {
			cov[ion.Family][ion.Index] = true
		}
	}
	return cov
}

// YFragmentStart returns the sequence position of the first residue contained
// in the y-series fragment at ladder index i for a sequence of length n.
func YFragmentStart(i, n int) int {
	return n - 1 - i
}
