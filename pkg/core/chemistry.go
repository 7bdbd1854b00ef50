// Package core provides chemistry calculations for peptide and fragment ion masses
package core

import "math"

// Atomic masses (monoisotopic)
const (
	MassH = 1.0078250321
	MassC = 12.0000000000
	MassN = 14.0030740052
	MassO = 15.9949146221
	MassS = 31.9720706900

	// Proton mass for charge calculations
	ProtonMass = 1.00727646688
)

// Neutral losses and offsets used by the fragment ion ladders
const (
	MassOH  = MassO + MassH   // b-17 / y-17 offset
	MassH2O = 2*MassH + MassO // b-18 / y-18 offset, and the y-ion water term
	MassCO  = MassC + MassO   // a-ion offset
)

// Citrullination constants.
//
// CitrullinationDelta is the mass change reported by the search engine for a
// citrullinated arginine and is used for modification lookup and parent mass
// pairing. CitrullinationShift is the fragment ladder shift.
const (
	CitrullinationResidue = "R"
	CitrullinationDelta   = 0.984
	CitrullinationShift   = 0.9845

	// Isocyanic acid (HNCO) neutral loss, diagnostic of citrulline
	IsocyanicAcidLoss = 43.0
)

// AminoAcidComposition stores elemental composition
type AminoAcidComposition struct {
	C, H, N, O, S int
}

// Mass returns the monoisotopic mass of the composition.
func (c AminoAcidComposition) Mass() float64 {
	return float64(c.C)*MassC +
		float64(c.H)*MassH +
		float64(c.N)*MassN +
		float64(c.O)*MassO +
		float64(c.S)*MassS
}

// AminoAcidMasses maps amino acid one-letter codes to elemental composition
// of the residue (amino acid minus water).
var AminoAcidMasses = map[rune]AminoAcidComposition{
	'A': {C: 3, H: 5, N: 1, O: 1, S: 0},
	'R': {C: 6, H: 12, N: 4, O: 1, S: 0},
	'N': {C: 4, H: 6, N: 2, O: 2, S: 0},
	'D': {C: 4, H: 5, N: 1, O: 3, S: 0},
	'C': {C: 3, H: 5, N: 1, O: 1, S: 1},
	'E': {C: 5, H: 7, N: 1, O: 3, S: 0},
	'Q': {C: 5, H: 8, N: 2, O: 2, S: 0},
	'G': {C: 2, H: 3, N: 1, O: 1, S: 0},
	'H': {C: 6, H: 7, N: 3, O: 1, S: 0},
	'I': {C: 6, H: 11, N: 1, O: 1, S: 0},
	'L': {C: 6, H: 11, N: 1, O: 1, S: 0},
	'K': {C: 6, H: 12, N: 2, O: 1, S: 0},
	'M': {C: 5, H: 9, N: 1, O: 1, S: 1},
	'F': {C: 9, H: 9, N: 1, O: 1, S: 0},
	'P': {C: 5, H: 7, N: 1, O: 1, S: 0},
	'S': {C: 3, H: 5, N: 1, O: 2, S: 0},
	'T': {C: 4, H: 7, N: 1, O: 2, S: 0},
	'W': {C: 11, H: 10, N: 2, O: 1, S: 0},
	'Y': {C: 9, H: 9, N: 1, O: 2, S: 0},
	'V': {C: 5, H: 9, N: 1, O: 1, S: 0},
}

// residueMasses caches the monoisotopic residue masses computed from AminoAcidMasses.
var residueMasses = func() map[rune]float64 {
	m := make(map[rune]float64, len(AminoAcidMasses))
	for aa, comp := range AminoAcidMasses {
		m[aa] = comp.Mass()
	}
	return m
}()

// ResidueMass returns the monoisotopic residue mass for a one-letter code.
func ResidueMass(aa rune) (float64, bool) {
	m, ok := residueMasses[aa]
	return m, ok
}

// ResidueMasses returns the residue masses of a sequence in order. Unknown
// residues are reported through ok=false.
func ResidueMasses(sequence string) ([]float64, bool) {
	masses := make([]float64, 0, len(sequence))
	for _, aa := range sequence {
		m, ok := residueMasses[aa]
		if !ok {
			return nil, false
		}
		masses = append(masses, m)
	}
	return masses, true
}

// CalculatePeptideMass computes monoisotopic mass of a peptide sequence
// including modifications, then returns the m/z for a given charge state.
func CalculatePeptideMass(sequence string, charge int, modifications []Modification) float64 {
	mass := CalculateNeutralMass(sequence, modifications)

	// Calculate m/z: (mass + charge * proton) / charge
	return (mass + float64(charge)*ProtonMass) / float64(charge)
}

// CalculateNeutralMass computes the neutral monoisotopic mass of a peptide
func CalculateNeutralMass(sequence string, modifications []Modification) float64 {
	comp := AminoAcidComposition{H: 2, O: 1} // Add water

	for _, aa := range sequence {
		if aaComp, ok := AminoAcidMasses[aa]; ok {
			comp.C += aaComp.C
			comp.H += aaComp.H
			comp.N += aaComp.N
			comp.O += aaComp.O
			comp.S += aaComp.S
		}
	}

	mass := comp.Mass()
	for _, mod := range modifications {
		mass += mod.Mass
	}
	return mass
}

// NeutralMassFromMZ converts an observed precursor m/z and charge to the
// singly protonated parent mass (M+H) the search engine reports.
func NeutralMassFromMZ(mz float64, charge int) float64 {
	return mz*float64(charge) - float64(charge-1)*ProtonMass
}

// RoundFloat rounds a float to n decimal places
func RoundFloat(val float64, precision int) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

// IsApproximately reports whether a and b differ by strictly less than tolerance.
func IsApproximately(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}
