// Package score computes the citrullination confidence of a spectrum
// (CitScore) and the similarity of a citrullinated/arginine pair (MatchScore).
package score

import (
	"fmt"
	"strings"

	"github.com/ChrisMcGann/CitFinder/pkg/core"
)

// DefaultCyanicLossTolerance is the Da window used to detect isocyanic acid losses.
const DefaultCyanicLossTolerance = 0.07

// Settings holds the scoring weights. All values are supplied by the caller.
type Settings struct {
	FragmentTolerance float64 // Da, also the base of the mass-shift tolerance

	// MatchScore weights per matched ion family
	AIonMatch        float64
	BIonMatch        float64
	YIonMatch        float64
	LossMatchDivider float64 // applied to the -17/-18 variants

	// CitScore terms
	MS1Bonus            float64
	MS2LossA            float64
	MS2LossB            float64
	MS2LossY            float64
	MS2LossDivider      float64 // applied to losses found on -17/-18 ions
	CyanicLossTolerance float64
	UnidentifiedEValue  float64 // stands in for the e-value of raw candidates

	CutOff        float64
	IncludeCutOff bool
}

// Validate checks the settings for values the scoring cannot work with.
func (s *Settings) Validate() error {
	var errs []string

	if s.FragmentTolerance <= 0 {
		errs = append(errs, "fragment tolerance must be positive")
	}
	if s.LossMatchDivider <= 0 {
		errs = append(errs, "loss match divider must be positive")
	}
	if s.MS2LossDivider <= 0 {
		errs = append(errs, "MS2 loss divider must be positive")
	}
	if s.CyanicLossTolerance <= 0 {
		errs = append(errs, "cyanic loss tolerance must be positive")
	}
	if s.UnidentifiedEValue <= 0 || s.UnidentifiedEValue > 1 {
		errs = append(errs, "unidentified e-value must be in (0, 1]")
	}

	if len(errs) > 0 {
		return &core.ValidationError{
			Field:   "score settings",
			Message: strings.Join(errs, "; "),
		}
	}
	return nil
}

// matchWeight returns the MatchScore weight of one matched position.
func (s *Settings) matchWeight(f core.IonFamily) float64 {
	var w float64
	switch f {
	case core.IonA:
		w = s.AIonMatch
	case core.IonB, core.IonB17, core.IonB18:
		w = s.BIonMatch
	case core.IonY, core.IonY17, core.IonY18:
		w = s.YIonMatch
	default:
		panic(fmt.Sprintf("unknown ion family %d", f))
	}
	if f.IsLoss() {
		w /= s.LossMatchDivider
	}
	return w
}

// lossWeight returns the CitScore weight of one MS2 isocyanic loss.
func (s *Settings) lossWeight(f core.IonFamily) float64 {
	var w float64
	switch f {
	case core.IonA:
		w = s.MS2LossA
	case core.IonB, core.IonB17, core.IonB18:
		w = s.MS2LossB
	case core.IonY, core.IonY17, core.IonY18:
		w = s.MS2LossY
	default:
		panic(fmt.Sprintf("unknown ion family %d", f))
	}
	if f.IsLoss() {
		w /= s.MS2LossDivider
	}
	return w
}

// containsCitrullination reports whether the fragment of family f at ladder
// index i holds the residue at sequence position citIndex.
func containsCitrullination(f core.IonFamily, i, n, citIndex int) bool {
	if f.NTerminal() {
		return i >= citIndex
	}
	return core.YFragmentStart(i, n) <= citIndex
}
