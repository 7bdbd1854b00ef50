package pairing

import (
	"fmt"

	"github.com/ChrisMcGann/CitFinder/pkg/core"
)

// Provenance tells which table a quantified entry came from.
type Provenance int

const (
	CitPaired Provenance = iota
	ArgPaired
	Lone
)

func (p Provenance) String() string {
	switch p {
	case CitPaired:
		return "Cit-paired"
	case ArgPaired:
		return "Arg-paired"
	case Lone:
		return "Lone"
	}
	return fmt.Sprintf("Provenance(%d)", int(p))
}

// Pairing relates a primary spectrum to its ranked complementary candidates.
type Pairing struct {
	Primary     *core.Spectrum
	Complements []*core.Spectrum
}

// Selection is one entry chosen for quantification. Complement is nil for
// Lone entries.
type Selection struct {
	Provenance Provenance
	Primary    *core.Spectrum
	Complement *core.Spectrum
}

// State holds everything one run produces: the three ranked tables and the
// entries chosen for quantification.
type State struct {
	Cit  []Pairing        // citrullinated primaries with arginine complements
	Arg  []Pairing        // arginine primaries with raw citrullination candidates
	Lone []*core.Spectrum // citrullinated spectra without complement

	// Keys of arginine spectra consumed as complements of a citrullinated primary.
	UsedComplements map[core.Key]bool

	chosen [3]map[core.Key]int // provenance -> primary key -> complement rank
}

// NewState returns an empty State.
func NewState() *State {
	s := &State{UsedComplements: make(map[core.Key]bool)}
	for i := range s.chosen {
		s.chosen[i] = make(map[core.Key]int)
	}
	return s
}

// Choose selects the primary identified by key for quantification together
// with the complement at rank complement. Lone entries take no complement
// and complement is ignored. Choosing an already chosen primary replaces
// its complement.
func (s *State) Choose(p Provenance, key core.Key, complement int) error {
	switch p {
	case CitPaired, ArgPaired:
		pr, ok := s.find(p, key)
		if !ok {
			return fmt.Errorf("no %s entry for %s", p, key)
		}
		if complement < 0 || complement >= len(pr.Complements) {
			return fmt.Errorf("%s entry %s has no complement at rank %d", p, key, complement)
		}
		s.chosen[p][key] = complement
	case Lone:
		if _, ok := s.findLone(key); !ok {
			return fmt.Errorf("no %s entry for %s", p, key)
		}
		s.chosen[p][key] = -1
	default:
		return fmt.Errorf("unknown provenance %d", int(p))
	}
	return nil
}

// Unchoose removes an entry from quantification.
func (s *State) Unchoose(p Provenance, key core.Key) {
	if p < CitPaired || p > Lone {
		return
	}
	delete(s.chosen[p], key)
}

// IsChosen reports whether the entry is selected for quantification.
func (s *State) IsChosen(p Provenance, key core.Key) bool {
	if p < CitPaired || p > Lone {
		return false
	}
	_, ok := s.chosen[p][key]
	return ok
}

// ChosenComplementIndex returns the rank of the complement chosen for a
// paired entry, or false when the entry is not chosen.
func (s *State) ChosenComplementIndex(p Provenance, key core.Key) (int, bool) {
	if p < CitPaired || p > Lone {
		return 0, false
	}
	i, ok := s.chosen[p][key]
	return i, ok
}

// ChosenCount returns the number of chosen entries of provenance p.
func (s *State) ChosenCount(p Provenance) int {
	if p < CitPaired || p > Lone {
		return 0
	}
	return len(s.chosen[p])
}

// Selections returns the chosen entries in table order: citrullination
// pairs, then arginine pairs, then lone spectra.
func (s *State) Selections() []Selection {
	var out []Selection
	for _, pr := range s.Cit {
		if i, ok := s.chosen[CitPaired][pr.Primary.Key()]; ok {
			out = append(out, Selection{Provenance: CitPaired, Primary: pr.Primary, Complement: pr.Complements[i]})
		}
	}
	for _, pr := range s.Arg {
		if i, ok := s.chosen[ArgPaired][pr.Primary.Key()]; ok {
			out = append(out, Selection{Provenance: ArgPaired, Primary: pr.Primary, Complement: pr.Complements[i]})
		}
	}
	for _, sp := range s.Lone {
		if _, ok := s.chosen[Lone][sp.Key()]; ok {
			out = append(out, Selection{Provenance: Lone, Primary: sp})
		}
	}
	return out
}

func (s *State) find(p Provenance, key core.Key) (Pairing, bool) {
	table := s.Cit
	if p == ArgPaired {
		table = s.Arg
	}
	for _, pr := range table {
		if pr.Primary.Key() == key {
			return pr, true
		}
	}
	return Pairing{}, false
}

func (s *State) findLone(key core.Key) (*core.Spectrum, bool) {
	for _, sp := range s.Lone {
		if sp.Key() == key {
			return sp, true
		}
	}
	return nil, false
}
