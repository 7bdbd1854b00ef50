package core

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/multierr"
)

// Identification is the search-engine assignment carried by an identified
// spectrum.
type Identification struct {
	Sequence      string // Domain sequence
	ProteinLabel  string
	DomainStart   int // Protein coordinate of Sequence[0]
	Modifications []Modification
	ParentMass    float64 // M+H
	EValue        float64
	Description   string // Free-text scan descriptor
}

// LadderIndex converts a protein coordinate to a sequence position.
func (id *Identification) LadderIndex(position int) (int, bool) {
	i := position - id.DomainStart
	return i, i >= 0 && i < len(id.Sequence)
}

// HasCitrullination reports whether a citrullinated arginine lies within
// the domain.
func (id *Identification) HasCitrullination() bool {
	return id.CitrullinationIndex() >= 0
}

// CitrullinationIndex returns the sequence position of the first
// citrullinated arginine, or -1.
func (id *Identification) CitrullinationIndex() int {
	for _, mod := range id.Modifications {
		if !mod.IsCitrullination() {
			continue
		}
		if i, ok := id.LadderIndex(mod.Position); ok {
			return i
		}
	}
	return -1
}

// ModificationMaps returns the mass deltas keyed by b-series index and by
// y-series index. Modifications outside the domain are skipped.
func (id *Identification) ModificationMaps() (modB, modY map[int]float64) {
	n := len(id.Sequence)
	modB = make(map[int]float64)
	modY = make(map[int]float64)
	for _, mod := range id.Modifications {
		i, ok := id.LadderIndex(mod.Position)
		if !ok {
			continue
		}
		modB[i] += mod.Mass
		modY[n-1-i] += mod.Mass
	}
	return modB, modY
}

// PSM is one identified peptide-spectrum match as delivered by the
// identification collaborator.
type PSM struct {
	Identification
	Charge int
	Peaks  []Peak
}

// ScanID returns the instrument scan number encoded in the descriptor.
func (p *PSM) ScanID() (int, error) {
	return ParseScanID(p.Description)
}

// Validate checks that a PSM meets all requirements for processing.
func (p *PSM) Validate() error {
	var errs []string

	if p.Sequence == "" {
		errs = append(errs, "sequence is empty")
	}
	for _, aa := range p.Sequence {
		if _, ok := ResidueMass(aa); !ok {
			errs = append(errs, fmt.Sprintf("unknown residue %q", aa))
			break
		}
	}
	if p.Charge <= 0 {
		errs = append(errs, "charge must be positive")
	}
	if math.IsNaN(p.ParentMass) || p.ParentMass <= 0 {
		errs = append(errs, "parent mass must be positive")
	}
	if math.IsNaN(p.EValue) || p.EValue <= 0 {
		errs = append(errs, "e-value must be positive")
	}
	if _, err := p.ScanID(); err != nil {
		errs = append(errs, err.Error())
	}
	errs = append(errs, validatePeaks(p.Peaks)...)
	if !ArePeaksSorted(p.Peaks) {
		errs = append(errs, "peaks must be sorted by m/z")
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   fmt.Sprintf("PSM %q", p.Description),
			Message: strings.Join(errs, "; "),
		}
	}
	return nil
}

// SearchResult holds the identified PSMs of one source file.
type SearchResult struct {
	FileName string
	PSMs     []PSM
}

// RawFile holds the MS1 and MS2 scans of one source file in acquisition order.
type RawFile struct {
	FileName string
	MS1      []RawScan
	MS2      []RawScan
}

// FileError reports a source file excluded from a run.
type FileError struct {
	FileName string
	Err      error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file %s excluded: %v", e.FileName, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Corpus is the complete input of one batch run.
type Corpus struct {
	Searches []SearchResult
	Raw      []RawFile
}

// RawFile returns the raw scans of the named file.
func (c *Corpus) RawFile(name string) (*RawFile, bool) {
	for i := range c.Raw {
		if c.Raw[i].FileName == name {
			return &c.Raw[i], true
		}
	}
	return nil, false
}

// Validate returns a corpus holding only the files whose records are all
// valid. Every excluded file is reported as a *FileError in the combined error.
func (c Corpus) Validate() (Corpus, error) {
	bad := make(map[string]error)

	for _, sr := range c.Searches {
		for i := range sr.PSMs {
			if err := sr.PSMs[i].Validate(); err != nil {
				bad[sr.FileName] = multierr.Append(bad[sr.FileName], err)
			}
		}
	}
	for _, rf := range c.Raw {
		for i := range rf.MS1 {
			if rf.MS1[i].MSLevel != 1 {
				bad[rf.FileName] = multierr.Append(bad[rf.FileName],
					fmt.Errorf("scan %d listed as MS1 has ms level %d", rf.MS1[i].ScanNumber, rf.MS1[i].MSLevel))
			}
			if err := rf.MS1[i].Validate(); err != nil {
				bad[rf.FileName] = multierr.Append(bad[rf.FileName], err)
			}
		}
		for i := range rf.MS2 {
			if rf.MS2[i].MSLevel != 2 {
				bad[rf.FileName] = multierr.Append(bad[rf.FileName],
					fmt.Errorf("scan %d listed as MS2 has ms level %d", rf.MS2[i].ScanNumber, rf.MS2[i].MSLevel))
			}
			if err := rf.MS2[i].Validate(); err != nil {
				bad[rf.FileName] = multierr.Append(bad[rf.FileName], err)
			}
		}
		if !scansOrdered(rf.MS1) {
			bad[rf.FileName] = multierr.Append(bad[rf.FileName], fmt.Errorf("MS1 retention times are not monotonic"))
		}
	}

	return c.Exclude(bad)
}

// Exclude returns a corpus without the files named in bad. Each of them is
// reported once as a *FileError carrying its reason, in corpus order first.
func (c Corpus) Exclude(bad map[string]error) (Corpus, error) {
	var out Corpus
	var errs error
	reported := make(map[string]bool)
	report := func(name string) {
		if reported[name] {
			return
		}
		reported[name] = true
		errs = multierr.Append(errs, &FileError{FileName: name, Err: bad[name]})
	}

	for _, sr := range c.Searches {
		if _, ok := bad[sr.FileName]; ok {
			report(sr.FileName)
			continue
		}
		out.Searches = append(out.Searches, sr)
	}
	for _, rf := range c.Raw {
		if _, ok := bad[rf.FileName]; ok {
			report(rf.FileName)
			continue
		}
		out.Raw = append(out.Raw, rf)
	}

	rest := make([]string, 0, len(bad))
	for name := range bad {
		if !reported[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		report(name)
	}
	return out, errs
}

// FileErrors returns the *FileError values combined in err. ok is false
// when err also holds other errors.
func FileErrors(err error) (errs []*FileError, ok bool) {
	ok = true
	for _, e := range multierr.Errors(err) {
		var fe *FileError
		if errors.As(e, &fe) {
			errs = append(errs, fe)
			continue
		}
		ok = false
	}
	return errs, ok
}

func scansOrdered(scans []RawScan) bool {
	for i := 1; i < len(scans); i++ {
		if scans[i].RetentionTime < scans[i-1].RetentionTime {
			return false
		}
	}
	return true
}
