// Package core provides the intermediate representation (IR) models and validation logic
// for identified and raw tandem mass spectra used by CitFinder.
package core

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Peak represents a single m/z, intensity pair.
type Peak struct {
	MZ        float64
	Intensity float64
}

// Kind distinguishes identified spectra from raw (unidentified) ones.
type Kind int

const (
	KindIdentified Kind = iota
	KindRaw
)

func (k Kind) String() string {
	if k == KindRaw {
		return "raw"
	}
	return "identified"
}

// Key identifies a spectrum across source files. Scan numbers are only
// unique within one file.
type Key struct {
	File string
	ID   int
}

func (k Key) String() string {
	return fmt.Sprintf("%s#%d", k.File, k.ID)
}

// Spectrum is an MS2 spectrum annotated by the engine. Identified spectra
// carry an Identification; raw spectra have Ident == nil and are scored
// against the sequence of their arginine partner (LadderSequence).
type Spectrum struct {
	ID               int
	FileName         string
	Charge           int
	RetentionTime    float64 // seconds
	PrecursorMZ      float64
	ParentScanNumber int
	Peaks            []Peak

	Ident          *Identification
	LadderSequence string

	// Derived by the ion calculator and matcher
	Ladder  Ladder
	Matches IonMatches
	ModB    map[int]float64 // N-terminal ladder index -> mass delta
	ModY    map[int]float64 // C-terminal ladder index -> mass delta

	// CitIndex is the sequence position of the (hypothesized) citrulline, or -1.
	CitIndex int

	Parent *RawScan
	Orphan bool

	CitScore        float64
	MatchScore      float64
	IsoCyanicMZMS1  float64 // -1 when no MS1 isocyanic loss was found
	IsoCyanicLossMZ []float64
}

// Kind reports whether the spectrum is identified or raw.
func (s *Spectrum) Kind() Kind {
	if s.Ident == nil {
		return KindRaw
	}
	return KindIdentified
}

// Sequence returns the identified domain sequence, or the hypothesized one
// for raw spectra.
func (s *Spectrum) Sequence() string {
	if s.Ident != nil {
		return s.Ident.Sequence
	}
	return s.LadderSequence
}

// Key returns the file-qualified identity of the spectrum.
func (s *Spectrum) Key() Key {
	return Key{File: s.FileName, ID: s.ID}
}

// ParentMass returns the identified parent mass (M+H), or the value derived
// from the precursor m/z and charge for raw spectra.
func (s *Spectrum) ParentMass() float64 {
	if s.Ident != nil {
		return s.Ident.ParentMass
	}
	return NeutralMassFromMZ(s.PrecursorMZ, s.Charge)
}

// MZValues returns the peak m/z values in peak order.
func (s *Spectrum) MZValues() []float64 {
	mz := make([]float64, len(s.Peaks))
	for i, p := range s.Peaks {
		mz[i] = p.MZ
	}
	return mz
}

// RawScan is a scan as delivered by the raw-file collaborator. MS1 and MS2
// scans share the shape and differ by MSLevel.
type RawScan struct {
	ScanNumber       int
	ParentScanNumber int
	MSLevel          int
	RetentionTime    float64 // seconds
	PrecursorMZ      float64
	Charge           int
	Peaks            []Peak
}

// ArePeaksSorted checks if peaks are sorted by m/z in ascending order.
func ArePeaksSorted(peaks []Peak) bool {
	for i := 1; i < len(peaks); i++ {
		if peaks[i].MZ < peaks[i-1].MZ {
			return false
		}
	}
	return true
}

// SortPeaks sorts peaks by m/z in ascending order.
func SortPeaks(peaks []Peak) {
	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].MZ < peaks[j].MZ
	})
}

// ValidationError represents an error found during record validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

func validatePeaks(peaks []Peak) []string {
	var errs []string
	for i, peak := range peaks {
		if math.IsNaN(peak.MZ) || math.IsInf(peak.MZ, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid m/z", i))
		}
		if math.IsNaN(peak.Intensity) || math.IsInf(peak.Intensity, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid intensity", i))
		}
		if peak.MZ <= 0 {
			errs = append(errs, fmt.Sprintf("peak %d m/z must be positive", i))
		}
		if peak.Intensity < 0 {
			errs = append(errs, fmt.Sprintf("peak %d intensity must be non-negative", i))
		}
	}
	return errs
}

// Validate checks that a raw scan meets all requirements for processing.
func (r *RawScan) Validate() error {
	var errs []string

	if r.MSLevel != 1 && r.MSLevel != 2 {
		errs = append(errs, fmt.Sprintf("unsupported ms level %d", r.MSLevel))
	}
	if r.MSLevel == 2 && r.Charge <= 0 {
		errs = append(errs, "charge must be positive")
	}
	if math.IsNaN(r.RetentionTime) || r.RetentionTime < 0 {
		errs = append(errs, "retention time must be non-negative")
	}
	errs = append(errs, validatePeaks(r.Peaks)...)
	if !ArePeaksSorted(r.Peaks) {
		errs = append(errs, "peaks must be sorted by m/z")
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   fmt.Sprintf("RawScan %d", r.ScanNumber),
			Message: strings.Join(errs, "; "),
		}
	}
	return nil
}

// ParseScanID extracts the instrument scan number from a search-engine
// descriptor: the last space separated token of the first ';' separated
// field, e.g. "File: run1.mgf Scan 1234; RT 12.3" -> 1234.
func ParseScanID(description string) (int, error) {
	first, _, _ := strings.Cut(description, ";")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty scan descriptor")
	}
	id, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return 0, fmt.Errorf("invalid scan number in descriptor %q: %w", description, err)
	}
	return id, nil
}
