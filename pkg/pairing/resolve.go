package pairing

import (
	"github.com/ChrisMcGann/CitFinder/pkg/core"
)

// Template of the parent scan attached to orphan spectra.
var (
	placeholderMZ        = []float64{100, 300, 500, 700, 900, 1100, 1300}
	placeholderIntensity = []float64{30, 50, 100, 70, 40, 10, 20}
)

const placeholderPrecursorIntensity = 60

// rawIndex gives scan-number lookup into the raw files of a corpus.
type rawIndex struct {
	ms1 map[string]map[int]*core.RawScan
	ms2 map[string]map[int]*core.RawScan
}

func newRawIndex(files []core.RawFile) *rawIndex {
	idx := &rawIndex{
		ms1: make(map[string]map[int]*core.RawScan, len(files)),
		ms2: make(map[string]map[int]*core.RawScan, len(files)),
	}
	for fi := range files {
		f := &files[fi]
		ms1 := make(map[int]*core.RawScan, len(f.MS1))
		for i := range f.MS1 {
			ms1[f.MS1[i].ScanNumber] = &f.MS1[i]
		}
		ms2 := make(map[int]*core.RawScan, len(f.MS2))
		for i := range f.MS2 {
			ms2[f.MS2[i].ScanNumber] = &f.MS2[i]
		}
		idx.ms1[f.FileName] = ms1
		idx.ms2[f.FileName] = ms2
	}
	return idx
}

// resolveMetadata copies retention time, parent scan number and precursor
// m/z from the raw MS2 scan the identification was made on. It reports
// false when the scan is not in the raw data; the precursor m/z is then
// derived from the identified parent mass.
func (idx *rawIndex) resolveMetadata(s *core.Spectrum) bool {
	scan, ok := idx.ms2[s.FileName][s.ID]
	if !ok {
		if s.Ident != nil && s.Charge > 0 {
			z := float64(s.Charge)
			s.PrecursorMZ = (s.Ident.ParentMass + (z-1)*core.ProtonMass) / z
		}
		return false
	}
	s.RetentionTime = scan.RetentionTime
	s.ParentScanNumber = scan.ParentScanNumber
	s.PrecursorMZ = scan.PrecursorMZ
	return true
}

// resolveParent links s to its MS1 scan in the same file. Spectra without
// one are flagged as orphans and get a placeholder parent.
func (idx *rawIndex) resolveParent(s *core.Spectrum) {
	if parent, ok := idx.ms1[s.FileName][s.ParentScanNumber]; ok {
		s.Parent = parent
		s.Orphan = false
		return
	}
	s.Orphan = true
	s.Parent = placeholderParent(s.PrecursorMZ)
}

// placeholderParent builds the flat baseline scan attached to orphans.
func placeholderParent(precursorMZ float64) *core.RawScan {
	peaks := make([]core.Peak, 0, len(placeholderMZ)+1)
	for i, mz := range placeholderMZ {
		peaks = append(peaks, core.Peak{MZ: mz, Intensity: placeholderIntensity[i]})
	}
	peaks = append(peaks, core.Peak{MZ: precursorMZ, Intensity: placeholderPrecursorIntensity})
	core.SortPeaks(peaks)
	return &core.RawScan{MSLevel: 1, Peaks: peaks}
}
