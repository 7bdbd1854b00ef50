package pairing

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ChrisMcGann/CitFinder/pkg/core"
	"github.com/ChrisMcGann/CitFinder/pkg/filter"
	"github.com/ChrisMcGann/CitFinder/pkg/ions"
)

// psmRef is an identified PSM together with its source file and scan number.
type psmRef struct {
	file string
	id   int
	psm  *core.PSM
}

func (r psmRef) key() core.Key {
	return core.Key{File: r.file, ID: r.id}
}

func collectPSMs(searches []core.SearchResult) ([]psmRef, error) {
	var refs []psmRef
	for si := range searches {
		sr := &searches[si]
		for i := range sr.PSMs {
			id, err := sr.PSMs[i].ScanID()
			if err != nil {
				return nil, fmt.Errorf("file %s: %w", sr.FileName, err)
			}
			refs = append(refs, psmRef{file: sr.FileName, id: id, psm: &sr.PSMs[i]})
		}
	}
	return refs, nil
}

// parallel runs fn for every index in [0, n) on at most e.workers()
// goroutines. fn must only write to its own slot.
func (e *Engine) parallel(ctx context.Context, n int, fn func(i int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(i)
		})
	}
	return g.Wait()
}

// selectPSMs returns the PSMs accepted by keep, first occurrence per scan.
func selectPSMs(psms []psmRef, keep func(*core.PSM) bool) []psmRef {
	var out []psmRef
	seen := make(map[core.Key]bool)
	for _, r := range psms {
		if !keep(r.psm) || seen[r.key()] {
			continue
		}
		seen[r.key()] = true
		out = append(out, r)
	}
	return out
}

// identifiedSpectrum builds a fresh spectrum record for an identified PSM,
// resolves its raw metadata and parent scan, and matches its ladder.
func (e *Engine) identifiedSpectrum(r psmRef, idx *rawIndex, citrullinated bool) (*core.Spectrum, error) {
	ident := &r.psm.Identification
	modB, modY := ident.ModificationMaps()
	s := &core.Spectrum{
		ID:       r.id,
		FileName: r.file,
		Charge:   r.psm.Charge,
		Peaks:    r.psm.Peaks,
		Ident:    ident,
		ModB:     modB,
		ModY:     modY,
	}
	if citrullinated {
		s.CitIndex = ident.CitrullinationIndex()
	} else {
		s.CitIndex = strings.Index(ident.Sequence, core.CitrullinationResidue)
	}

	if !idx.resolveMetadata(s) {
		e.logger.Warn("identified scan not found in raw data",
			zap.String("file", r.file), zap.Int("scan", r.id))
	}
	idx.resolveParent(s)
	if s.Orphan {
		e.logger.Debug("orphan spectrum",
			zap.String("file", r.file), zap.Int("scan", r.id),
			zap.Int("parent_scan", s.ParentScanNumber))
	}

	if err := ions.Annotate(s, e.settings.Score.FragmentTolerance); err != nil {
		return nil, fmt.Errorf("spectrum %s: %w", s.Key(), err)
	}
	return s, nil
}

func (e *Engine) buildIdentified(ctx context.Context, refs []psmRef, idx *rawIndex, citrullinated bool) ([]*core.Spectrum, error) {
	out := make([]*core.Spectrum, len(refs))
	err := e.parallel(ctx, len(refs), func(i int) error {
		s, err := e.identifiedSpectrum(refs[i], idx, citrullinated)
		if err != nil {
			return err
		}
		out[i] = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// citrullinationPass selects every PSM carrying a citrullinated arginine.
func (e *Engine) citrullinationPass(ctx context.Context, psms []psmRef, idx *rawIndex) ([]*core.Spectrum, error) {
	refs := selectPSMs(psms, func(p *core.PSM) bool {
		return p.HasCitrullination()
	})
	return e.buildIdentified(ctx, refs, idx, true)
}

// complementaryArgininePass finds, for every citrullinated spectrum, the
// identified spectra of the same sequence whose parent mass is lighter by
// the citrullination delta. Spectra without complement are left out.
func (e *Engine) complementaryArgininePass(ctx context.Context, cit []*core.Spectrum, psms []psmRef, idx *rawIndex, used map[core.Key]bool) ([]Pairing, error) {
	tol := e.settings.ParentTolerance
	var pairs []Pairing

	for _, primary := range cit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		target := primary.ParentMass() - core.CitrullinationDelta
		refs := selectPSMs(psms, func(p *core.PSM) bool {
			return p.Sequence == primary.Sequence() && math.Abs(p.ParentMass-target) <= tol
		})
		if len(refs) == 0 {
			continue
		}

		complements := make([]*core.Spectrum, 0, len(refs))
		for _, r := range refs {
			s, err := e.identifiedSpectrum(r, idx, false)
			if err != nil {
				return nil, err
			}
			complements = append(complements, s)
			used[r.key()] = true
		}
		pairs = append(pairs, Pairing{Primary: primary, Complements: complements})
	}
	return pairs, nil
}

// argininePass selects every PSM whose sequence holds an unmodified arginine.
func (e *Engine) argininePass(ctx context.Context, psms []psmRef, idx *rawIndex) ([]*core.Spectrum, error) {
	refs := selectPSMs(psms, func(p *core.PSM) bool {
		return strings.Contains(p.Sequence, core.CitrullinationResidue) && !p.HasCitrullination()
	})
	return e.buildIdentified(ctx, refs, idx, false)
}

// complementaryCitrullinationPass searches the raw MS2 scans of all files for
// unidentified candidates of the citrullinated form of every arginine
// spectrum not already consumed as a complement.
func (e *Engine) complementaryCitrullinationPass(ctx context.Context, arg []*core.Spectrum, raw []core.RawFile, idx *rawIndex, used map[core.Key]bool) ([]Pairing, error) {
	var open []*core.Spectrum
	for _, s := range arg {
		if !used[s.Key()] {
			open = append(open, s)
		}
	}

	slots := make([][]*core.Spectrum, len(open))
	err := e.parallel(ctx, len(open), func(i int) error {
		slots[i] = e.rawCandidates(open[i], raw, idx)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var pairs []Pairing
	for i, primary := range open {
		if len(slots[i]) == 0 {
			continue
		}
		pairs = append(pairs, Pairing{Primary: primary, Complements: slots[i]})
	}
	return pairs, nil
}

// rawCandidates returns a fresh record for every raw MS2 scan whose parent
// mass, less the citrullination delta, matches the arginine spectrum.
func (e *Engine) rawCandidates(arg *core.Spectrum, raw []core.RawFile, idx *rawIndex) []*core.Spectrum {
	tol := e.settings.ParentTolerance
	argMass := arg.ParentMass()
	citLadder, citIndex := ions.PotentialCitrullination(arg.Ladder, arg.Sequence())

	var out []*core.Spectrum
	for fi := range raw {
		f := &raw[fi]
		for si := range f.MS2 {
			scan := &f.MS2[si]
			mass := core.NeutralMassFromMZ(scan.PrecursorMZ, scan.Charge) - core.CitrullinationDelta
			if math.Abs(argMass-mass) > tol {
				continue
			}

			peaks := scan.Peaks
			if e.settings.Filter.Enabled() {
				peaks = e.settings.Filter.Apply(peaks)
			}
			peaks = filter.NormalizeRelative(peaks)

			s := &core.Spectrum{
				ID:               scan.ScanNumber,
				FileName:         f.FileName,
				Charge:           scan.Charge,
				RetentionTime:    scan.RetentionTime,
				PrecursorMZ:      scan.PrecursorMZ,
				ParentScanNumber: scan.ParentScanNumber,
				Peaks:            peaks,
				LadderSequence:   arg.Sequence(),
				Ladder:           citLadder,
				CitIndex:         citIndex,
			}
			s.Matches = ions.Match(s.Peaks, &s.Ladder, e.settings.Score.FragmentTolerance)
			idx.resolveParent(s)
			out = append(out, s)
		}
	}
	return out
}

// lonelyPass returns the citrullinated spectra that found no complement.
func lonelyPass(cit []*core.Spectrum, pairs []Pairing) []*core.Spectrum {
	paired := make(map[core.Key]bool, len(pairs))
	for _, pr := range pairs {
		paired[pr.Primary.Key()] = true
	}
	var lone []*core.Spectrum
	for _, s := range cit {
		if !paired[s.Key()] {
			lone = append(lone, s)
		}
	}
	return lone
}
