// Package quant computes extracted ion currents for chosen pairings and
// derives the relative citrullination of each site.
package quant

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/ChrisMcGann/CitFinder/pkg/core"
	"github.com/ChrisMcGann/CitFinder/pkg/pairing"
)

// DeviationMode selects which MS1 peaks count towards an XIC.
type DeviationMode string

const (
	// DeviationLiteral counts every peak at or above the precursor m/z.
	DeviationLiteral DeviationMode = "literal"
	// DeviationPPM counts peaks within PPM of the precursor m/z.
	DeviationPPM DeviationMode = "ppm"
)

// ParseDeviationMode converts a configuration value to a DeviationMode.
func ParseDeviationMode(s string) (DeviationMode, error) {
	switch m := DeviationMode(strings.ToLower(strings.TrimSpace(s))); m {
	case DeviationLiteral, DeviationPPM:
		return m, nil
	}
	return "", fmt.Errorf("unknown deviation mode %q (expected %q or %q)", s, DeviationLiteral, DeviationPPM)
}

// Settings configures the XIC computation.
type Settings struct {
	WindowMinutes float64 // half-width of the retention time window
	PPM           float64
	Mode          DeviationMode
}

// Validate checks the settings.
func (s *Settings) Validate() error {
	var errs []string
	if s.WindowMinutes < 0 {
		errs = append(errs, "retention time window must be non-negative")
	}
	if s.PPM < 0 {
		errs = append(errs, "ppm must be non-negative")
	}
	if s.Mode != DeviationLiteral && s.Mode != DeviationPPM {
		errs = append(errs, fmt.Sprintf("unknown deviation mode %q", s.Mode))
	}
	if len(errs) > 0 {
		return &core.ValidationError{Field: "quantification settings", Message: strings.Join(errs, "; ")}
	}
	return nil
}

// Quantifier computes XICs against the MS1 scans of a set of raw files.
type Quantifier struct {
	settings Settings
	ms1      map[string][]core.RawScan
	logger   *zap.Logger
}

// NewQuantifier creates a quantifier over the MS1 scans of raw.
func NewQuantifier(settings Settings, raw []core.RawFile) *Quantifier {
	ms1 := make(map[string][]core.RawScan, len(raw))
	for _, f := range raw {
		ms1[f.FileName] = f.MS1
	}
	return &Quantifier{
		settings: settings,
		ms1:      ms1,
		logger:   zap.NewNop(),
	}
}

// SetLogger sets the logger for warnings.
func (q *Quantifier) SetLogger(l *zap.Logger) {
	q.logger = l
}

// XIC sums the intensities of the MS1 peaks of the spectrum's source file
// that lie within the retention time window and match its precursor m/z.
func (q *Quantifier) XIC(s *core.Spectrum) float64 {
	window := q.settings.WindowMinutes * 60
	var intensities []float64
	for _, scan := range q.ms1[s.FileName] {
		if math.Abs(scan.RetentionTime-s.RetentionTime) > window {
			continue
		}
		for _, p := range scan.Peaks {
			if q.matchesPrecursor(p.MZ, s.PrecursorMZ) {
				intensities = append(intensities, p.Intensity)
			}
		}
	}
	if len(intensities) == 0 {
		return 0
	}
	return floats.Sum(intensities)
}

func (q *Quantifier) matchesPrecursor(mz, precursor float64) bool {
	if q.settings.Mode == DeviationLiteral {
		return precursor-mz <= 0
	}
	return math.Abs(mz-precursor) <= precursor*q.settings.PPM*1e-6
}

// Quantify builds one result per selection, in selection order.
func (q *Quantifier) Quantify(ctx context.Context, selections []pairing.Selection) ([]Result, error) {
	if err := q.settings.Validate(); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(selections))
	for _, sel := range selections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := q.result(sel)
		if err != nil {
			return nil, err
		}
		if !r.PercentDefined {
			q.logger.Warn("citrullination percentage undefined, both XICs are zero",
				zap.String("provenance", r.Provenance.String()),
				zap.String("sequence", r.Sequence),
				zap.String("file", r.CitFileName),
				zap.Int("scan", r.CitSpectrumID))
		}
		results = append(results, r)
	}
	return results, nil
}

func (q *Quantifier) result(sel pairing.Selection) (Result, error) {
	p := sel.Primary
	if p == nil || p.Ident == nil {
		return Result{}, fmt.Errorf("%s selection without identified primary", sel.Provenance)
	}
	if sel.Provenance != pairing.Lone && sel.Complement == nil {
		return Result{}, fmt.Errorf("%s selection %s without complement", sel.Provenance, p.Key())
	}

	r := Result{
		Protein:    StripProteinPrefix(p.Ident.ProteinLabel),
		Sequence:   p.Ident.Sequence,
		Provenance: sel.Provenance,
	}

	switch sel.Provenance {
	case pairing.CitPaired:
		cit, arg := p, sel.Complement
		r.setCit(cit)
		r.setArg(arg)
		r.CitXIC = q.XIC(cit)
		r.ArgXIC = q.XIC(arg)
		r.Score = cit.CitScore
		r.MatchScore = arg.MatchScore
	case pairing.ArgPaired:
		cit, arg := sel.Complement, p
		r.setCit(cit)
		r.setArg(arg)
		r.CitXIC = q.XIC(cit)
		r.ArgXIC = q.XIC(arg)
		r.Score = cit.CitScore
		r.MatchScore = cit.MatchScore
	case pairing.Lone:
		r.setCit(p)
		r.CitXIC = q.XIC(p)
		r.Score = p.CitScore
		r.CitPercent = 100
		r.PercentDefined = true
		return r, nil
	default:
		return Result{}, fmt.Errorf("unknown provenance %d", int(sel.Provenance))
	}

	r.CitPercent, r.PercentDefined = Percent(r.CitXIC, r.ArgXIC)
	return r, nil
}

func (r *Result) setCit(s *core.Spectrum) {
	r.CitFileName = s.FileName
	r.CitRetentionTime = s.RetentionTime
	r.CitCharge = s.Charge
	r.CitSpectrumID = s.ID
}

func (r *Result) setArg(s *core.Spectrum) {
	r.ArgFileName = s.FileName
	r.ArgRetentionTime = s.RetentionTime
	r.ArgCharge = s.Charge
	r.ArgSpectrumID = s.ID
}
