// Package pairing builds the citrullination/arginine correspondences of a
// batch run, scores them and selects the entries to quantify.
package pairing

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ChrisMcGann/CitFinder/pkg/core"
	"github.com/ChrisMcGann/CitFinder/pkg/filter"
	"github.com/ChrisMcGann/CitFinder/pkg/score"
)

// Settings configures a pairing run.
type Settings struct {
	ParentTolerance float64 // Da
	Workers         int     // 0 means GOMAXPROCS
	Filter          filter.Config
	Score           score.Settings
}

// Validate checks the settings before a run.
func (s *Settings) Validate() error {
	var errs []string
	if s.ParentTolerance <= 0 {
		errs = append(errs, "parent tolerance must be positive")
	}
	if s.Workers < 0 {
		errs = append(errs, "workers must be non-negative")
	}
	if s.Filter.TopN < 0 || s.Filter.IntensityCutoff < 0 || s.Filter.IntensityCutoff > 100 {
		errs = append(errs, "filter values out of range")
	}
	if len(errs) > 0 {
		return &core.ValidationError{Field: "pairing settings", Message: strings.Join(errs, "; ")}
	}
	return s.Score.Validate()
}

// Engine runs the five pairing passes over a corpus.
type Engine struct {
	settings Settings
	logger   *zap.Logger
}

// NewEngine creates a new engine with the given settings.
func NewEngine(settings Settings) *Engine {
	return &Engine{
		settings: settings,
		logger:   zap.NewNop(),
	}
}

// SetLogger sets the logger for progress and diagnostic messages.
func (e *Engine) SetLogger(l *zap.Logger) {
	e.logger = l
}

func (e *Engine) workers() int {
	if e.settings.Workers > 0 {
		return e.settings.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Run pairs, scores and ranks the spectra of corpus. Source files with
// malformed records are excluded and logged; the run continues with the
// rest. The corpus is not modified; every spectrum in the returned State is
// a fresh record.
func (e *Engine) Run(ctx context.Context, corpus core.Corpus) (*State, error) {
	if err := e.settings.Validate(); err != nil {
		return nil, err
	}

	corpus, err := corpus.Validate()
	if err != nil {
		excluded, ok := core.FileErrors(err)
		if !ok {
			return nil, err
		}
		for _, fe := range excluded {
			e.logger.Warn("source file excluded", zap.String("file", fe.FileName), zap.Error(fe.Err))
		}
	}

	idx := newRawIndex(corpus.Raw)
	psms, err := collectPSMs(corpus.Searches)
	if err != nil {
		return nil, err
	}
	state := NewState()

	cit, err := e.citrullinationPass(ctx, psms, idx)
	if err != nil {
		return nil, fmt.Errorf("citrullination pass: %w", err)
	}
	e.logger.Info("citrullination pass done", zap.Int("spectra", len(cit)))

	if state.Cit, err = e.complementaryArgininePass(ctx, cit, psms, idx, state.UsedComplements); err != nil {
		return nil, fmt.Errorf("complementary arginine pass: %w", err)
	}
	e.logger.Info("complementary arginine pass done",
		zap.Int("pairs", len(state.Cit)),
		zap.Int("used_complements", len(state.UsedComplements)))

	arg, err := e.argininePass(ctx, psms, idx)
	if err != nil {
		return nil, fmt.Errorf("arginine pass: %w", err)
	}
	e.logger.Info("arginine pass done", zap.Int("spectra", len(arg)))

	if state.Arg, err = e.complementaryCitrullinationPass(ctx, arg, corpus.Raw, idx, state.UsedComplements); err != nil {
		return nil, fmt.Errorf("complementary citrullination pass: %w", err)
	}
	e.logger.Info("complementary citrullination pass done", zap.Int("pairs", len(state.Arg)))

	state.Lone = lonelyPass(cit, state.Cit)
	e.logger.Info("lonely pass done", zap.Int("spectra", len(state.Lone)))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.score(state)
	if e.settings.Score.IncludeCutOff {
		e.applyCutOff(state)
		e.logger.Info("auto cut-off applied",
			zap.Float64("cutoff", e.settings.Score.CutOff),
			zap.Int("cit_chosen", state.ChosenCount(CitPaired)),
			zap.Int("arg_chosen", state.ChosenCount(ArgPaired)),
			zap.Int("lone_chosen", state.ChosenCount(Lone)))
	}
	return state, nil
}

// score computes CitScore and MatchScore for every candidate and ranks the
// tables.
func (e *Engine) score(state *State) {
	st := &e.settings.Score

	for _, pr := range state.Cit {
		score.CitScore(pr.Primary, st)
		pr.Primary.MatchScore = 0
		for _, c := range pr.Complements {
			c.MatchScore = score.MatchScore(pr.Primary, c, pr.Primary.CitIndex, st)
			c.IsoCyanicLossMZ = nil
		}
	}

	for _, pr := range state.Arg {
		pr.Primary.IsoCyanicLossMZ = nil
		for _, c := range pr.Complements {
			score.CitScore(c, st)
			c.MatchScore = score.MatchScore(c, pr.Primary, c.CitIndex, st)
		}
	}

	for _, s := range state.Lone {
		score.CitScore(s, st)
	}

	rank(state)
}

// rank orders the complements of every pairing by MatchScore and the tables
// by primary CitScore, both descending and stable.
func rank(state *State) {
	for _, pr := range state.Cit {
		sortByMatchScore(pr.Complements)
	}
	sort.SliceStable(state.Cit, func(i, j int) bool {
		return state.Cit[i].Primary.CitScore > state.Cit[j].Primary.CitScore
	})

	for _, pr := range state.Arg {
		sortByMatchScore(pr.Complements)
	}
	sort.SliceStable(state.Arg, func(i, j int) bool {
		a, b := state.Arg[i], state.Arg[j]
		if a.Primary.CitScore != b.Primary.CitScore {
			return a.Primary.CitScore > b.Primary.CitScore
		}
		return a.Complements[0].MatchScore > b.Complements[0].MatchScore
	})

	sort.SliceStable(state.Lone, func(i, j int) bool {
		return state.Lone[i].CitScore > state.Lone[j].CitScore
	})
}

func sortByMatchScore(spectra []*core.Spectrum) {
	sort.SliceStable(spectra, func(i, j int) bool {
		return spectra[i].MatchScore > spectra[j].MatchScore
	})
}

// applyCutOff chooses every entry scoring at or above the cut-off.
func (e *Engine) applyCutOff(state *State) {
	cutoff := e.settings.Score.CutOff

	for _, pr := range state.Cit {
		if pr.Primary.CitScore >= cutoff {
			state.chosen[CitPaired][pr.Primary.Key()] = 0
		}
	}
	for _, pr := range state.Arg {
		for i, c := range pr.Complements {
			if c.CitScore >= cutoff {
				state.chosen[ArgPaired][pr.Primary.Key()] = i
				break
			}
		}
	}
	for _, s := range state.Lone {
		if s.CitScore >= cutoff {
			state.chosen[Lone][s.Key()] = -1
		}
	}
}
