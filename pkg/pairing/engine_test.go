package pairing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ChrisMcGann/CitFinder/pkg/core"
	"github.com/ChrisMcGann/CitFinder/pkg/ions"
	"github.com/ChrisMcGann/CitFinder/pkg/score"
)

const testSeq = "PEPRTIDE"

func testSettings() Settings {
	return Settings{
		ParentTolerance: 0.05,
		Workers:         2,
		Score: score.Settings{
			FragmentTolerance:   0.4,
			AIonMatch:           1,
			BIonMatch:           2,
			YIonMatch:           3,
			LossMatchDivider:    2,
			MS1Bonus:            10,
			MS2LossA:            1,
			MS2LossB:            2,
			MS2LossY:            2,
			MS2LossDivider:      2,
			CyanicLossTolerance: score.DefaultCyanicLossTolerance,
			UnidentifiedEValue:  0.05,
			CutOff:              1,
			IncludeCutOff:       true,
		},
	}
}

var citMods = []core.Modification{{Residue: "R", Position: 4, Mass: core.CitrullinationDelta}}

func parentMass(seq string, mods []core.Modification) float64 {
	return core.CalculateNeutralMass(seq, mods) + core.ProtonMass
}

func precursorMZ(parent float64, charge int) float64 {
	z := float64(charge)
	return (parent + (z-1)*core.ProtonMass) / z
}

// ladderPeaks returns peaks at the b and y positions given, taken from the
// ladder of seq with mods.
func ladderPeaks(t *testing.T, seq string, mods []core.Modification, bIdx, yIdx []int) []core.Peak {
	t.Helper()
	ident := core.Identification{Sequence: seq, DomainStart: 1, Modifications: mods}
	modB, modY := ident.ModificationMaps()
	ladder, err := ions.Calculate(seq, modB, modY)
	require.NoError(t, err)

	var peaks []core.Peak
	for _, i := range bIdx {
		peaks = append(peaks, core.Peak{MZ: ladder[core.IonB][i], Intensity: 100})
	}
	for _, i := range yIdx {
		peaks = append(peaks, core.Peak{MZ: ladder[core.IonY][i], Intensity: 80})
	}
	core.SortPeaks(peaks)
	return peaks
}

func psm(t *testing.T, scan string, seq string, mods []core.Modification, evalue float64) core.PSM {
	return core.PSM{
		Identification: core.Identification{
			Sequence:      seq,
			ProteinLabel:  "sp|P12345|TEST_HUMAN",
			DomainStart:   1,
			Modifications: mods,
			ParentMass:    parentMass(seq, mods),
			EValue:        evalue,
			Description:   "run1.mgf Scan " + scan,
		},
		Charge: 2,
		Peaks:  ladderPeaks(t, seq, mods, []int{1, 2, 5}, []int{1, 2, 5}),
	}
}

func pairedCorpus(t *testing.T) core.Corpus {
	citParent := parentMass(testSeq, citMods)
	argParent := parentMass(testSeq, nil)
	citMZ := precursorMZ(citParent, 2)
	argMZ := precursorMZ(argParent, 2)

	return core.Corpus{
		Searches: []core.SearchResult{{
			FileName: "run1.mgf",
			PSMs: []core.PSM{
				psm(t, "10", testSeq, citMods, 0.001),
				psm(t, "20", testSeq, nil, 0.002),
			},
		}},
		Raw: []core.RawFile{{
			FileName: "run1.mgf",
			MS1: []core.RawScan{{
				ScanNumber: 1, MSLevel: 1, RetentionTime: 590,
				Peaks: []core.Peak{
					{MZ: citMZ - core.IsocyanicAcidLoss, Intensity: 5},
					{MZ: argMZ, Intensity: 100},
					{MZ: citMZ, Intensity: 80},
				},
			}},
			MS2: []core.RawScan{
				{ScanNumber: 10, ParentScanNumber: 1, MSLevel: 2, RetentionTime: 600, PrecursorMZ: citMZ, Charge: 2},
				{ScanNumber: 20, ParentScanNumber: 1, MSLevel: 2, RetentionTime: 630, PrecursorMZ: argMZ, Charge: 2},
			},
		}},
	}
}

func TestEndToEndPairing(t *testing.T) {
	corpus := pairedCorpus(t)
	engine := NewEngine(testSettings())
	engine.SetLogger(zaptest.NewLogger(t))

	state, err := engine.Run(context.Background(), corpus)
	require.NoError(t, err)

	require.Len(t, state.Cit, 1)
	pr := state.Cit[0]
	assert.Equal(t, core.Key{File: "run1.mgf", ID: 10}, pr.Primary.Key())
	assert.False(t, pr.Primary.Orphan)
	assert.Equal(t, 600.0, pr.Primary.RetentionTime)
	assert.Equal(t, 3, pr.Primary.CitIndex)

	require.Len(t, pr.Complements, 1)
	comp := pr.Complements[0]
	assert.Equal(t, core.Key{File: "run1.mgf", ID: 20}, comp.Key())
	assert.Equal(t, core.KindIdentified, comp.Kind())
	assert.True(t, state.UsedComplements[comp.Key()])

	// MS1 isocyanic loss, no MS2 losses, -log10(0.001)
	assert.Equal(t, 13.0, pr.Primary.CitScore)
	assert.Greater(t, comp.MatchScore, 0.0)

	// An unrelated candidate does not reproduce the shift pattern.
	unrelated := &core.Spectrum{
		Ident: &core.Identification{Sequence: "GASVLWK"},
		Peaks: ladderPeaks(t, "GASVLWK", nil, []int{1, 2, 5}, []int{1, 2, 5}),
	}
	require.NoError(t, ions.Annotate(unrelated, 0.4))
	st := testSettings().Score
	unrelatedScore := score.MatchScore(pr.Primary, unrelated, pr.Primary.CitIndex, &st)
	assert.Greater(t, comp.MatchScore, unrelatedScore)

	assert.Empty(t, state.Lone)
	assert.Empty(t, state.Arg)

	idx, ok := state.ChosenComplementIndex(CitPaired, pr.Primary.Key())
	assert.True(t, ok)
	assert.Equal(t, 0, idx)
	sel := state.Selections()
	require.Len(t, sel, 1)
	assert.Same(t, comp, sel[0].Complement)
}

func TestRunIsDeterministic(t *testing.T) {
	corpus := pairedCorpus(t)
	engine := NewEngine(testSettings())

	first, err := engine.Run(context.Background(), corpus)
	require.NoError(t, err)
	second, err := engine.Run(context.Background(), corpus)
	require.NoError(t, err)

	require.Len(t, second.Cit, len(first.Cit))
	for i := range first.Cit {
		assert.Equal(t, first.Cit[i].Primary.CitScore, second.Cit[i].Primary.CitScore)
		for j := range first.Cit[i].Complements {
			assert.Equal(t, first.Cit[i].Complements[j].MatchScore, second.Cit[i].Complements[j].MatchScore)
		}
		assert.NotSame(t, first.Cit[i].Primary, second.Cit[i].Primary)
	}
}

func TestComplementaryCitrullinationPass(t *testing.T) {
	argParent := parentMass(testSeq, nil)
	candidateMZ := precursorMZ(argParent+core.CitrullinationDelta, 2)

	argLadder, err := ions.Calculate(testSeq, nil, nil)
	require.NoError(t, err)
	citLadder, _ := ions.PotentialCitrullination(argLadder, testSeq)

	corpus := core.Corpus{
		Searches: []core.SearchResult{{
			FileName: "run1.mgf",
			PSMs:     []core.PSM{psm(t, "20", testSeq, nil, 0.002)},
		}},
		Raw: []core.RawFile{
			{
				FileName: "run1.mgf",
				MS1:      []core.RawScan{{ScanNumber: 1, MSLevel: 1, RetentionTime: 590, Peaks: []core.Peak{{MZ: 400, Intensity: 10}}}},
				MS2: []core.RawScan{
					{ScanNumber: 20, ParentScanNumber: 1, MSLevel: 2, RetentionTime: 630, PrecursorMZ: precursorMZ(argParent, 2), Charge: 2},
				},
			},
			{
				FileName: "run2.mgf",
				MS1:      []core.RawScan{{ScanNumber: 1, MSLevel: 1, RetentionTime: 700, Peaks: []core.Peak{{MZ: 400, Intensity: 10}}}},
				MS2: []core.RawScan{{
					ScanNumber: 30, ParentScanNumber: 1, MSLevel: 2, RetentionTime: 710, PrecursorMZ: candidateMZ, Charge: 2,
					Peaks: []core.Peak{
						{MZ: citLadder[core.IonB][1], Intensity: 10},
						{MZ: citLadder[core.IonB][5], Intensity: 200},
						{MZ: citLadder[core.IonY][5], Intensity: 50},
						{MZ: 1200, Intensity: 1},
					},
				}},
			},
		},
	}

	state, err := NewEngine(testSettings()).Run(context.Background(), corpus)
	require.NoError(t, err)

	require.Len(t, state.Arg, 1)
	pr := state.Arg[0]
	assert.Equal(t, core.Key{File: "run1.mgf", ID: 20}, pr.Primary.Key())
	require.Len(t, pr.Complements, 1)

	cand := pr.Complements[0]
	assert.Equal(t, core.KindRaw, cand.Kind())
	assert.Equal(t, core.Key{File: "run2.mgf", ID: 30}, cand.Key())
	assert.Equal(t, testSeq, cand.Sequence())
	assert.Equal(t, 3, cand.CitIndex)
	assert.False(t, cand.Orphan)

	// normalized to percent of max, the 0.5% peak rounds to zero and is dropped
	assert.Equal(t, []core.Peak{
		{MZ: citLadder[core.IonB][1], Intensity: 5},
		{MZ: citLadder[core.IonB][5], Intensity: 100},
		{MZ: citLadder[core.IonY][5], Intensity: 25},
	}, cand.Peaks)

	assert.Equal(t, 1.3, cand.CitScore)
	assert.Greater(t, cand.MatchScore, 0.0)

	idx, ok := state.ChosenComplementIndex(ArgPaired, pr.Primary.Key())
	assert.True(t, ok)
	assert.Equal(t, 0, idx)

	// raw input untouched
	assert.Equal(t, 200.0, corpus.Raw[1].MS2[0].Peaks[1].Intensity)
}

func TestLonelyPassAndOrphans(t *testing.T) {
	corpus := core.Corpus{
		Searches: []core.SearchResult{{
			FileName: "run1.mgf",
			PSMs:     []core.PSM{psm(t, "10", testSeq, citMods, 0.01)},
		}},
	}

	state, err := NewEngine(testSettings()).Run(context.Background(), corpus)
	require.NoError(t, err)

	assert.Empty(t, state.Cit)
	require.Len(t, state.Lone, 1)
	lone := state.Lone[0]
	assert.True(t, lone.Orphan)
	require.NotNil(t, lone.Parent)
	assert.Len(t, lone.Parent.Peaks, 8)
	assert.True(t, core.ArePeaksSorted(lone.Parent.Peaks))
	assert.InDelta(t, precursorMZ(parentMass(testSeq, citMods), 2), lone.PrecursorMZ, 1e-9)

	// -log10(0.01)
	assert.Equal(t, 2.0, lone.CitScore)
	assert.True(t, state.IsChosen(Lone, lone.Key()))
}

func TestRunRejectsInvalidSettings(t *testing.T) {
	settings := testSettings()
	settings.ParentTolerance = 0

	_, err := NewEngine(settings).Run(context.Background(), core.Corpus{})
	assert.Error(t, err)
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine(testSettings()).Run(ctx, pairedCorpus(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChooseAndUnchoose(t *testing.T) {
	settings := testSettings()
	settings.Score.IncludeCutOff = false

	state, err := NewEngine(settings).Run(context.Background(), pairedCorpus(t))
	require.NoError(t, err)
	key := state.Cit[0].Primary.Key()

	assert.False(t, state.IsChosen(CitPaired, key))
	assert.Empty(t, state.Selections())

	require.NoError(t, state.Choose(CitPaired, key, 0))
	assert.True(t, state.IsChosen(CitPaired, key))
	assert.Len(t, state.Selections(), 1)

	assert.Error(t, state.Choose(CitPaired, key, 5))
	assert.Error(t, state.Choose(ArgPaired, key, 0))
	assert.Error(t, state.Choose(Lone, key, 0))

	state.Unchoose(CitPaired, key)
	assert.False(t, state.IsChosen(CitPaired, key))
	_, ok := state.ChosenComplementIndex(CitPaired, key)
	assert.False(t, ok)
}

func TestProvenanceString(t *testing.T) {
	assert.Equal(t, "Cit-paired", CitPaired.String())
	assert.Equal(t, "Arg-paired", ArgPaired.String())
	assert.Equal(t, "Lone", Lone.String())
}

func scored(file string, id int, citScore, matchScore float64) *core.Spectrum {
	return &core.Spectrum{FileName: file, ID: id, CitIndex: 3, CitScore: citScore, MatchScore: matchScore}
}

func ids(spectra []*core.Spectrum) []int {
	out := make([]int, len(spectra))
	for i, s := range spectra {
		out[i] = s.ID
	}
	return out
}

func primaryIDs(pairs []Pairing) []int {
	out := make([]int, len(pairs))
	for i, pr := range pairs {
		out[i] = pr.Primary.ID
	}
	return out
}

func TestRankOrdersTablesAndComplements(t *testing.T) {
	state := NewState()
	state.Cit = []Pairing{
		{Primary: scored("run1.mgf", 1, 5, 0), Complements: []*core.Spectrum{
			scored("run1.mgf", 11, 0, 2), scored("run1.mgf", 12, 0, 7), scored("run1.mgf", 13, 0, 7),
		}},
		{Primary: scored("run1.mgf", 2, 12, 0), Complements: []*core.Spectrum{
			scored("run1.mgf", 21, 0, 1), scored("run1.mgf", 22, 0, 3),
		}},
		{Primary: scored("run1.mgf", 3, 5, 0), Complements: []*core.Spectrum{
			scored("run1.mgf", 31, 0, 4),
		}},
	}
	state.Arg = []Pairing{
		{Primary: scored("run1.mgf", 40, 0, 0), Complements: []*core.Spectrum{
			scored("run2.mgf", 41, 2, 1), scored("run2.mgf", 42, 2, 4),
		}},
		{Primary: scored("run1.mgf", 50, 0, 0), Complements: []*core.Spectrum{
			scored("run2.mgf", 51, 2, 6), scored("run2.mgf", 52, 2, 2),
		}},
	}
	state.Lone = []*core.Spectrum{
		scored("run1.mgf", 60, 2, 0),
		scored("run1.mgf", 61, 9, 0),
		scored("run1.mgf", 62, 2, 0),
	}

	rank(state)

	// equal CitScores keep their input order
	assert.Equal(t, []int{2, 1, 3}, primaryIDs(state.Cit))
	assert.Equal(t, []int{22, 21}, ids(state.Cit[0].Complements))
	assert.Equal(t, []int{12, 13, 11}, ids(state.Cit[1].Complements))

	// arginine primaries tie on CitScore and fall back to the best complement
	assert.Equal(t, []int{50, 40}, primaryIDs(state.Arg))
	assert.Equal(t, []int{51, 52}, ids(state.Arg[0].Complements))
	assert.Equal(t, []int{42, 41}, ids(state.Arg[1].Complements))

	assert.Equal(t, []int{61, 60, 62}, ids(state.Lone))
}

func TestApplyCutOff(t *testing.T) {
	state := NewState()
	state.Cit = []Pairing{
		{Primary: scored("run1.mgf", 1, 10, 0), Complements: []*core.Spectrum{scored("run1.mgf", 11, 0, 5), scored("run1.mgf", 12, 0, 3)}},
		{Primary: scored("run1.mgf", 2, 9.9, 0), Complements: []*core.Spectrum{scored("run1.mgf", 21, 0, 5)}},
	}
	state.Arg = []Pairing{
		{Primary: scored("run1.mgf", 30, 0, 0), Complements: []*core.Spectrum{
			scored("run2.mgf", 31, 3, 8), scored("run2.mgf", 32, 10, 5), scored("run2.mgf", 33, 12, 1),
		}},
		{Primary: scored("run1.mgf", 40, 0, 0), Complements: []*core.Spectrum{
			scored("run2.mgf", 41, 4, 8), scored("run2.mgf", 42, 9.9, 2),
		}},
	}
	state.Lone = []*core.Spectrum{scored("run1.mgf", 50, 10, 0), scored("run1.mgf", 51, 9.9, 0)}

	settings := testSettings()
	settings.Score.CutOff = 10
	NewEngine(settings).applyCutOff(state)

	tests := []struct {
		name       string
		provenance Provenance
		key        core.Key
		wantChosen bool
		wantIndex  int
	}{
		{"cit primary at cut-off", CitPaired, core.Key{File: "run1.mgf", ID: 1}, true, 0},
		{"cit primary below cut-off", CitPaired, core.Key{File: "run1.mgf", ID: 2}, false, 0},
		{"first qualifying arg candidate", ArgPaired, core.Key{File: "run1.mgf", ID: 30}, true, 1},
		{"no qualifying arg candidate", ArgPaired, core.Key{File: "run1.mgf", ID: 40}, false, 0},
		{"lone at cut-off", Lone, core.Key{File: "run1.mgf", ID: 50}, true, -1},
		{"lone below cut-off", Lone, core.Key{File: "run1.mgf", ID: 51}, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, ok := state.ChosenComplementIndex(tt.provenance, tt.key)
			assert.Equal(t, tt.wantChosen, ok)
			if tt.wantChosen {
				assert.Equal(t, tt.wantIndex, idx)
			}
		})
	}

	sel := state.Selections()
	require.Len(t, sel, 3)
	assert.Same(t, state.Cit[0].Complements[0], sel[0].Complement)
	assert.Same(t, state.Arg[0].Complements[1], sel[1].Complement)
	assert.Nil(t, sel[2].Complement)
}

func TestRunExcludesMalformedFiles(t *testing.T) {
	corpus := pairedCorpus(t)
	bad := psm(t, "11", testSeq, citMods, 0.001)
	bad.Description = "no scan here"
	corpus.Searches = append(corpus.Searches, core.SearchResult{FileName: "bad.mgf", PSMs: []core.PSM{bad}})

	engine := NewEngine(testSettings())
	observed, logs := observer.New(zap.WarnLevel)
	engine.SetLogger(zap.New(observed))

	state, err := engine.Run(context.Background(), corpus)
	require.NoError(t, err)

	require.Len(t, state.Cit, 1)
	assert.Equal(t, core.Key{File: "run1.mgf", ID: 10}, state.Cit[0].Primary.Key())

	excluded := logs.FilterMessage("source file excluded").All()
	require.Len(t, excluded, 1)
	assert.Equal(t, "bad.mgf", excluded[0].ContextMap()["file"])
}
