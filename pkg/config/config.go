// Package config loads the settings of a CitFinder run through viper and
// converts them into the plain settings structs of the pipeline packages.
package config

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/ChrisMcGann/CitFinder/pkg/filter"
	"github.com/ChrisMcGann/CitFinder/pkg/pairing"
	"github.com/ChrisMcGann/CitFinder/pkg/quant"
	"github.com/ChrisMcGann/CitFinder/pkg/score"
)

// Config is the complete configuration of a run.
type Config struct {
	Tolerance      Tolerance      `mapstructure:"tolerance" yaml:"tolerance"`
	Scoring        Scoring        `mapstructure:"scoring" yaml:"scoring"`
	Filter         Filter         `mapstructure:"filter" yaml:"filter"`
	Quantification Quantification `mapstructure:"quantification" yaml:"quantification"`
	Input          Input          `mapstructure:"input" yaml:"input"`
	Output         Output         `mapstructure:"output" yaml:"output"`
	Workers        int            `mapstructure:"workers" yaml:"workers"`
}

// Tolerance holds the mass tolerances in Da.
type Tolerance struct {
	Fragment float64 `mapstructure:"fragment" yaml:"fragment"`
	Parent   float64 `mapstructure:"parent" yaml:"parent"`
}

// Scoring holds the CitScore and MatchScore weights.
type Scoring struct {
	AIonMatch           float64 `mapstructure:"a_ion_match" yaml:"a_ion_match"`
	BIonMatch           float64 `mapstructure:"b_ion_match" yaml:"b_ion_match"`
	YIonMatch           float64 `mapstructure:"y_ion_match" yaml:"y_ion_match"`
	LossMatchDivider    float64 `mapstructure:"loss_match_divider" yaml:"loss_match_divider"`
	MS1Bonus            float64 `mapstructure:"ms1_bonus" yaml:"ms1_bonus"`
	MS2LossA            float64 `mapstructure:"ms2_loss_a" yaml:"ms2_loss_a"`
	MS2LossB            float64 `mapstructure:"ms2_loss_b" yaml:"ms2_loss_b"`
	MS2LossY            float64 `mapstructure:"ms2_loss_y" yaml:"ms2_loss_y"`
	MS2LossDivider      float64 `mapstructure:"ms2_loss_divider" yaml:"ms2_loss_divider"`
	CyanicLossTolerance float64 `mapstructure:"cyanic_loss_tolerance" yaml:"cyanic_loss_tolerance"`
	UnidentifiedEValue  float64 `mapstructure:"unidentified_evalue" yaml:"unidentified_evalue"`
	CutOff              float64 `mapstructure:"cutoff" yaml:"cutoff"`
	IncludeCutOff       bool    `mapstructure:"include_cutoff" yaml:"include_cutoff"`
}

// Filter configures the optional preprocessing of raw candidate peaks.
type Filter struct {
	TopN            int     `mapstructure:"top_n" yaml:"top_n"`
	IntensityCutoff float64 `mapstructure:"intensity_cutoff" yaml:"intensity_cutoff"`
}

// Quantification configures the XIC computation.
type Quantification struct {
	WindowMinutes float64 `mapstructure:"window_minutes" yaml:"window_minutes"`
	PPM           float64 `mapstructure:"ppm" yaml:"ppm"`
	Deviation     string  `mapstructure:"deviation" yaml:"deviation"`
}

// Input configures optional input side files.
type Input struct {
	ModificationsCSV string `mapstructure:"modifications_csv" yaml:"modifications_csv"`
}

// Output names the result sinks. Empty paths are skipped.
type Output struct {
	SQLite string `mapstructure:"sqlite" yaml:"sqlite"`
	DuckDB string `mapstructure:"duckdb" yaml:"duckdb"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Tolerance: Tolerance{Fragment: 0.4, Parent: 0.05},
		Scoring: Scoring{
			AIonMatch:           1,
			BIonMatch:           2,
			YIonMatch:           2,
			LossMatchDivider:    2,
			MS1Bonus:            10,
			MS2LossA:            1,
			MS2LossB:            2,
			MS2LossY:            2,
			MS2LossDivider:      2,
			CyanicLossTolerance: score.DefaultCyanicLossTolerance,
			UnidentifiedEValue:  0.05,
			CutOff:              10,
			IncludeCutOff:       true,
		},
		Quantification: Quantification{
			WindowMinutes: 5,
			PPM:           10,
			Deviation:     string(quant.DeviationPPM),
		},
	}
}

// SetDefaults registers every default value with v so that Load, the
// config command and flag bindings all see the full key set.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("tolerance.fragment", d.Tolerance.Fragment)
	v.SetDefault("tolerance.parent", d.Tolerance.Parent)

	v.SetDefault("scoring.a_ion_match", d.Scoring.AIonMatch)
	v.SetDefault("scoring.b_ion_match", d.Scoring.BIonMatch)
	v.SetDefault("scoring.y_ion_match", d.Scoring.YIonMatch)
	v.SetDefault("scoring.loss_match_divider", d.Scoring.LossMatchDivider)
	v.SetDefault("scoring.ms1_bonus", d.Scoring.MS1Bonus)
	v.SetDefault("scoring.ms2_loss_a", d.Scoring.MS2LossA)
	v.SetDefault("scoring.ms2_loss_b", d.Scoring.MS2LossB)
	v.SetDefault("scoring.ms2_loss_y", d.Scoring.MS2LossY)
	v.SetDefault("scoring.ms2_loss_divider", d.Scoring.MS2LossDivider)
	v.SetDefault("scoring.cyanic_loss_tolerance", d.Scoring.CyanicLossTolerance)
	v.SetDefault("scoring.unidentified_evalue", d.Scoring.UnidentifiedEValue)
	v.SetDefault("scoring.cutoff", d.Scoring.CutOff)
	v.SetDefault("scoring.include_cutoff", d.Scoring.IncludeCutOff)

	v.SetDefault("filter.top_n", d.Filter.TopN)
	v.SetDefault("filter.intensity_cutoff", d.Filter.IntensityCutoff)

	v.SetDefault("quantification.window_minutes", d.Quantification.WindowMinutes)
	v.SetDefault("quantification.ppm", d.Quantification.PPM)
	v.SetDefault("quantification.deviation", d.Quantification.Deviation)

	v.SetDefault("input.modifications_csv", d.Input.ModificationsCSV)
	v.SetDefault("output.sqlite", d.Output.SQLite)
	v.SetDefault("output.duckdb", d.Output.DuckDB)
	v.SetDefault("workers", d.Workers)
}

// Load decodes the settings held by v and validates them.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the pairing and quantification settings derived from c
// and reports all problems at once.
func (c *Config) Validate() error {
	ps := c.PairingSettings()
	err := ps.Validate()

	qs, qerr := c.QuantSettings()
	if qerr == nil {
		qerr = qs.Validate()
	}
	return multierr.Append(err, qerr)
}

// PairingSettings returns the settings of the pairing engine.
func (c *Config) PairingSettings() pairing.Settings {
	return pairing.Settings{
		ParentTolerance: c.Tolerance.Parent,
		Workers:         c.Workers,
		Filter: filter.Config{
			TopN:            c.Filter.TopN,
			IntensityCutoff: c.Filter.IntensityCutoff,
		},
		Score: score.Settings{
			FragmentTolerance:   c.Tolerance.Fragment,
			AIonMatch:           c.Scoring.AIonMatch,
			BIonMatch:           c.Scoring.BIonMatch,
			YIonMatch:           c.Scoring.YIonMatch,
			LossMatchDivider:    c.Scoring.LossMatchDivider,
			MS1Bonus:            c.Scoring.MS1Bonus,
			MS2LossA:            c.Scoring.MS2LossA,
			MS2LossB:            c.Scoring.MS2LossB,
			MS2LossY:            c.Scoring.MS2LossY,
			MS2LossDivider:      c.Scoring.MS2LossDivider,
			CyanicLossTolerance: c.Scoring.CyanicLossTolerance,
			UnidentifiedEValue:  c.Scoring.UnidentifiedEValue,
			CutOff:              c.Scoring.CutOff,
			IncludeCutOff:       c.Scoring.IncludeCutOff,
		},
	}
}

// QuantSettings returns the settings of the quantifier.
func (c *Config) QuantSettings() (quant.Settings, error) {
	mode, err := quant.ParseDeviationMode(c.Quantification.Deviation)
	if err != nil {
		return quant.Settings{}, err
	}
	return quant.Settings{
		WindowMinutes: c.Quantification.WindowMinutes,
		PPM:           c.Quantification.PPM,
		Mode:          mode,
	}, nil
}
