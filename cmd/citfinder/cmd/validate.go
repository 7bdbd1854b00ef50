package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ChrisMcGann/CitFinder/pkg/config"
	"github.com/ChrisMcGann/CitFinder/pkg/core"
	"github.com/ChrisMcGann/CitFinder/pkg/reader/batch"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <batch.json>",
		Short: "Check a batch document without running the pipeline",
		Long: `Read and validate a batch document. Every source file that would be
excluded from a run is reported with its reason, followed by the number of
usable search results, PSMs and raw scans.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(args[0])
		},
	}
}

func runValidate(path string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	modDB, err := loadModDatabase(cfg.Input.ModificationsCSV)
	if err != nil {
		return err
	}

	var excluded []*core.FileError
	collect := func(err error) error {
		if err == nil {
			return nil
		}
		ferrs, ok := core.FileErrors(err)
		if !ok {
			return err
		}
		excluded = append(excluded, ferrs...)
		return nil
	}

	corpus, err := batch.NewReader(modDB).ReadFile(path)
	if err := collect(err); err != nil {
		return err
	}
	corpus, err = corpus.Validate()
	if err := collect(err); err != nil {
		return err
	}

	for _, fe := range excluded {
		fmt.Printf("EXCLUDED %s: %v\n", fe.FileName, fe.Err)
	}

	psms, ms1, ms2 := 0, 0, 0
	for _, s := range corpus.Searches {
		psms += len(s.PSMs)
	}
	for _, r := range corpus.Raw {
		ms1 += len(r.MS1)
		ms2 += len(r.MS2)
	}
	fmt.Printf("Search files: %d (%d PSMs)\n", len(corpus.Searches), psms)
	fmt.Printf("Raw files:    %d (%d MS1, %d MS2 scans)\n", len(corpus.Raw), ms1, ms2)

	if len(excluded) > 0 {
		return fmt.Errorf("%d source file(s) excluded", len(excluded))
	}
	return nil
}
