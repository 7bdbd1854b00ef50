// Package cmd provides CLI command implementations
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ChrisMcGann/CitFinder/pkg/config"
	"github.com/ChrisMcGann/CitFinder/pkg/core"
)

const configName = ".citfinder"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "citfinder",
	Short: "CitFinder - citrullination detection from tandem mass spectra",
	Long: `CitFinder finds citrullinated arginines in identified MS/MS spectra,
pairs them with their unmodified arginine counterparts, scores every pairing
and quantifies the relative citrullination by extracted ion current.

Input is a JSON batch document holding the search results and the raw
MS1/MS2 scans of each source file. Results are printed as a summary and can
be written to SQLite and DuckDB databases.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/"+configName+".yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newConfigCmd())
}

// initConfig registers defaults and reads the config file, if any.
func initConfig() error {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// newLogger builds the CLI logger. Verbose mode logs at debug level in
// console format.
func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// loadModDatabase returns the default modifications extended by the
// configured CSV file.
func loadModDatabase(path string) (*core.ModDatabase, error) {
	modDB := core.DefaultModDatabase()
	if path == "" {
		return modDB, nil
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open modifications file: %w", err)
	}
	defer f.Close()

	if err := modDB.LoadFromCSV(f); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return modDB, nil
}

// reportFileErrors logs every excluded source file and fails on any other
// error.
func reportFileErrors(logger *zap.Logger, err error) error {
	if err == nil {
		return nil
	}
	ferrs, ok := core.FileErrors(err)
	if !ok {
		return err
	}
	for _, fe := range ferrs {
		logger.Warn("source file excluded", zap.String("file", fe.FileName), zap.Error(fe.Err))
	}
	return nil
}
