// Package cmd implements the echolens CLI.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	appconfig "github.com/echolens/echolens/internal/config"
	"github.com/echolens/echolens/internal/observability"
	"github.com/echolens/echolens/internal/visibility/driver"
)

var (
	cfgFile   string
	verbose   bool
	traceFile string

	logger *zap.Logger

	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by the main package to set version information.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var rootCmd = &cobra.Command{
	Use:   "echolens",
	Short: "Brand visibility analysis across LLM providers",
	Long: `EchoLens sends a configured prompt set to several LLM providers, asks
each model to report brand mentions and sentiment in its own answer, and
aggregates the results into a report.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = observability.NewCLILogger(verbose)

		if traceFile != "" {
			cleanup, err := driver.EnableTracing(traceFile)
			if err != nil {
				return fmt.Errorf("enable tracing: %w", err)
			}
			cobra.OnFinalize(cleanup)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./echolens.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&traceFile, "trace", "", "write provider request/response traces to this NDJSON file")
}

func loadConfig() (*appconfig.Config, error) {
	return appconfig.Load(cfgFile)
}
