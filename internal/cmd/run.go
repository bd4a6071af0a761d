package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/echolens/echolens/internal/output"
	"github.com/echolens/echolens/internal/store"
	"github.com/echolens/echolens/internal/visibility"
)

var (
	runFormat   string
	runSave     bool
	runSaveName string
	runOutFile  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the analysis across all enabled providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		runCfg, err := cfg.RunConfig()
		if err != nil {
			return err
		}

		service := visibility.NewService(logger)

		progress := &output.ProgressPrinter{W: cmd.ErrOrStderr()}
		results, err := service.Run(cmd.Context(), runCfg, progress.Observe)
		if err != nil {
			return err
		}

		if runSave {
			st, err := store.Open(cmd.Context(), cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close() // nolint:errcheck // best-effort cleanup

			name := runSaveName
			if name == "" {
				name = runCfg.ClientBrand
			}
			report, err := st.SaveReport(cmd.Context(), name, runCfg.ClientBrand, results)
			if err != nil {
				return err
			}
			logger.Info("report saved", zap.String("id", report.ID))
		}

		rendered, err := formatResults(runFormat, results)
		if err != nil {
			return err
		}

		if runOutFile != "" {
			return os.WriteFile(runOutFile, []byte(rendered+"\n"), 0644)
		}
		fmt.Fprintln(cmd.OutOrStdout(), rendered)
		return nil
	},
}

func formatResults(format string, results []visibility.PromptResult) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "table":
		f := &output.TableFormatter{}
		return f.Format(results)
	case "json":
		f := &output.JSONFormatter{Indent: true}
		return f.Format(results)
	case "markdown", "md":
		f := &output.MarkdownFormatter{}
		return f.Format(results)
	default:
		return "", fmt.Errorf("unsupported format %q (table, json, markdown)", format)
	}
}

func init() {
	runCmd.Flags().StringVarP(&runFormat, "format", "f", "table", "output format: table, json, markdown")
	runCmd.Flags().BoolVar(&runSave, "save", false, "persist the report to the store")
	runCmd.Flags().StringVar(&runSaveName, "name", "", "report name when saving (defaults to the client brand)")
	runCmd.Flags().StringVarP(&runOutFile, "out", "o", "", "write output to a file instead of stdout")
	rootCmd.AddCommand(runCmd)
}
