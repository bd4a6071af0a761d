package cmd

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/echolens/echolens/internal/store"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Manage saved analysis reports",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() // nolint:errcheck // best-effort cleanup

		reports, err := st.ListReports(cmd.Context())
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"ID", "Name", "Created", "Brand", "Prompts", "Providers"})
		for _, r := range reports {
			t.AppendRow(table.Row{r.ID, r.Name, r.CreatedAt.Format(time.RFC3339), r.ClientBrand, r.PromptCount, r.ProviderCount})
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return nil
	},
}

var reportsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one saved report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() // nolint:errcheck // best-effort cleanup

		report, err := st.GetReport(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		rendered, err := formatResults(reportsFormat, report.Results)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), rendered)
		return nil
	},
}

var reportsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one saved report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() // nolint:errcheck // best-effort cleanup

		if err := st.DeleteReport(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "deleted", args[0])
		return nil
	},
}

var reportsFormat string

func openStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return store.Open(cmd.Context(), cfg.Store)
}

func init() {
	reportsShowCmd.Flags().StringVarP(&reportsFormat, "format", "f", "table", "output format: table, json, markdown")
	reportsCmd.AddCommand(reportsListCmd, reportsShowCmd, reportsDeleteCmd)
	rootCmd.AddCommand(reportsCmd)
}
