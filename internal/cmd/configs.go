package cmd

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	appconfig "github.com/echolens/echolens/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage run configurations",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a starter configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "echolens.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if err := appconfig.WriteStarter(path); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "wrote", path)
		return nil
	},
}

var configSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save the current configuration to the store under a name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() // nolint:errcheck // best-effort cleanup

		record, err := st.SaveConfiguration(cmd.Context(), args[0], cfg)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "saved", record.Name, record.ID)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved configurations",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() // nolint:errcheck // best-effort cleanup

		configs, err := st.ListConfigurations(cmd.Context())
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Name", "Created", "Brand", "Prompts"})
		for _, c := range configs {
			t.AppendRow(table.Row{c.Name, c.CreatedAt.Format(time.RFC3339), c.Config.Brand.Client, len(c.Config.Prompts)})
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return nil
	},
}

var configDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete one saved configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() // nolint:errcheck // best-effort cleanup

		if err := st.DeleteConfiguration(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "deleted", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd, configSaveCmd, configListCmd, configDeleteCmd)
	rootCmd.AddCommand(configCmd)
}
