package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/echolens/echolens/internal/visibility"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify provider credentials with a minimal API call",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		runCfg, err := cfg.RunConfig()
		if err != nil {
			return err
		}
		if len(runCfg.Selections) == 0 {
			return fmt.Errorf("no providers enabled in configuration")
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Provider", "Status", "Detail"})

		invalid := 0
		for _, sel := range runCfg.Selections {
			key := runCfg.Credentials[sel.CredentialRef]
			result := visibility.VerifyCredential(cmd.Context(), sel, key, nil)
			if result.Status == visibility.KeyInvalid {
				invalid++
			}
			t.AppendRow(table.Row{string(result.Provider), string(result.Status), result.Detail})
		}

		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		if invalid > 0 {
			return fmt.Errorf("%d credential(s) invalid", invalid)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
