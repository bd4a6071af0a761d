package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var extended bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information. Use --extended for commit, build date and Go version.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if extended {
			fmt.Printf("echolens %s\n", versionInfo.Version)
			fmt.Printf("Commit: %s\n", versionInfo.Commit)
			fmt.Printf("Built: %s\n", versionInfo.BuildDate)
			fmt.Printf("Go: %s\n", runtime.Version())
		} else {
			fmt.Printf("echolens %s\n", versionInfo.Version)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&extended, "extended", "e", false, "show extended version information")
}
