package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version is overridden at release build time via -ldflags.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the codeindex version",
	RunE: func(cmd *cobra.Command, args []string) error {
		v := Version
		if v == "dev" {
			if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
				v = info.Main.Version
			}
		}
		fmt.Println("codeindex " + v)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
