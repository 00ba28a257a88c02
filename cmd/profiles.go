package cmd

import (
	"fmt"

	"yqhp/loadtest-engine/internal/config"

	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "列出内置测试 profile",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-8s %-10s %-8s %s\n", "NAME", "DURATION", "MAX VUS", "DESCRIPTION")
		for _, p := range config.Profiles() {
			fmt.Fprintf(out, "%-8s %-10s %-8d %s\n", p.Name, p.Duration, p.MaxVUs, p.Description)
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "打印版本号",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "loadtest version %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd, versionCmd)
}
