package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/daryltucker/gauge-bench/internal/output"
	"github.com/daryltucker/gauge-bench/internal/store"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current leaderboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		if runDirOverride != "" {
			cfg.RunDir = runDirOverride
		}
		rs := store.New(cfg.RunDir, cfg.LeaderboardFile)
		rows, err := rs.ReadLeaderboard()
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("no leaderboard at %s (run 'gauge-bench consolidate' first)", rs.LeaderboardPath())
		}
		if err != nil {
			return err
		}
		return output.PrintLeaderboard(cmd.OutOrStdout(), rows)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().StringVar(&runDirOverride, "run-dir", "", "Directory holding the leaderboard")
}
