package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/johnpfay/WakeVoter/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "wakevoter",
	Short: "Builds GOTV canvassing turfs from census blocks and voter files",
	Long: "Partitions a county's majority-Black census blocks into contiguous turfs " +
		"of 50-100 Black households, tags registered voters with turf assignments, " +
		"and exports coordinator-ready tables and maps.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
