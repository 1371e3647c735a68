package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/choicecert/certmill/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "certmill",
	Short: "Bulk certificate generation and delivery",
	Long:  "Reads recipient rosters from spreadsheets, generates certificates or Swayam credentials through the remote endpoints, and delivers them by email or as a zip archive.",
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
