package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dkeye/vspace/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "vspace",
	Short: "vspace client: join a space conference from the terminal",
	Long:  `Commands: join, token.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
			zerolog.SetGlobalLevel(lvl)
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(joinCmd)
	rootCmd.AddCommand(tokenCmd)
}

// Execute runs the root command and returns the error (for main to log.Fatal).
func Execute() error {
	return rootCmd.Execute()
}
