package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dkeye/vspace/internal/auth"
)

var tokenName string

var tokenCmd = &cobra.Command{
	Use:   "token [subject]",
	Short: "Mint an access token signed with server.secret",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "display name claim (defaults to the subject)")
}

func runToken(cmd *cobra.Command, args []string) error {
	if cfg.Server.Secret == "" {
		return errors.New("server.secret is not configured")
	}
	ttl := cfg.Server.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	tok, err := auth.NewJWTService(cfg.Server.Secret, ttl).Generate(args[0], tokenName)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}
