/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/hoas/apiserver/config"
	"github.com/hoas/apiserver/internal/db"
	"github.com/hoas/apiserver/internal/store"
	"github.com/spf13/cobra"
)

var revokeAdmin bool

// setroleCmd grants or revokes the admin claim on an account. The
// claim takes effect on the account's next issued token.
var setroleCmd = &cobra.Command{
	Use:   "setrole <email>",
	Short: "Grant or revoke the admin claim on an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		dbConn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("open database failed: %w", err)
		}
		defer func() {
			_ = dbConn.Close()
		}()

		email := args[0]
		accounts := store.NewAccountRepository(dbConn)
		if err := accounts.SetAdmin(cmd.Context(), email, !revokeAdmin); err != nil {
			return fmt.Errorf("set admin claim failed: %w", err)
		}

		if revokeAdmin {
			fmt.Printf("admin claim revoked for %s\n", email)
		} else {
			fmt.Printf("admin claim granted for %s\n", email)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setroleCmd)
	setroleCmd.Flags().BoolVar(&revokeAdmin, "revoke", false, "revoke the admin claim instead of granting it")
}
