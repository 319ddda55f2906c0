package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply ledger schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			fmt.Println("Ledger schema is up to date.")
			return nil
		},
	}
}
