package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/hsaleh/chequeflow/internal/cli"
)

func sessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Start an interactive cheque ingestion session",
		Long: `Starts a conversational session in the terminal.

Commands inside the session:
  /file <path>   upload a cheque image or PDF
  /confirm       commit the reconciled draft
  /cancel        abort the session
  /quit          leave without cancelling

Anything else is sent as a text turn; "field: value" lines (for example
"amount: 250.50") are applied as direct corrections.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			orch, store, err := buildOrchestrator(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runner := cli.NewRunner(orch, os.Stdin, os.Stdout)
			return runner.Run(ctx)
		},
	}
}
