package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hsaleh/chequeflow/internal/model"
	"github.com/hsaleh/chequeflow/internal/service"
)

func customersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "customers",
		Short: "List known customers and their fee schedules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			customers, err := store.ListCustomers(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("%-10s %-25s %8s %8s\n", "ID", "NAME", "FEE%", "MIN")
			for _, c := range customers {
				fmt.Printf("%-10s %-25s %8s %8s\n",
					c.ID, c.Name, c.FeePercent.String(), c.FeeMinimum.StringFixed(2))
			}
			return nil
		},
	}
}

func vendorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vendors",
		Short: "List known vendors and their cost bases",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			vendors, err := store.ListVendors(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("%-10s %-25s %8s %10s\n", "ID", "NAME", "COST%", "HIGH-RISK")
			for _, v := range vendors {
				risk := ""
				if v.HighRisk {
					risk = "yes"
				}
				fmt.Printf("%-10s %-25s %8s %10s\n",
					v.ID, v.Name, v.CostPercent.String(), risk)
			}
			return nil
		},
	}
}

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List committed transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			filter := service.TransactionFilter{Limit: viper.GetInt("list.limit")}
			if s := viper.GetString("list.status"); s != "" {
				status := model.TransactionStatus(s)
				if !status.Valid() {
					return fmt.Errorf("unknown status %q", s)
				}
				filter.Status = &status
			}

			txns, err := store.ListTransactions(cmd.Context(), filter)
			if err != nil {
				return err
			}

			fmt.Printf("%-36s %-10s %-12s %10s %10s %-10s\n",
				"ID", "CHEQUE", "DATE", "AMOUNT", "PROFIT", "STATUS")
			for _, t := range txns {
				fmt.Printf("%-36s %-10s %-12s %10s %10s %-10s\n",
					t.ID, t.ChequeNumber, t.Date.Format("2006-01-02"),
					t.Amount.StringFixed(2), t.Profit.StringFixed(2), t.Status)
			}
			return nil
		},
	}

	cmd.Flags().Int("limit", 50, "maximum rows to list")
	cmd.Flags().String("status", "", "filter by status (pending, completed, cancelled, bounced)")
	_ = viper.BindPFlag("list.limit", cmd.Flags().Lookup("limit"))
	_ = viper.BindPFlag("list.status", cmd.Flags().Lookup("status"))

	cmd.AddCommand(setStatusCmd())
	return cmd
}

func setStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <transaction-id> <status>",
		Short: "Move a transaction along its status lattice",
		Long: `Marks a pending transaction completed, cancelled or bounced.
Bouncing reverses the customer fee; the vendor cost stays incurred.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			status := model.TransactionStatus(args[1])
			if !status.Valid() {
				return fmt.Errorf("unknown status %q", args[1])
			}

			txn, err := store.Transition(cmd.Context(), args[0], status)
			if err != nil {
				return err
			}

			fmt.Printf("Transaction %s is now %s (profit %s).\n",
				txn.ID, txn.Status, txn.Profit.StringFixed(2))
			return nil
		},
	}
}
