package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fahimfaisal1454/jjbb-ledger/ledger"
)

// statementCmd prints the ordered running-balance statement of one account.
func statementCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "statement <account-id>",
		Short: "Print the running-balance statement of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, store, err := openService()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			accountID := ledger.AccountID(args[0])

			account, err := store.GetAccount(ctx, accountID)
			if err != nil {
				return err
			}
			rows, err := svc.BuildStatement(ctx, accountID)
			if err != nil {
				return err
			}

			fmt.Printf("Statement for %s (%s, %s)\n\n", account.Name, account.ID, account.Kind)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tTYPE\tREF\tDESCRIPTION\tDEBIT\tCREDIT\tBALANCE")
			for _, row := range rows {
				date := ""
				if !row.Date.IsZero() {
					date = row.Date.Format("2006-01-02")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					date, row.Type, row.RefID, row.Description,
					row.Debit.String(), row.Credit.String(), row.Balance.String())
			}
			w.Flush()

			fmt.Printf("\nClosing balance: %s\n", ledger.ClosingBalance(rows).String())
			return nil
		},
	}
}
