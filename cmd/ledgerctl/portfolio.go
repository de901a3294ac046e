package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fahimfaisal1454/jjbb-ledger/ledger"
)

// portfolioCmd prints aggregated totals over the filtered invoice set.
func portfolioCmd() *cobra.Command {
	var (
		statusFlag  string
		accountFlag string
		searchFlag  string
	)

	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Print aggregated totals across invoices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, store, err := openService()
			if err != nil {
				return err
			}
			defer store.Close()

			var f ledger.ReportFilter
			if statusFlag != "" {
				status := ledger.Status(statusFlag)
				if !ledger.ValidStatus(status) {
					return fmt.Errorf("unknown status: %s", statusFlag)
				}
				f.Status = &status
			}
			if accountFlag != "" {
				id := ledger.AccountID(accountFlag)
				f.Account = &id
			}
			f.Search = searchFlag

			totals, err := svc.Aggregate(cmd.Context(), f)
			if err != nil {
				return err
			}

			fmt.Printf("Invoices:      %d\n", totals.Count)
			if totals.Excluded > 0 {
				fmt.Printf("Excluded:      %d (malformed)\n", totals.Excluded)
			}
			fmt.Printf("Total payable: %s\n", totals.TotalPayable.String())
			fmt.Printf("Total paid:    %s\n", totals.TotalPaid.String())
			fmt.Printf("Total due:     %s\n", totals.TotalDue.String())
			for _, status := range []ledger.Status{
				ledger.StatusUnpaid, ledger.StatusPartiallyPaid, ledger.StatusPaid, ledger.StatusNotApplicable,
			} {
				if n := totals.ByStatus[status]; n > 0 {
					fmt.Printf("  %-16s %d\n", status, n)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "filter by settlement status")
	cmd.Flags().StringVar(&accountFlag, "account", "", "filter by account ID")
	cmd.Flags().StringVar(&searchFlag, "search", "", "match invoice or account ID")
	return cmd
}
