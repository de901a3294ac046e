/*
main.go - ledgerctl command-line tool

PURPOSE:
  Operator CLI for the settlement ledger. Works directly against the SQLite
  database, no running server required.

COMMANDS:
  statement <account-id>   Print the running-balance statement of an account
  portfolio                Print aggregated totals across invoices
  seed                     Load a small demo dataset into the database

GLOBAL FLAGS:
  --db   SQLite database path (default: ledger.db, env DB_PATH)

EXAMPLES:
  ledgerctl --db ./data/ledger.db statement acct-rahim
  ledgerctl portfolio --status unpaid
  ledgerctl --db ":memory:" seed

SEE ALSO:
  - cmd/server/main.go: The HTTP server over the same store
*/
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fahimfaisal1454/jjbb-ledger/ledger"
	"github.com/fahimfaisal1454/jjbb-ledger/store/sqlite"
)

var dbPath string

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Inspect and seed the settlement ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dbPath, "db", envStr("DB_PATH", "ledger.db"), "SQLite database path")

	root.AddCommand(statementCmd(), portfolioCmd(), seedCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openService opens the store and wires a service over it. The caller must
// Close the returned store.
func openService() (*ledger.Service, *sqlite.Store, error) {
	store, err := sqlite.New(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database %s: %w", dbPath, err)
	}
	return ledger.NewService(store), store, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
