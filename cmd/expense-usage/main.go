package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/shopspring/decimal"

	"github.com/zombor/expense-cfo/internal/expense"
)

func main() {
	fs := ff.NewFlagSet("expense-usage")
	var (
		dbPath = fs.StringLong("db", "expense-cfo.db", "Database file path")
		userID = fs.StringLong("user", "", "User ID to report on")
		limit  = fs.IntLong("limit", 10, "Number of recent entries to show")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("EXPENSE_CFO"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *userID == "" {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintln(os.Stderr, "error: --user is required")
		os.Exit(1)
	}

	db, err := expense.NewBoltDB(*dbPath, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	total, err := db.TotalFor(*userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: querying total: %v\n", err)
		os.Exit(1)
	}
	count, err := db.CountFor(*userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: querying count: %v\n", err)
		os.Exit(1)
	}
	recent, err := db.Recent(*userID, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: querying recent entries: %v\n", err)
		os.Exit(1)
	}

	avg := decimal.Zero
	if count > 0 {
		avg = total.Div(decimal.NewFromInt(int64(count)))
	}

	fmt.Printf("Usage for %s\n", *userID)
	fmt.Printf("  Operations: %d\n", count)
	fmt.Printf("  Total cost: $%s\n", total.StringFixed(6))
	fmt.Printf("  Avg cost:   $%s\n", avg.StringFixed(6))

	if len(recent) == 0 {
		return
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tOPERATION\tPROVIDER\tTOKENS\tCOST")
	for _, entry := range recent {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t$%s\n",
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.Operation,
			entry.Provider,
			entry.Tokens,
			entry.Cost.StringFixed(6),
		)
	}
	w.Flush()
}
