package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"library-console/library"
)

var (
	exportReport string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a loan report to CSV without entering the console",
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, ok := reportByName(exportReport)
		if !ok {
			return fmt.Errorf("unknown report %q (want pending, active, overdue or history)", exportReport)
		}

		mgr, err := openManager()
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer mgr.Close()

		details, err := loadReport(mgr, kind)
		if err != nil {
			return err
		}
		headers, rows := library.LoanCSVRows(details)
		if err := mgr.ExportCSV(exportOut, headers, rows); err != nil {
			return err
		}
		fmt.Printf("Exported %d rows to %s\n", len(rows), exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportReport, "report", "history", "report to export: pending, active, overdue or history")
	exportCmd.Flags().StringVar(&exportOut, "out", "loans.csv", "output CSV file")
	rootCmd.AddCommand(exportCmd)
}
