package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/dhcgn/olm-to-eml/chunk"
)

var chunkPrefix string

var chunkCmd = &cobra.Command{
	Use:   "chunk [csv file] [output dir]",
	Short: "Split a tabulated email CSV into monthly files",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		csvPath, outDir := args[0], args[1]

		result, err := chunk.ByMonth(csvPath, outDir, chunkPrefix, slog.Default())
		if err != nil {
			return err
		}

		fmt.Printf("Processed %d rows (%d skipped, invalid dates)\n", result.TotalRows, result.SkippedRows)
		fmt.Printf("\n%-12s %-8s %s\n", "Month", "Count", "Filename")
		fmt.Println("--------------------------------------------------")
		for _, key := range result.SortedMonths() {
			display := key
			if t, err := time.Parse("2006_01", key); err == nil {
				display = t.Format("Jan 2006")
			}
			fmt.Printf("%-12s %-8d %s_%s.csv\n", display, result.Months[key], chunkPrefix, key)
		}
		fmt.Printf("\nCreated %d monthly CSV files in %s\n", len(result.Months), outDir)
		return nil
	},
}

func init() {
	chunkCmd.Flags().StringVar(&chunkPrefix, "prefix", chunk.DefaultPrefix, "Filename prefix for the monthly CSV files")
	rootCmd.AddCommand(chunkCmd)
}
