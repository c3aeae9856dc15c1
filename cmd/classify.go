package cmd

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dhcgn/olm-to-eml/classify"
)

var classifyStats bool

var classifyCmd = &cobra.Command{
	Use:   "classify [eml dir] [output dir]",
	Short: "Classify converted messages and emit training data CSVs",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		emlDir, outDir := args[0], args[1]

		report, err := classify.Directory(emlDir, outDir, slog.Default())
		if err != nil {
			return err
		}

		fmt.Printf("Processed %d emails, found %d vendors\n", report.Processed, report.Vendors)
		fmt.Printf("Output files saved to %s\n", outDir)

		if classifyStats {
			fmt.Println("\nEmail type distribution:")
			categories := make([]string, 0, len(report.ByCategory))
			for cat := range report.ByCategory {
				categories = append(categories, string(cat))
			}
			sort.Strings(categories)
			for _, cat := range categories {
				fmt.Printf("  %s: %d\n", cat, report.ByCategory[classify.Category(cat)])
			}
		}
		return nil
	},
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyStats, "stats", false, "Print classification statistics")
	rootCmd.AddCommand(classifyCmd)
}
