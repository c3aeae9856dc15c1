package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dhcgn/olm-to-eml/filter"
	"github.com/dhcgn/olm-to-eml/tabulate"
)

var (
	tabIncludeHeader []string
	tabIncludeBody   []string
	tabExcludeHeader []string
	tabExcludeBody   []string
)

var tabulateCmd = &cobra.Command{
	Use:   "tabulate [eml dir] [csv file]",
	Short: "Tabulate converted .eml files into a CSV database",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		emlDir, csvPath := args[0], args[1]

		f, err := filter.New(filter.Options{
			IncludeHeader: tabIncludeHeader,
			IncludeBody:   tabIncludeBody,
			ExcludeHeader: tabExcludeHeader,
			ExcludeBody:   tabExcludeBody,
		})
		if err != nil {
			return fmt.Errorf("create filter: %w", err)
		}

		written, err := tabulate.Directory(emlDir, csvPath, tabulate.Options{
			Filter: f,
			Logger: slog.Default(),
		})
		if err != nil {
			return err
		}

		fmt.Printf("Wrote %d rows to %s\n", written, csvPath)
		return nil
	},
}

func init() {
	tabulateCmd.Flags().StringArrayVar(&tabIncludeHeader, "include-header", nil, "Regex allow-list applied to message headers (mutually exclusive with exclude flags)")
	tabulateCmd.Flags().StringArrayVar(&tabIncludeBody, "include-body", nil, "Regex allow-list applied to message bodies (mutually exclusive with exclude flags)")
	tabulateCmd.Flags().StringArrayVar(&tabExcludeHeader, "exclude-header", nil, "Regex block-list applied to message headers (mutually exclusive with include flags)")
	tabulateCmd.Flags().StringArrayVar(&tabExcludeBody, "exclude-body", nil, "Regex block-list applied to message bodies (mutually exclusive with include flags)")
	rootCmd.AddCommand(tabulateCmd)
}
