package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit"
	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/inspect"
)

func newSheetsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "sheets <file>",
		Short: "List worksheet names in workbook order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			names, err := xlsxedit.Scan(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(w).Encode(names)
			}
			for _, name := range names {
				fmt.Fprintln(w, name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print a JSON array")
	return cmd
}

func newDumpCmd() *cobra.Command {
	var (
		outputPath string
		pretty     bool
		printAreas bool
		noFormulas bool
	)
	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Print the workbook contents as JSON",
		Long: `Print the workbook contents as JSON, read independently of the editor
so the result reflects what a spreadsheet application sees.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			includeFormulas := !noFormulas
			wb, err := inspect.Dump(args[0], inspect.Options{
				IncludeFormulas:   &includeFormulas,
				IncludePrintAreas: &printAreas,
			})
			if err != nil {
				return fmt.Errorf("dump failed: %w", err)
			}

			var data []byte
			if pretty {
				data, err = json.MarshalIndent(wb, "", "  ")
			} else {
				data, err = json.Marshal(wb)
			}
			if err != nil {
				return fmt.Errorf("serialization failed: %w", err)
			}

			if outputPath != "" {
				if err := os.WriteFile(outputPath, data, 0o644); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
				return nil
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	cmd.Flags().BoolVar(&printAreas, "print-areas", false, "Include print areas")
	cmd.Flags().BoolVar(&noFormulas, "no-formulas", false, "Omit formula text")
	return cmd
}
