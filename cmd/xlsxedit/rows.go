package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.alis.build/alog"

	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit"
	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/cellref"
)

func newAppendCmd(g *globalOptions) *cobra.Command {
	var sheet, out string
	cmd := &cobra.Command{
		Use:   "append <file> <value>...",
		Short: "Append one row of text values below the last row",
		Long: `Append one row of text values below the last row of a sheet.

Examples:
  xlsxedit append book.xlsx -s Data 2024-01-31 "Office supplies" 42
  xlsxedit append book.xlsx -s Data -o out.xlsx a b c`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ctx := cmd.Context()
			return edit(ctx, g, args[0], sheet, out, func(s *xlsxedit.Session) error {
				row, err := s.NextRow()
				if err != nil {
					return err
				}
				alog.Debugf(ctx, "appending %d values at row %d", len(args)-1, row)
				return s.AppendRow(args[1:])
			})
		},
	}
	cmd.Flags().StringVarP(&sheet, "sheet", "s", "", "Sheet to edit")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default: overwrite input)")
	_ = cmd.MarkFlagRequired("sheet")
	return cmd
}

func newTableCmd(g *globalOptions) *cobra.Command {
	var sheet, out, at, csvPath string
	cmd := &cobra.Command{
		Use:   "table <file>",
		Short: "Write CSV records as a block of rows",
		Long: `Write CSV records as a block of rows. Without --at the block is appended
below the last row, starting in column A.

Examples:
  xlsxedit table book.xlsx -s Data --csv rows.csv
  cat rows.csv | xlsxedit table book.xlsx -s Data --at B2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ctx := cmd.Context()

			var r io.Reader = cmd.InOrStdin()
			if csvPath != "" && csvPath != "-" {
				f, err := os.Open(csvPath)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			rows, err := readCSV(r)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				alog.Warnf(ctx, "no records read, %s left unchanged", args[0])
				return nil
			}

			return edit(ctx, g, args[0], sheet, out, func(s *xlsxedit.Session) error {
				alog.Debugf(ctx, "writing %d rows", len(rows))
				if at == "" {
					return s.AppendTable(rows)
				}
				return s.AppendTableAt(at, rows)
			})
		},
	}
	cmd.Flags().StringVarP(&sheet, "sheet", "s", "", "Sheet to edit")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default: overwrite input)")
	cmd.Flags().StringVar(&at, "at", "", "Top-left cell of the block (default: below the last row)")
	cmd.Flags().StringVar(&csvPath, "csv", "-", "CSV input file, - for stdin")
	_ = cmd.MarkFlagRequired("sheet")
	return cmd
}

// readCSV reads every record of r. Records may have different lengths.
func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	return rows, nil
}

func newLastRowCmd(g *globalOptions) *cobra.Command {
	var sheet string
	cmd := &cobra.Command{
		Use:   "last-row <file> <columns>",
		Short: "Print the last non-empty row of each column",
		Long: `Print the last non-empty row of each column in a span, 0 for empty columns.

Examples:
  xlsxedit last-row book.xlsx -s Data A
  xlsxedit last-row book.xlsx -s Data A:D`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			s, err := openSheet(g, args[0], sheet)
			if err != nil {
				return err
			}
			rows, err := s.LastRowsInColumns(args[1])
			if err != nil {
				return err
			}
			first, last, err := cellref.ParseColumns(args[1])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for col := first; col <= last; col++ {
				name := cellref.ColumnName(col)
				fmt.Fprintf(w, "%s\t%d\n", name, rows[name])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&sheet, "sheet", "s", "", "Sheet to read")
	_ = cmd.MarkFlagRequired("sheet")
	return cmd
}
