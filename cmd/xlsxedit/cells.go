package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.alis.build/alog"

	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit"
)

// assignment is one ADDR=VALUE argument of the set command.
type assignment struct {
	Address   string
	Text      string
	Formula   string
	IsFormula bool
	Number    *float64
}

// parseAssignment splits ADDR=VALUE on the first '='. ADDR==EXPR sets a
// formula. With numbers, values that parse as a float are stored as numbers.
func parseAssignment(arg string, numbers bool) (assignment, error) {
	address, value, found := strings.Cut(arg, "=")
	if !found {
		return assignment{}, fmt.Errorf("invalid assignment %q: expected ADDR=VALUE", arg)
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return assignment{}, fmt.Errorf("invalid assignment %q: empty address", arg)
	}

	if formula, ok := strings.CutPrefix(value, "="); ok {
		return assignment{Address: address, Formula: formula, IsFormula: true}, nil
	}
	if numbers {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return assignment{Address: address, Number: &f}, nil
		}
	}
	return assignment{Address: address, Text: value}, nil
}

func (a assignment) apply(s *xlsxedit.Session) error {
	switch {
	case a.IsFormula:
		return s.SetCellFormula(a.Address, a.Formula)
	case a.Number != nil:
		return s.SetCellNumber(a.Address, *a.Number)
	default:
		return s.SetCell(a.Address, a.Text)
	}
}

func newSetCmd(g *globalOptions) *cobra.Command {
	var (
		sheet, out string
		numbers    bool
		style      int
	)
	cmd := &cobra.Command{
		Use:   "set <file> <ADDR=VALUE>...",
		Short: "Set individual cells",
		Long: `Set individual cells. Values are stored as text unless --number is given;
ADDR==EXPR stores a formula.

Examples:
  xlsxedit set book.xlsx -s Data B2=hello C2=007
  xlsxedit set book.xlsx -s Data --number D2=3.5 D3==SUM(D1:D2)
  xlsxedit set book.xlsx -s Data --style 3 A1=Total`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ctx := cmd.Context()

			assignments := make([]assignment, 0, len(args)-1)
			for _, arg := range args[1:] {
				a, err := parseAssignment(arg, numbers)
				if err != nil {
					return err
				}
				assignments = append(assignments, a)
			}

			return edit(ctx, g, args[0], sheet, out, func(s *xlsxedit.Session) error {
				for _, a := range assignments {
					alog.Debugf(ctx, "set %s", a.Address)
					if err := a.apply(s); err != nil {
						return err
					}
					if cmd.Flags().Changed("style") {
						if err := s.SetCellStyle(a.Address, style); err != nil {
							return err
						}
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&sheet, "sheet", "s", "", "Sheet to edit")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default: overwrite input)")
	cmd.Flags().BoolVar(&numbers, "number", false, "Store numeric values as numbers")
	cmd.Flags().IntVar(&style, "style", 0, "Style index applied to every cell set")
	_ = cmd.MarkFlagRequired("sheet")
	return cmd
}

func newMergeCmd(g *globalOptions) *cobra.Command {
	var sheet, out string
	cmd := &cobra.Command{
		Use:   "merge <file> <range>...",
		Short: "Merge cell ranges",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return edit(cmd.Context(), g, args[0], sheet, out, func(s *xlsxedit.Session) error {
				for _, ref := range args[1:] {
					if err := s.MergeCells(ref); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&sheet, "sheet", "s", "", "Sheet to edit")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default: overwrite input)")
	_ = cmd.MarkFlagRequired("sheet")
	return cmd
}

func newAddSheetCmd(g *globalOptions) *cobra.Command {
	var (
		out string
		at  int
	)
	cmd := &cobra.Command{
		Use:   "add-sheet <file> <name>...",
		Short: "Add empty worksheets",
		Long: `Add empty worksheets, appended after the last sheet unless --at gives a
0-based position. Several names are inserted in the order given.

Examples:
  xlsxedit add-sheet book.xlsx Notes
  xlsxedit add-sheet book.xlsx --at 0 Cover Contents`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ctx := cmd.Context()
			positioned := cmd.Flags().Changed("at")
			return edit(ctx, g, args[0], "", out, func(s *xlsxedit.Session) error {
				for i, name := range args[1:] {
					var err error
					if positioned {
						err = s.AddSheetAt(name, at+i)
					} else {
						err = s.AddSheet(name)
					}
					if err != nil {
						return err
					}
					alog.Infof(ctx, "added sheet %q", name)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default: overwrite input)")
	cmd.Flags().IntVar(&at, "at", 0, "0-based position of the first new sheet (default: after the last sheet)")
	return cmd
}
