// Package main provides the CLI entry point for xlsxedit-go.
package main

import (
	"compress/flate"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.alis.build/alog"

	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit"
)

// globalOptions holds the flags shared by every command.
type globalOptions struct {
	verbose     bool
	compression int
	noValidate  bool
}

func (g *globalOptions) sessionOptions() xlsxedit.Options {
	opts := xlsxedit.DefaultOptions()
	opts.CompressionLevel = g.compression
	if g.noValidate {
		validate := false
		opts.ValidateSharedStrings = &validate
	}
	return opts
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:   "xlsxedit",
		Short: "Edit spreadsheet workbooks in place",
		Long: `xlsxedit appends rows and sets cells in .xlsx workbooks without
rewriting the parts it did not touch.`,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.verbose {
				alog.SetLevel(alog.LevelDebug)
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Log every step")
	rootCmd.PersistentFlags().IntVar(&g.compression, "compression", flate.BestSpeed, "Deflate level for rewritten parts (-2..9)")
	rootCmd.PersistentFlags().BoolVar(&g.noValidate, "no-validate", false, "Skip shared string checks when selecting a sheet")

	rootCmd.AddCommand(
		newSheetsCmd(),
		newAppendCmd(g),
		newTableCmd(g),
		newSetCmd(g),
		newMergeCmd(g),
		newAddSheetCmd(g),
		newLastRowCmd(g),
		newDumpCmd(),
	)
	return rootCmd
}

// edit opens file on sheet, applies fn and saves to out, or back to file
// when out is empty. An empty sheet opens the workbook with no active sheet.
func edit(ctx context.Context, g *globalOptions, file, sheet, out string, fn func(*xlsxedit.Session) error) error {
	opts := g.sessionOptions()
	var (
		s   *xlsxedit.Session
		err error
	)
	if sheet == "" {
		s, err = xlsxedit.OpenWorkbook(file, opts)
	} else {
		s, err = xlsxedit.OpenWithOptions(file, sheet, opts)
	}
	if err != nil {
		return err
	}
	alog.Debugf(ctx, "opened %s (sheets: %v)", file, s.SheetNames())

	if err := fn(s); err != nil {
		return err
	}

	if out == "" {
		out = file
	}
	if err := s.Save(out); err != nil {
		return err
	}
	alog.Infof(ctx, "saved %s", out)
	return nil
}

func openSheet(g *globalOptions, file, sheet string) (*xlsxedit.Session, error) {
	return xlsxedit.OpenWithOptions(file, sheet, g.sessionOptions())
}
