package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit"
	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/models"
)

func TestParseAssignment(t *testing.T) {
	num := func(f float64) *float64 { return &f }
	tests := []struct {
		name    string
		arg     string
		numbers bool
		want    assignment
		wantErr bool
	}{
		{name: "text", arg: "A1=hello", want: assignment{Address: "A1", Text: "hello"}},
		{name: "numeric text", arg: "B2=007", want: assignment{Address: "B2", Text: "007"}},
		{name: "number", arg: "B2=3.5", numbers: true, want: assignment{Address: "B2", Number: num(3.5)}},
		{name: "not a number", arg: "B2=n/a", numbers: true, want: assignment{Address: "B2", Text: "n/a"}},
		{name: "formula", arg: "C3==SUM(A1:A2)", want: assignment{Address: "C3", Formula: "SUM(A1:A2)", IsFormula: true}},
		{name: "empty formula", arg: "C3==", want: assignment{Address: "C3", IsFormula: true}},
		{name: "equals inside value", arg: "A1=a=b", want: assignment{Address: "A1", Text: "a=b"}},
		{name: "empty value", arg: "A1=", want: assignment{Address: "A1"}},
		{name: "missing equals", arg: "A1", wantErr: true},
		{name: "empty address", arg: "=x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAssignment(tt.arg, tt.numbers)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadCSV(t *testing.T) {
	rows, err := readCSV(strings.NewReader("a,b,c\n\"x, y\"\nlast,\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b", "c"}, {"x, y"}, {"last", ""}}, rows)

	_, err = readCSV(strings.NewReader("\"unterminated\n"))
	assert.Error(t, err)
}

func newBook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Data"))
	require.NoError(t, f.SetCellValue("Data", "A1", "Name"))
	require.NoError(t, f.SetCellValue("Data", "B1", "Qty"))
	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	path := newBook(t)

	out, err := run(t, "", "sheets", path)
	require.NoError(t, err)
	assert.Equal(t, "Data\n", out)

	_, err = run(t, "", "append", path, "-s", "Data", "apple", "3")
	require.NoError(t, err)
	_, err = run(t, "x,y\nz\n", "table", path, "-s", "Data", "--at", "D5")
	require.NoError(t, err)
	_, err = run(t, "", "set", path, "-s", "Data", "--number", "B3=4", "C2==B2+B3")
	require.NoError(t, err)
	_, err = run(t, "", "merge", path, "-s", "Data", "A8:B8")
	require.NoError(t, err)
	_, err = run(t, "", "add-sheet", path, "Notes")
	require.NoError(t, err)

	out, err = run(t, "", "last-row", path, "-s", "Data", "A:D")
	require.NoError(t, err)
	assert.Equal(t, "A\t2\nB\t3\nC\t2\nD\t6\n", out)

	out, err = run(t, "", "dump", path)
	require.NoError(t, err)
	var wb models.WorkbookData
	require.NoError(t, json.Unmarshal([]byte(out), &wb))
	assert.Equal(t, []string{"Data", "Notes"}, wb.SheetOrder)
	data := wb.Sheets["Data"]
	assert.Equal(t, []string{"A8:B8"}, data.Merged)
	require.Len(t, data.Rows, 5)
	assert.Equal(t, map[string]any{"A": "apple", "B": "3"}, data.Rows[1].C)
	assert.Equal(t, map[string]string{"C": "B2+B3"}, data.Rows[1].Formulas)
	assert.Equal(t, map[string]any{"B": float64(4)}, data.Rows[2].C)
	assert.Equal(t, map[string]any{"D": "x", "E": "y"}, data.Rows[3].C)
	assert.Equal(t, 6, data.Rows[4].R)
}

func TestAddSheetAt(t *testing.T) {
	path := newBook(t)

	_, err := run(t, "", "add-sheet", path, "--at", "0", "Cover", "Contents")
	require.NoError(t, err)
	_, err = run(t, "", "add-sheet", path, "Notes")
	require.NoError(t, err)

	out, err := run(t, "", "sheets", path)
	require.NoError(t, err)
	assert.Equal(t, "Cover\nContents\nData\nNotes\n", out)
}

func TestCommandOutputFile(t *testing.T) {
	path := newBook(t)
	dest := filepath.Join(t.TempDir(), "copy.xlsx")

	_, err := run(t, "", "append", path, "-s", "Data", "-o", dest, "kept")
	require.NoError(t, err)

	s, err := xlsxedit.Open(path, "Data")
	require.NoError(t, err)
	next, err := s.NextRow()
	require.NoError(t, err)
	assert.Equal(t, 2, next)

	s, err = xlsxedit.Open(dest, "Data")
	require.NoError(t, err)
	got, err := s.GetCell("A2")
	require.NoError(t, err)
	assert.Equal(t, "kept", got)
}

func TestCommandErrors(t *testing.T) {
	path := newBook(t)

	_, err := run(t, "", "append", path, "-s", "Nope", "x")
	assert.ErrorIs(t, err, xlsxedit.ErrSheetNotFound)

	_, err = run(t, "", "set", path, "-s", "Data", "1A=x")
	assert.ErrorIs(t, err, xlsxedit.ErrInvalidReference)

	_, err = run(t, "", "set", path, "-s", "Data", "A1")
	assert.Error(t, err)

	_, err = run(t, "", "set", path, "-s", "Data", "A1==")
	assert.ErrorIs(t, err, xlsxedit.ErrInvalidFormula)
	s, err := xlsxedit.Open(path, "Data")
	require.NoError(t, err)
	got, err := s.GetCell("A1")
	require.NoError(t, err)
	assert.Equal(t, "Name", got)

	_, err = run(t, "", "append", path, "x")
	assert.Error(t, err)

	_, err = run(t, "", "--compression", "12", "append", path, "-s", "Data", "x")
	assert.ErrorIs(t, err, xlsxedit.ErrInvalidOptions)
}
