package archive

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/cellref"
	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/worksheet"
)

func TestOpenManifest(t *testing.T) {
	a, err := Open(writeZip(t, baseEntries()))
	require.NoError(t, err)

	assert.Equal(t, []string{"Summary", "Data", "Raw"}, a.SheetNames())
	sheets := a.Sheets()
	assert.Equal(t, "xl/worksheets/sheet3.xml", sheets[0].Path)
	assert.Equal(t, "xl/worksheets/sheet1.xml", sheets[1].Path)
	assert.Equal(t, "xl/worksheets/sheet2.xml", sheets[2].Path)
	assert.Equal(t, 3, sheets[0].SheetID)
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "missing.xlsx"))
	assert.ErrorIs(t, err, ErrNotFound)

	text := filepath.Join(dir, "text.xlsx")
	require.NoError(t, os.WriteFile(text, []byte("hello, not a zip"), 0o644))
	_, err = Open(text)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.Contains(t, err.Error(), "not a zip archive")

	cfb := filepath.Join(dir, "protected.xlsx")
	require.NoError(t, os.WriteFile(cfb, append(append([]byte(nil), cfbMagic...), make([]byte, 64)...), 0o644))
	_, err = Open(cfb)
	assert.ErrorIs(t, err, ErrCorrupt)

	noWorkbook := writeZip(t, []zipEntry{{name: "[Content_Types].xml", body: testContentTypes}})
	_, err = Open(noWorkbook)
	assert.ErrorIs(t, err, ErrCorrupt)

	entries := baseEntries()
	entries[2].body = `<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheets/></workbook>`
	_, err = Open(writeZip(t, entries))
	assert.ErrorIs(t, err, ErrNoSheets)

	entries = baseEntries()
	entries[2].body = `<workbook><sheets><sheet name="A"`
	_, err = Open(writeZip(t, entries))
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestWorksheet(t *testing.T) {
	a, err := Open(writeZip(t, baseEntries()))
	require.NoError(t, err)

	doc, err := a.Worksheet("Data")
	require.NoError(t, err)
	again, err := a.Worksheet("Data")
	require.NoError(t, err)
	assert.Same(t, doc, again)

	_, err = a.Worksheet("Nope")
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestWorksheetMissingPart(t *testing.T) {
	entries := baseEntries()
	entries = append(entries[:4], entries[5:]...)
	a, err := Open(writeZip(t, entries))
	require.NoError(t, err)

	_, err = a.Worksheet("Data")
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestSaveCopiesUntouchedEntries(t *testing.T) {
	src := writeZip(t, baseEntries())
	a, err := Open(src)
	require.NoError(t, err)

	doc, err := a.Worksheet("Data")
	require.NoError(t, err)
	tbl, err := a.SharedStrings()
	require.NoError(t, err)
	require.NoError(t, doc.Set(cellref.MustParse("B2"), worksheet.Shared(tbl.GetOrInsert("hello"))))

	dest := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, a.Save(dest, 1))

	before := readZip(t, src)
	after := readZip(t, dest)

	out, err := Open(dest)
	require.NoError(t, err)
	names := out.EntryNames()
	assert.Equal(t, a.EntryNames(), names)
	assert.Equal(t, "xl/sharedStrings.xml", names[len(names)-1])

	for _, name := range []string{"_rels/.rels", "xl/workbook.xml", "xl/worksheets/sheet2.xml", "xl/worksheets/sheet3.xml", "xl/media/image1.png"} {
		b, af := before[name], after[name]
		require.NotNil(t, af, name)
		assert.Equal(t, b.CRC32, af.CRC32, name)
		assert.Equal(t, b.Method, af.Method, name)
		assert.Equal(t, b.CompressedSize64, af.CompressedSize64, name)
		assert.Equal(t, readFile(t, b), readFile(t, af), name)
	}
	assert.Equal(t, zip.Store, after["xl/media/image1.png"].Method)

	sheet := readFile(t, after["xl/worksheets/sheet1.xml"])
	assert.Contains(t, sheet, `<dimension ref="A1:B2"/>`)
	assert.Contains(t, sheet, `<c r="B2" t="s"><v>0</v></c>`)

	rels := readFile(t, after["xl/_rels/workbook.xml.rels"])
	assert.Contains(t, rels, `<Relationship Id="rId4" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/sharedStrings" Target="sharedStrings.xml"/></Relationships>`)
	types := readFile(t, after["[Content_Types].xml"])
	assert.Contains(t, types, `<Override PartName="/xl/sharedStrings.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sharedStrings+xml"/></Types>`)

	reread, err := out.SharedStrings()
	require.NoError(t, err)
	v, err := reread.Resolve(0)
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestSaveUnmodifiedIsIdentical(t *testing.T) {
	src := writeZip(t, baseEntries())
	a, err := Open(src)
	require.NoError(t, err)
	_, err = a.Worksheet("Raw")
	require.NoError(t, err)
	_, err = a.SharedStrings()
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "copy.xlsx")
	require.NoError(t, a.Save(dest, 1))

	before, after := readZip(t, src), readZip(t, dest)
	require.Len(t, after, len(before))
	for name, b := range before {
		assert.Equal(t, readFile(t, b), readFile(t, after[name]), name)
	}
}

func TestSaveOverSource(t *testing.T) {
	src := writeZip(t, baseEntries())
	a, err := Open(src)
	require.NoError(t, err)
	doc, err := a.Worksheet("Raw")
	require.NoError(t, err)
	require.NoError(t, doc.Set(cellref.MustParse("C3"), worksheet.Inline("x")))

	require.NoError(t, a.Save(src, 6))
	require.NoError(t, a.Save(src, 6))

	files, err := os.ReadDir(filepath.Dir(src))
	require.NoError(t, err)
	assert.Len(t, files, 1, "temporary files must not be left behind")

	out, err := Open(src)
	require.NoError(t, err)
	doc, err = out.Worksheet("Raw")
	require.NoError(t, err)
	c, ok := doc.Cell(cellref.MustParse("C3"))
	require.True(t, ok)
	assert.Equal(t, worksheet.Inline("x").Text, c.Value.Text)
}

func TestSaveToMissingDirectory(t *testing.T) {
	a, err := Open(writeZip(t, baseEntries()))
	require.NoError(t, err)
	err = a.Save(filepath.Join(t.TempDir(), "no", "such", "dir.xlsx"), 1)
	assert.ErrorIs(t, err, ErrIO)
}

func TestAddSheet(t *testing.T) {
	src := writeZip(t, baseEntries())
	a, err := Open(src)
	require.NoError(t, err)

	doc, err := a.AddSheet("Q1 & Q2")
	require.NoError(t, err)
	require.NoError(t, doc.Set(cellref.MustParse("A1"), worksheet.Inline("new")))

	_, err = a.AddSheet("DATA")
	assert.ErrorIs(t, err, ErrSheetExists)

	require.NoError(t, a.Save(src, 1))

	out, err := Open(src)
	require.NoError(t, err)
	assert.Equal(t, []string{"Summary", "Data", "Raw", "Q1 & Q2"}, out.SheetNames())
	sh, ok := out.Sheet("Q1 & Q2")
	require.True(t, ok)
	assert.Equal(t, 4, sh.SheetID)
	assert.Equal(t, "rId4", sh.RelID)
	assert.Equal(t, "xl/worksheets/sheet4.xml", sh.Path)

	added, err := out.Worksheet("Q1 & Q2")
	require.NoError(t, err)
	c, ok := added.Cell(cellref.MustParse("A1"))
	require.True(t, ok)
	assert.Equal(t, "new", c.Value.Text)

	files := readZip(t, src)
	wb := readFile(t, files["xl/workbook.xml"])
	assert.Contains(t, wb, `<sheet name="Q1 &amp; Q2" sheetId="4" r:id="rId4"/></sheets>`)
	types := readFile(t, files["[Content_Types].xml"])
	assert.Contains(t, types, `<Override PartName="/xl/worksheets/sheet4.xml" ContentType="`+ContentTypeWorksheet+`"/>`)
}

func TestAddSheetDeclaresRelationshipPrefix(t *testing.T) {
	entries := baseEntries()
	entries[2].body = strings.Replace(testWorkbook, ` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`, ` xmlns:rel="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`, 1)
	entries[2].body = strings.ReplaceAll(entries[2].body, "r:id=", "rel:id=")
	a, err := Open(writeZip(t, entries))
	require.NoError(t, err)
	require.Equal(t, []string{"Summary", "Data", "Raw"}, a.SheetNames())

	_, err = a.AddSheet("Extra")
	require.NoError(t, err)
	wb, ok, err := a.readEntry("xl/workbook.xml")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(wb), `<sheet name="Extra" sheetId="4" rel:id="rId4"/>`)
}

func TestAddSheetAtShiftsSheetPositions(t *testing.T) {
	entries := baseEntries()
	entries[2].body = strings.Replace(testWorkbook, `<workbookView/>`, `<workbookView activeTab="2" firstSheet="1"/>`, 1)
	entries[2].body = strings.Replace(entries[2].body, `</sheets>`, `</sheets><definedNames>`+
		`<definedName name="_xlnm.Print_Area" localSheetId="0">Summary!$A$1:$B$2</definedName>`+
		`<definedName name="_xlnm.Print_Area" localSheetId="2">Raw!$A$1:$B$2</definedName>`+
		`<definedName name="Total">Data!$B$2</definedName></definedNames>`, 1)
	a, err := Open(writeZip(t, entries))
	require.NoError(t, err)

	_, err = a.AddSheetAt("Inserted", 1)
	require.NoError(t, err)
	_, err = a.AddSheetAt("Front", -3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Front", "Summary", "Inserted", "Data", "Raw"}, a.SheetNames())

	wb, ok, err := a.readEntry("xl/workbook.xml")
	require.NoError(t, err)
	require.True(t, ok)
	got := string(wb)
	assert.Contains(t, got, `<workbookView activeTab="4" firstSheet="3"/>`)
	assert.Contains(t, got, `<sheets><sheet name="Front" sheetId="5" r:id="rId5"/><sheet name="Summary" sheetId="3" r:id="rId3"/><sheet name="Inserted" sheetId="4" r:id="rId4"/><sheet name="Data"`)
	assert.Contains(t, got, `<definedName name="_xlnm.Print_Area" localSheetId="1">Summary!$A$1:$B$2</definedName>`)
	assert.Contains(t, got, `<definedName name="_xlnm.Print_Area" localSheetId="4">Raw!$A$1:$B$2</definedName>`)
	assert.Contains(t, got, `<definedName name="Total">Data!$B$2</definedName>`)
}

func TestValidateSheetName(t *testing.T) {
	valid := []string{"Sheet1", "Données", "a b", strings.Repeat("x", 31), "It's"}
	for _, name := range valid {
		assert.NoError(t, ValidateSheetName(name), name)
	}
	invalid := []string{"", strings.Repeat("x", 32), "a/b", "a:b", "a?", "a*", "[a]", `a\b`, "'quoted'", "history"}
	for _, name := range invalid {
		assert.ErrorIs(t, ValidateSheetName(name), ErrInvalidSheetName, name)
	}
}

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		target, base, want string
	}{
		{"worksheets/sheet1.xml", "xl", "xl/worksheets/sheet1.xml"},
		{"/xl/worksheets/sheet1.xml", "xl", "xl/worksheets/sheet1.xml"},
		{"../drawings/drawing1.xml", "xl/worksheets", "xl/drawings/drawing1.xml"},
		{"xl/workbook.xml", "", "xl/workbook.xml"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resolveTarget(tt.target, tt.base))
	}
	assert.Equal(t, "sharedStrings.xml", relativeTarget("xl/sharedStrings.xml", "xl"))
	assert.Equal(t, "/other/part.xml", relativeTarget("other/part.xml", "xl"))
	assert.Equal(t, "xl/_rels/workbook.xml.rels", relsPathFor("xl/workbook.xml"))
}

func TestDescribeNonZip(t *testing.T) {
	assert.Equal(t, "not a zip archive", describeNonZip([]byte("plain")))
	assert.NotEqual(t, "not a zip archive", describeNonZip(bytes.Clone(cfbMagic)))
}
