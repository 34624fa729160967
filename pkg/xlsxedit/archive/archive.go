// Package archive models a workbook package as an ordered list of ZIP
// entries. Entries stay raw until a caller asks for them as parsed parts;
// saving re-serialises only modified parts and copies everything else
// byte for byte.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/internal/ooxml"
	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/sharedstrings"
	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/worksheet"
)

var (
	// ErrNotFound indicates the workbook file does not exist.
	ErrNotFound = errors.New("workbook not found")
	// ErrCorrupt indicates the file is not a readable workbook package.
	ErrCorrupt = errors.New("workbook archive is corrupt")
	// ErrNoSheets indicates a workbook manifest without worksheets.
	ErrNoSheets = errors.New("workbook has no sheets")
	// ErrSheetNotFound indicates a sheet name absent from the manifest.
	ErrSheetNotFound = errors.New("sheet not found")
	// ErrSheetExists indicates a sheet name already used in the workbook.
	ErrSheetExists = errors.New("sheet already exists")
	// ErrInvalidSheetName indicates a name the spreadsheet format does not allow.
	ErrInvalidSheetName = errors.New("invalid sheet name")
	// ErrIO indicates a filesystem failure.
	ErrIO = errors.New("i/o error")
	// ErrSerialization indicates a part that could not be encoded.
	ErrSerialization = errors.New("serialization error")
)

// Part is an archive entry held in parsed form.
type Part interface {
	Dirty() bool
	Marshal() ([]byte, error)
}

// rawPart is an XML part edited by splicing bytes.
type rawPart struct {
	data  []byte
	dirty bool
}

func (p *rawPart) Dirty() bool { return p.dirty }
func (p *rawPart) Marshal() ([]byte, error) { return p.data, nil }

type entry struct {
	name string
	file *zip.File // source entry, nil for parts created in this session
	part Part
}

// Archive is an opened workbook package.
type Archive struct {
	path    string
	entries []*entry
	byName  map[string]*entry

	workbookPath string
	sheets       []Sheet
	rels         []xlsxRelationship

	sharedPath       string
	shared           *sharedstrings.Table
	sharedRegistered bool
}

// Open reads the package at path and its workbook manifest. Worksheets and
// the shared string table are parsed on first use.
func Open(name string) (*Archive, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return Read(name, data)
}

// Read opens a package held in memory. name is used in error messages.
func Read(name string, data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrCorrupt, name, describeNonZip(data))
	}

	a := &Archive{path: name, byName: make(map[string]*entry, len(zr.File))}
	for _, f := range zr.File {
		if _, dup := a.byName[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate entry %s", ErrCorrupt, f.Name)
		}
		e := &entry{name: f.Name, file: f}
		a.entries = append(a.entries, e)
		a.byName[f.Name] = e
	}
	if err := a.readManifest(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Archive) readManifest() error {
	a.workbookPath = defaultWorkbook
	if data, ok, err := a.readEntry(rootRelsPath); err != nil {
		return err
	} else if ok {
		rels, err := parseRels(data)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrCorrupt, rootRelsPath, err)
		}
		for _, r := range rels {
			if r.Type == RelTypeOfficeDocument || strings.HasSuffix(r.Type, "/officeDocument") {
				a.workbookPath = resolveTarget(r.Target, "")
				break
			}
		}
	}

	wb, ok, err := a.readEntry(a.workbookPath)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: missing workbook part %s", ErrCorrupt, a.workbookPath)
	}
	wb, err = ooxml.ToUTF8(wb)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, a.workbookPath, err)
	}
	a.sheets, err = parseWorkbookSheets(wb)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, a.workbookPath, err)
	}
	if len(a.sheets) == 0 {
		return fmt.Errorf("%w: %s", ErrNoSheets, a.path)
	}

	if data, ok, err := a.readEntry(relsPathFor(a.workbookPath)); err != nil {
		return err
	} else if ok {
		a.rels, err = parseRels(data)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrCorrupt, relsPathFor(a.workbookPath), err)
		}
	}
	a.resolveSheets()
	return nil
}

// resolveSheets maps sheets and the shared string table to entry names
// through the workbook relationships.
func (a *Archive) resolveSheets() {
	base := path.Dir(a.workbookPath)
	byID := make(map[string]xlsxRelationship, len(a.rels))
	a.sharedPath = ""
	for _, r := range a.rels {
		byID[r.ID] = r
		if strings.HasSuffix(r.Type, "/sharedStrings") && r.TargetMode != "External" {
			a.sharedPath = resolveTarget(r.Target, base)
		}
	}
	for i, sh := range a.sheets {
		if r, ok := byID[sh.RelID]; ok && r.TargetMode != "External" {
			a.sheets[i].Path = resolveTarget(r.Target, base)
		}
	}
}

// readEntry returns the bytes of the named entry. ok is false when the
// archive has no such entry.
func (a *Archive) readEntry(name string) ([]byte, bool, error) {
	e, ok := a.byName[name]
	if !ok {
		return nil, false, nil
	}
	if e.part != nil {
		data, err := e.part.Marshal()
		if err != nil {
			return nil, true, fmt.Errorf("%w: %s: %v", ErrSerialization, name, err)
		}
		return data, true, nil
	}
	rc, err := e.file.Open()
	if err != nil {
		return nil, true, fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
	}
	return data, true, nil
}

// Path returns the file the archive was read from.
func (a *Archive) Path() string {
	return a.path
}

// Sheets returns the worksheets in workbook order.
func (a *Archive) Sheets() []Sheet {
	return append([]Sheet(nil), a.sheets...)
}

// SheetNames returns the worksheet names in workbook order.
func (a *Archive) SheetNames() []string {
	names := make([]string, len(a.sheets))
	for i, sh := range a.sheets {
		names[i] = sh.Name
	}
	return names
}

// EntryNames returns every entry name in archive order.
func (a *Archive) EntryNames() []string {
	names := make([]string, len(a.entries))
	for i, e := range a.entries {
		names[i] = e.name
	}
	return names
}

// Sheet returns the manifest entry for name.
func (a *Archive) Sheet(name string) (Sheet, bool) {
	for _, sh := range a.sheets {
		if sh.Name == name {
			return sh, true
		}
	}
	return Sheet{}, false
}

// Worksheet returns the parsed worksheet called name, parsing it on first
// use. Repeated calls return the same document.
func (a *Archive) Worksheet(name string) (*worksheet.Document, error) {
	sh, ok := a.Sheet(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
	}
	if sh.Path == "" {
		return nil, fmt.Errorf("%w: sheet %q has no worksheet relationship", ErrCorrupt, name)
	}
	e, ok := a.byName[sh.Path]
	if !ok {
		return nil, fmt.Errorf("%w: missing worksheet part %s", ErrCorrupt, sh.Path)
	}
	if e.part != nil {
		doc, ok := e.part.(*worksheet.Document)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a worksheet", ErrCorrupt, sh.Path)
		}
		return doc, nil
	}
	data, _, err := a.readEntry(sh.Path)
	if err != nil {
		return nil, err
	}
	doc, err := worksheet.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, sh.Path, err)
	}
	e.part = doc
	return doc, nil
}

// SharedStrings returns the shared string table, parsing it on first use.
// A workbook without one gets an empty table that is added to the package
// on save if strings were inserted.
func (a *Archive) SharedStrings() (*sharedstrings.Table, error) {
	if a.shared != nil {
		return a.shared, nil
	}
	if a.sharedPath != "" {
		data, ok, err := a.readEntry(a.sharedPath)
		if err != nil {
			return nil, err
		}
		if ok {
			tbl, err := sharedstrings.Parse(data)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, a.sharedPath, err)
			}
			a.byName[a.sharedPath].part = tbl
			a.shared = tbl
			a.sharedRegistered = true
			return tbl, nil
		}
	}
	a.shared = sharedstrings.New()
	return a.shared, nil
}

// rawPart returns the named entry as a splice-editable part.
func (a *Archive) rawPart(name string) (*rawPart, error) {
	e, ok := a.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: missing part %s", ErrCorrupt, name)
	}
	if p, ok := e.part.(*rawPart); ok {
		return p, nil
	}
	if e.part != nil {
		return nil, fmt.Errorf("%w: %s is already parsed", ErrCorrupt, name)
	}
	data, _, err := a.readEntry(name)
	if err != nil {
		return nil, err
	}
	data, err = ooxml.ToUTF8(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
	}
	p := &rawPart{data: data}
	e.part = p
	return p, nil
}

// addEntry appends a part created in this session.
func (a *Archive) addEntry(name string, part Part) {
	e := &entry{name: name, part: part}
	a.entries = append(a.entries, e)
	a.byName[name] = e
}
