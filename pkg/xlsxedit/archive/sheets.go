package archive

import (
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/internal/ooxml"
	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/worksheet"
)

// MaxSheetNameLength is the longest sheet name the format accepts.
const MaxSheetNameLength = 31

// foldName case-folds a sheet name. Casers keep state, so one is made per call.
func foldName(name string) string {
	return cases.Fold().String(name)
}

// ValidateSheetName checks name against the rules spreadsheet applications
// enforce for worksheet names.
func ValidateSheetName(name string) error {
	n := utf8.RuneCountInString(name)
	switch {
	case n == 0:
		return fmt.Errorf("%w: empty name", ErrInvalidSheetName)
	case n > MaxSheetNameLength:
		return fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidSheetName, name, MaxSheetNameLength)
	case strings.ContainsAny(name, `:\/?*[]`):
		return fmt.Errorf("%w: %q contains one of : \\ / ? * [ ]", ErrInvalidSheetName, name)
	case strings.HasPrefix(name, "'") || strings.HasSuffix(name, "'"):
		return fmt.Errorf("%w: %q starts or ends with an apostrophe", ErrInvalidSheetName, name)
	case foldName(name) == foldName("History"):
		return fmt.Errorf("%w: %q is reserved", ErrInvalidSheetName, name)
	}
	return nil
}

// sameSheetName compares sheet names the way spreadsheet applications do,
// ignoring case.
func sameSheetName(a, b string) bool {
	return foldName(a) == foldName(b)
}

// AddSheet appends an empty worksheet called name to the workbook and
// returns it. The workbook part, its relationships and the content types
// are updated in place; every other entry is left untouched.
func (a *Archive) AddSheet(name string) (*worksheet.Document, error) {
	return a.AddSheetAt(name, len(a.sheets))
}

// AddSheetAt inserts an empty worksheet called name at the 0-based position
// index of the workbook order. Positions past the end append; negative
// positions insert first. Defined names scoped to later sheets and the
// workbook view tabs are shifted so they keep pointing at the same sheets.
func (a *Archive) AddSheetAt(name string, index int) (*worksheet.Document, error) {
	index = min(max(index, 0), len(a.sheets))
	if err := ValidateSheetName(name); err != nil {
		return nil, err
	}
	for _, sh := range a.sheets {
		if sameSheetName(sh.Name, name) {
			return nil, fmt.Errorf("%w: %q", ErrSheetExists, name)
		}
	}

	wb, err := a.rawPart(a.workbookPath)
	if err != nil {
		return nil, err
	}
	relsPath := relsPathFor(a.workbookPath)
	rels, err := a.rawPart(relsPath)
	if err != nil {
		return nil, err
	}
	types, err := a.rawPart(contentTypesPath)
	if err != nil {
		return nil, err
	}

	partName := a.nextSheetPath()
	relID := a.nextRelID()
	sheetID := 1
	for _, sh := range a.sheets {
		sheetID = max(sheetID, sh.SheetID+1)
	}
	base := path.Dir(a.workbookPath)
	target := relativeTarget(partName, base)

	wbData, err := insertSheet(wb.data, name, sheetID, relID, index)
	if err == nil && index < len(a.sheets) {
		wbData, err = shiftSheetIndexes(wbData, index)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, a.workbookPath, err)
	}
	relsData, err := appendRelationship(rels.data, relID, RelTypeWorksheet, target)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, relsPath, err)
	}
	typesData, err := appendOverride(types.data, "/"+partName, ContentTypeWorksheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, contentTypesPath, err)
	}

	wb.data, wb.dirty = wbData, true
	rels.data, rels.dirty = relsData, true
	types.data, types.dirty = typesData, true
	a.rels = append(a.rels, xlsxRelationship{ID: relID, Type: RelTypeWorksheet, Target: target})
	a.sheets = slices.Insert(a.sheets, index, Sheet{Name: name, SheetID: sheetID, RelID: relID, Path: partName})

	doc := worksheet.New()
	a.addEntry(partName, doc)
	return doc, nil
}

// registerSharedStrings adds a shared string table created in this session
// to the package: entry, workbook relationship and content type override.
func (a *Archive) registerSharedStrings() error {
	if a.shared == nil || a.sharedRegistered || !a.shared.Dirty() {
		return nil
	}
	base := path.Dir(a.workbookPath)

	types, err := a.rawPart(contentTypesPath)
	if err != nil {
		return err
	}

	name := a.sharedPath
	var relsData []byte
	var rels *rawPart
	var relID string
	if name == "" {
		name = path.Join(base, "sharedStrings.xml")
		for i := 2; a.byName[name] != nil; i++ {
			name = path.Join(base, "sharedStrings"+strconv.Itoa(i)+".xml")
		}
		relsPath := relsPathFor(a.workbookPath)
		rels, err = a.rawPart(relsPath)
		if err != nil {
			return err
		}
		relID = a.nextRelID()
		relsData, err = appendRelationship(rels.data, relID, RelTypeSharedStrings, relativeTarget(name, base))
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrCorrupt, relsPath, err)
		}
	}
	typesData, err := appendOverride(types.data, "/"+name, ContentTypeSharedStrings)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, contentTypesPath, err)
	}

	if rels != nil {
		rels.data, rels.dirty = relsData, true
		a.rels = append(a.rels, xlsxRelationship{ID: relID, Type: RelTypeSharedStrings, Target: relativeTarget(name, base)})
	}
	types.data, types.dirty = typesData, true
	a.sharedPath = name
	a.sharedRegistered = true
	a.addEntry(name, a.shared)
	return nil
}

// nextSheetPath returns an unused worksheet entry name next to the existing
// worksheets.
func (a *Archive) nextSheetPath() string {
	dir := path.Join(path.Dir(a.workbookPath), "worksheets")
	for _, sh := range a.sheets {
		if sh.Path != "" {
			dir = path.Dir(sh.Path)
			break
		}
	}
	for n := len(a.sheets) + 1; ; n++ {
		name := path.Join(dir, "sheet"+strconv.Itoa(n)+".xml")
		if _, taken := a.byName[name]; !taken {
			return name
		}
	}
}

// nextRelID returns an unused relationship id of the form rIdN.
func (a *Archive) nextRelID() string {
	n := 0
	used := make(map[string]bool, len(a.rels))
	for _, r := range a.rels {
		used[r.ID] = true
		if v, ok := strings.CutPrefix(r.ID, "rId"); ok {
			if i, err := strconv.Atoi(v); err == nil {
				n = max(n, i)
			}
		}
	}
	for {
		n++
		id := "rId" + strconv.Itoa(n)
		if !used[id] {
			return id
		}
	}
}

func insertSheet(data []byte, name string, sheetID int, relID string, index int) ([]byte, error) {
	root, err := ooxml.Root(data)
	if err != nil {
		return nil, err
	}
	sheets, ok, err := ooxml.Find(data, "sheets")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no sheets element", ooxml.ErrMalformed)
	}

	var b strings.Builder
	b.WriteString("<" + ooxml.Name(sheets.Prefix(), "sheet"))
	b.WriteString(` name="` + ooxml.Escape(name) + `" sheetId="` + strconv.Itoa(sheetID) + `"`)
	prefix, declared := ooxml.PrefixFor(root.Start, NamespaceRelationships)
	if !declared || prefix == "" {
		prefix = "r"
		b.WriteString(` xmlns:r="` + NamespaceRelationships + `"`)
	}
	b.WriteString(" " + prefix + `:id="` + ooxml.Escape(relID) + `"/>`)
	return ooxml.InsertChild(data, sheets, "sheet", index, []byte(b.String()))
}

// sheetPositionAttrs lists the workbook attributes holding a 0-based sheet
// position, by element.
var sheetPositionAttrs = map[string][]string{
	"definedName":  {"localSheetId"},
	"workbookView": {"activeTab", "firstSheet"},
}

// shiftSheetIndexes adds one to every sheet position at or after index in
// the workbook part. Only the affected start tags are rewritten.
func shiftSheetIndexes(data []byte, index int) ([]byte, error) {
	type edit struct {
		start, end int
		tag        string
	}
	var edits []edit
	s := ooxml.NewScanner(data)
	for {
		tok, err := s.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		el, ok := tok.Token.(xml.StartElement)
		if !ok {
			continue
		}
		changed := false
		for _, local := range sheetPositionAttrs[el.Name.Local] {
			v, ok := ooxml.Attr(el, "", local)
			if !ok {
				continue
			}
			n, err := strconv.Atoi(v)
			if err != nil || n < index {
				continue
			}
			ooxml.SetAttr(&el, local, strconv.Itoa(n+1))
			changed = true
		}
		if changed {
			edits = append(edits, edit{start: tok.Start, end: tok.End, tag: ooxml.StartTag(el, s.SelfClosing(tok))})
		}
	}
	for i := len(edits) - 1; i >= 0; i-- {
		data = ooxml.Replace(data, edits[i].start, edits[i].end, edits[i].tag)
	}
	return data, nil
}

func appendRelationship(data []byte, id, relType, target string) ([]byte, error) {
	root, err := ooxml.Root(data)
	if err != nil {
		return nil, err
	}
	frag := "<" + ooxml.Name(root.Prefix(), "Relationship") +
		` Id="` + ooxml.Escape(id) + `" Type="` + ooxml.Escape(relType) +
		`" Target="` + ooxml.Escape(target) + `"/>`
	return ooxml.AppendChild(data, root, []byte(frag)), nil
}

func appendOverride(data []byte, partName, contentType string) ([]byte, error) {
	types, err := parseContentTypes(data)
	if err != nil {
		return nil, err
	}
	for _, o := range types.Overrides {
		if strings.EqualFold(o.PartName, partName) {
			return data, nil
		}
	}
	root, err := ooxml.Root(data)
	if err != nil {
		return nil, err
	}
	frag := "<" + ooxml.Name(root.Prefix(), "Override") +
		` PartName="` + ooxml.Escape(partName) + `" ContentType="` + ooxml.Escape(contentType) + `"/>`
	return ooxml.AppendChild(data, root, []byte(frag)), nil
}
