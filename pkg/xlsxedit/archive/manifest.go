package archive

import (
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/internal/ooxml"
)

// Relationship and content type identifiers.
const (
	NamespaceRelationships = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	NamespacePackageRels   = "http://schemas.openxmlformats.org/package/2006/relationships"

	RelTypeOfficeDocument = NamespaceRelationships + "/officeDocument"
	RelTypeWorksheet      = NamespaceRelationships + "/worksheet"
	RelTypeSharedStrings  = NamespaceRelationships + "/sharedStrings"

	ContentTypeWorksheet     = "application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"
	ContentTypeSharedStrings = "application/vnd.openxmlformats-officedocument.spreadsheetml.sharedStrings+xml"

	contentTypesPath = "[Content_Types].xml"
	rootRelsPath     = "_rels/.rels"
	defaultWorkbook  = "xl/workbook.xml"
)

// xlsxRelationships is the root of a .rels part.
type xlsxRelationships struct {
	XMLName       xml.Name           `xml:"Relationships"`
	Relationships []xlsxRelationship `xml:"Relationship"`
}

// xlsxRelationship is one package relationship.
type xlsxRelationship struct {
	ID         string `xml:"Id,attr"`
	Target     string `xml:"Target,attr"`
	Type       string `xml:"Type,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

// xlsxTypes is the root of [Content_Types].xml.
type xlsxTypes struct {
	XMLName   xml.Name       `xml:"Types"`
	Overrides []xlsxOverride `xml:"Override"`
	Defaults  []xlsxDefault  `xml:"Default"`
}

type xlsxOverride struct {
	PartName    string `xml:",attr"`
	ContentType string `xml:",attr"`
}

type xlsxDefault struct {
	Extension   string `xml:",attr"`
	ContentType string `xml:",attr"`
}

// Sheet is one worksheet declared in the workbook manifest.
type Sheet struct {
	Name    string
	SheetID int
	RelID   string
	// Path is the archive entry name of the worksheet part, empty when the
	// relationship could not be resolved.
	Path  string
	State string
}

func parseRels(data []byte) ([]xlsxRelationship, error) {
	data, err := ooxml.ToUTF8(data)
	if err != nil {
		return nil, err
	}
	var rels xlsxRelationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("%w: %v", ooxml.ErrMalformed, err)
	}
	return rels.Relationships, nil
}

func parseContentTypes(data []byte) (xlsxTypes, error) {
	data, err := ooxml.ToUTF8(data)
	if err != nil {
		return xlsxTypes{}, err
	}
	var types xlsxTypes
	if err := xml.Unmarshal(data, &types); err != nil {
		return xlsxTypes{}, fmt.Errorf("%w: %v", ooxml.ErrMalformed, err)
	}
	return types, nil
}

// parseWorkbookSheets returns the <sheet> entries of a workbook part in
// declaration order. The relationship id attribute is matched by local name
// whatever prefix it was written with.
func parseWorkbookSheets(data []byte) ([]Sheet, error) {
	var sheets []Sheet
	s := ooxml.NewScanner(data)
	inSheets := false
	for {
		tok, err := s.Next()
		if err == io.EOF {
			return sheets, nil
		}
		if err != nil {
			return nil, err
		}
		switch el := tok.Token.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "sheets":
				inSheets = true
			case "sheet":
				if !inSheets {
					continue
				}
				sh := Sheet{}
				for _, a := range el.Attr {
					switch {
					case a.Name.Space == "" && a.Name.Local == "name":
						sh.Name = a.Value
					case a.Name.Space == "" && a.Name.Local == "sheetId":
						sh.SheetID, _ = strconv.Atoi(a.Value)
					case a.Name.Space == "" && a.Name.Local == "state":
						sh.State = a.Value
					case a.Name.Space != "" && a.Name.Space != "xmlns" && a.Name.Local == "id":
						sh.RelID = a.Value
					}
				}
				if sh.Name == "" {
					return nil, fmt.Errorf("%w: sheet without a name", ooxml.ErrMalformed)
				}
				sheets = append(sheets, sh)
			}
		case xml.EndElement:
			if el.Name.Local == "sheets" {
				inSheets = false
			}
		}
	}
}

// resolveTarget resolves a relationship target against the directory of
// the part that owns the relationship.
func resolveTarget(target, baseDir string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return strings.TrimPrefix(path.Clean(path.Join(baseDir, target)), "/")
}

// relativeTarget is the inverse of resolveTarget for parts under baseDir.
func relativeTarget(name, baseDir string) string {
	if rest, ok := strings.CutPrefix(name, baseDir+"/"); ok && baseDir != "" {
		return rest
	}
	return "/" + name
}

// relsPathFor returns the relationships part of a part: xl/workbook.xml
// maps to xl/_rels/workbook.xml.rels.
func relsPathFor(name string) string {
	dir, file := path.Split(name)
	return dir + "_rels/" + file + ".rels"
}
