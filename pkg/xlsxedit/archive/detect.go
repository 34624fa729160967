package archive

import (
	"bytes"

	"github.com/richardlehane/mscfb"
)

var cfbMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// describeNonZip explains why data is not a usable workbook package. It
// recognises password-protected workbooks and legacy binary workbooks, both
// stored as compound files.
func describeNonZip(data []byte) string {
	if !bytes.HasPrefix(data, cfbMagic) {
		return "not a zip archive"
	}
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return "unreadable compound file"
	}
	legacy := false
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		switch entry.Name {
		case "EncryptedPackage", "EncryptionInfo":
			return "workbook is password protected"
		case "Workbook", "Book":
			legacy = true
		}
	}
	if legacy {
		return "legacy binary workbook (.xls)"
	}
	return "compound file is not a workbook package"
}
