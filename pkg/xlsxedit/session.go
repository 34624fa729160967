package xlsxedit

import (
	"fmt"

	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/archive"
	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/cellref"
	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/sharedstrings"
	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/worksheet"
)

// Session is an open workbook with at most one active worksheet. It is not
// safe for concurrent use.
type Session struct {
	path string
	opts Options
	arc  *archive.Archive
	sst  *sharedstrings.Table

	sheet string
	doc   *worksheet.Document
}

// Scan returns the worksheet names of the workbook at path in workbook
// order, without parsing any worksheet.
func Scan(path string) ([]string, error) {
	a, err := archive.Open(path)
	if err != nil {
		return nil, NewError("scan", path, "", err)
	}
	return a.SheetNames(), nil
}

// Open opens the workbook at path with default options and selects sheet.
func Open(path, sheet string) (*Session, error) {
	return OpenWithOptions(path, sheet, DefaultOptions())
}

// OpenWithOptions opens the workbook at path and selects sheet.
func OpenWithOptions(path, sheet string, opts Options) (*Session, error) {
	s, err := OpenWorkbook(path, opts)
	if err != nil {
		return nil, err
	}
	if err := s.SelectSheet(sheet); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenWorkbook opens the workbook at path without selecting a sheet.
// Mutations fail with ErrNoActiveSheet until SelectSheet or AddSheet is
// called.
func OpenWorkbook(path string, opts Options) (*Session, error) {
	if err := opts.validate(); err != nil {
		return nil, NewError("open", path, "", err)
	}
	a, err := archive.Open(path)
	if err != nil {
		return nil, NewError("open", path, "", err)
	}
	tbl, err := a.SharedStrings()
	if err != nil {
		return nil, NewError("open", path, "", err)
	}
	return &Session{path: path, opts: opts, arc: a, sst: tbl}, nil
}

// Path returns the file the session was opened from.
func (s *Session) Path() string {
	return s.path
}

// SheetNames returns the worksheet names in workbook order.
func (s *Session) SheetNames() []string {
	return s.arc.SheetNames()
}

// ActiveSheet returns the name of the selected worksheet, or "" if none.
func (s *Session) ActiveSheet() string {
	return s.sheet
}

// SelectSheet makes name the active worksheet. Edits made to previously
// selected sheets are kept and saved.
func (s *Session) SelectSheet(name string) error {
	doc, err := s.arc.Worksheet(name)
	if err != nil {
		return NewError("open", s.path, name, err)
	}
	if s.opts.ShouldValidateSharedStrings() {
		n := s.sst.Len()
		err := doc.SharedIndexes(func(a cellref.Address, i int) error {
			if i < 0 || i >= n {
				return fmt.Errorf("%w: %s references %d (table has %d entries)", ErrStringIndexOutOfRange, a, i, n)
			}
			return nil
		})
		if err != nil {
			return NewError("open", s.path, name, err)
		}
	}
	s.sheet, s.doc = name, doc
	return nil
}

// AddSheet appends an empty worksheet and makes it the active sheet.
func (s *Session) AddSheet(name string) error {
	return s.AddSheetAt(name, len(s.arc.SheetNames()))
}

// AddSheetAt inserts an empty worksheet at the 0-based position index and
// makes it the active sheet. Positions past the end append.
func (s *Session) AddSheetAt(name string, index int) error {
	doc, err := s.arc.AddSheetAt(name, index)
	if err != nil {
		return NewError("add_sheet", s.path, name, err)
	}
	s.sheet, s.doc = name, doc
	return nil
}

// Save writes the workbook to path, which may be the file it was opened
// from. Save may be called more than once.
func (s *Session) Save(path string) error {
	if err := s.arc.Save(path, s.opts.CompressionLevel); err != nil {
		return NewError("save", path, "", err)
	}
	return nil
}
