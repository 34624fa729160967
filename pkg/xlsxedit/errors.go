package xlsxedit

import (
	"errors"
	"fmt"

	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/archive"
	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/cellref"
	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/sharedstrings"
	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/worksheet"
)

// ErrArchiveNotFound indicates the workbook file does not exist.
var ErrArchiveNotFound = archive.ErrNotFound

// ErrArchiveCorrupt indicates the file is not a readable workbook package.
var ErrArchiveCorrupt = archive.ErrCorrupt

// ErrNoSheets indicates a workbook without worksheets.
var ErrNoSheets = archive.ErrNoSheets

// ErrSheetNotFound indicates a sheet name absent from the workbook.
var ErrSheetNotFound = archive.ErrSheetNotFound

// ErrSheetExists indicates a sheet name already used in the workbook.
var ErrSheetExists = archive.ErrSheetExists

// ErrInvalidSheetName indicates a sheet name the format does not allow.
var ErrInvalidSheetName = archive.ErrInvalidSheetName

// ErrIO indicates a filesystem failure while saving.
var ErrIO = archive.ErrIO

// ErrSerialization indicates a part that could not be encoded.
var ErrSerialization = archive.ErrSerialization

// ErrInvalidReference indicates a malformed or out-of-range cell reference.
var ErrInvalidReference = cellref.ErrInvalidReference

// ErrStringIndexOutOfRange indicates a cell pointing past the shared string table.
var ErrStringIndexOutOfRange = sharedstrings.ErrIndexOutOfRange

// ErrMergeOverlap indicates a merged range overlapping an existing one.
var ErrMergeOverlap = worksheet.ErrMergeOverlap

// ErrInvalidValue indicates a value that cannot be stored in a cell.
var ErrInvalidValue = worksheet.ErrInvalidValue

// ErrNoActiveSheet indicates a mutation on a session with no sheet selected.
var ErrNoActiveSheet = errors.New("no active sheet")

// ErrInvalidFormula indicates a formula that is empty or references
// cells outside the sheet.
var ErrInvalidFormula = errors.New("invalid formula")

// ErrInvalidOptions indicates options outside their accepted range.
var ErrInvalidOptions = errors.New("invalid options")

// Error records the failed operation along with the workbook and sheet.
type Error struct {
	Op    string
	Path  string
	Sheet string
	Err   error
}

func (e *Error) Error() string {
	if e.Sheet != "" {
		return fmt.Sprintf("%s %s (sheet %q): %v", e.Op, e.Path, e.Sheet, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error.
func NewError(op, path, sheet string, err error) *Error {
	return &Error{
		Op:    op,
		Path:  path,
		Sheet: sheet,
		Err:   err,
	}
}
