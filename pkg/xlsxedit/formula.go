package xlsxedit

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xuri/efp"

	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/cellref"
)

// cellLike matches operands shaped like a single A1 reference. Longer
// letter runs are defined names.
var cellLike = regexp.MustCompile(`^\$?([A-Za-z]{1,3})\$?[0-9]+$`)

// checkFormula strips the leading '=' and rejects formulas that are empty or
// contain a cell reference outside the sheet.
func checkFormula(formula string) (string, error) {
	f := strings.TrimPrefix(strings.TrimSpace(formula), "=")
	if strings.TrimSpace(f) == "" {
		return "", fmt.Errorf("%w: empty formula", ErrInvalidFormula)
	}

	ps := efp.ExcelParser()
	for _, token := range ps.Parse(f) {
		if token.TType != efp.TokenTypeOperand || token.TSubType != efp.TokenSubTypeRange {
			continue
		}
		if err := checkReference(token.TValue); err != nil {
			return "", err
		}
	}
	return f, nil
}

func checkReference(ref string) error {
	if i := strings.LastIndexByte(ref, '!'); i >= 0 {
		ref = ref[i+1:]
	}
	for _, part := range strings.Split(ref, ":") {
		m := cellLike.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		// columns past the grid make it a defined name such as XYZ1
		if _, err := cellref.ColumnNumber(m[1]); err != nil {
			continue
		}
		if _, err := cellref.Parse(strings.ReplaceAll(part, "$", "")); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidFormula, err)
		}
	}
	return nil
}
