package cellref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  Address
	}{
		{"A1", Address{Row: 1, Col: 1}},
		{"Z9", Address{Row: 9, Col: 26}},
		{"AA10", Address{Row: 10, Col: 27}},
		{"AZ3", Address{Row: 3, Col: 52}},
		{"BA3", Address{Row: 3, Col: 53}},
		{"XFD1048576", Address{Row: MaxRows, Col: MaxColumns}},
		{"b2", Address{Row: 2, Col: 2}},
		{"C007", Address{Row: 7, Col: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRejects(t *testing.T) {
	for _, input := range []string{"", "1A", "A0", "A1A", "A", "1", "A-1", "$A$1", "XFE1", "A1048577", "A 1", "???", "AAAA1", "A99999999", "A+1", "A99999999999999999999", " A1"} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			assert.ErrorIs(t, err, ErrInvalidReference)
		})
	}
}

func TestFormatRoundTrip(t *testing.T) {
	for _, ref := range []string{"A1", "Z1", "AA1", "ZZ99", "AAA7", "XFD1048576", "C3"} {
		a, err := Parse(ref)
		require.NoError(t, err)
		assert.Equal(t, ref, Format(a))
	}
}

func TestColumnNameMatchesExcelize(t *testing.T) {
	for _, col := range []int{1, 2, 25, 26, 27, 52, 53, 701, 702, 703, 16383, MaxColumns} {
		want, err := excelize.ColumnNumberToName(col)
		require.NoError(t, err)
		assert.Equal(t, want, ColumnName(col), "column %d", col)

		n, err := ColumnNumber(want)
		require.NoError(t, err)
		assert.Equal(t, col, n)
	}
	assert.Empty(t, ColumnName(0))
	assert.Empty(t, ColumnName(MaxColumns+1))

	for _, bad := range []string{"", "XFE", "AAAA", "A1", "$A", "é"} {
		_, err := ColumnNumber(bad)
		assert.ErrorIs(t, err, ErrInvalidReference, bad)
	}
	n, err := ColumnNumber("xfd")
	require.NoError(t, err)
	assert.Equal(t, MaxColumns, n)
}

func TestParseMatchesExcelize(t *testing.T) {
	for _, ref := range []string{"A1", "BC45", "XFD1", "AB1048576"} {
		col, row, err := excelize.CellNameToCoordinates(ref)
		require.NoError(t, err)
		a, err := Parse(ref)
		require.NoError(t, err)
		assert.Equal(t, Address{Row: row, Col: col}, a)
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"B2:D4", "B2:D4"},
		{"D4:B2", "B2:D4"},
		{"D2:B4", "B2:D4"},
		{"C3", "C3"},
		{"C3:C3", "C3"},
	}

	for _, tt := range tests {
		r, err := ParseRange(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, r.String())
	}

	_, err := ParseRange("A1:")
	assert.ErrorIs(t, err, ErrInvalidReference)
	_, err = ParseRange("1:2")
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestRangeOverlaps(t *testing.T) {
	base, _ := ParseRange("B2:D4")
	tests := []struct {
		other string
		want  bool
	}{
		{"A1:B2", true},
		{"D4:F6", true},
		{"C3", true},
		{"E1:F9", false},
		{"A5:Z9", false},
		{"A1:A9", false},
	}
	for _, tt := range tests {
		o, err := ParseRange(tt.other)
		require.NoError(t, err)
		assert.Equal(t, tt.want, base.Overlaps(o), tt.other)
		assert.Equal(t, tt.want, o.Overlaps(base), tt.other)
	}
	assert.True(t, base.Contains(MustParse("D2")))
	assert.False(t, base.Contains(MustParse("E2")))
}

func TestParseColumns(t *testing.T) {
	first, last, err := ParseColumns("A:D")
	require.NoError(t, err)
	assert.Equal(t, 1, first)
	assert.Equal(t, 4, last)

	first, last, err = ParseColumns("c")
	require.NoError(t, err)
	assert.Equal(t, 3, first)
	assert.Equal(t, 3, last)

	_, _, err = ParseColumns("D:A")
	assert.ErrorIs(t, err, ErrInvalidReference)
	_, _, err = ParseColumns("A1:B")
	assert.ErrorIs(t, err, ErrInvalidReference)
}
