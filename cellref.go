package xlform

import (
	"strconv"
	"strings"
)

// CellRef identifies a single cell of a workbook.
type CellRef struct {
	Sheet string // sheet name (empty = active sheet)
	Row   int    // 0-based row index
	Col   int    // 0-based column index
}

// NewCellRef creates a CellRef with explicit sheet, row, col.
func NewCellRef(sheet string, row, col int) CellRef {
	return CellRef{Sheet: sheet, Row: row, Col: col}
}

// EncodeAddress converts a 0-based (row, col) pair into an address like "B12".
func EncodeAddress(row, col int) string {
	return ColToName(col) + strconv.Itoa(row+1)
}

// DecodeAddress parses an address like "B12" into a 0-based (row, col) pair.
// Absolute markers ("$A$1") and lower-case letters are accepted.
func DecodeAddress(addr string) (row, col int, err error) {
	name := strings.ReplaceAll(strings.TrimSpace(addr), "$", "")

	i := 0
	for i < len(name) && isAlpha(name[i]) {
		i++
	}
	if i == 0 || i == len(name) {
		return 0, 0, &AddressError{Address: addr}
	}

	col, err = NameToCol(name[:i])
	if err != nil {
		return 0, 0, &AddressError{Address: addr, Err: err}
	}

	rowNum := 0
	for _, ch := range name[i:] {
		if ch < '0' || ch > '9' {
			return 0, 0, &AddressError{Address: addr}
		}
		rowNum = rowNum*10 + int(ch-'0')
		if rowNum > maxRows {
			return 0, 0, &AddressError{Address: addr}
		}
	}
	if rowNum < 1 {
		return 0, 0, &AddressError{Address: addr}
	}
	return rowNum - 1, col, nil
}

// NormalizeAddress returns the canonical upper-case form of addr.
func NormalizeAddress(addr string) (string, error) {
	row, col, err := DecodeAddress(addr)
	if err != nil {
		return "", err
	}
	return EncodeAddress(row, col), nil
}

// ParseCellRef parses "A1", "Sheet1!B5" or "'My Sheet'!$A$1".
func ParseCellRef(s string) (CellRef, error) {
	s = strings.TrimSpace(s)
	var sheet string
	cellPart := s
	if idx := strings.LastIndex(s, "!"); idx >= 0 {
		sheet = strings.Trim(s[:idx], "'")
		cellPart = s[idx+1:]
	}
	row, col, err := DecodeAddress(cellPart)
	if err != nil {
		return CellRef{}, &AddressError{Address: s, Err: err}
	}
	return CellRef{Sheet: sheet, Row: row, Col: col}, nil
}

func isAlpha(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// String formats the CellRef as "Sheet1!A1" or "A1" if no sheet.
func (c CellRef) String() string {
	name := c.CellName()
	if c.Sheet != "" {
		return c.Sheet + "!" + name
	}
	return name
}

// CellName returns just the cell part like "A1" without sheet name.
func (c CellRef) CellName() string {
	return EncodeAddress(c.Row, c.Col)
}

// ColToName converts a 0-based column index to a column name.
// 0→"A", 25→"Z", 26→"AA", 702→"AAA"
func ColToName(col int) string {
	var buf [8]byte
	i := len(buf)
	col++
	for col > 0 {
		col--
		i--
		buf[i] = byte('A' + col%26)
		col /= 26
	}
	return string(buf[i:])
}

// NameToCol converts a column name to a 0-based column index.
// "A"→0, "Z"→25, "AA"→26
func NameToCol(name string) (int, error) {
	if name == "" || len(name) > maxColLetters {
		return 0, &AddressError{Address: name}
	}
	col := 0
	for _, ch := range strings.ToUpper(name) {
		if ch < 'A' || ch > 'Z' {
			return 0, &AddressError{Address: name}
		}
		col = col*26 + int(ch-'A') + 1
	}
	return col - 1, nil
}

const (
	maxColLetters = 4
	maxRows       = 9_999_999
)
