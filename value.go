package xlform

import (
	"fmt"
	"strconv"
	"strings"
)

// CellKind represents the type of data in a cell.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
)

// String returns a human-readable name for the CellKind.
func (k CellKind) String() string {
	switch k {
	case CellEmpty:
		return "Empty"
	case CellText:
		return "Text"
	case CellNumber:
		return "Number"
	default:
		return "Unknown"
	}
}

// CellValue is the value held by one grid cell: empty, text or a number.
// The zero value is Empty.
type CellValue struct {
	kind CellKind
	text string
	num  float64
}

// Empty returns the empty cell value.
func Empty() CellValue { return CellValue{} }

// Text returns a text cell value.
func Text(s string) CellValue { return CellValue{kind: CellText, text: s} }

// Number returns a numeric cell value.
func Number(f float64) CellValue { return CellValue{kind: CellNumber, num: f} }

// Kind reports which variant v holds.
func (v CellValue) Kind() CellKind { return v.kind }

// IsEmpty reports whether v is the empty variant.
func (v CellValue) IsEmpty() bool { return v.kind == CellEmpty }

// Float returns the numeric payload and whether v is a number.
func (v CellValue) Float() (float64, bool) { return v.num, v.kind == CellNumber }

// String is the single stringification rule used by the audit trail and the
// reconciler: Empty → "", numbers in shortest canonical form.
func (v CellValue) String() string {
	switch v.kind {
	case CellText:
		return v.text
	case CellNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	default:
		return ""
	}
}

// ParseCellValue infers a CellValue from raw cell text: "" is Empty, numeric
// text is a Number, anything else is Text.
func ParseCellValue(s string) CellValue {
	if s == "" {
		return Empty()
	}
	if looksNumeric(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Number(f)
		}
	}
	return Text(s)
}

// looksNumeric rejects inputs ParseFloat would accept but a sheet would show
// as text ("Inf", "NaN", "0x1p-2", " 1").
func looksNumeric(s string) bool {
	if strings.TrimSpace(s) != s {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E' {
			continue
		}
		return false
	}
	return true
}

// ValueOf converts a loosely typed grid value into a CellValue. nil → Empty.
func ValueOf(x any) CellValue {
	switch t := x.(type) {
	case nil:
		return Empty()
	case CellValue:
		return t
	case string:
		if t == "" {
			return Empty()
		}
		return Text(t)
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case int32:
		return Number(float64(t))
	case bool:
		return Text(strconv.FormatBool(t))
	default:
		return Text(fmt.Sprint(t))
	}
}
