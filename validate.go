package xlform

import "fmt"

// Severity indicates the severity of a validation issue.
type Severity int

const (
	SeverityError   Severity = iota // Mapping can never be edited
	SeverityWarning                 // Mapping is accepted but probably unintended
)

// ValidationIssue represents a single problem found in a mapping.
type ValidationIssue struct {
	Severity Severity
	Index    int // position in the submitted cell list
	Cell     MappedCell
	Message  string
}

// String formats the issue as "[ERROR] Sheet1!A2: message" or "[WARN] ...".
func (v ValidationIssue) String() string {
	sev := "ERROR"
	if v.Severity == SeverityWarning {
		sev = "WARN"
	}
	return fmt.Sprintf("[%s] %s!%s: %s", sev, v.Cell.SheetName, v.Cell.CellRef, v.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []ValidationIssue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidateMapping checks submitted cells against a workbook. A nil workbook
// skips the sheet checks. Duplicates are warnings: BuildMappingSet drops them.
func ValidateMapping(wb *Workbook, cells []MappedCell) []ValidationIssue {
	var issues []ValidationIssue
	seen := make(map[cellKey]bool, len(cells))

	for i, c := range cells {
		c = normalizeCell(c)
		if _, _, err := DecodeAddress(c.CellRef); err != nil {
			issues = append(issues, ValidationIssue{SeverityError, i, c, "invalid cell address"})
			continue
		}
		if wb != nil {
			if _, ok := wb.Sheet(c.SheetName); !ok {
				issues = append(issues, ValidationIssue{SeverityError, i, c, "sheet not found in workbook"})
			}
		}
		switch c.DataType {
		case DataText, DataNumber, DataDate:
		default:
			issues = append(issues, ValidationIssue{SeverityWarning, i, c, fmt.Sprintf("unknown data type %q", c.DataType)})
		}
		k := cellKey{c.SheetName, c.CellRef}
		if seen[k] {
			issues = append(issues, ValidationIssue{SeverityWarning, i, c, "duplicate mapping ignored"})
		}
		seen[k] = true
	}
	return issues
}
