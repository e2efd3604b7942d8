package xlform

import (
	"fmt"
	"strings"
)

// Describe returns a human-readable listing of a template's sheets and the
// mapped cells on each, with the value the workbook currently holds there.
// Useful for checking a mapping against its workbook during authoring.
func Describe(wb *Workbook, m *MappingSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Workbook: %d sheet(s), %d mapped cell(s)\n", len(wb.Sheets), m.Len())

	for _, s := range wb.Sheets {
		fmt.Fprintf(&b, "%s (rows: %d)\n", s.Name, len(s.Rows))
		cells := m.ForSheet(s.Name)
		if len(cells) == 0 {
			b.WriteString("  (no mapped cells)\n")
			continue
		}
		for _, c := range cells {
			describeCell(&b, s, c)
		}
	}

	// Mappings pointing at sheets the workbook does not have
	var orphans []MappedCell
	for _, c := range m.Cells() {
		if _, ok := wb.Sheet(c.SheetName); !ok {
			orphans = append(orphans, c)
		}
	}
	if len(orphans) > 0 {
		b.WriteString("Unmatched mappings:\n")
		for _, c := range orphans {
			fmt.Fprintf(&b, "  %s!%s %q\n", c.SheetName, c.CellRef, c.Label)
		}
	}
	return b.String()
}

func describeCell(b *strings.Builder, s *Sheet, c MappedCell) {
	row, col, err := DecodeAddress(c.CellRef)
	if err != nil {
		fmt.Fprintf(b, "  %-6s %q [%s] invalid address\n", c.CellRef, c.Label, c.DataType)
		return
	}
	v := s.ValueAt(row, col)
	fmt.Fprintf(b, "  %-6s %q [%s] = %q\n", c.CellRef, c.Label, c.DataType, v.String())
}
