package xlform

// ValueEntry is one persisted mapped-cell value.
type ValueEntry struct {
	SheetName string `json:"sheet_name" yaml:"sheet_name"`
	CellRef   string `json:"cell_ref" yaml:"cell_ref"`
	Value     string `json:"value" yaml:"value"`
}

// ValueSet is the sparse record of an instance: only mapped coordinates.
type ValueSet []ValueEntry

// Get returns the value stored for (sheet, addr).
func (vs ValueSet) Get(sheet, addr string) (string, bool) {
	for _, v := range vs {
		if v.SheetName == sheet && v.CellRef == addr {
			return v.Value, true
		}
	}
	return "", false
}

// ExtractValues reads the current grid value of every mapping entry on the
// grid's sheet, in mapping order. Only mapped coordinates are read, so stray
// data elsewhere in the grid never reaches the record. Missing cells yield "".
// Entries whose address cannot be decoded are skipped.
func ExtractValues(g *Grid, m *MappingSet) ValueSet {
	cells := m.ForSheet(g.Sheet())
	out := make(ValueSet, 0, len(cells))
	for _, c := range cells {
		row, col, err := DecodeAddress(c.CellRef)
		if err != nil {
			continue
		}
		out = append(out, ValueEntry{
			SheetName: c.SheetName,
			CellRef:   c.CellRef,
			Value:     g.Value(row, col).String(),
		})
	}
	return out
}
