package xlform

// Gate decides which grid coordinates an operator may write. Rendering and
// write enforcement share one predicate, so a cell shown read-only can never
// accept a change and vice versa.
type Gate struct {
	mapping *MappingSet
}

// NewGate returns a Gate enforcing m.
func NewGate(m *MappingSet) *Gate {
	return &Gate{mapping: m}
}

func (g *Gate) editable(sheet string, row, col int) bool {
	if row < 0 || col < 0 {
		return false
	}
	return g.mapping.Contains(sheet, EncodeAddress(row, col))
}

// IsReadOnly reports whether (row, col) on sheet must be rendered non-editable.
func (g *Gate) IsReadOnly(sheet string, row, col int) bool {
	return !g.editable(sheet, row, col)
}

// Filter returns the changes targeting mapped coordinates, in their original
// order. Changes is not modified. Dropped changes are not reported: a rejected
// edit is a no-op, not an error.
func (g *Gate) Filter(sheet string, changes []Change) []Change {
	accepted := make([]Change, 0, len(changes))
	for _, c := range changes {
		if g.editable(sheet, c.Row, c.Col) {
			accepted = append(accepted, c)
		}
	}
	return accepted
}
