package xlform

// DataType is the declared kind of value an operator enters in a mapped cell.
type DataType string

const (
	DataText   DataType = "text"
	DataNumber DataType = "number"
	DataDate   DataType = "date"
)

// DefaultSheet is the sheet name assumed when a mapping omits one.
const DefaultSheet = "Sheet1"

// MappedCell is one editable coordinate of a template.
type MappedCell struct {
	SheetName string   `json:"sheet_name" yaml:"sheet_name"`
	CellRef   string   `json:"cell_ref" yaml:"cell_ref"`
	Label     string   `json:"label" yaml:"label"`
	DataType  DataType `json:"data_type" yaml:"data_type"`
}

type cellKey struct {
	sheet string
	addr  string
}

// MappingSet is the ordered, duplicate-free collection of editable cells of a
// template. Membership is keyed by (sheet, address); the first entry for a
// coordinate wins and later duplicates are dropped silently.
type MappingSet struct {
	cells []MappedCell
	index map[cellKey]int
}

// BuildMappingSet builds a MappingSet from cells, keeping the first entry seen
// for each (sheet, address) pair.
func BuildMappingSet(cells []MappedCell) *MappingSet {
	m := &MappingSet{
		cells: make([]MappedCell, 0, len(cells)),
		index: make(map[cellKey]int, len(cells)),
	}
	for _, c := range cells {
		m.Add(c)
	}
	return m
}

// Add appends cell unless its coordinate is already mapped. It reports whether
// the cell was added. Addresses are normalized to upper case; an empty sheet
// name becomes DefaultSheet and an empty data type becomes DataText.
func (m *MappingSet) Add(cell MappedCell) bool {
	cell = normalizeCell(cell)
	k := cellKey{cell.SheetName, cell.CellRef}
	if _, ok := m.index[k]; ok {
		return false
	}
	m.index[k] = len(m.cells)
	m.cells = append(m.cells, cell)
	return true
}

// Remove deletes the entry at position i. Out-of-range indices are ignored.
func (m *MappingSet) Remove(i int) {
	if i < 0 || i >= len(m.cells) {
		return
	}
	m.cells = append(m.cells[:i], m.cells[i+1:]...)
	m.reindex()
}

func (m *MappingSet) reindex() {
	clear(m.index)
	for i, c := range m.cells {
		m.index[cellKey{c.SheetName, c.CellRef}] = i
	}
}

// Contains reports whether (sheet, addr) is an editable coordinate.
func (m *MappingSet) Contains(sheet, addr string) bool {
	if m == nil {
		return false
	}
	_, ok := m.index[cellKey{sheet, addr}]
	return ok
}

// LabelFor returns the label of a mapped coordinate.
func (m *MappingSet) LabelFor(sheet, addr string) (string, bool) {
	if m == nil {
		return "", false
	}
	i, ok := m.index[cellKey{sheet, addr}]
	if !ok {
		return "", false
	}
	return m.cells[i].Label, true
}

// Len returns the number of distinct mapped coordinates.
func (m *MappingSet) Len() int {
	if m == nil {
		return 0
	}
	return len(m.cells)
}

// Cells returns a copy of the entries in insertion order.
func (m *MappingSet) Cells() []MappedCell {
	if m == nil {
		return nil
	}
	return append([]MappedCell(nil), m.cells...)
}

// ForSheet returns the entries mapped on sheet, in insertion order.
func (m *MappingSet) ForSheet(sheet string) []MappedCell {
	if m == nil {
		return nil
	}
	var out []MappedCell
	for _, c := range m.cells {
		if c.SheetName == sheet {
			out = append(out, c)
		}
	}
	return out
}

func normalizeCell(c MappedCell) MappedCell {
	if c.SheetName == "" {
		c.SheetName = DefaultSheet
	}
	if norm, err := NormalizeAddress(c.CellRef); err == nil {
		c.CellRef = norm
	}
	if c.DataType == "" {
		c.DataType = DataText
	}
	return c
}
