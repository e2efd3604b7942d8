package xlform

// ChangeSource tags a batch of grid changes with what caused it.
type ChangeSource int

const (
	// UserEdit is an operator typing, pasting or clearing cells.
	UserEdit ChangeSource = iota
	// BulkLoad is the grid being (re)populated from a workbook.
	BulkLoad
)

// String returns a human-readable name for the ChangeSource.
func (s ChangeSource) String() string {
	switch s {
	case UserEdit:
		return "edit"
	case BulkLoad:
		return "loadData"
	default:
		return "unknown"
	}
}

// Change is one proposed cell mutation.
type Change struct {
	Row int
	Col int
	Old CellValue
	New CellValue
}

// Ref returns the address of the changed cell.
func (c Change) Ref() string { return EncodeAddress(c.Row, c.Col) }

// Batch is an ordered group of changes produced by one grid event.
type Batch struct {
	Sheet   string
	Source  ChangeSource
	Changes []Change
}

// Grid is the live, editable copy of one sheet. It owns its rows; edits never
// reach the Workbook it was loaded from.
type Grid struct {
	sheet string
	rows  [][]CellValue
}

// NewGrid returns an empty grid for sheet.
func NewGrid(sheet string) *Grid {
	return &Grid{sheet: sheet}
}

// LoadGrid copies s into a new grid and returns the BulkLoad batch describing
// the population, so callers can thread it through the same pipeline as edits.
func LoadGrid(s *Sheet) (*Grid, Batch) {
	g := &Grid{sheet: s.Name, rows: make([][]CellValue, len(s.Rows))}
	batch := Batch{Sheet: s.Name, Source: BulkLoad}
	for i, r := range s.Rows {
		g.rows[i] = append([]CellValue(nil), r...)
		for j, v := range r {
			if !v.IsEmpty() {
				batch.Changes = append(batch.Changes, Change{Row: i, Col: j, New: v})
			}
		}
	}
	return g, batch
}

// Sheet returns the name of the sheet the grid shows.
func (g *Grid) Sheet() string { return g.sheet }

// Value returns the current value at (row, col); missing cells are Empty.
func (g *Grid) Value(row, col int) CellValue {
	if row < 0 || col < 0 || row >= len(g.rows) || col >= len(g.rows[row]) {
		return Empty()
	}
	return g.rows[row][col]
}

// Rows returns a copy of the grid contents for rendering.
func (g *Grid) Rows() [][]CellValue {
	out := make([][]CellValue, len(g.rows))
	for i, r := range g.rows {
		out[i] = append([]CellValue(nil), r...)
	}
	return out
}

// Apply writes changes into the grid in order. Callers gate changes first.
func (g *Grid) Apply(changes []Change) {
	for _, c := range changes {
		g.set(c.Row, c.Col, c.New)
	}
}

func (g *Grid) set(row, col int, v CellValue) {
	if row < 0 || col < 0 {
		return
	}
	for len(g.rows) <= row {
		g.rows = append(g.rows, nil)
	}
	r := g.rows[row]
	for len(r) <= col {
		r = append(r, Empty())
	}
	r[col] = v
	g.rows[row] = r
}
