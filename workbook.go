package xlform

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const odsMimeType = "application/vnd.oasis.opendocument.spreadsheet"

// Workbook is the materialized, read-only form of an uploaded spreadsheet.
type Workbook struct {
	Sheets []*Sheet
}

// Sheet holds the values of one worksheet. Rows is blank-rows-inclusive:
// Rows[i] is spreadsheet row i+1 even when earlier rows are empty.
type Sheet struct {
	Name string
	Rows [][]CellValue
}

// ValueAt returns the value at (row, col), or Empty when out of bounds.
func (s *Sheet) ValueAt(row, col int) CellValue {
	if s == nil || row < 0 || col < 0 || row >= len(s.Rows) {
		return Empty()
	}
	r := s.Rows[row]
	if col >= len(r) {
		return Empty()
	}
	return r[col]
}

// SheetNames returns the sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.Sheets))
	for i, s := range w.Sheets {
		names[i] = s.Name
	}
	return names
}

// Sheet looks up a sheet by name.
func (w *Workbook) Sheet(name string) (*Sheet, bool) {
	for _, s := range w.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// ValueAt returns the value at (row, col) of sheet. Unknown sheets and
// out-of-bounds coordinates yield Empty.
func (w *Workbook) ValueAt(sheet string, row, col int) CellValue {
	s, _ := w.Sheet(sheet)
	return s.ValueAt(row, col)
}

// LoadWorkbook decodes .xlsx or .ods bytes. The format is detected from the
// container contents, not from a file name. Any failure is reported as an
// error matching ErrUnreadableWorkbook and no partial workbook is returned.
func LoadWorkbook(data []byte) (*Workbook, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &WorkbookError{Err: fmt.Errorf("not a zip container: %w", err)}
	}
	if isODS(zr) {
		wb, err := readODS(zr)
		if err != nil {
			return nil, &WorkbookError{Format: "ods", Err: err}
		}
		return wb, nil
	}
	wb, err := readXLSX(data)
	if err != nil {
		return nil, &WorkbookError{Format: "xlsx", Err: err}
	}
	return wb, nil
}

// DetectFormat reports "ods", "xlsx" or "" for unrecognized data.
func DetectFormat(data []byte) string {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	if isODS(zr) {
		return "ods"
	}
	for _, f := range zr.File {
		if f.Name == "xl/workbook.xml" {
			return "xlsx"
		}
	}
	return ""
}

func isODS(zr *zip.Reader) bool {
	for _, f := range zr.File {
		if f.Name != "mimetype" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return false
		}
		defer rc.Close()
		b, err := io.ReadAll(io.LimitReader(rc, 128))
		if err != nil {
			return false
		}
		return strings.TrimSpace(string(b)) == odsMimeType
	}
	return false
}

// readXLSX materializes every sheet of an xlsx file.
func readXLSX(data []byte) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	list := f.GetSheetList()
	if len(list) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	wb := &Workbook{Sheets: make([]*Sheet, 0, len(list))}
	for _, name := range list {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read rows from sheet %q: %w", name, err)
		}
		sd := &Sheet{Name: name, Rows: make([][]CellValue, len(rows))}
		for rowIdx, row := range rows {
			vals := make([]CellValue, len(row))
			for colIdx, raw := range row {
				vals[colIdx] = xlsxValue(f, name, rowIdx, colIdx, raw)
			}
			sd.Rows[rowIdx] = vals
		}
		wb.Sheets = append(wb.Sheets, sd)
	}
	return wb, nil
}

// xlsxValue types a raw cell. Numeric-looking text stored as a string keeps
// its text form so "00123" is not turned into 123.
func xlsxValue(f *excelize.File, sheet string, row, col int, raw string) CellValue {
	v := ParseCellValue(raw)
	if v.Kind() != CellNumber {
		return v
	}
	typ, err := f.GetCellType(sheet, EncodeAddress(row, col))
	if err != nil {
		return v
	}
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		return Text(raw)
	}
	return v
}
