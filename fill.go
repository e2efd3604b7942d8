package xlform

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// FillValues writes values into a copy of an xlsx workbook and returns the
// new file. Values addressed to a sheet the workbook lacks go to the active
// sheet. Values are written as text exactly as stored. A numeric value is
// written as a number only when its cell is declared DataNumber in cells or
// already holds a number in the template, so formulas over such cells keep
// working. Cell styles are preserved.
func FillValues(workbook []byte, values ValueSet, cells ...MappedCell) ([]byte, error) {
	f, err := excelize.OpenReader(bytes.NewReader(workbook))
	if err != nil {
		return nil, &WorkbookError{Format: "xlsx", Err: err}
	}
	defer f.Close()

	sheets := make(map[string]bool)
	for _, name := range f.GetSheetList() {
		sheets[name] = true
	}
	active := f.GetSheetName(f.GetActiveSheetIndex())

	numeric := make(map[cellKey]bool)
	for _, c := range cells {
		if c = normalizeCell(c); c.DataType == DataNumber {
			numeric[cellKey{c.SheetName, c.CellRef}] = true
		}
	}

	for _, v := range values {
		sheet := v.SheetName
		if !sheets[sheet] {
			sheet = active
		}
		addr, err := NormalizeAddress(v.CellRef)
		if err != nil {
			return nil, err
		}
		cv := Text(v.Value)
		if v.Value == "" {
			cv = Empty()
		} else if numeric[cellKey{v.SheetName, addr}] || numeric[cellKey{sheet, addr}] || templateNumber(f, sheet, addr) {
			if n := ParseCellValue(v.Value); n.Kind() == CellNumber {
				cv = n
			}
		}
		if err := setCellPreservingStyle(f, sheet, addr, cv); err != nil {
			return nil, fmt.Errorf("fill %s!%s: %w", sheet, addr, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// templateNumber reports whether the template cell holds a plain number.
// Formula cells and strings do not count.
func templateNumber(f *excelize.File, sheet, cell string) bool {
	typ, err := f.GetCellType(sheet, cell)
	if err != nil {
		return false
	}
	switch typ {
	case excelize.CellTypeNumber:
		return true
	case excelize.CellTypeUnset:
		if formula, _ := f.GetCellFormula(sheet, cell); formula != "" {
			return false
		}
		raw, err := f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
		return err == nil && ParseCellValue(raw).Kind() == CellNumber
	}
	return false
}

func setCellPreservingStyle(f *excelize.File, sheet, cell string, v CellValue) error {
	styleID, _ := f.GetCellStyle(sheet, cell)
	var err error
	switch v.Kind() {
	case CellNumber:
		n, _ := v.Float()
		err = f.SetCellFloat(sheet, cell, n, -1, 64)
	case CellText:
		err = f.SetCellStr(sheet, cell, v.String())
	default:
		err = f.SetCellValue(sheet, cell, nil)
	}
	if err != nil {
		return err
	}
	if styleID > 0 {
		return f.SetCellStyle(sheet, cell, cell, styleID)
	}
	return nil
}

// EncodeXLSX writes a materialized workbook as a new xlsx file. It is used to
// store .ods uploads in the same container format as .xlsx uploads.
func EncodeXLSX(wb *Workbook) ([]byte, error) {
	if len(wb.Sheets) == 0 {
		return nil, &WorkbookError{Err: fmt.Errorf("workbook has no sheets")}
	}
	f := excelize.NewFile()
	defer f.Close()

	defaultName := f.GetSheetName(0)
	for i, s := range wb.Sheets {
		if i == 0 {
			if s.Name != defaultName {
				if err := f.SetSheetName(defaultName, s.Name); err != nil {
					return nil, fmt.Errorf("rename sheet %q: %w", s.Name, err)
				}
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return nil, fmt.Errorf("create sheet %q: %w", s.Name, err)
		}
		for r, row := range s.Rows {
			for c, v := range row {
				if v.IsEmpty() {
					continue
				}
				if err := setCellPreservingStyle(f, s.Name, EncodeAddress(r, c), v); err != nil {
					return nil, fmt.Errorf("write %s!%s: %w", s.Name, EncodeAddress(r, c), err)
				}
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
