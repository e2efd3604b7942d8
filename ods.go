package xlform

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	nsOffice = "urn:oasis:names:tc:opendocument:xmlns:office:1.0"
	nsTable  = "urn:oasis:names:tc:opendocument:xmlns:table:1.0"
	nsText   = "urn:oasis:names:tc:opendocument:xmlns:text:1.0"

	// Editors pad sheets with huge repeat counts of empty rows and cells;
	// repeats of non-empty content beyond these limits are truncated.
	maxRepeatedCols = 16384
	maxRepeatedRows = 65536
)

// odsCell accumulates one table:table-cell while its content streams by.
type odsCell struct {
	valueType string
	value     string
	repeat    int
	paras     int
	inPara    int
	hidden    int // depth inside office:annotation or text:note
	text      strings.Builder
}

func (c *odsCell) cellValue() CellValue {
	switch c.valueType {
	case "float", "percentage", "currency":
		if f, err := strconv.ParseFloat(c.value, 64); err == nil {
			return Number(f)
		}
	case "date", "time", "boolean":
		if c.value != "" {
			return Text(c.value)
		}
	case "string":
		if c.text.Len() == 0 {
			return Empty()
		}
		return Text(c.text.String())
	}
	if c.paras == 0 && c.valueType == "" {
		return Empty()
	}
	return ParseCellValue(c.text.String())
}

// readODS streams content.xml of an OpenDocument spreadsheet into a Workbook.
// Trailing empty rows and cells are dropped; empty rows between populated
// rows are kept so row indices match addresses.
func readODS(zr *zip.Reader) (*Workbook, error) {
	var content *zip.File
	for _, f := range zr.File {
		if f.Name == "content.xml" {
			content = f
			break
		}
	}
	if content == nil {
		return nil, errors.New("missing content.xml")
	}
	rc, err := content.Open()
	if err != nil {
		return nil, fmt.Errorf("open content.xml: %w", err)
	}
	defer rc.Close()

	var (
		wb          = &Workbook{}
		sheet       *Sheet
		row         []CellValue
		rowRepeat   int
		pendingRows int
		pendingCols int
		cell        *odsCell
	)

	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse content.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Space == nsTable && t.Name.Local == "table":
				sheet = &Sheet{Name: attr(t, nsTable, "name")}
				pendingRows = 0
			case t.Name.Space == nsTable && t.Name.Local == "table-row" && sheet != nil:
				row = nil
				pendingCols = 0
				rowRepeat = repeatAttr(t, "number-rows-repeated")
			case t.Name.Space == nsTable && (t.Name.Local == "table-cell" || t.Name.Local == "covered-table-cell") && sheet != nil:
				cell = &odsCell{
					valueType: attr(t, nsOffice, "value-type"),
					value:     odsRawValue(t),
					repeat:    repeatAttr(t, "number-columns-repeated"),
				}
			case cell != nil && isHiddenContent(t.Name):
				cell.hidden++
			case t.Name.Space == nsText && cell != nil && cell.hidden == 0:
				switch t.Name.Local {
				case "p":
					if cell.paras > 0 {
						cell.text.WriteByte('\n')
					}
					cell.paras++
					cell.inPara++
				case "s":
					n := repeatAttrNS(t, nsText, "c")
					cell.text.WriteString(strings.Repeat(" ", n))
				case "tab":
					cell.text.WriteByte('\t')
				case "line-break":
					cell.text.WriteByte('\n')
				}
			}

		case xml.CharData:
			if cell != nil && cell.inPara > 0 && cell.hidden == 0 {
				cell.text.Write(t)
			}

		case xml.EndElement:
			switch {
			case cell != nil && isHiddenContent(t.Name):
				cell.hidden--
			case t.Name.Space == nsText && t.Name.Local == "p" && cell != nil && cell.hidden == 0:
				cell.inPara--
			case t.Name.Space == nsTable && (t.Name.Local == "table-cell" || t.Name.Local == "covered-table-cell") && cell != nil:
				v := cell.cellValue()
				if v.IsEmpty() {
					pendingCols += cell.repeat
				} else {
					for ; pendingCols > 0 && len(row) < maxRepeatedCols; pendingCols-- {
						row = append(row, Empty())
					}
					pendingCols = 0
					for i := 0; i < cell.repeat && len(row) < maxRepeatedCols; i++ {
						row = append(row, v)
					}
				}
				cell = nil
			case t.Name.Space == nsTable && t.Name.Local == "table-row" && sheet != nil:
				if len(row) == 0 {
					pendingRows += rowRepeat
					continue
				}
				for ; pendingRows > 0 && len(sheet.Rows) < maxRepeatedRows; pendingRows-- {
					sheet.Rows = append(sheet.Rows, []CellValue{})
				}
				pendingRows = 0
				for i := 0; i < rowRepeat && len(sheet.Rows) < maxRepeatedRows; i++ {
					sheet.Rows = append(sheet.Rows, append([]CellValue(nil), row...))
				}
			case t.Name.Space == nsTable && t.Name.Local == "table" && sheet != nil:
				wb.Sheets = append(wb.Sheets, sheet)
				sheet = nil
			}
		}
	}

	if len(wb.Sheets) == 0 {
		return nil, errors.New("spreadsheet has no tables")
	}
	return wb, nil
}

// isHiddenContent matches elements whose paragraphs are not part of the cell
// value: comments and notes.
func isHiddenContent(n xml.Name) bool {
	return (n.Space == nsOffice && n.Local == "annotation") ||
		(n.Space == nsText && n.Local == "note")
}

func odsRawValue(t xml.StartElement) string {
	for _, local := range []string{"value", "date-value", "time-value", "boolean-value"} {
		if v := attr(t, nsOffice, local); v != "" {
			return v
		}
	}
	return ""
}

func attr(t xml.StartElement, space, local string) string {
	for _, a := range t.Attr {
		if a.Name.Space == space && a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func repeatAttr(t xml.StartElement, local string) int {
	return repeatAttrNS(t, nsTable, local)
}

func repeatAttrNS(t xml.StartElement, space, local string) int {
	n, err := strconv.Atoi(attr(t, space, local))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
