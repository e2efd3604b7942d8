package xlform

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// xlsxBytes builds an in-memory workbook. The first sheet is named "Sheet1".
func xlsxBytes(t *testing.T, build func(f *excelize.File)) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	build(f)
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

// formWorkbook returns the two-sheet form used across tests.
// Layout of Sheet1:
//
//	A1: "Name"    B1: (empty)
//	A2: "Total"   B2: 100
//	(row 3 blank)
//	A4: "Notes"   C4: "00123" (text)
//
// Sheet2 holds A1: "Other".
func formWorkbook(t *testing.T) []byte {
	t.Helper()
	return xlsxBytes(t, func(f *excelize.File) {
		sheet := "Sheet1"
		f.SetCellValue(sheet, "A1", "Name")
		f.SetCellValue(sheet, "A2", "Total")
		f.SetCellValue(sheet, "B2", 100)
		f.SetCellValue(sheet, "A4", "Notes")
		f.SetCellStr(sheet, "C4", "00123")
		f.NewSheet("Sheet2")
		f.SetCellValue("Sheet2", "A1", "Other")
	})
}

// odsBytes wraps content.xml into a minimal OpenDocument spreadsheet.
func odsBytes(t *testing.T, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	require.NoError(t, err)
	_, err = w.Write([]byte(odsMimeType))
	require.NoError(t, err)
	w, err = zw.Create("content.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const odsForm = `<?xml version="1.0" encoding="UTF-8"?>
<office:document-content
  xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
  xmlns:table="urn:oasis:names:tc:opendocument:xmlns:table:1.0"
  xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0" office:version="1.2">
<office:body><office:spreadsheet>
<table:table table:name="Form">
<table:table-column table:number-columns-repeated="3"/>
<table:table-row><table:table-cell office:value-type="string"><text:p>Name</text:p></table:table-cell><table:table-cell table:number-columns-repeated="2"/></table:table-row>
<table:table-row table:number-rows-repeated="2"><table:table-cell table:number-columns-repeated="3"/></table:table-row>
<table:table-row><table:table-cell/><table:table-cell office:value-type="float" office:value="42.5"><text:p>42,50</text:p></table:table-cell><table:table-cell office:value-type="string"><text:p>a<text:s text:c="2"/>b</text:p></table:table-cell></table:table-row>
<table:table-row table:number-rows-repeated="1048572"><table:table-cell table:number-columns-repeated="1024"/></table:table-row>
</table:table>
<table:table table:name="Second"><table:table-row><table:table-cell office:value-type="float" office:value="7"><text:p>7</text:p></table:table-cell></table:table-row></table:table>
</office:spreadsheet></office:body></office:document-content>`

// scenarioMapping is the two-cell mapping used by the reconciliation tests.
func scenarioMapping() *MappingSet {
	return BuildMappingSet([]MappedCell{
		{SheetName: "Sheet1", CellRef: "A1", Label: "Name"},
		{SheetName: "Sheet1", CellRef: "B2", Label: "Total"},
	})
}
