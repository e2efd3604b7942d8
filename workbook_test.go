package xlform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestLoadWorkbook_XLSX(t *testing.T) {
	wb, err := LoadWorkbook(formWorkbook(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"Sheet1", "Sheet2"}, wb.SheetNames())
	s, ok := wb.Sheet("Sheet1")
	require.True(t, ok)

	// blank row 3 is kept so row 4 stays at index 3
	require.Len(t, s.Rows, 4)
	assert.Empty(t, s.Rows[2])
	assert.Equal(t, Text("Notes"), s.ValueAt(3, 0))

	assert.Equal(t, Text("Name"), s.ValueAt(0, 0))
	assert.Equal(t, Number(100), s.ValueAt(1, 1))
	assert.Equal(t, Text("00123"), s.ValueAt(3, 2), "numeric-looking text stays text")
	assert.Equal(t, Text("Other"), wb.ValueAt("Sheet2", 0, 0))
}

func TestWorkbook_ValueAtNeverFails(t *testing.T) {
	wb, err := LoadWorkbook(formWorkbook(t))
	require.NoError(t, err)

	assert.True(t, wb.ValueAt("Sheet1", 500, 500).IsEmpty())
	assert.True(t, wb.ValueAt("Sheet1", -1, 0).IsEmpty())
	assert.True(t, wb.ValueAt("Sheet1", 0, 1).IsEmpty())
	assert.True(t, wb.ValueAt("Missing", 0, 0).IsEmpty())
}

func TestLoadWorkbook_ODS(t *testing.T) {
	wb, err := LoadWorkbook(odsBytes(t, odsForm))
	require.NoError(t, err)

	assert.Equal(t, []string{"Form", "Second"}, wb.SheetNames())
	s, _ := wb.Sheet("Form")

	// trailing padding rows are dropped, inner blank rows are kept
	require.Len(t, s.Rows, 4)
	assert.Equal(t, []CellValue{Text("Name")}, s.Rows[0])
	assert.Empty(t, s.Rows[1])
	assert.Empty(t, s.Rows[2])
	assert.Equal(t, []CellValue{Empty(), Number(42.5), Text("a  b")}, s.Rows[3])

	assert.Equal(t, Number(7), wb.ValueAt("Second", 0, 0))
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, "xlsx", DetectFormat(formWorkbook(t)))
	assert.Equal(t, "ods", DetectFormat(odsBytes(t, odsForm)))
	assert.Equal(t, "", DetectFormat([]byte("plain text")))
}

func TestLoadWorkbook_Unreadable(t *testing.T) {
	tests := map[string][]byte{
		"empty":        nil,
		"not a zip":    []byte("definitely not a spreadsheet"),
		"ods no body":  odsBytes(t, `<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"/>`),
		"ods bad xml":  odsBytes(t, `<office:document-content`),
		"truncated":    formWorkbook(t)[:200],
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			wb, err := LoadWorkbook(data)
			assert.Nil(t, wb)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnreadableWorkbook))
		})
	}
}

func TestLoadWorkbook_SparseColumns(t *testing.T) {
	data := xlsxBytes(t, func(f *excelize.File) {
		f.SetCellValue("Sheet1", "D3", "far")
	})
	wb, err := LoadWorkbook(data)
	require.NoError(t, err)

	s, _ := wb.Sheet("Sheet1")
	require.Len(t, s.Rows, 3)
	assert.Equal(t, Text("far"), s.ValueAt(2, 3))
	assert.True(t, s.ValueAt(2, 0).IsEmpty())
}

const odsAnnotated = `<?xml version="1.0" encoding="UTF-8"?>
<office:document-content
  xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
  xmlns:table="urn:oasis:names:tc:opendocument:xmlns:table:1.0"
  xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0"
  xmlns:dc="http://purl.org/dc/elements/1.1/" office:version="1.2">
<office:body><office:spreadsheet>
<table:table table:name="Sheet1">
<table:table-row>
<table:table-cell office:value-type="string"><office:annotation><dc:creator>ops</dc:creator><text:p>fill in the legal name</text:p></office:annotation><text:p>Name</text:p></table:table-cell>
<table:table-cell><office:annotation><text:p>left blank on purpose</text:p></office:annotation></table:table-cell>
<table:table-cell office:value-type="string"><text:p>Total<text:note><text:note-citation>1</text:note-citation><text:note-body><text:p>net of tax</text:p></text:note-body></text:note></text:p></table:table-cell>
</table:table-row>
</table:table>
</office:spreadsheet></office:body></office:document-content>`

func TestLoadWorkbook_ODSIgnoresComments(t *testing.T) {
	wb, err := LoadWorkbook(odsBytes(t, odsAnnotated))
	require.NoError(t, err)

	assert.Equal(t, Text("Name"), wb.ValueAt("Sheet1", 0, 0))
	assert.True(t, wb.ValueAt("Sheet1", 0, 1).IsEmpty(), "a comment alone does not give the cell a value")
	assert.Equal(t, Text("Total"), wb.ValueAt("Sheet1", 0, 2))
}
