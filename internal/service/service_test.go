package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/javajack/xlform"
	"github.com/javajack/xlform/internal/store"
)

type fixture struct {
	store     *store.Store
	templates *Templates
	instances *Instances
	admin     store.User
	operator  store.User
	obs       *recordingObserver
}

type recordingObserver struct {
	saves, exports []error
}

func (o *recordingObserver) EditsGated(int, int)                {}
func (o *recordingObserver) SaveCompleted(_, _ int, err error) { o.saves = append(o.saves, err) }
func (o *recordingObserver) ExportCompleted(err error)         { o.exports = append(o.exports, err) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, "sqlite3", filepath.Join(t.TempDir(), "svc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	admin, err := s.CreateUser(ctx, "admin@example.com", "x", store.RoleAdmin)
	require.NoError(t, err)
	op, err := s.CreateUser(ctx, "op@example.com", "x", store.RoleOperator)
	require.NoError(t, err)

	obs := &recordingObserver{}
	clock := WithClock(func() time.Time { return time.Date(2026, 1, 14, 10, 0, 0, 0, time.UTC) })
	return &fixture{
		store:     s,
		templates: NewTemplates(s, s),
		instances: NewInstances(s, s, WithObserver(obs), clock),
		admin:     admin,
		operator:  op,
		obs:       obs,
	}
}

func formXLSX(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Name")
	f.SetCellValue("Sheet1", "A2", "Total")
	f.SetCellValue("Sheet1", "B2", 100)
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func formODS(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	require.NoError(t, err)
	_, err = w.Write([]byte("application/vnd.oasis.opendocument.spreadsheet"))
	require.NoError(t, err)
	w, err = zw.Create("content.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
  xmlns:table="urn:oasis:names:tc:opendocument:xmlns:table:1.0"
  xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0">
<office:body><office:spreadsheet><table:table table:name="Form">
<table:table-row><table:table-cell office:value-type="string"><text:p>Name</text:p></table:table-cell></table:table-row>
</table:table></office:spreadsheet></office:body></office:document-content>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func (f *fixture) uploadMapped(t *testing.T) xlform.Template {
	t.Helper()
	ctx := context.Background()
	tmpl, err := f.templates.Upload(ctx, f.admin.ID, "Monthly", "monthly.xlsx", formXLSX(t))
	require.NoError(t, err)
	n, err := f.templates.SetMappedCells(ctx, tmpl.ID, []xlform.MappedCell{
		{SheetName: "Sheet1", CellRef: "b1", Label: "Name"},
		{SheetName: "Sheet1", CellRef: "B2", Label: "Total", DataType: xlform.DataNumber},
		{SheetName: "Sheet1", CellRef: "B1", Label: "Duplicate"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	return tmpl
}

func TestTemplates_UploadXLSX(t *testing.T) {
	f := newFixture(t)
	tmpl := f.uploadMapped(t)
	ctx := context.Background()

	cells, err := f.templates.MappedCells(ctx, tmpl.ID)
	require.NoError(t, err)
	require.Len(t, cells, 2)
	assert.Equal(t, "B1", cells[0].CellRef)
	assert.Equal(t, "Name", cells[0].Label)

	wb, err := f.templates.Workbook(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "template-1.xlsx", wb.Filename)
	assert.Equal(t, formXLSX(t)[:4], wb.Data[:4])

	list, err := f.templates.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTemplates_UploadODSIsConverted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tmpl, err := f.templates.Upload(ctx, f.admin.ID, "", "form.ods", formODS(t))
	require.NoError(t, err)
	assert.Equal(t, "form", tmpl.Name)
	assert.Equal(t, "form.ods", tmpl.OriginalFilename)

	wb, err := f.templates.Workbook(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "xlsx", xlform.DetectFormat(wb.Data))
	loaded, err := xlform.LoadWorkbook(wb.Data)
	require.NoError(t, err)
	assert.Equal(t, xlform.Text("Name"), loaded.ValueAt("Form", 0, 0))
}

func TestTemplates_UploadRejectsGarbage(t *testing.T) {
	f := newFixture(t)
	_, err := f.templates.Upload(context.Background(), f.admin.ID, "x", "x.xlsx", []byte("garbage"))
	assert.ErrorIs(t, err, xlform.ErrUnreadableWorkbook)
}

func TestTemplates_SetMappedCellsValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tmpl := f.uploadMapped(t)

	_, err := f.templates.SetMappedCells(ctx, tmpl.ID, []xlform.MappedCell{
		{SheetName: "Sheet1", CellRef: "1B"},
		{SheetName: "Ghost", CellRef: "A1"},
	})
	var merr *MappingError
	require.ErrorAs(t, err, &merr)
	assert.ErrorIs(t, err, ErrInvalidMapping)
	assert.Len(t, merr.Issues, 2)

	cells, err := f.templates.MappedCells(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Len(t, cells, 2, "rejected mapping leaves the old one")

	_, err = f.templates.SetMappedCells(ctx, 999, nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestInstances_SaveGetExport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tmpl := f.uploadMapped(t)

	inst, err := f.instances.Create(ctx, f.operator.ID, tmpl.ID, "January")
	require.NoError(t, err)

	n, err := f.instances.Save(ctx, f.operator.ID, inst.ID, xlform.SavePayload{
		Values: xlform.ValueSet{
			{SheetName: "Sheet1", CellRef: "b1", Value: "Alice"},
			{SheetName: "Sheet1", CellRef: "B2", Value: "250"},
			{SheetName: "Sheet1", CellRef: "F6", Value: "sneaky"},
		},
		Audit: []xlform.AuditEvent{
			{EventType: xlform.EventEdit, SheetName: "Sheet1", CellRef: "B1", NewValue: "Alice"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	detail, err := f.instances.Get(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, "January", detail.Title)
	assert.Equal(t, xlform.ValueSet{
		{SheetName: "Sheet1", CellRef: "B1", Value: "Alice"},
		{SheetName: "Sheet1", CellRef: "B2", Value: "250"},
	}, detail.Values)
	require.Len(t, detail.Audit, 3)
	assert.Equal(t, "create", detail.Audit[0].EventType)
	assert.Equal(t, "save", detail.Audit[2].EventType)

	doc, err := f.instances.Export(ctx, f.operator.ID, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, "instance-1.pdf", doc.Filename)
	assert.True(t, bytes.HasPrefix(doc.Data, []byte("%PDF-")))

	detail, err = f.instances.Get(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, "export", detail.Audit[len(detail.Audit)-1].EventType)

	assert.Equal(t, []error{nil}, f.obs.saves)
	assert.Equal(t, []error{nil}, f.obs.exports)
}

func TestInstances_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.instances.Create(ctx, f.operator.ID, 42, "")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.instances.Save(ctx, f.operator.ID, 42, xlform.SavePayload{})
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.instances.Export(ctx, f.operator.ID, 42)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.Len(t, f.obs.saves, 1)
	assert.True(t, errors.Is(f.obs.saves[0], store.ErrNotFound))
}

func TestReportAuditFiltersEvents(t *testing.T) {
	rows := reportAudit([]store.AuditRecord{
		{AuditEvent: xlform.AuditEvent{EventType: "edit"}, UserEmail: "a"},
		{AuditEvent: xlform.AuditEvent{EventType: "login"}, UserEmail: "a"},
	})
	require.Len(t, rows, 1)
	assert.Equal(t, "edit", rows[0].Event)
}
