package xlform_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/mock/gomock"

	"github.com/javajack/xlform"
	"github.com/javajack/xlform/memstore"
	"github.com/javajack/xlform/mocks"
)

// sessionWorkbook has an empty A1 and B2 = 100 on Sheet1, plus a Sheet2.
func sessionWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A2", "Total")
	f.SetCellValue("Sheet1", "B2", 100)
	f.NewSheet("Sheet2")
	f.SetCellValue("Sheet2", "C3", "other")
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

var sessionCells = []xlform.MappedCell{
	{SheetName: "Sheet1", CellRef: "A1", Label: "Name"},
	{SheetName: "Sheet1", CellRef: "B2", Label: "Total"},
	{SheetName: "Sheet2", CellRef: "C3", Label: "Other"},
}

func fixedNow() time.Time { return time.Date(2026, 1, 14, 9, 30, 0, 0, time.UTC) }

func seededStore(t *testing.T) (*memstore.Store, int64) {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	tmpl, err := store.UploadTemplate(ctx, "Form", "form.xlsx", sessionWorkbook(t))
	require.NoError(t, err)
	require.NoError(t, store.SetMappedCells(ctx, tmpl.ID, sessionCells))
	return store, tmpl.ID
}

func TestSession_EditSaveExport(t *testing.T) {
	ctx := context.Background()
	store, tmplID := seededStore(t)

	sess, err := xlform.OpenSession(ctx, store, store, tmplID, "April", xlform.WithClock(fixedNow))
	require.NoError(t, err)
	assert.Equal(t, "Sheet1", sess.Sheet())
	assert.Equal(t, "April", sess.Instance().Title)

	accepted := sess.Edit(
		xlform.Change{Row: 0, Col: 0, New: xlform.Text("Alice")},
		xlform.Change{Row: 5, Col: 5, New: xlform.Text("X")},
	)
	require.Len(t, accepted, 1)
	assert.Equal(t, "A1", accepted[0].Ref())
	assert.True(t, sess.Value(5, 5).IsEmpty())
	assert.True(t, sess.IsReadOnly(5, 5))
	assert.False(t, sess.IsReadOnly(0, 0))

	pending := sess.PendingAudit()
	require.Len(t, pending, 1)
	assert.Equal(t, "", pending[0].OldValue)
	assert.Equal(t, "Alice", pending[0].NewValue)
	assert.Equal(t, fixedNow(), pending[0].At)

	res, err := sess.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, xlform.SaveResult{InstanceID: sess.Instance().ID, Values: 2, EventsFlushed: 1}, res)
	assert.Empty(t, sess.PendingAudit())

	assert.Equal(t, xlform.ValueSet{
		{SheetName: "Sheet1", CellRef: "A1", Value: "Alice"},
		{SheetName: "Sheet1", CellRef: "B2", Value: "100"},
	}, store.Values(sess.Instance().ID))

	var types []string
	for _, e := range store.Audit(sess.Instance().ID) {
		types = append(types, e.EventType)
	}
	assert.Equal(t, []string{"create", "edit", "save"}, types)

	doc, err := sess.Export(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, doc.Data)

	filled, err := xlform.LoadWorkbook(doc.Data)
	require.NoError(t, err)
	assert.Equal(t, xlform.Text("Alice"), filled.ValueAt("Sheet1", 0, 0))
}

func TestSession_SetByAddress(t *testing.T) {
	store, tmplID := seededStore(t)
	sess, err := xlform.OpenSession(context.Background(), store, store, tmplID, "t")
	require.NoError(t, err)

	ok, err := sess.Set("b2", xlform.Number(250))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "100", sess.PendingAudit()[0].OldValue)
	assert.Equal(t, "250", sess.PendingAudit()[0].NewValue)

	ok, err = sess.Set("C9", xlform.Text("nope"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = sess.Set("9C", xlform.Text("nope"))
	assert.ErrorIs(t, err, xlform.ErrInvalidAddress)
}

func TestSession_EachOpenCreatesInstance(t *testing.T) {
	ctx := context.Background()
	store, tmplID := seededStore(t)

	a, err := xlform.OpenSession(ctx, store, store, tmplID, "a")
	require.NoError(t, err)
	b, err := xlform.OpenSession(ctx, store, store, tmplID, "a")
	require.NoError(t, err)
	assert.NotEqual(t, a.Instance().ID, b.Instance().ID)
	assert.Equal(t, 2, store.InstanceCount())
}

func TestSession_UnreadableTemplateCreatesNoInstance(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	tmpl, err := store.UploadTemplate(ctx, "Broken", "broken.xlsx", []byte("not a workbook"))
	require.NoError(t, err)

	_, err = xlform.OpenSession(ctx, store, store, tmpl.ID, "t")
	assert.ErrorIs(t, err, xlform.ErrUnreadableWorkbook)
	assert.Zero(t, store.InstanceCount())
}

func TestSession_UnknownSheet(t *testing.T) {
	store, tmplID := seededStore(t)
	_, err := xlform.OpenSession(context.Background(), store, store, tmplID, "t", xlform.WithSheet("Missing"))
	assert.ErrorIs(t, err, xlform.ErrUnknownSheet)
	assert.Zero(t, store.InstanceCount())
}

func TestSession_SaveCoversActiveSheetOnly(t *testing.T) {
	ctx := context.Background()
	store, tmplID := seededStore(t)
	sess, err := xlform.OpenSession(ctx, store, store, tmplID, "t")
	require.NoError(t, err)

	_, err = sess.Set("A1", xlform.Text("first"))
	require.NoError(t, err)
	require.NoError(t, sess.SwitchSheet("Sheet2"))
	assert.Equal(t, "Sheet2", sess.Sheet())
	assert.Len(t, sess.PendingAudit(), 1, "recorded events survive the switch")

	_, err = sess.Set("C3", xlform.Text("second"))
	require.NoError(t, err)
	_, err = sess.Save(ctx)
	require.NoError(t, err)

	assert.Equal(t, xlform.ValueSet{{SheetName: "Sheet2", CellRef: "C3", Value: "second"}}, store.Values(sess.Instance().ID))
	assert.ErrorIs(t, sess.SwitchSheet("Nope"), xlform.ErrUnknownSheet)
}

type sessionMocks struct {
	templates *mocks.MockTemplateStore
	instances *mocks.MockInstanceStore
}

func openMocked(t *testing.T) (*xlform.Session, sessionMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := sessionMocks{
		templates: mocks.NewMockTemplateStore(ctrl),
		instances: mocks.NewMockInstanceStore(ctrl),
	}
	m.templates.EXPECT().MappedCells(gomock.Any(), int64(3)).Return(sessionCells, nil)
	m.templates.EXPECT().WorkbookBytes(gomock.Any(), int64(3)).Return(sessionWorkbook(t), nil)
	m.instances.EXPECT().CreateInstance(gomock.Any(), int64(3), "mocked").
		Return(xlform.Instance{ID: 11, TemplateID: 3, Title: "mocked"}, nil)

	sess, err := xlform.OpenSession(context.Background(), m.templates, m.instances, 3, "mocked")
	require.NoError(t, err)
	return sess, m
}

func newValues(events []xlform.AuditEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.NewValue
	}
	return out
}

func TestSession_FailedSaveKeepsAudit(t *testing.T) {
	ctx := context.Background()
	sess, m := openMocked(t)
	storeErr := errors.New("connection refused")

	_, err := sess.Set("A1", xlform.Text("one"))
	require.NoError(t, err)

	m.instances.EXPECT().SaveInstance(gomock.Any(), int64(11), gomock.Any()).Return(storeErr)
	_, err = sess.Save(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, xlform.ErrSaveFailed)
	assert.ErrorIs(t, err, storeErr)
	assert.Equal(t, []string{"one"}, newValues(sess.PendingAudit()))

	_, err = sess.Set("B2", xlform.Number(7))
	require.NoError(t, err)

	var got xlform.SavePayload
	m.instances.EXPECT().SaveInstance(gomock.Any(), int64(11), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, p xlform.SavePayload) error {
			got = p
			return nil
		})
	res, err := sess.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.EventsFlushed)
	assert.Equal(t, []string{"one", "7"}, newValues(got.Audit))
	assert.Empty(t, sess.PendingAudit())
}

func TestSession_EditDuringSaveSurvives(t *testing.T) {
	ctx := context.Background()
	sess, m := openMocked(t)

	_, err := sess.Set("A1", xlform.Text("before"))
	require.NoError(t, err)

	m.instances.EXPECT().SaveInstance(gomock.Any(), int64(11), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, p xlform.SavePayload) error {
			assert.Equal(t, []string{"before"}, newValues(p.Audit))
			_, err := sess.Set("B2", xlform.Text("during"))
			assert.NoError(t, err)
			return nil
		})
	_, err = sess.Save(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"during"}, newValues(sess.PendingAudit()))
	assert.Equal(t, xlform.Text("during"), sess.Value(1, 1))
}

func TestSession_ExportFailure(t *testing.T) {
	sess, m := openMocked(t)
	m.instances.EXPECT().ExportInstance(gomock.Any(), int64(11)).Return(xlform.Document{}, errors.New("boom"))

	_, err := sess.Export(context.Background())
	assert.ErrorIs(t, err, xlform.ErrExportFailed)
}

func TestSession_ExportDefaultsFilename(t *testing.T) {
	sess, m := openMocked(t)
	m.instances.EXPECT().ExportInstance(gomock.Any(), int64(11)).Return(xlform.Document{Data: []byte("%PDF")}, nil)

	doc, err := sess.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "instance-11.pdf", doc.Filename)
}

type countingObserver struct {
	accepted, rejected, saves int
	lastErr               error
}

func (o *countingObserver) EditsGated(a, r int) {
	o.accepted += a
	o.rejected += r
}

func (o *countingObserver) SaveCompleted(_, _ int, err error) {
	o.saves++
	o.lastErr = err
}
func (o *countingObserver) ExportCompleted(error) {}

func TestSession_Observer(t *testing.T) {
	ctx := context.Background()
	store, tmplID := seededStore(t)
	obs := &countingObserver{}
	sess, err := xlform.OpenSession(ctx, store, store, tmplID, "t", xlform.WithObserver(obs))
	require.NoError(t, err)

	sess.Edit(
		xlform.Change{Row: 0, Col: 0, New: xlform.Text("a")},
		xlform.Change{Row: 9, Col: 9, New: xlform.Text("b")},
		xlform.Change{Row: 9, Col: 8, New: xlform.Text("c")},
	)
	_, err = sess.Save(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, obs.accepted)
	assert.Equal(t, 2, obs.rejected)
	assert.Equal(t, 1, obs.saves)
	assert.NoError(t, obs.lastErr)
}
