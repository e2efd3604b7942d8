package client_test

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/javajack/xlform"
	"github.com/javajack/xlform/client"
	"github.com/javajack/xlform/internal/auth"
	"github.com/javajack/xlform/internal/httpapi"
	"github.com/javajack/xlform/internal/service"
	"github.com/javajack/xlform/internal/store"
)

func newServer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, "sqlite3", filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	hash, err := auth.HashPassword("secret")
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, "admin@example.com", hash, store.RoleAdmin)
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, "op@example.com", hash, store.RoleOperator)
	require.NoError(t, err)

	h := httpapi.New(httpapi.Deps{
		Auth:      auth.NewService(s, "client-test-key", "xlform", time.Hour),
		Templates: service.NewTemplates(s, s),
		Instances: service.NewInstances(s, s),
	})
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv.URL
}

func workbook(t *testing.T) []byte {
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

func login(t *testing.T, url, email string) *client.Client {
	t.Helper()
	token, err := client.Login(context.Background(), url, email, "secret")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	return client.New(url, token)
}

func TestRemoteSession(t *testing.T) {
	ctx := context.Background()
	url := newServer(t)
	admin := login(t, url, "admin@example.com")
	op := login(t, url, "op@example.com")

	me, err := op.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "operator", me.Role)

	tpl, err := admin.UploadTemplate(ctx, "Monthly", "monthly.xlsx", workbook(t))
	require.NoError(t, err)
	assert.Equal(t, "Monthly", tpl.Name)
	require.NoError(t, admin.SetMappedCells(ctx, tpl.ID, []xlform.MappedCell{
		{SheetName: "Sheet1", CellRef: "A1", Label: "Name"},
		{SheetName: "Sheet1", CellRef: "B2", Label: "Total", DataType: xlform.DataNumber},
	}))

	list, err := op.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	sess, err := xlform.OpenSession(ctx, op, op, tpl.ID, "January")
	require.NoError(t, err)

	ok, err := sess.Set("A1", xlform.Text("Ada"))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = sess.Set("A2", xlform.Text("Sneaky"))
	require.NoError(t, err)
	assert.False(t, ok, "unmapped cell must be rejected")

	res, err := sess.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Values)
	assert.Equal(t, 1, res.EventsFlushed)

	detail, err := op.Instance(ctx, sess.Instance().ID)
	require.NoError(t, err)
	v, found := detail.Values.Get("Sheet1", "A1")
	assert.True(t, found)
	assert.Equal(t, "Ada", v)
	v, _ = detail.Values.Get("Sheet1", "B2")
	assert.Equal(t, "100", v)

	types := make([]string, 0, len(detail.Audit))
	for _, rec := range detail.Audit {
		types = append(types, rec.EventType)
	}
	assert.Equal(t, []string{xlform.EventCreate, xlform.EventEdit, xlform.EventSave}, types)
	assert.Equal(t, "Name", detail.Audit[1].OldValue)
	assert.Equal(t, "Ada", detail.Audit[1].NewValue)

	doc, err := sess.Export(ctx)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc.Data, []byte("%PDF")))
}

func TestErrors(t *testing.T) {
	ctx := context.Background()
	url := newServer(t)

	_, err := client.Login(ctx, url, "admin@example.com", "wrong")
	assert.ErrorIs(t, err, client.ErrUnauthorized)

	op := login(t, url, "op@example.com")
	_, err = op.UploadTemplate(ctx, "", "x.xlsx", workbook(t))
	assert.ErrorIs(t, err, client.ErrForbidden)

	_, err = op.MappedCells(ctx, 404)
	assert.ErrorIs(t, err, client.ErrNotFound)

	var apiErr *client.APIError
	_, err = op.Instance(ctx, 404)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "not_found", apiErr.Code)

	_, err = xlform.OpenSession(ctx, op, op, 404, "missing")
	assert.ErrorIs(t, err, client.ErrNotFound)
}

func TestServerDown(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	c := client.New(url, "token")
	_, err := c.ListTemplates(context.Background())
	require.Error(t, err)
	var apiErr *client.APIError
	assert.False(t, errors.As(err, &apiErr))
}
