package xlform

import (
	"context"
	"time"
)

// Template is an uploaded workbook that operators fill in.
type Template struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	OriginalFilename string    `json:"original_filename"`
	CreatedAt        time.Time `json:"created_at,omitzero"`
}

// Instance is one operator's editing session against a template.
type Instance struct {
	ID         int64  `json:"id"`
	TemplateID int64  `json:"template_id"`
	Title      string `json:"title"`
}

// SavePayload is submitted to the instance store as one request.
type SavePayload struct {
	Values ValueSet     `json:"values"`
	Audit  []AuditEvent `json:"audit"`
}

// Document is a rendered export.
type Document struct {
	Filename string
	Data     []byte
}

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks TemplateStore,InstanceStore

// TemplateStore serves templates, their workbooks and mapping sets.
type TemplateStore interface {
	ListTemplates(ctx context.Context) ([]Template, error)
	MappedCells(ctx context.Context, templateID int64) ([]MappedCell, error)
	WorkbookBytes(ctx context.Context, templateID int64) ([]byte, error)
	UploadTemplate(ctx context.Context, name, filename string, data []byte) (Template, error)
	SetMappedCells(ctx context.Context, templateID int64, cells []MappedCell) error
}

// InstanceStore persists instances, their values and audit trails.
type InstanceStore interface {
	CreateInstance(ctx context.Context, templateID int64, title string) (Instance, error)
	SaveInstance(ctx context.Context, instanceID int64, payload SavePayload) error
	ExportInstance(ctx context.Context, instanceID int64) (Document, error)
}
