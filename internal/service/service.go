// Package service holds the server-side template and instance operations
// behind the HTTP API.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/javajack/xlform"
	"github.com/javajack/xlform/internal/store"
)

// ErrInvalidMapping is matched by *MappingError.
var ErrInvalidMapping = errors.New("invalid mapping")

// MappingError lists the error-severity issues that rejected a mapping set.
type MappingError struct {
	Issues []xlform.ValidationIssue
}

func (e *MappingError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		msgs[i] = is.String()
	}
	return "invalid mapping: " + strings.Join(msgs, "; ")
}

func (e *MappingError) Is(target error) bool { return target == ErrInvalidMapping }

// Store is the persistence the services need.
type Store interface {
	CreateTemplate(ctx context.Context, f store.TemplateFile, createdBy int64) (xlform.Template, error)
	ListTemplates(ctx context.Context) ([]xlform.Template, error)
	Template(ctx context.Context, id int64) (xlform.Template, error)
	ReplaceTemplateCells(ctx context.Context, templateID int64, cells []xlform.MappedCell) error
	TemplateCells(ctx context.Context, templateID int64) ([]xlform.MappedCell, error)

	CreateInstance(ctx context.Context, templateID, userID int64, title string) (xlform.Instance, error)
	Instance(ctx context.Context, id int64) (xlform.Instance, error)
	SaveInstance(ctx context.Context, instanceID, userID int64, payload xlform.SavePayload) error
	InstanceValues(ctx context.Context, instanceID int64) (xlform.ValueSet, error)
	InstanceAudit(ctx context.Context, instanceID int64) ([]store.AuditRecord, error)
	AppendAudit(ctx context.Context, instanceID, userID int64, ev xlform.AuditEvent) error
}

// Workbooks loads template workbook bytes; the Redis cache implements it too.
type Workbooks interface {
	TemplateWorkbook(ctx context.Context, id int64) ([]byte, error)
}

type nopObserver struct{}

func (nopObserver) EditsGated(int, int)          {}
func (nopObserver) SaveCompleted(int, int, error) {}
func (nopObserver) ExportCompleted(error)         {}

// Option configures the services.
type Option func(*config)

type config struct {
	logger   *slog.Logger
	observer xlform.Observer
	now      func() time.Time
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option { return func(c *config) { c.logger = l } }

// WithObserver sets the observer notified of gating, saves and exports.
func WithObserver(o xlform.Observer) Option { return func(c *config) { c.observer = o } }

// WithClock overrides the clock used for audit timestamps.
func WithClock(now func() time.Time) Option { return func(c *config) { c.now = now } }

func newConfig(opts []Option) config {
	c := config{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer: nopObserver{},
		now:      time.Now,
	}
	for _, o := range opts {
		o(&c)
	}
	return c
}
