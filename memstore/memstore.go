// Package memstore keeps templates and instances in memory. It implements
// xlform.TemplateStore and xlform.InstanceStore for tests, examples and the
// CLI's offline commands.
package memstore

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/javajack/xlform"
)

// ErrNotFound is returned for unknown template or instance IDs.
var ErrNotFound = errors.New("not found")

type template struct {
	meta     xlform.Template
	workbook []byte
	cells    []xlform.MappedCell
}

type instance struct {
	meta   xlform.Instance
	values map[string]xlform.ValueEntry
	order  []string
	audit  []xlform.AuditEvent
}

// Store holds templates and instances behind a single RWMutex.
type Store struct {
	mu        sync.RWMutex
	templates map[int64]*template
	instances map[int64]*instance
	nextTmpl  int64
	nextInst  int64
	now       func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		templates: make(map[int64]*template),
		instances: make(map[int64]*instance),
		now:       time.Now,
	}
}

// ListTemplates returns every uploaded template, newest first.
func (s *Store) ListTemplates(ctx context.Context) ([]xlform.Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]xlform.Template, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t.meta)
	}
	slices.SortFunc(out, func(a, b xlform.Template) int { return cmp.Compare(b.ID, a.ID) })
	return out, nil
}

// MappedCells returns the mapping set of a template.
func (s *Store) MappedCells(ctx context.Context, templateID int64) ([]xlform.MappedCell, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[templateID]
	if !ok {
		return nil, fmt.Errorf("template %d: %w", templateID, ErrNotFound)
	}
	return slices.Clone(t.cells), nil
}

// WorkbookBytes returns the stored xlsx bytes of a template.
func (s *Store) WorkbookBytes(ctx context.Context, templateID int64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[templateID]
	if !ok {
		return nil, fmt.Errorf("template %d: %w", templateID, ErrNotFound)
	}
	return slices.Clone(t.workbook), nil
}

// UploadTemplate stores the workbook as given. Format checks belong to the
// caller; the service layer converts .ods uploads before storing.
func (s *Store) UploadTemplate(ctx context.Context, name, filename string, data []byte) (xlform.Template, error) {
	if err := ctx.Err(); err != nil {
		return xlform.Template{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTmpl++
	meta := xlform.Template{ID: s.nextTmpl, Name: name, OriginalFilename: filename, CreatedAt: s.now().UTC()}
	s.templates[meta.ID] = &template{meta: meta, workbook: slices.Clone(data)}
	return meta, nil
}

// SetMappedCells replaces the template's mapping set. Cells are normalized
// and deduplicated the way BuildMappingSet does it.
func (s *Store) SetMappedCells(ctx context.Context, templateID int64, cells []xlform.MappedCell) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[templateID]
	if !ok {
		return fmt.Errorf("template %d: %w", templateID, ErrNotFound)
	}
	t.cells = xlform.BuildMappingSet(cells).Cells()
	return nil
}

// CreateInstance starts an empty instance of a template.
func (s *Store) CreateInstance(ctx context.Context, templateID int64, title string) (xlform.Instance, error) {
	if err := ctx.Err(); err != nil {
		return xlform.Instance{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[templateID]; !ok {
		return xlform.Instance{}, fmt.Errorf("template %d: %w", templateID, ErrNotFound)
	}
	s.nextInst++
	inst := &instance{
		meta:   xlform.Instance{ID: s.nextInst, TemplateID: templateID, Title: title},
		values: make(map[string]xlform.ValueEntry),
	}
	inst.audit = append(inst.audit, xlform.AuditEvent{
		EventType: xlform.EventCreate,
		Meta:      map[string]any{"template_id": templateID},
		At:        s.now().UTC(),
	})
	s.instances[inst.meta.ID] = inst
	return inst.meta, nil
}

// SaveInstance upserts values by (sheet, cell) and appends the audit events
// followed by a save event. The whole payload is applied under one lock.
func (s *Store) SaveInstance(ctx context.Context, instanceID int64, payload xlform.SavePayload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[instanceID]
	if !ok {
		return fmt.Errorf("instance %d: %w", instanceID, ErrNotFound)
	}
	for _, v := range payload.Values {
		key := v.SheetName + "!" + v.CellRef
		if _, exists := inst.values[key]; !exists {
			inst.order = append(inst.order, key)
		}
		inst.values[key] = v
	}
	inst.audit = append(inst.audit, payload.Audit...)
	inst.audit = append(inst.audit, xlform.AuditEvent{
		EventType: xlform.EventSave,
		Meta:      map[string]any{"values_count": len(payload.Values)},
		At:        s.now().UTC(),
	})
	return nil
}

// ExportInstance fills the template workbook with the persisted values. The
// in-memory store has no PDF renderer; the document is the filled xlsx.
func (s *Store) ExportInstance(ctx context.Context, instanceID int64) (xlform.Document, error) {
	if err := ctx.Err(); err != nil {
		return xlform.Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[instanceID]
	if !ok {
		return xlform.Document{}, fmt.Errorf("instance %d: %w", instanceID, ErrNotFound)
	}
	tmpl := s.templates[inst.meta.TemplateID]
	data, err := xlform.FillValues(tmpl.workbook, inst.valueSet(), tmpl.cells...)
	if err != nil {
		return xlform.Document{}, err
	}
	inst.audit = append(inst.audit, xlform.AuditEvent{EventType: xlform.EventExport, At: s.now().UTC()})
	return xlform.Document{Filename: fmt.Sprintf("instance-%d.xlsx", instanceID), Data: data}, nil
}

// Values returns the persisted values of an instance in first-saved order.
func (s *Store) Values(instanceID int64) xlform.ValueSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[instanceID]
	if !ok {
		return nil
	}
	return inst.valueSet()
}

// Audit returns the persisted audit trail of an instance.
func (s *Store) Audit(instanceID int64) []xlform.AuditEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[instanceID]
	if !ok {
		return nil
	}
	return slices.Clone(inst.audit)
}

// InstanceCount reports how many instances exist.
func (s *Store) InstanceCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.instances)
}

func (inst *instance) valueSet() xlform.ValueSet {
	out := make(xlform.ValueSet, 0, len(inst.order))
	for _, k := range inst.order {
		out = append(out, inst.values[k])
	}
	return out
}
