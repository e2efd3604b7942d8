package xlform

import (
	"context"
	"fmt"
	"sync"
)

// Session is one operator editing one Instance. Grid mutation, gating and
// recording happen under a single lock, so a rejected edit is never visible
// and every visible edit is audited. Save and Export release the lock while
// talking to the store; edits made meanwhile are kept for the next save.
type Session struct {
	mu       sync.Mutex
	saveMu   sync.Mutex
	instance Instance
	workbook *Workbook
	mapping  *MappingSet
	gate     *Gate
	grid     *Grid
	recorder *Recorder

	instances InstanceStore
	opts      *Options
}

// SaveResult confirms a persisted save.
type SaveResult struct {
	InstanceID    int64
	Values        int
	EventsFlushed int
}

// OpenSession fetches the template's mapping set and workbook, materializes
// the workbook and creates a fresh Instance. Every call creates a new Instance;
// instances are never reused across sessions. The instance is created only
// after the workbook has been read, so an unreadable template leaves no
// orphaned instance behind.
func OpenSession(ctx context.Context, templates TemplateStore, instances InstanceStore, templateID int64, title string, opts ...Option) (*Session, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	cells, err := templates.MappedCells(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("get mapped cells for template %d: %w", templateID, err)
	}
	data, err := templates.WorkbookBytes(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("get workbook for template %d: %w", templateID, err)
	}
	wb, err := LoadWorkbook(data)
	if err != nil {
		return nil, fmt.Errorf("template %d: %w", templateID, err)
	}

	sheet := wb.Sheets[0]
	if o.sheet != "" {
		s, ok := wb.Sheet(o.sheet)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSheet, o.sheet)
		}
		sheet = s
	}

	inst, err := instances.CreateInstance(ctx, templateID, title)
	if err != nil {
		return nil, fmt.Errorf("create instance for template %d: %w", templateID, err)
	}

	mapping := BuildMappingSet(cells)
	s := &Session{
		instance:  inst,
		workbook:  wb,
		mapping:   mapping,
		gate:      NewGate(mapping),
		recorder:  NewRecorder(o.now),
		instances: instances,
		opts:      o,
	}
	s.loadSheet(sheet)

	o.logger.InfoContext(ctx, "session opened",
		"template_id", templateID,
		"instance_id", inst.ID,
		"sheet", sheet.Name,
		"mapped_cells", mapping.Len(),
	)
	return s, nil
}

// loadSheet replaces the grid. The BulkLoad batch goes through the recorder
// like any other batch and is ignored there.
func (s *Session) loadSheet(sheet *Sheet) {
	grid, batch := LoadGrid(sheet)
	s.grid = grid
	s.recorder.Record(batch)
}

// Instance returns the instance this session edits.
func (s *Session) Instance() Instance { return s.instance }

// Mapping returns the session's mapping set.
func (s *Session) Mapping() *MappingSet { return s.mapping }

// Workbook returns the materialized template.
func (s *Session) Workbook() *Workbook { return s.workbook }

// Sheet returns the name of the sheet currently in the grid.
func (s *Session) Sheet() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid.Sheet()
}

// Value returns the live value at (row, col) of the active sheet.
func (s *Session) Value(row, col int) CellValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid.Value(row, col)
}

// Rows returns a copy of the active grid for rendering.
func (s *Session) Rows() [][]CellValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid.Rows()
}

// IsReadOnly reports whether (row, col) of the active sheet is locked.
func (s *Session) IsReadOnly(row, col int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate.IsReadOnly(s.grid.Sheet(), row, col)
}

// PendingAudit returns the audit events not yet saved.
func (s *Session) PendingAudit() []AuditEvent {
	return s.recorder.Pending()
}

// Edit proposes user changes to the active sheet. Changes outside the mapping
// set are dropped silently. Each accepted change's Old value is taken from the
// grid, then the change is applied and audited. Edit returns the accepted
// changes.
func (s *Session) Edit(changes ...Change) []Change {
	s.mu.Lock()
	defer s.mu.Unlock()

	sheet := s.grid.Sheet()
	accepted := s.gate.Filter(sheet, changes)
	for i := range accepted {
		accepted[i].Old = s.grid.Value(accepted[i].Row, accepted[i].Col)
		s.grid.Apply(accepted[i : i+1])
	}
	s.recorder.Record(Batch{Sheet: sheet, Source: UserEdit, Changes: accepted})

	if rejected := len(changes) - len(accepted); rejected > 0 {
		s.opts.logger.Debug("edits rejected outside mapped cells",
			"instance_id", s.instance.ID,
			"sheet", sheet,
			"rejected", rejected,
		)
	}
	s.opts.observer.EditsGated(len(accepted), len(changes)-len(accepted))
	return accepted
}

// Set is a convenience for editing a single cell by address.
func (s *Session) Set(addr string, v CellValue) (bool, error) {
	row, col, err := DecodeAddress(addr)
	if err != nil {
		return false, err
	}
	return len(s.Edit(Change{Row: row, Col: col, New: v})) == 1, nil
}

// SwitchSheet reloads the grid with another sheet of the workbook. Grid edits
// of the departing sheet are discarded: saves only ever cover the active
// sheet, so callers save before switching. Audit events already recorded stay
// pending and go out with the next save.
func (s *Session) SwitchSheet(name string) error {
	sheet, ok := s.workbook.Sheet(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSheet, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.recorder.Len(); n > 0 {
		s.opts.logger.Warn("switching sheet with unsaved edits",
			"instance_id", s.instance.ID,
			"from", s.grid.Sheet(),
			"to", name,
			"pending_events", n,
		)
	}
	s.loadSheet(sheet)
	return nil
}

// Save reconciles the active sheet's mapped values and the pending audit
// events into one store request. On failure nothing local changes, so the
// save can be retried. On success exactly the submitted events are cleared;
// events recorded while the request was in flight remain pending.
func (s *Session) Save(ctx context.Context) (SaveResult, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	values := ExtractValues(s.grid, s.mapping)
	events := s.recorder.Pending()
	s.mu.Unlock()

	err := s.instances.SaveInstance(ctx, s.instance.ID, SavePayload{Values: values, Audit: events})
	s.opts.observer.SaveCompleted(len(values), len(events), err)
	if err != nil {
		s.opts.logger.ErrorContext(ctx, "save failed",
			"instance_id", s.instance.ID,
			"values", len(values),
			"pending_events", len(events),
			"error", err,
		)
		return SaveResult{}, fmt.Errorf("%w: instance %d: %w", ErrSaveFailed, s.instance.ID, err)
	}
	s.recorder.Commit(len(events))

	s.opts.logger.InfoContext(ctx, "instance saved",
		"instance_id", s.instance.ID,
		"values", len(values),
		"events", len(events),
	)
	return SaveResult{InstanceID: s.instance.ID, Values: len(values), EventsFlushed: len(events)}, nil
}

// Export asks the instance store to render the persisted instance.
func (s *Session) Export(ctx context.Context) (Document, error) {
	doc, err := s.instances.ExportInstance(ctx, s.instance.ID)
	s.opts.observer.ExportCompleted(err)
	if err != nil {
		return Document{}, fmt.Errorf("%w: instance %d: %w", ErrExportFailed, s.instance.ID, err)
	}
	if doc.Filename == "" {
		doc.Filename = fmt.Sprintf("instance-%d.pdf", s.instance.ID)
	}
	return doc, nil
}
