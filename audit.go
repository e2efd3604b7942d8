package xlform

import (
	"sync"
	"time"
)

// Audit event types. Only EventEdit is produced by the Recorder; the others
// are written by the instance store.
const (
	EventEdit   = "edit"
	EventCreate = "create"
	EventSave   = "save"
	EventExport = "export"
)

// AuditEvent is one accepted mutation of a mapped cell.
type AuditEvent struct {
	EventType string         `json:"event_type"`
	SheetName string         `json:"sheet_name"`
	CellRef   string         `json:"cell_ref"`
	OldValue  string         `json:"old_value"`
	NewValue  string         `json:"new_value"`
	Meta      map[string]any `json:"meta,omitempty"`
	Seq       int64          `json:"seq"`
	At        time.Time      `json:"at"`
}

// Recorder keeps the ordered, append-only list of edits made during one
// editing session that have not yet been persisted.
type Recorder struct {
	mu     sync.Mutex
	events []AuditEvent
	seq    int64
	now    func() time.Time
}

// NewRecorder returns an empty Recorder. A nil clock means time.Now.
func NewRecorder(now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{now: now}
}

// Record appends one event per change of an accepted UserEdit batch, in batch
// order, and returns the new events. BulkLoad batches are ignored. Repeated
// edits of one cell each produce their own event.
func (r *Recorder) Record(b Batch) []AuditEvent {
	if b.Source != UserEdit || len(b.Changes) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	at := r.now().UTC()
	start := len(r.events)
	for _, c := range b.Changes {
		r.seq++
		r.events = append(r.events, AuditEvent{
			EventType: EventEdit,
			SheetName: b.Sheet,
			CellRef:   c.Ref(),
			OldValue:  c.Old.String(),
			NewValue:  c.New.String(),
			Seq:       r.seq,
			At:        at,
		})
	}
	return append([]AuditEvent(nil), r.events[start:]...)
}

// Len returns the number of unflushed events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Pending returns a copy of the unflushed events without clearing them.
func (r *Recorder) Pending() []AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AuditEvent(nil), r.events...)
}

// Flush returns every unflushed event and clears the buffer. Events handed
// out by Flush are gone from the Recorder even if the caller fails to persist
// them; Session.Save uses Pending and Commit instead.
func (r *Recorder) Flush() []AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

// Commit drops the oldest n events, which the caller has persisted. Events
// recorded after the caller's Pending snapshot are kept.
func (r *Recorder) Commit(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n >= len(r.events) {
		r.events = nil
		return
	}
	if n > 0 {
		r.events = append([]AuditEvent(nil), r.events[n:]...)
	}
}
