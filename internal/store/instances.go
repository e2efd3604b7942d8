package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/javajack/xlform"
)

// AuditRecord is a persisted audit event with the acting user's email.
type AuditRecord struct {
	xlform.AuditEvent
	ID        int64  `json:"id"`
	UserEmail string `json:"user_email"`
}

// CreateInstance inserts an instance and its "create" audit event together.
func (s *Store) CreateInstance(ctx context.Context, templateID, userID int64, title string) (xlform.Instance, error) {
	inst := xlform.Instance{TemplateID: templateID, Title: title}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.templateExists(ctx, tx, templateID); err != nil {
			return err
		}
		now := s.now().UTC()
		id, err := s.insertID(ctx, tx, `
			INSERT INTO instances (template_id, created_by, created_at, title)
			VALUES (?, ?, ?, ?)`,
			templateID, userID, now, title,
		)
		if err != nil {
			return fmt.Errorf("create instance: %w", err)
		}
		inst.ID = id
		return s.appendAudit(ctx, tx, id, userID, xlform.AuditEvent{
			EventType: xlform.EventCreate,
			Meta:      map[string]any{"template_id": templateID},
		}, now)
	})
	if err != nil {
		return xlform.Instance{}, err
	}
	return inst, nil
}

// Instance returns one instance.
func (s *Store) Instance(ctx context.Context, id int64) (xlform.Instance, error) {
	var inst xlform.Instance
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, template_id, title FROM instances WHERE id = ?`), id,
	).Scan(&inst.ID, &inst.TemplateID, &inst.Title)
	if err != nil {
		return xlform.Instance{}, notFound(err, "instance", id)
	}
	return inst, nil
}

// SaveInstance upserts the payload's values by (sheet, cell), appends its
// audit events and then a "save" event, all in one transaction. Either the
// whole payload is stored or none of it is.
func (s *Store) SaveInstance(ctx context.Context, instanceID, userID int64, payload xlform.SavePayload) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.instanceIn(ctx, tx, instanceID); err != nil {
			return err
		}
		for _, v := range payload.Values {
			_, err := tx.ExecContext(ctx, s.rebind(`
				INSERT INTO instance_values (instance_id, sheet_name, cell_ref, value)
				VALUES (?, ?, ?, ?)
				ON CONFLICT (instance_id, sheet_name, cell_ref) DO UPDATE SET value = excluded.value`),
				instanceID, v.SheetName, v.CellRef, v.Value,
			)
			if err != nil {
				return fmt.Errorf("upsert value %s!%s: %w", v.SheetName, v.CellRef, err)
			}
		}

		now := s.now().UTC()
		for _, ev := range payload.Audit {
			if ev.EventType == "" {
				ev.EventType = xlform.EventEdit
			}
			if !ev.At.IsZero() {
				meta := make(map[string]any, len(ev.Meta)+1)
				maps.Copy(meta, ev.Meta)
				meta["edited_at"] = ev.At.UTC().Format(time.RFC3339Nano)
				ev.Meta = meta
			}
			if err := s.appendAudit(ctx, tx, instanceID, userID, ev, now); err != nil {
				return err
			}
		}
		return s.appendAudit(ctx, tx, instanceID, userID, xlform.AuditEvent{
			EventType: xlform.EventSave,
			Meta:      map[string]any{"values_count": len(payload.Values)},
		}, now)
	})
}

func (s *Store) instanceIn(ctx context.Context, q querier, id int64) (int64, error) {
	var templateID int64
	err := q.QueryRowContext(ctx, s.rebind(`SELECT template_id FROM instances WHERE id = ?`), id).Scan(&templateID)
	if err != nil {
		return 0, notFound(err, "instance", id)
	}
	return templateID, nil
}

// AppendAudit records a single event, such as an export.
func (s *Store) AppendAudit(ctx context.Context, instanceID, userID int64, ev xlform.AuditEvent) error {
	if _, err := s.instanceIn(ctx, s.db, instanceID); err != nil {
		return err
	}
	return s.appendAudit(ctx, s.db, instanceID, userID, ev, s.now().UTC())
}

func (s *Store) appendAudit(ctx context.Context, q querier, instanceID, userID int64, ev xlform.AuditEvent, at time.Time) error {
	meta := []byte("{}")
	if len(ev.Meta) > 0 {
		var err error
		if meta, err = json.Marshal(ev.Meta); err != nil {
			return fmt.Errorf("encode audit meta: %w", err)
		}
	}
	_, err := q.ExecContext(ctx, s.rebind(`
		INSERT INTO audit_events
		(instance_id, user_id, event_type, sheet_name, cell_ref, old_value, new_value, created_at, meta_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		instanceID, userID, ev.EventType, ev.SheetName, ev.CellRef, ev.OldValue, ev.NewValue, at, string(meta),
	)
	if err != nil {
		return fmt.Errorf("append %s audit event: %w", ev.EventType, err)
	}
	return nil
}

// InstanceValues returns the persisted values in first-saved order.
func (s *Store) InstanceValues(ctx context.Context, instanceID int64) (xlform.ValueSet, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT sheet_name, cell_ref, value
		FROM instance_values
		WHERE instance_id = ?
		ORDER BY id ASC`), instanceID)
	if err != nil {
		return nil, fmt.Errorf("query values: %w", err)
	}
	defer rows.Close()

	out := xlform.ValueSet{}
	for rows.Next() {
		var v xlform.ValueEntry
		if err := rows.Scan(&v.SheetName, &v.CellRef, &v.Value); err != nil {
			return nil, fmt.Errorf("scan value: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate values: %w", err)
	}
	return out, nil
}

// InstanceAudit returns the audit trail ordered by time.
func (s *Store) InstanceAudit(ctx context.Context, instanceID int64) ([]AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT a.id, a.event_type, a.sheet_name, a.cell_ref, a.old_value, a.new_value,
		       a.created_at, a.meta_json, u.email
		FROM audit_events a
		JOIN users u ON u.id = a.user_id
		WHERE a.instance_id = ?
		ORDER BY a.created_at ASC, a.id ASC`), instanceID)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	out := []AuditRecord{}
	for rows.Next() {
		var r AuditRecord
		var meta string
		if err := rows.Scan(&r.ID, &r.EventType, &r.SheetName, &r.CellRef, &r.OldValue, &r.NewValue,
			&r.At, &meta, &r.UserEmail); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if meta != "" && meta != "{}" {
			if err := json.Unmarshal([]byte(meta), &r.Meta); err != nil {
				return nil, fmt.Errorf("decode audit meta %d: %w", r.ID, err)
			}
		}
		r.Seq = r.ID
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit: %w", err)
	}
	return out, nil
}
