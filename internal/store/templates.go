package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/javajack/xlform"
)

// TemplateFile is an uploaded template together with its workbook.
type TemplateFile struct {
	xlform.Template
	MimeType string
	Data     []byte
}

// CreateTemplate stores an uploaded workbook.
func (s *Store) CreateTemplate(ctx context.Context, f TemplateFile, createdBy int64) (xlform.Template, error) {
	t := f.Template
	t.CreatedAt = s.now().UTC()
	id, err := s.insertID(ctx, s.db, `
		INSERT INTO templates (name, original_filename, mime_type, file_bytes, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.Name, t.OriginalFilename, f.MimeType, f.Data, createdBy, t.CreatedAt,
	)
	if err != nil {
		return xlform.Template{}, fmt.Errorf("create template: %w", err)
	}
	t.ID = id
	return t, nil
}

// ListTemplates returns all templates, newest first.
func (s *Store) ListTemplates(ctx context.Context) ([]xlform.Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, original_filename, created_at
		FROM templates
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	out := []xlform.Template{}
	for rows.Next() {
		var t xlform.Template
		if err := rows.Scan(&t.ID, &t.Name, &t.OriginalFilename, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return out, nil
}

// Template returns a template's metadata.
func (s *Store) Template(ctx context.Context, id int64) (xlform.Template, error) {
	var t xlform.Template
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, name, original_filename, created_at
		FROM templates WHERE id = ?`), id,
	).Scan(&t.ID, &t.Name, &t.OriginalFilename, &t.CreatedAt)
	if err != nil {
		return xlform.Template{}, notFound(err, "template", id)
	}
	return t, nil
}

// TemplateWorkbook returns the stored workbook bytes of a template.
func (s *Store) TemplateWorkbook(ctx context.Context, id int64) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT file_bytes FROM templates WHERE id = ?`), id).Scan(&data)
	if err != nil {
		return nil, notFound(err, "template", id)
	}
	return data, nil
}

func (s *Store) templateExists(ctx context.Context, q querier, id int64) error {
	var one int
	err := q.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM templates WHERE id = ?`), id).Scan(&one)
	if err != nil {
		return notFound(err, "template", id)
	}
	return nil
}

// ReplaceTemplateCells swaps the template's mapping set for cells in one
// transaction. Cells must already be normalized and deduplicated.
func (s *Store) ReplaceTemplateCells(ctx context.Context, templateID int64, cells []xlform.MappedCell) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.templateExists(ctx, tx, templateID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM template_cells WHERE template_id = ?`), templateID); err != nil {
			return fmt.Errorf("clear mapped cells: %w", err)
		}
		for i, c := range cells {
			_, err := tx.ExecContext(ctx, s.rebind(`
				INSERT INTO template_cells (template_id, position, sheet_name, cell_ref, label, data_type)
				VALUES (?, ?, ?, ?, ?, ?)`),
				templateID, i, c.SheetName, c.CellRef, c.Label, string(c.DataType),
			)
			if err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("mapped cell %s!%s: %w", c.SheetName, c.CellRef, ErrConflict)
				}
				return fmt.Errorf("insert mapped cell: %w", err)
			}
		}
		return nil
	})
}

// TemplateCells returns the mapping set in the order it was submitted.
func (s *Store) TemplateCells(ctx context.Context, templateID int64) ([]xlform.MappedCell, error) {
	if err := s.templateExists(ctx, s.db, templateID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT sheet_name, cell_ref, label, data_type
		FROM template_cells
		WHERE template_id = ?
		ORDER BY position ASC, id ASC`), templateID)
	if err != nil {
		return nil, fmt.Errorf("query mapped cells: %w", err)
	}
	defer rows.Close()

	out := []xlform.MappedCell{}
	for rows.Next() {
		var c xlform.MappedCell
		var dt string
		if err := rows.Scan(&c.SheetName, &c.CellRef, &c.Label, &dt); err != nil {
			return nil, fmt.Errorf("scan mapped cell: %w", err)
		}
		c.DataType = xlform.DataType(dt)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mapped cells: %w", err)
	}
	return out, nil
}
