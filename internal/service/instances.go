package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/javajack/xlform"
	"github.com/javajack/xlform/internal/pdfexport"
	"github.com/javajack/xlform/internal/store"
)

// InstanceDetail is an instance with its persisted values and audit trail.
type InstanceDetail struct {
	xlform.Instance
	Values xlform.ValueSet      `json:"values"`
	Audit  []store.AuditRecord `json:"audit"`
}

// Instances creates, saves and exports instances.
type Instances struct {
	store     Store
	workbooks Workbooks
	cfg       config
}

// NewInstances returns an instance service backed by s.
func NewInstances(s Store, workbooks Workbooks, opts ...Option) *Instances {
	return &Instances{store: s, workbooks: workbooks, cfg: newConfig(opts)}
}

// Create starts an instance of templateID owned by userID.
func (in *Instances) Create(ctx context.Context, userID, templateID int64, title string) (xlform.Instance, error) {
	inst, err := in.store.CreateInstance(ctx, templateID, userID, title)
	if err != nil {
		return xlform.Instance{}, err
	}
	in.cfg.logger.InfoContext(ctx, "instance created", "instance_id", inst.ID, "template_id", templateID)
	return inst, nil
}

// Get returns an instance with its persisted values and audit trail.
func (in *Instances) Get(ctx context.Context, id int64) (InstanceDetail, error) {
	inst, err := in.store.Instance(ctx, id)
	if err != nil {
		return InstanceDetail{}, err
	}
	values, err := in.store.InstanceValues(ctx, id)
	if err != nil {
		return InstanceDetail{}, err
	}
	audit, err := in.store.InstanceAudit(ctx, id)
	if err != nil {
		return InstanceDetail{}, err
	}
	return InstanceDetail{Instance: inst, Values: values, Audit: audit}, nil
}

// Save persists a payload. Cell references are upper-cased and values for
// cells outside the template's mapping set are dropped, so a client that
// bypasses its edit gate still cannot write unmapped cells.
func (in *Instances) Save(ctx context.Context, userID, id int64, payload xlform.SavePayload) (int, error) {
	n, err := in.save(ctx, userID, id, payload)
	in.cfg.observer.SaveCompleted(n, len(payload.Audit), err)
	return n, err
}

func (in *Instances) save(ctx context.Context, userID, id int64, payload xlform.SavePayload) (int, error) {
	inst, err := in.store.Instance(ctx, id)
	if err != nil {
		return 0, err
	}
	cells, err := in.store.TemplateCells(ctx, inst.TemplateID)
	if err != nil {
		return 0, err
	}
	mapping := xlform.BuildMappingSet(cells)

	values := make(xlform.ValueSet, 0, len(payload.Values))
	for _, v := range payload.Values {
		if v.SheetName == "" {
			v.SheetName = xlform.DefaultSheet
		}
		v.CellRef = strings.ToUpper(v.CellRef)
		if !mapping.Contains(v.SheetName, v.CellRef) {
			in.cfg.logger.WarnContext(ctx, "dropping value for unmapped cell",
				"instance_id", id,
				"sheet", v.SheetName,
				"cell", v.CellRef,
			)
			continue
		}
		values = append(values, v)
	}
	payload.Values = values

	if err := in.store.SaveInstance(ctx, id, userID, payload); err != nil {
		return 0, err
	}
	in.cfg.logger.InfoContext(ctx, "instance saved",
		"instance_id", id,
		"values", len(values),
		"events", len(payload.Audit),
	)
	return len(values), nil
}

var exportedEvents = []string{xlform.EventCreate, xlform.EventEdit, xlform.EventSave, xlform.EventExport}

// Export fills the template with the persisted values and renders it with
// the audit trail as a PDF. The export itself is then audited.
func (in *Instances) Export(ctx context.Context, userID, id int64) (xlform.Document, error) {
	doc, err := in.export(ctx, userID, id)
	in.cfg.observer.ExportCompleted(err)
	return doc, err
}

func (in *Instances) export(ctx context.Context, userID, id int64) (xlform.Document, error) {
	inst, err := in.store.Instance(ctx, id)
	if err != nil {
		return xlform.Document{}, err
	}
	tmpl, err := in.store.Template(ctx, inst.TemplateID)
	if err != nil {
		return xlform.Document{}, err
	}
	cells, err := in.store.TemplateCells(ctx, inst.TemplateID)
	if err != nil {
		return xlform.Document{}, err
	}
	data, err := in.workbooks.TemplateWorkbook(ctx, inst.TemplateID)
	if err != nil {
		return xlform.Document{}, err
	}
	values, err := in.store.InstanceValues(ctx, id)
	if err != nil {
		return xlform.Document{}, err
	}
	filled, err := xlform.FillValues(data, values, cells...)
	if err != nil {
		return xlform.Document{}, fmt.Errorf("fill template %d: %w", tmpl.ID, err)
	}
	wb, err := xlform.LoadWorkbook(filled)
	if err != nil {
		return xlform.Document{}, err
	}
	audit, err := in.store.InstanceAudit(ctx, id)
	if err != nil {
		return xlform.Document{}, err
	}

	title := inst.Title
	if title == "" {
		title = fmt.Sprintf("Instance %d", inst.ID)
	}
	pdf, err := pdfexport.Render(pdfexport.Report{
		Title:        title,
		TemplateName: tmpl.Name,
		InstanceID:   inst.ID,
		GeneratedAt:  in.cfg.now(),
		Sheets:       reportSheets(wb, xlform.BuildMappingSet(cells)),
		Audit:        reportAudit(audit),
	})
	if err != nil {
		return xlform.Document{}, err
	}

	if err := in.store.AppendAudit(ctx, id, userID, xlform.AuditEvent{EventType: xlform.EventExport}); err != nil {
		return xlform.Document{}, err
	}
	in.cfg.logger.InfoContext(ctx, "instance exported", "instance_id", id, "bytes", len(pdf))
	return xlform.Document{Filename: fmt.Sprintf("instance-%d.pdf", id), Data: pdf}, nil
}

// reportSheets converts the sheets holding mapped cells, in workbook order.
func reportSheets(wb *xlform.Workbook, m *xlform.MappingSet) []pdfexport.Sheet {
	var out []pdfexport.Sheet
	for _, s := range wb.Sheets {
		cells := m.ForSheet(s.Name)
		if len(cells) == 0 {
			continue
		}
		ps := pdfexport.Sheet{Name: s.Name, Mapped: make(map[[2]int]bool, len(cells))}
		for _, c := range cells {
			if row, col, err := xlform.DecodeAddress(c.CellRef); err == nil {
				ps.Mapped[[2]int{row, col}] = true
			}
		}
		ps.Rows = make([][]string, len(s.Rows))
		for i, row := range s.Rows {
			ps.Rows[i] = make([]string, len(row))
			for j, v := range row {
				ps.Rows[i][j] = v.String()
			}
		}
		out = append(out, ps)
	}
	return out
}

func reportAudit(records []store.AuditRecord) []pdfexport.AuditRow {
	out := make([]pdfexport.AuditRow, 0, len(records))
	for _, r := range records {
		if !slices.Contains(exportedEvents, r.EventType) {
			continue
		}
		out = append(out, pdfexport.AuditRow{
			At:       r.At,
			User:     r.UserEmail,
			Event:    r.EventType,
			Sheet:    r.SheetName,
			Cell:     r.CellRef,
			OldValue: r.OldValue,
			NewValue: r.NewValue,
		})
	}
	return out
}
