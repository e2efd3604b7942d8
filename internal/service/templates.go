package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/javajack/xlform"
	"github.com/javajack/xlform/internal/store"
)

const xlsxMime = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WorkbookFile is a downloadable template workbook.
type WorkbookFile struct {
	Filename string
	Mime     string
	Data     []byte
}

// Templates manages uploads and mapping sets.
type Templates struct {
	store     Store
	workbooks Workbooks
	cfg       config
}

// NewTemplates returns a template service backed by s.
func NewTemplates(s Store, workbooks Workbooks, opts ...Option) *Templates {
	return &Templates{store: s, workbooks: workbooks, cfg: newConfig(opts)}
}

// Upload stores a template. OpenDocument uploads are converted so every
// stored workbook is xlsx; xlsx uploads are checked by materializing them.
func (t *Templates) Upload(ctx context.Context, userID int64, name, filename string, data []byte) (xlform.Template, error) {
	if filename == "" {
		filename = "template.xlsx"
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}

	format := xlform.DetectFormat(data)
	wb, err := xlform.LoadWorkbook(data)
	if err != nil {
		return xlform.Template{}, err
	}
	if format == "ods" {
		if data, err = xlform.EncodeXLSX(wb); err != nil {
			return xlform.Template{}, fmt.Errorf("convert %s: %w", filename, err)
		}
	}

	tmpl, err := t.store.CreateTemplate(ctx, store.TemplateFile{
		Template: xlform.Template{Name: name, OriginalFilename: filename},
		MimeType: xlsxMime,
		Data:     data,
	}, userID)
	if err != nil {
		return xlform.Template{}, err
	}
	t.cfg.logger.InfoContext(ctx, "template uploaded",
		"template_id", tmpl.ID,
		"format", format,
		"sheets", len(wb.Sheets),
	)
	return tmpl, nil
}

// List returns all templates.
func (t *Templates) List(ctx context.Context) ([]xlform.Template, error) {
	return t.store.ListTemplates(ctx)
}

// MappedCells returns the mapping set of a template.
func (t *Templates) MappedCells(ctx context.Context, templateID int64) ([]xlform.MappedCell, error) {
	return t.store.TemplateCells(ctx, templateID)
}

// Workbook returns the stored xlsx for download.
func (t *Templates) Workbook(ctx context.Context, templateID int64) (WorkbookFile, error) {
	data, err := t.workbooks.TemplateWorkbook(ctx, templateID)
	if err != nil {
		return WorkbookFile{}, err
	}
	return WorkbookFile{
		Filename: fmt.Sprintf("template-%d.xlsx", templateID),
		Mime:     xlsxMime,
		Data:     data,
	}, nil
}

// SetMappedCells replaces the template's mapping set. Cells with an invalid
// address or a sheet the workbook lacks reject the whole request with a
// *MappingError. Duplicates keep the first entry. It returns the number of
// cells stored.
func (t *Templates) SetMappedCells(ctx context.Context, templateID int64, cells []xlform.MappedCell) (int, error) {
	data, err := t.workbooks.TemplateWorkbook(ctx, templateID)
	if err != nil {
		return 0, err
	}
	wb, err := xlform.LoadWorkbook(data)
	if err != nil {
		return 0, err
	}

	var rejected []xlform.ValidationIssue
	for _, is := range xlform.ValidateMapping(wb, cells) {
		if is.Severity == xlform.SeverityError {
			rejected = append(rejected, is)
		}
	}
	if len(rejected) > 0 {
		return 0, &MappingError{Issues: rejected}
	}

	set := xlform.BuildMappingSet(cells).Cells()
	if err := t.store.ReplaceTemplateCells(ctx, templateID, set); err != nil {
		return 0, err
	}
	t.cfg.logger.InfoContext(ctx, "mapping replaced",
		"template_id", templateID,
		"submitted", len(cells),
		"stored", len(set),
	)
	return len(set), nil
}
