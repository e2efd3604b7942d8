// Package pdfexport renders a filled instance and its audit trail as a PDF.
package pdfexport

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

const (
	// Longest old/new value shown in an audit line.
	maxAuditValue = 25

	maxGridRows = 60
	maxGridCols = 10

	pageMargin = 15.0
	lineHeight = 4.5
)

// Report is everything that goes into an export.
type Report struct {
	Title        string
	TemplateName string
	InstanceID   int64
	GeneratedAt  time.Time
	Sheets       []Sheet
	Audit        []AuditRow
}

// Sheet is one filled worksheet. Mapped holds the "row:col" keys of mapped
// cells, which are shaded.
type Sheet struct {
	Name   string
	Rows   [][]string
	Mapped map[[2]int]bool
}

// AuditRow is one line of the audit trail.
type AuditRow struct {
	At       time.Time
	User     string
	Event    string
	Sheet    string
	Cell     string
	OldValue string
	NewValue string
}

var auditHeader = []string{"Time (UTC)", "User", "Event", "Sheet", "Cell", "From", "To"}

// AuditLines formats the audit trail as the lines printed on the audit pages,
// header first.
func AuditLines(rows []AuditRow) []string {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, strings.Join(auditHeader, " | "))
	for _, r := range rows {
		lines = append(lines, strings.Join([]string{
			r.At.UTC().Format(time.RFC3339),
			r.User,
			r.Event,
			r.Sheet,
			r.Cell,
			truncate(r.OldValue, maxAuditValue),
			truncate(r.NewValue, maxAuditValue),
		}, " | "))
	}
	return lines
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Render produces the PDF: one section per filled sheet, then the audit trail.
func Render(r Report) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle(r.Title, true)
	pdf.SetCreator("xlform", true)
	if !r.GeneratedAt.IsZero() {
		pdf.SetCreationDate(r.GeneratedAt)
		pdf.SetModificationDate(r.GeneratedAt)
	}
	enc := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder())
	text := func(s string) string {
		out, err := enc.String(s)
		if err != nil {
			return s
		}
		return out
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, text(r.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, text(fmt.Sprintf("Template: %s    Instance: %d", r.TemplateName, r.InstanceID)), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	for _, s := range r.Sheets {
		renderSheet(pdf, s, text)
	}

	renderAudit(pdf, r.Audit, text)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func renderSheet(pdf *fpdf.Fpdf, s Sheet, text func(string) string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, text(s.Name), "", 1, "L", false, 0, "")

	cols := 0
	for _, row := range s.Rows {
		cols = max(cols, len(row))
	}
	cols = min(cols, maxGridCols)
	if cols == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 5, "(empty sheet)", "", 1, "L", false, 0, "")
		pdf.Ln(2)
		return
	}

	pageW, _ := pdf.GetPageSize()
	width := (pageW - 2*pageMargin) / float64(cols)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetFillColor(255, 244, 204)
	for i, row := range s.Rows {
		if i == maxGridRows {
			pdf.SetFont("Helvetica", "I", 8)
			pdf.CellFormat(0, 5, fmt.Sprintf("(%d more rows)", len(s.Rows)-maxGridRows), "", 1, "L", false, 0, "")
			break
		}
		for c := range cols {
			var v string
			if c < len(row) {
				v = row[c]
			}
			fill := s.Mapped[[2]int{i, c}]
			pdf.CellFormat(width, 5, text(fitWidth(pdf, v, width-1)), "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}

// fitWidth shortens s until it fits in w millimetres at the current font.
func fitWidth(pdf *fpdf.Fpdf, s string, w float64) string {
	if pdf.GetStringWidth(s) <= w {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > w {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

func renderAudit(pdf *fpdf.Fpdf, rows []AuditRow, text func(string) string) {
	title := func(s string) {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 8, s, "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 8)
	}

	pdf.AddPage()
	title("Audit trail")
	_, pageH := pdf.GetPageSize()
	lines := AuditLines(rows)
	for i, line := range lines {
		if pdf.GetY()+lineHeight > pageH-pageMargin {
			pdf.AddPage()
			title("Audit trail (continued)")
		}
		pdf.CellFormat(0, lineHeight, text(line), "", 1, "L", false, 0, "")
		if i == 0 {
			x, y := pdf.GetXY()
			pageW, _ := pdf.GetPageSize()
			pdf.Line(x, y, pageW-pageMargin, y)
			pdf.Ln(1)
		}
	}
}
