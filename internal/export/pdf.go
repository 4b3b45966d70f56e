// Package export renders return forms as printable PDF documents.
package export

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"driver-punch-api-server/internal/models"
)

const (
	ContentType  = "application/pdf"
	marginMM     = 15.0
	rowHeight    = 7.0
	footerHeight = 12.0
)

// Table columns: item, quantity, condition, notes.
var columns = []struct {
	title string
	width float64
	align string
}{
	{"Item", 60, "L"},
	{"Qty", 20, "R"},
	{"Condition", 30, "C"},
	{"Notes", 70, "L"},
}

// FileName is the download name of a form's document.
func FileName(f models.ReturnForm) string {
	return fmt.Sprintf("return-form-%s.pdf", f.ID.Hex())
}

// ObjectKey is where an exported form is stored.
func ObjectKey(f models.ReturnForm) string {
	return fmt.Sprintf("returnForms/%s.pdf", f.ID.Hex())
}

// RenderReturnForm produces a paginated PDF of the form.
func RenderReturnForm(f models.ReturnForm) ([]byte, error) {
	pdf := build(f)
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render return form %s: %w", f.ID.Hex(), err)
	}
	return buf.Bytes(), nil
}

func build(f models.ReturnForm) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Return form "+f.ID.Hex(), true)
	pdf.SetCreator("driver-punch-api-server", true)
	pdf.SetMargins(marginMM, marginMM, marginMM)
	pdf.SetAutoPageBreak(true, marginMM+footerHeight)
	pdf.AliasNbPages("")

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 8, "Return Form", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 8, tr(f.ID.Hex()), "", 1, "R", false, 0, "")
		pdf.Ln(2)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-marginMM)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 10)
	field := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, tr(value), "", 1, "L", false, 0, "")
	}
	field("Driver", fmt.Sprintf("%s (%s)", f.DriverName, f.DriverID))
	field("Punch reference", f.PunchLogID)
	field("Submitted", f.SubmittedAt.UTC().Format(time.RFC1123))
	field("Status", strings.ToUpper(string(f.Status)))
	pdf.Ln(4)

	_, pageH := pdf.GetPageSize()
	limit := pageH - marginMM - footerHeight

	tableHeader := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for _, c := range columns {
			pdf.CellFormat(c.width, rowHeight, c.title, "1", 0, c.align, true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 10)
	}
	tableHeader()
	for _, it := range f.Items {
		// Break before the row so the column titles repeat on every page.
		if pdf.GetY()+rowHeight > limit {
			pdf.AddPage()
			tableHeader()
		}
		cells := []string{it.Name, strconv.Itoa(it.Quantity), string(it.Condition), it.Notes}
		for i, c := range columns {
			pdf.CellFormat(c.width, rowHeight, tr(truncate(pdf, cells[i], c.width-2)), "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if pdf.GetY()+rowHeight > limit {
		pdf.AddPage()
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(columns[0].width, rowHeight, "Total items", "1", 0, "L", false, 0, "")
	pdf.CellFormat(columns[1].width, rowHeight, strconv.Itoa(f.TotalItems), "1", 1, "R", false, 0, "")
	return pdf
}

// truncate shortens s with an ellipsis until it fits width millimetres.
func truncate(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
