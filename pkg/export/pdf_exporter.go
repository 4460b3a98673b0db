package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const pdfBodyWidth = 277.0

// PDFExporter renders tables into a landscape A4 PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and the table body. Column
// widths follow the longest cell of each column.
func (e *PDFExporter) Render(table Table) ([]byte, error) {
	if err := table.validate("pdf"); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if table.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(table.Title), "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	widths := columnWidths(table)
	header := func() {
		pdf.SetFont("Arial", "B", 9)
		for i, h := range table.Headers {
			pdf.CellFormat(widths[i], 8, tr(h), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, row := range table.Rows {
		if pdf.GetY()+7 > pageHeight-bottom {
			pdf.AddPage()
			header()
		}
		for i, cell := range row {
			pdf.CellFormat(widths[i], 7, tr(truncate(pdf, cell, widths[i])), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(table Table) []float64 {
	weights := make([]float64, len(table.Headers))
	var total float64
	for i, h := range table.Headers {
		longest := len(h)
		for _, row := range table.Rows {
			if len(row[i]) > longest {
				longest = len(row[i])
			}
		}
		if longest < 4 {
			longest = 4
		}
		if longest > 40 {
			longest = 40
		}
		weights[i] = float64(longest)
		total += weights[i]
	}
	for i := range weights {
		weights[i] = weights[i] / total * pdfBodyWidth
	}
	return weights
}

func truncate(pdf *gofpdf.Fpdf, text string, width float64) string {
	limit := width - 2
	if pdf.GetStringWidth(text) <= limit {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
