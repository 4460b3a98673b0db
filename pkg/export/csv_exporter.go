package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Table is ordered tabular export content. Every row has one cell per header.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

func (t Table) validate(format string) error {
	if len(t.Headers) == 0 {
		return fmt.Errorf("%s requires at least one header", format)
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Headers) {
			return fmt.Errorf("%s row %d has %d cells, want %d", format, i+1, len(row), len(t.Headers))
		}
	}
	return nil
}

// CSVExporter renders tables into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the table. The title is not written.
func (e *CSVExporter) Render(table Table) ([]byte, error) {
	if err := table.validate("csv"); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(table.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range table.Rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
