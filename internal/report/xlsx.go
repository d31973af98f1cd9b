package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/nao1215/gatewayscan/internal/model"
)

// SheetName is the worksheet holding exported results.
const SheetName = "Results"

// xlsxHeader lists the exported columns in order.
var xlsxHeader = []string{
	"URL", "Status", "Pages Checked", "Hits", "Total Signals", "Threshold",
	"Matched Signals", "Confirmed", "Detail", "Corpus SHA3", "Scanned At",
}

// XLSXExporter writes results to an Excel workbook.
type XLSXExporter struct {
	sheet string
}

// NewXLSXExporter creates an exporter writing to the Results sheet.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{sheet: SheetName}
}

// Export writes one header row and one row per result to output.
func (e *XLSXExporter) Export(output io.Writer, results []model.ScanResult) error {
	f, err := e.build(results)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(output); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// ExportFile writes the workbook to path.
func (e *XLSXExporter) ExportFile(path string, results []model.ScanResult) error {
	f, err := e.build(results)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func (e *XLSXExporter) build(results []model.ScanResult) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", e.sheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	for col, title := range xlsxHeader {
		if err := e.setCell(f, col+1, 1, title); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(xlsxHeader), 1)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.SetCellStyle(e.sheet, "A1", last, bold); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, r := range results {
		row := i + 2
		values := []any{
			r.URL,
			r.Status.String(),
			r.PagesChecked,
			r.Hits,
			r.TotalSignals,
			r.Threshold,
			r.SignalsText(),
			confirmedText(r.Confirmed),
			r.Detail,
			r.CorpusDigest,
			r.ScannedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			if err := e.setCell(f, col+1, row, v); err != nil {
				_ = f.Close()
				return nil, err
			}
		}
	}

	if err := f.SetColWidth(e.sheet, "A", "A", 50); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}
	return f, nil
}

func (e *XLSXExporter) setCell(f *excelize.File, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(e.sheet, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s: %w", cell, err)
	}
	return nil
}

