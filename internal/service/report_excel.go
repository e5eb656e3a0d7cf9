package service

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"shuttle-ledger/internal/domain"
	"shuttle-ledger/internal/reconcile"
)

// ShortageReportHeader column titles of the shortage sheet
var ShortageReportHeader = []string{"학생", "학교", "학부모", "연락처", "월 요금", "완납", "부분 입금", "미납액", "재원"}

// YearlyReportHeader column titles of the yearly sheet
var YearlyReportHeader = []string{"월", "학생 수", "예정액", "완납", "부분 입금", "미납액"}

// GenerateShortageReport one row per student with a shortage in period
func GenerateShortageReport(rows []ShortageView, period domain.Period) ([]byte, error) {
	data := make([][]any, 0, len(rows))
	for _, r := range rows {
		active := "재원"
		if !r.Active {
			active = "휴원"
		}
		data = append(data, []any{r.StudentName, r.SchoolName, r.ParentName, r.ParentPhone, r.Fee, r.Paid, r.Partial, r.Shortage, active})
	}
	return writeSheet("미납 "+period.Label(), ShortageReportHeader, []float64{14, 18, 14, 16, 12, 12, 12, 12, 8}, data, nil)
}

// GenerateYearlyReport twelve month rows and a totals row
func GenerateYearlyReport(report reconcile.YearReport) ([]byte, error) {
	data := make([][]any, 0, len(report.Rows))
	for _, r := range report.Rows {
		data = append(data, []any{fmt.Sprintf("%d월", r.Month), r.StudentCount, r.Expected, r.Paid, r.Partial, r.Missing})
	}
	totals := []any{"합계", "", report.Totals.Expected, report.Totals.Paid, report.Totals.Partial, report.Totals.Missing}
	return writeSheet(fmt.Sprintf("%d년", report.Year), YearlyReportHeader, []float64{8, 10, 14, 14, 14, 14}, data, totals)
}

func writeSheet(sheetName string, headers []string, widths []float64, data [][]any, footer []any) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		if col < len(widths) {
			name, _ := excelize.ColumnNumberToName(col + 1)
			if err := f.SetColWidth(sheetName, name, name, widths[col]); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set column width: %w", err)
			}
		}
	}

	if footer != nil {
		data = append(data, footer)
	}
	for i, values := range data {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}
