package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/bloodbank/bloodbank/pkg/dates"
)

// Workbook sheet names.
const (
	SheetInventory = "Current Inventory"
	SheetDonations = "Donations Summary"
	SheetRequests  = "Requests Summary"
)

var (
	inventoryHeader = []string{"Blood Group", "Units Available", "Status", "Last Updated"}
	donationsHeader = []string{"Blood Group", "Donations", "Units Donated"}
	requestsHeader  = []string{"Blood Group", "Requests", "Units Requested"}
)

// ExportFilename names the download for a report generated on day.
func ExportFilename(day time.Time) string {
	return fmt.Sprintf("blood_bank_report_%s.xlsx", day.Format("20060102"))
}

// ExportExcel renders the summary of [from, to] as an xlsx workbook.
func (s *Service) ExportExcel(ctx context.Context, from, to time.Time) ([]byte, string, error) {
	sum, err := s.Summary(ctx, from, to)
	if err != nil {
		return nil, "", err
	}
	f, err := Workbook(sum)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", fmt.Errorf("write workbook: %w", err)
	}
	s.logger.Info().
		Str("from", sum.From.Format(dates.ISO)).
		Str("to", sum.To.Format(dates.ISO)).
		Int("bytes", buf.Len()).
		Msg("report exported")
	return buf.Bytes(), ExportFilename(sum.GeneratedAt), nil
}

// Workbook builds the three report sheets. The caller closes the file.
func Workbook(sum *Summary) (*excelize.File, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F4CCCC"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}

	inv := make([][]interface{}, 0, len(sum.Inventory)+1)
	for _, st := range sum.Inventory {
		inv = append(inv, []interface{}{st.BloodGroup.String(), st.UnitsAvailable, st.Status, dates.Format(st.LastUpdated)})
	}
	inv = append(inv, []interface{}{"Total", sum.TotalUnits})

	sheets := []struct {
		name   string
		header []string
		rows   [][]interface{}
	}{
		{SheetInventory, inventoryHeader, inv},
		{SheetDonations, donationsHeader, totalsRows(sum.Donations)},
		{SheetRequests, requestsHeader, totalsRows(sum.Requests)},
	}

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.name); err != nil {
				f.Close()
				return nil, err
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", sh.name, err)
		}
		if err := writeSheet(f, sh.name, sh.header, sh.rows, headerStyle); err != nil {
			f.Close()
			return nil, err
		}
	}

	period := fmt.Sprintf("%s - %s", dates.Format(sum.From), dates.Format(sum.To))
	for _, name := range []string{SheetDonations, SheetRequests} {
		f.SetCellValue(name, "E1", "Period")
		f.SetCellValue(name, "F1", period)
	}
	f.SetActiveSheet(0)
	return f, nil
}

func totalsRows(totals []GroupTotal) [][]interface{} {
	rows := make([][]interface{}, 0, len(totals)+1)
	count, units := 0, 0
	for _, t := range totals {
		rows = append(rows, []interface{}{t.BloodGroup.String(), t.Count, t.Units})
		count += t.Count
		units += t.Units
	}
	return append(rows, []interface{}{"Total", count, units})
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]interface{}, headerStyle int) error {
	for col, h := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("set header %s: %w", cell, err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for r, row := range rows {
		start, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, start, &row); err != nil {
			return fmt.Errorf("write row %d: %w", r+2, err)
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(header))
	return f.SetColWidth(sheet, "A", lastCol, 18)
}
