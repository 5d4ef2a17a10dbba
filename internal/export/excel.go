// Package export renders reservations as an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"sort"
	"time"

	"testdrive/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	SheetReservations = "Reservations"
	SheetDaily        = "Daily"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var reservationHeaders = []string{
	"Reservation ID", "Vehicle ID", "Vehicle type", "Location", "Start", "End",
	"Duration (min)", "Customer", "Email", "Phone", "Created",
}

// FileName is the suggested download name for a period.
func FileName(from, to time.Time) string {
	return fmt.Sprintf("reservations_%s_to_%s.xlsx", from.Format("2006-01-02"), to.Format("2006-01-02"))
}

// WriteReservations writes a workbook with the reservation list and a per-day count by location.
// The days covered are [from, to) in loc.
func WriteReservations(w io.Writer, from, to time.Time, loc *time.Location, reservations []*models.Reservation) error {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetReservations)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if err := writeList(f, from, to, loc, reservations); err != nil {
		return err
	}
	if err := writeDaily(f, from, to, loc, reservations); err != nil {
		return err
	}

	// Удаляем стандартный лист
	_ = f.DeleteSheet("Sheet1")

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

func writeList(f *excelize.File, from, to time.Time, loc *time.Location, reservations []*models.Reservation) error {
	sheet := SheetReservations

	_ = f.SetCellValue(sheet, "A1", fmt.Sprintf("Period: %s - %s",
		from.In(loc).Format("02.01.2006"), to.In(loc).AddDate(0, 0, -1).Format("02.01.2006")))
	lastCol, _ := excelize.ColumnNumberToName(len(reservationHeaders))
	_ = f.MergeCell(sheet, "A1", lastCol+"1")

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("error creating style: %w", err)
	}
	_ = f.SetCellStyle(sheet, "A1", "A1", titleStyle)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return fmt.Errorf("error creating style: %w", err)
	}

	for i, h := range reservationHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheet, cell, h)
	}
	_ = f.SetCellStyle(sheet, "A2", lastCol+"2", headerStyle)

	for i, r := range reservations {
		row := []interface{}{
			r.ReservationID,
			r.VehicleID,
			r.VehicleType,
			r.Location,
			r.StartAt.In(loc).Format("2006-01-02 15:04"),
			r.EndAt.In(loc).Format("2006-01-02 15:04"),
			int(r.EndAt.Sub(r.StartAt) / time.Minute),
			r.CustomerName,
			r.CustomerEmail,
			r.CustomerPhone,
			r.CreatedAt.In(loc).Format("2006-01-02 15:04:05"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+3)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("error writing row %d: %w", i+3, err)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 32)
	_ = f.SetColWidth(sheet, "B", lastCol, 18)
	return nil
}

func writeDaily(f *excelize.File, from, to time.Time, loc *time.Location, reservations []*models.Reservation) error {
	sheet := SheetDaily
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}

	counts := make(map[string]map[string]int)
	locationSet := make(map[string]bool)
	for _, r := range reservations {
		day := r.StartAt.In(loc).Format("2006-01-02")
		if counts[r.Location] == nil {
			counts[r.Location] = make(map[string]int)
		}
		counts[r.Location][day]++
		locationSet[r.Location] = true
	}

	locations := make([]string, 0, len(locationSet))
	for l := range locationSet {
		locations = append(locations, l)
	}
	sort.Strings(locations)

	_ = f.SetCellValue(sheet, "A1", "Location")
	col := 2
	days := make([]string, 0)
	for d := from.In(loc); d.Before(to); d = d.AddDate(0, 0, 1) {
		cell, _ := excelize.CoordinatesToCellName(col, 1)
		_ = f.SetCellValue(sheet, cell, d.Format("02.01"))
		days = append(days, d.Format("2006-01-02"))
		col++
	}

	for i, l := range locations {
		row := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(sheet, cell, l)
		for j, day := range days {
			cell, _ := excelize.CoordinatesToCellName(j+2, row)
			_ = f.SetCellValue(sheet, cell, counts[l][day])
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 20)
	return nil
}
