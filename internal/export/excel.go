package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"quicktable/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	ReservationsSheet = "Reservations"
	SummarySheet      = "Summary"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var reservationHeaders = []string{
	"Date", "Time", "Party Size", "Customer", "Phone", "Status", "Special Requests", "Created At", "ID",
}

var statusFill = map[models.ReservationStatus]string{
	models.StatusPending:   "#FFF2CC",
	models.StatusConfirmed: "#E2EFDA",
	models.StatusCancelled: "#F8CBAD",
	models.StatusCompleted: "#DDEBF7",
}

// Exporter renders reservation ranges as xlsx workbooks.
type Exporter struct {
	dir      string
	location *time.Location
	logger   *zerolog.Logger
}

func NewExporter(dir string, location *time.Location, logger *zerolog.Logger) *Exporter {
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Exporter{dir: dir, location: location, logger: logger}
}

// FileName is the download name for a restaurant's range export.
func FileName(restaurant *models.Restaurant, from, to string) string {
	return fmt.Sprintf("reservations_%s_%s_to_%s.xlsx", restaurant.Slug, from, to)
}

// Build creates the workbook: one row per reservation in seating order plus
// a per-day summary.
func (e *Exporter) Build(restaurant *models.Restaurant, from, to string, reservations []models.Reservation) (*excelize.File, error) {
	sorted := make([]models.Reservation, len(reservations))
	copy(sorted, reservations)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date < sorted[j].Date
		}
		return sorted[i].Time < sorted[j].Time
	})

	f := excelize.NewFile()
	index, err := f.NewSheet(ReservationsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if err := e.writeReservations(f, restaurant, from, to, sorted); err != nil {
		f.Close()
		return nil, err
	}
	if err := e.writeSummary(f, sorted); err != nil {
		f.Close()
		return nil, err
	}
	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

func (e *Exporter) writeReservations(f *excelize.File, restaurant *models.Restaurant, from, to string, list []models.Reservation) error {
	sheet := ReservationsSheet

	_ = f.SetCellValue(sheet, "A1", fmt.Sprintf("%s: %s - %s", restaurant.Name, from, to))
	lastCol, _ := excelize.ColumnNumberToName(len(reservationHeaders))
	_ = f.MergeCell(sheet, "A1", lastCol+"1")
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheet, "A1", "A1", titleStyle)

	header := make([]interface{}, len(reservationHeaders))
	for i, h := range reservationHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A2", &header); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9D9D9"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	_ = f.SetCellStyle(sheet, "A2", lastCol+"2", headerStyle)

	styles := make(map[models.ReservationStatus]int, len(statusFill))
	for status, color := range statusFill {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err == nil {
			styles[status] = id
		}
	}

	for i, r := range list {
		row := i + 3
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := []interface{}{
			r.Date, r.Time, r.PartySize, r.CustomerName, r.CustomerPhone,
			string(r.Status), r.SpecialRequests, e.formatTimestamp(r.CreatedAt), r.ID,
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("error writing row %d: %w", row, err)
		}
		if style, ok := styles[r.Status]; ok {
			statusCell, _ := excelize.CoordinatesToCellName(6, row)
			_ = f.SetCellStyle(sheet, statusCell, statusCell, style)
		}
	}

	_ = f.SetColWidth(sheet, "A", "C", 12)
	_ = f.SetColWidth(sheet, "D", "E", 22)
	_ = f.SetColWidth(sheet, "F", "F", 12)
	_ = f.SetColWidth(sheet, "G", "G", 36)
	_ = f.SetColWidth(sheet, "H", "I", 22)
	return nil
}

type daySummary struct {
	bookings, guests, confirmed, cancelled int
}

func (e *Exporter) writeSummary(f *excelize.File, list []models.Reservation) error {
	sheet := SummarySheet
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}

	days := make(map[string]*daySummary)
	var order []string
	for _, r := range list {
		d, ok := days[r.Date]
		if !ok {
			d = &daySummary{}
			days[r.Date] = d
			order = append(order, r.Date)
		}
		d.bookings++
		switch r.Status {
		case models.StatusCancelled:
			d.cancelled++
			continue
		case models.StatusConfirmed, models.StatusCompleted:
			d.confirmed++
		}
		d.guests += r.PartySize
	}

	header := []interface{}{"Date", "Bookings", "Guests", "Confirmed", "Cancelled"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, date := range order {
		d := days[date]
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []interface{}{date, d.bookings, d.guests, d.confirmed, d.cancelled}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(sheet, "A", "E", 14)
	return nil
}

// Write streams the workbook to w.
func (e *Exporter) Write(w io.Writer, restaurant *models.Restaurant, from, to string, reservations []models.Reservation) error {
	f, err := e.Build(restaurant, from, to, reservations)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteTo(w)
	return err
}

// Save writes the workbook into the export directory and returns its path.
func (e *Exporter) Save(restaurant *models.Restaurant, from, to string, reservations []models.Reservation) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := e.Build(restaurant, from, to, reservations)
	if err != nil {
		return "", err
	}
	defer f.Close()

	filePath := filepath.Join(e.dir, FileName(restaurant, from, to))
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("reservations", len(reservations)).Msg("Excel file created")
	return filePath, nil
}

func (e *Exporter) formatTimestamp(t models.Timestamp) string {
	if t.IsZero() {
		return ""
	}
	return t.In(e.location).Format("2006-01-02 15:04")
}
