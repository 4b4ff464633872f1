package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"quicktable/internal/models"
	"quicktable/internal/worker"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const sheetTimeFormat = "2006-01-02 15:04:05"

var ErrRowNotFound = errors.New("reservation row not found")

var reservationHeaders = []interface{}{
	"ID", "Restaurant", "Date", "Time", "Party Size", "Customer", "Phone",
	"Special Requests", "Status", "Created At", "Updated At",
}

// SheetsService mirrors reservations into one sheet of a spreadsheet, one row
// per reservation keyed by the ID in column A.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	location      *time.Location
	rowCache      map[string]int
	cacheMu       sync.RWMutex
}

func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID, sheetName string, loc *time.Location) (*SheetsService, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}
	return newSheetsService(srv, spreadsheetID, sheetName, loc), nil
}

func newSheetsService(srv *sheets.Service, spreadsheetID, sheetName string, loc *time.Location) *SheetsService {
	if sheetName == "" {
		sheetName = "Reservations"
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		location:      loc,
		rowCache:      make(map[string]int),
	}
}

func (s *SheetsService) cells(ref string) string {
	return s.sheetName + "!" + ref
}

// TestConnection reads the header cell.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.cells("A1")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// Name identifies the sheets mirror as a forward sink.
func (s *SheetsService) Name() string { return "sheets" }

// Deliver upserts the whole row on creation and touches only the status
// columns afterwards. A status change for a row the sheet never saw falls
// back to a full upsert.
func (s *SheetsService) Deliver(ctx context.Context, kind string, snap worker.Snapshot) error {
	switch kind {
	case models.ForwardCreated:
		return s.UpsertReservation(ctx, &snap.Reservation, snap.RestaurantName)
	case models.ForwardStatusChanged:
		err := s.UpdateReservationStatus(ctx, snap.Reservation.ID, snap.Reservation.Status)
		if errors.Is(err, ErrRowNotFound) {
			return s.UpsertReservation(ctx, &snap.Reservation, snap.RestaurantName)
		}
		return err
	default:
		return fmt.Errorf("unsupported forward kind %q", kind)
	}
}

// WarmUpCache populates the row index cache by reading the entire ID column.
func (s *SheetsService) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.cells("A:A")).Context(ctx).Do()
	if err != nil {
		return err
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[string]int)
	for i, row := range resp.Values {
		if id := cellString(row); id != "" && id != "ID" {
			s.rowCache[id] = i + 1
		}
	}
	return nil
}

func (s *SheetsService) AppendReservation(ctx context.Context, r *models.Reservation, restaurantName string) error {
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{s.rowValues(r, restaurantName)},
	}

	resp, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, s.cells("A:A"), valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return err
	}
	if resp.Updates != nil {
		if row, ok := rowFromRange(resp.Updates.UpdatedRange); ok {
			s.setCachedRow(r.ID, row)
		}
	}
	return nil
}

// UpsertReservation rewrites an existing row or appends a new one.
func (s *SheetsService) UpsertReservation(ctx context.Context, r *models.Reservation, restaurantName string) error {
	if r == nil {
		return errors.New("reservation is nil")
	}

	rowIdx, err := s.FindReservationRow(ctx, r.ID)
	if err != nil {
		if errors.Is(err, ErrRowNotFound) {
			return s.AppendReservation(ctx, r, restaurantName)
		}
		return err
	}

	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{s.rowValues(r, restaurantName)},
	}
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.cells(fmt.Sprintf("A%d:K%d", rowIdx, rowIdx)), valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// UpdateReservationStatus writes the status and a fresh Updated At.
func (s *SheetsService) UpdateReservationStatus(ctx context.Context, id string, status models.ReservationStatus) error {
	rowIdx, err := s.FindReservationRow(ctx, id)
	if err != nil {
		return err
	}

	statusRange := s.cells(fmt.Sprintf("I%d:I%d", rowIdx, rowIdx))
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, statusRange, &sheets.ValueRange{
		Values: [][]interface{}{{string(status)}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return err
	}

	updatedRange := s.cells(fmt.Sprintf("K%d:K%d", rowIdx, rowIdx))
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, updatedRange, &sheets.ValueRange{
		Values: [][]interface{}{{time.Now().In(s.location).Format(sheetTimeFormat)}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// FindReservationRow locates the 1-based row for id, consulting the cache first.
func (s *SheetsService) FindReservationRow(ctx context.Context, id string) (int, error) {
	if id == "" {
		return 0, errors.New("reservation id is required")
	}
	if row, ok := s.getCachedRow(id); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.cells("A:A")).Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	for i, row := range resp.Values {
		if cellString(row) == id {
			s.setCachedRow(id, i+1)
			return i + 1, nil
		}
	}
	return 0, ErrRowNotFound
}

// ReplaceReservationsSheet clears the sheet and writes the header plus one
// row per reservation, rebuilding the row cache.
func (s *SheetsService) ReplaceReservationsSheet(ctx context.Context, reservations []models.Reservation, restaurantName string) error {
	_, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, s.cells("A:K"), &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("unable to clear sheet: %w", err)
	}

	values := make([][]interface{}, 0, len(reservations)+1)
	values = append(values, reservationHeaders)
	for i := range reservations {
		values = append(values, s.rowValues(&reservations[i], restaurantName))
	}

	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.cells("A1"), &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return err
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[string]int, len(reservations))
	for i, r := range reservations {
		s.rowCache[r.ID] = i + 2
	}
	return nil
}

func (s *SheetsService) getCachedRow(id string) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id string, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

// ClearCache clears the row index cache.
func (s *SheetsService) ClearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[string]int)
}

func (s *SheetsService) rowValues(r *models.Reservation, restaurantName string) []interface{} {
	return []interface{}{
		r.ID,
		restaurantName,
		r.Date,
		r.Time,
		r.PartySize,
		r.CustomerName,
		r.CustomerPhone,
		r.SpecialRequests,
		string(r.Status),
		s.formatTimestamp(r.CreatedAt),
		s.formatTimestamp(r.UpdatedAt),
	}
}

func (s *SheetsService) formatTimestamp(t models.Timestamp) string {
	if t.IsZero() {
		return ""
	}
	return t.In(s.location).Format(sheetTimeFormat)
}

func cellString(row []interface{}) string {
	if len(row) == 0 {
		return ""
	}
	switch v := row[0].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatInt(int64(v), 10)
	default:
		return fmt.Sprint(v)
	}
}

// rowFromRange extracts the first row number of an A1 range such as
// "Reservations!A10:K10".
func rowFromRange(a1 string) (int, bool) {
	if i := strings.LastIndex(a1, "!"); i >= 0 {
		a1 = a1[i+1:]
	}
	if i := strings.Index(a1, ":"); i >= 0 {
		a1 = a1[:i]
	}
	digits := strings.TrimLeft(a1, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	row, err := strconv.Atoi(digits)
	if err != nil || row <= 0 {
		return 0, false
	}
	return row, true
}
