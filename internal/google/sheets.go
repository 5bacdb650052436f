// Package google mirrors bookings and admin reports into a Google spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/AWS-JaeminJung/sauna-app/internal/models"
	"github.com/AWS-JaeminJung/sauna-app/internal/report"
)

var bookingHeader = []interface{}{
	"ID", "Date", "Start", "End", "Sauna", "Guests", "Total", "Customer", "Phone", "Email", "Status",
}

// SheetsService writes into one spreadsheet.
type SheetsService struct {
	srv           *sheets.Service
	spreadsheetID string
	bookingsSheet string
	reportSheet   string
	log           zerolog.Logger

	mu       sync.RWMutex
	rowCache map[string]int
}

// NewSheetsService authenticates with a service-account JSON file.
func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID, bookingsSheet, reportSheet string, log zerolog.Logger) (*SheetsService, error) {
	if spreadsheetID == "" {
		return nil, errors.New("spreadsheet id is required")
	}

	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	creds, err := googleoauth.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &SheetsService{
		srv:           srv,
		spreadsheetID: spreadsheetID,
		bookingsSheet: bookingsSheet,
		reportSheet:   reportSheet,
		log:           log.With().Str("component", "sheets").Logger(),
		rowCache:      make(map[string]int),
	}, nil
}

// TestConnection checks that the spreadsheet is reachable.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.srv.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	return err
}

// UpsertBooking writes b into its row of the bookings sheet, appending when new.
func (s *SheetsService) UpsertBooking(ctx context.Context, b *models.Booking) error {
	values := &sheets.ValueRange{Values: [][]interface{}{bookingRowValues(b)}}

	row, ok := s.getCachedRow(b.ID)
	if !ok {
		var err error
		row, ok, err = s.findRow(ctx, b.ID)
		if err != nil {
			return err
		}
	}

	if ok {
		rng := fmt.Sprintf("%s!A%d", s.bookingsSheet, row)
		_, err := s.srv.Spreadsheets.Values.Update(s.spreadsheetID, rng, values).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			s.deleteCacheRow(b.ID)
			return fmt.Errorf("update booking row: %w", err)
		}
		s.setCachedRow(b.ID, row)
		return nil
	}

	resp, err := s.srv.Spreadsheets.Values.Append(s.spreadsheetID, s.bookingsSheet+"!A1", values).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append booking row: %w", err)
	}
	if resp.Updates != nil {
		if n, ok := rowFromRange(resp.Updates.UpdatedRange); ok {
			s.setCachedRow(b.ID, n)
		}
	}
	return nil
}

// findRow scans the ID column and refreshes the row cache.
func (s *SheetsService) findRow(ctx context.Context, id string) (int, bool, error) {
	resp, err := s.srv.Spreadsheets.Values.Get(s.spreadsheetID, s.bookingsSheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("read booking ids: %w", err)
	}

	ids := make([]string, len(resp.Values))
	for i, v := range resp.Values {
		if len(v) > 0 {
			ids[i] = fmt.Sprint(v[0])
		}
	}
	s.rebuildCache(ids)
	row, ok := s.getCachedRow(id)
	return row, ok, nil
}

// ExportReport writes the dashboard snapshot into the report sheet.
func (s *SheetsService) ExportReport(ctx context.Context, d *report.Data) error {
	return s.overwrite(ctx, s.reportSheet, reportRows(d))
}

func (s *SheetsService) overwrite(ctx context.Context, sheet string, rows [][]interface{}) error {
	if _, err := s.srv.Spreadsheets.Values.Clear(s.spreadsheetID, sheet, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", sheet, err)
	}

	_, err := s.srv.Spreadsheets.Values.Update(s.spreadsheetID, sheet+"!A1", &sheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", sheet, err)
	}
	s.log.Info().Str("sheet", sheet).Int("rows", len(rows)).Msg("sheet updated")
	return nil
}

func bookingRowValues(b *models.Booking) []interface{} {
	return []interface{}{
		b.ID,
		b.BookingDate,
		b.StartTime,
		b.EndTime,
		b.SaunaName,
		b.GuestCount,
		b.TotalPrice,
		b.CustomerName,
		b.CustomerPhone,
		b.CustomerEmail,
		b.Status,
	}
}

func reportRows(d *report.Data) [][]interface{} {
	rows := report.SummaryRows(d)
	rows = append(rows, []interface{}{}, []interface{}{"Date", "Revenue", "Bookings"})
	for _, r := range d.Revenue {
		rows = append(rows, []interface{}{r.Date, r.Revenue, r.BookingCount})
	}
	rows = append(rows, []interface{}{}, []interface{}{"Sauna", "Bookings", "Revenue"})
	for _, b := range d.BySauna {
		rows = append(rows, []interface{}{b.SaunaName, b.BookingCount, b.Revenue})
	}
	return rows
}

// rebuildCache maps ids (column A, row 1 first) to sheet rows.
func (s *SheetsService) rebuildCache(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowCache = make(map[string]int, len(ids))
	for i, id := range ids {
		if id == "" || i == 0 {
			continue
		}
		s.rowCache[id] = i + 1
	}
}

func (s *SheetsService) getCachedRow(id string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id string, row int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowCache[id] = row
}

func (s *SheetsService) deleteCacheRow(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rowCache, id)
}
