// Package report builds the admin spreadsheet from dashboard aggregates.
package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/AWS-JaeminJung/sauna-app/internal/models"
)

// Source provides the admin aggregates.
type Source interface {
	DashboardStats(ctx context.Context) (*models.DashboardStats, error)
	RevenueByDate(ctx context.Context, period int) ([]models.RevenueByDate, error)
	BookingsBySauna(ctx context.Context) ([]models.BookingsBySauna, error)
	RecentBookings(ctx context.Context, limit int) ([]models.RecentBooking, error)
}

// TableExporter provides raw local tables appended to the workbook.
type TableExporter interface {
	GetTableNames(ctx context.Context) ([]string, error)
	GetTableData(ctx context.Context, tableName string) ([]map[string]interface{}, []string, error)
}

// Data is one snapshot of the dashboard.
type Data struct {
	GeneratedAt time.Time
	PeriodDays  int
	Stats       *models.DashboardStats
	Revenue     []models.RevenueByDate
	BySauna     []models.BookingsBySauna
	Recent      []models.RecentBooking
}

// Collect fetches every aggregate the report needs.
func Collect(ctx context.Context, src Source, period, recentLimit int, now time.Time) (*Data, error) {
	stats, err := src.DashboardStats(ctx)
	if err != nil {
		return nil, err
	}
	revenue, err := src.RevenueByDate(ctx, period)
	if err != nil {
		return nil, err
	}
	bySauna, err := src.BookingsBySauna(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := src.RecentBookings(ctx, recentLimit)
	if err != nil {
		return nil, err
	}

	return &Data{
		GeneratedAt: now,
		PeriodDays:  period,
		Stats:       stats,
		Revenue:     revenue,
		BySauna:     bySauna,
		Recent:      recent,
	}, nil
}

// Sheet names.
const (
	SheetSummary = "Summary"
	SheetRevenue = "Revenue"
	SheetSaunas  = "Saunas"
	SheetRecent  = "Recent"
)

// Build writes d into w, one sheet per aggregate.
func Build(w ExcelWriter, d *Data) error {
	if err := w.AddSheet(SheetSummary); err != nil {
		return err
	}
	if err := w.WriteHeader([]string{"Metric", "Value"}); err != nil {
		return err
	}
	for _, row := range SummaryRows(d) {
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}

	if err := w.AddSheet(SheetRevenue); err != nil {
		return err
	}
	if err := w.WriteHeader([]string{"Date", "Revenue", "Bookings"}); err != nil {
		return err
	}
	for _, r := range d.Revenue {
		if err := w.WriteRow([]interface{}{r.Date, r.Revenue, r.BookingCount}); err != nil {
			return err
		}
	}

	if err := w.AddSheet(SheetSaunas); err != nil {
		return err
	}
	if err := w.WriteHeader([]string{"Sauna ID", "Sauna", "Bookings", "Revenue"}); err != nil {
		return err
	}
	for _, s := range d.BySauna {
		if err := w.WriteRow([]interface{}{s.SaunaID, s.SaunaName, s.BookingCount, s.Revenue}); err != nil {
			return err
		}
	}

	if err := w.AddSheet(SheetRecent); err != nil {
		return err
	}
	if err := w.WriteHeader([]string{"Booking ID", "Customer", "Sauna", "Date", "Start", "End", "Total", "Status", "Created"}); err != nil {
		return err
	}
	for _, b := range d.Recent {
		if err := w.WriteRow(RecentRow(b)); err != nil {
			return err
		}
	}
	return nil
}

// SummaryRows returns the metric/value pairs of the summary sheet.
func SummaryRows(d *Data) [][]interface{} {
	rows := [][]interface{}{
		{"Generated at", d.GeneratedAt.Format("2006-01-02 15:04")},
		{"Revenue period (days)", d.PeriodDays},
	}
	if s := d.Stats; s != nil {
		rows = append(rows,
			[]interface{}{"Total bookings", s.TotalBookings},
			[]interface{}{"Confirmed bookings", s.ConfirmedBookings},
			[]interface{}{"Cancelled bookings", s.CancelledBookings},
			[]interface{}{"Total revenue", s.TotalRevenue},
			[]interface{}{"Today bookings", s.TodayBookings},
			[]interface{}{"Today revenue", s.TodayRevenue},
			[]interface{}{"Customers", s.TotalCustomers},
			[]interface{}{"Saunas", s.TotalSaunas},
			[]interface{}{"Average rating", s.AverageRating},
		)
	}
	return rows
}

// RecentRow flattens a recent booking into a sheet row.
func RecentRow(b models.RecentBooking) []interface{} {
	return []interface{}{b.ID, b.CustomerName, b.SaunaName, b.BookingDate, b.StartTime, b.EndTime, b.TotalPrice, b.Status, b.CreatedAt}
}

// AppendTables adds one sheet per exported local table.
func AppendTables(ctx context.Context, w ExcelWriter, exp TableExporter) error {
	names, err := exp.GetTableNames(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		data, columns, err := exp.GetTableData(ctx, name)
		if err != nil {
			return fmt.Errorf("export %s: %w", name, err)
		}
		if err := w.AddSheet(name); err != nil {
			return err
		}
		if err := w.WriteHeader(columns); err != nil {
			return err
		}
		for _, rec := range data {
			row := make([]interface{}, len(columns))
			for i, c := range columns {
				row[i] = cellValue(rec[c])
			}
			if err := w.WriteRow(row); err != nil {
				return err
			}
		}
	}
	return nil
}

func cellValue(v interface{}) interface{} {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.Format("2006-01-02 15:04:05")
	case nil:
		return ""
	default:
		return v
	}
}

// Filename returns the report file name for t, e.g. "sauna_report_2025-03-15.xlsx".
func Filename(t time.Time) string {
	return fmt.Sprintf("sauna_report_%s.xlsx", t.Format("2006-01-02"))
}

// Render builds a complete workbook into memory. exp may be nil.
func Render(ctx context.Context, d *Data, exp TableExporter) ([]byte, error) {
	w := NewExcelizeWriter()
	defer w.Close()

	if err := Build(w, d); err != nil {
		return nil, fmt.Errorf("build report: %w", err)
	}
	if exp != nil {
		if err := AppendTables(ctx, w, exp); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := w.Save(&buf); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}
	return buf.Bytes(), nil
}
