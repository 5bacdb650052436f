package calendar

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

var ErrPastDate = errors.New("date is in the past")

// Cell is one position of the month grid. Empty cells pad the first week.
type Cell struct {
	Day      int
	Date     time.Time
	Empty    bool
	Disabled bool
	Today    bool
	Selected bool
}

// Key returns the YYYY-MM-DD form of the cell date.
func (c Cell) Key() string {
	if c.Empty {
		return ""
	}
	return c.Date.Format(DateLayout)
}

// Calendar keeps a displayed month independent of the selected date.
type Calendar struct {
	now      func() time.Time
	year     int
	month    time.Month
	selected time.Time
}

// New creates a calendar showing the current month. A nil clock uses time.Now.
func New(now func() time.Time) *Calendar {
	if now == nil {
		now = time.Now
	}
	t := now()
	return &Calendar{now: now, year: t.Year(), month: t.Month()}
}

// DisplayedMonth returns the year and month shown by the grid.
func (c *Calendar) DisplayedMonth() (int, time.Month) {
	return c.year, c.month
}

// SetMonth moves the grid to the given month.
func (c *Calendar) SetMonth(year int, month time.Month) {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	c.year, c.month = t.Year(), t.Month()
}

// NextMonth advances the grid by one month.
func (c *Calendar) NextMonth() {
	c.SetMonth(c.year, c.month+1)
}

// PrevMonth moves the grid back by one month.
func (c *Calendar) PrevMonth() {
	c.SetMonth(c.year, c.month-1)
}

// CanGoPrev reports whether the previous month still contains selectable days.
func (c *Calendar) CanGoPrev() bool {
	today := c.now()
	return c.year > today.Year() || (c.year == today.Year() && c.month > today.Month())
}

// Selected returns the selected date; zero if none.
func (c *Calendar) Selected() time.Time {
	return c.selected
}

// SelectDate selects today or a later date.
func (c *Calendar) SelectDate(date time.Time) error {
	if c.IsPast(date) {
		return fmt.Errorf("%w: %s", ErrPastDate, date.Format(DateLayout))
	}
	c.selected = StartOfDay(date)
	return nil
}

// ClearSelection drops the selected date.
func (c *Calendar) ClearSelection() {
	c.selected = time.Time{}
}

// IsPast reports whether date falls before today, ignoring time of day.
func (c *Calendar) IsPast(date time.Time) bool {
	return StartOfDay(date).Before(StartOfDay(c.now()))
}

// Grid returns Monday-first week rows for the displayed month.
func (c *Calendar) Grid() [][]Cell {
	first := time.Date(c.year, c.month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(first.Weekday()) + 6) % 7
	days := DaysIn(c.month, c.year)
	today := StartOfDay(c.now())

	rows := make([][]Cell, 0, 6)
	row := make([]Cell, 0, 7)
	for i := 0; i < offset; i++ {
		row = append(row, Cell{Empty: true})
	}

	for day := 1; day <= days; day++ {
		date := time.Date(c.year, c.month, day, 0, 0, 0, 0, time.UTC)
		row = append(row, Cell{
			Day:      day,
			Date:     date,
			Disabled: date.Before(today),
			Today:    date.Equal(today),
			Selected: !c.selected.IsZero() && date.Equal(c.selected),
		})
		if len(row) == 7 {
			rows = append(rows, row)
			row = make([]Cell, 0, 7)
		}
	}
	if len(row) > 0 {
		for len(row) < 7 {
			row = append(row, Cell{Empty: true})
		}
		rows = append(rows, row)
	}

	return rows
}

// StartOfDay truncates t to midnight, keeping the calendar date in UTC.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// DaysIn returns the number of days in month m of year.
func DaysIn(m time.Month, year int) int {
	switch m {
	case time.February:
		if (year%4 == 0 && year%100 != 0) || year%400 == 0 {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}
