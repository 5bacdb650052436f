package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(y int, m time.Month, d, h int) func() time.Time {
	return func() time.Time { return time.Date(y, m, d, h, 30, 0, 0, time.UTC) }
}

func TestSelectDate(t *testing.T) {
	c := New(fixedClock(2025, time.March, 15, 18))

	err := c.SelectDate(time.Date(2025, time.March, 14, 23, 59, 0, 0, time.UTC))
	require.ErrorIs(t, err, ErrPastDate)
	assert.True(t, c.Selected().IsZero())

	// today is selectable even though the hour has passed
	require.NoError(t, c.SelectDate(time.Date(2025, time.March, 15, 1, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC), c.Selected())

	require.NoError(t, c.SelectDate(time.Date(2025, time.April, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2, c.Selected().Day())

	// displayed month is not tied to the selection
	y, m := c.DisplayedMonth()
	assert.Equal(t, 2025, y)
	assert.Equal(t, time.March, m)
}

func TestGrid_MondayFirst(t *testing.T) {
	tests := []struct {
		name    string
		year    int
		month   time.Month
		padding int
		rows    int
	}{
		{"june 2025 starts sunday", 2025, time.June, 6, 6},
		{"september 2025 starts monday", 2025, time.September, 0, 5},
		{"february 2026 starts sunday", 2026, time.February, 6, 5},
		{"january 2025 starts wednesday", 2025, time.January, 2, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(fixedClock(2025, time.January, 1, 9))
			c.SetMonth(tt.year, tt.month)
			grid := c.Grid()

			require.Len(t, grid, tt.rows)
			for i := 0; i < tt.padding; i++ {
				assert.True(t, grid[0][i].Empty)
			}
			assert.Equal(t, 1, grid[0][tt.padding].Day)
			for _, row := range grid {
				assert.Len(t, row, 7)
			}
		})
	}
}

func TestGrid_Flags(t *testing.T) {
	c := New(fixedClock(2025, time.March, 15, 9))
	require.NoError(t, c.SelectDate(time.Date(2025, time.March, 20, 0, 0, 0, 0, time.UTC)))

	cells := map[int]Cell{}
	for _, row := range c.Grid() {
		for _, cell := range row {
			if !cell.Empty {
				cells[cell.Day] = cell
			}
		}
	}

	assert.Len(t, cells, 31)
	assert.True(t, cells[14].Disabled)
	assert.False(t, cells[15].Disabled)
	assert.True(t, cells[15].Today)
	assert.True(t, cells[20].Selected)
	assert.Equal(t, "2025-03-20", cells[20].Key())
}

func TestMonthNavigation(t *testing.T) {
	c := New(fixedClock(2025, time.December, 10, 9))
	assert.False(t, c.CanGoPrev())

	c.NextMonth()
	y, m := c.DisplayedMonth()
	assert.Equal(t, 2026, y)
	assert.Equal(t, time.January, m)
	assert.True(t, c.CanGoPrev())

	c.PrevMonth()
	c.PrevMonth()
	y, m = c.DisplayedMonth()
	assert.Equal(t, 2025, y)
	assert.Equal(t, time.November, m)
}

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 29, DaysIn(time.February, 2024))
	assert.Equal(t, 28, DaysIn(time.February, 2025))
	assert.Equal(t, 28, DaysIn(time.February, 1900))
	assert.Equal(t, 29, DaysIn(time.February, 2000))
	assert.Equal(t, 30, DaysIn(time.April, 2025))
	assert.Equal(t, 31, DaysIn(time.December, 2025))
}
