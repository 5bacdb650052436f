package slots

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/AWS-JaeminJung/sauna-app/internal/models"
)

var ErrInvalidClock = errors.New("invalid clock value")

// IndexOf returns the index of the slot starting at t or -1.
func IndexOf(slots []models.TimeSlot, t string) int {
	for i, s := range slots {
		if s.Time == t {
			return i
		}
	}
	return -1
}

// HasAvailable reports whether at least one slot can be booked.
func HasAvailable(slots []models.TimeSlot) bool {
	for _, s := range slots {
		if s.Available {
			return true
		}
	}
	return false
}

// ParseClock converts "HH:MM" (seconds tolerated) to minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 24 {
		return 0, fmt.Errorf("%w: hour in %q", ErrInvalidClock, s)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 || (hour == 24 && minute > 0) {
		return 0, fmt.Errorf("%w: minute in %q", ErrInvalidClock, s)
	}

	return hour*60 + minute, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// FormatDuration formats minutes as a short human string.
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	hours := minutes / 60
	mins := minutes % 60
	if mins == 0 {
		return fmt.Sprintf("%d h", hours)
	}
	return fmt.Sprintf("%d h %d min", hours, mins)
}
