package pricing

import (
	"math"
	"strconv"
	"strings"

	"github.com/AWS-JaeminJung/sauna-app/internal/slots"
)

// Duration returns the length of a complete range in hours.
// Incomplete or unparsable ranges yield 0.
func Duration(r slots.Range) float64 {
	if !r.Complete() {
		return 0
	}

	start, err := slots.ParseClock(r.Start)
	if err != nil {
		return 0
	}
	end, err := slots.ParseClock(r.End)
	if err != nil {
		return 0
	}
	if end <= start {
		return 0
	}

	return float64(end-start) / 60
}

// Total multiplies hours by the hourly rate without rounding.
func Total(hours, hourlyRate float64) float64 {
	return hours * hourlyRate
}

// Quote returns duration and total for a range at the given rate.
func Quote(r slots.Range, hourlyRate float64) (hours, total float64) {
	hours = Duration(r)
	return hours, Total(hours, hourlyRate)
}

// FormatKRW renders an amount with thousands separators, e.g. "₩40,000".
func FormatKRW(amount float64) string {
	neg := amount < 0
	n := int64(math.Round(math.Abs(amount)))

	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}

	if neg {
		return "-₩" + b.String()
	}
	return "₩" + b.String()
}
