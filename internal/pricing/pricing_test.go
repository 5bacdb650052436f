package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AWS-JaeminJung/sauna-app/internal/slots"
)

func TestDuration(t *testing.T) {
	tests := []struct {
		name string
		r    slots.Range
		want float64
	}{
		{"two and a half hours", slots.Range{Start: "10:00", End: "12:30"}, 2.5},
		{"single half hour", slots.Range{Start: "10:00", End: "10:30"}, 0.5},
		{"incomplete", slots.Range{Start: "10:00"}, 0},
		{"empty", slots.Range{}, 0},
		{"garbage", slots.Range{Start: "x", End: "12:00"}, 0},
		{"inverted", slots.Range{Start: "12:00", End: "10:00"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Duration(tt.r), 1e-9)
		})
	}
}

func TestTotal(t *testing.T) {
	assert.InDelta(t, 50000, Total(2.5, 20000), 1e-9)
	assert.InDelta(t, 0, Total(0, 20000), 1e-9)

	hours, total := Quote(slots.Range{Start: "10:00", End: "12:00"}, 20000)
	assert.InDelta(t, 2, hours, 1e-9)
	assert.InDelta(t, 40000, total, 1e-9)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "₩40,000", FormatKRW(40000))
	assert.Equal(t, "₩1,250,000", FormatKRW(1250000))
	assert.Equal(t, "₩500", FormatKRW(500))
	assert.Equal(t, "-₩1,000", FormatKRW(-1000))
}
