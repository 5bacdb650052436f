package slots

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AWS-JaeminJung/sauna-app/internal/models"
)

func hourly(times ...string) []models.TimeSlot {
	out := make([]models.TimeSlot, len(times))
	for i, t := range times {
		out[i] = models.TimeSlot{Time: t, Available: true}
	}
	return out
}

func TestSelect_FreshStart(t *testing.T) {
	slots := hourly("09:00", "09:30", "10:00", "10:30")

	tests := []struct {
		name    string
		current Range
		clicked string
		want    Range
	}{
		{"first slot", Range{}, "09:00", Range{Start: "09:00", End: "09:30", Anchored: true}},
		{"middle slot", Range{}, "10:00", Range{Start: "10:00", End: "10:30", Anchored: true}},
		{"last slot is a no-op", Range{}, "10:30", Range{}},
		{"unknown slot is a no-op", Range{}, "23:00", Range{}},
		{"completed range restarts", Range{Start: "09:00", End: "10:00"}, "09:30", Range{Start: "09:30", End: "10:00", Anchored: true}},
		{"completed range and last slot keeps range", Range{Start: "09:00", End: "10:00"}, "10:30", Range{Start: "09:00", End: "10:00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Select(slots, tt.current, tt.clicked))
		})
	}
}

func TestSelect_Extend(t *testing.T) {
	slots := hourly("09:00", "10:00", "11:00", "12:00")

	tests := []struct {
		name    string
		current Range
		clicked string
		want    Range
	}{
		{"open start extends", Range{Start: "09:00"}, "11:00", Range{Start: "09:00", End: "11:00"}},
		{"anchored extends to last", Range{Start: "10:00", End: "11:00", Anchored: true}, "12:00", Range{Start: "10:00", End: "12:00"}},
		{"next slot finalizes one slot", Range{Start: "10:00", End: "11:00", Anchored: true}, "11:00", Range{Start: "10:00", End: "11:00"}},
		{"click on start collapses", Range{Start: "10:00", End: "11:00", Anchored: true}, "10:00", Range{Start: "10:00", End: "11:00", Anchored: true}},
		{"click before start restarts", Range{Start: "11:00", End: "12:00", Anchored: true}, "09:00", Range{Start: "09:00", End: "10:00", Anchored: true}},
		{"click before start on open range", Range{Start: "11:00"}, "10:00", Range{Start: "10:00", End: "11:00", Anchored: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Select(slots, tt.current, tt.clicked))
		})
	}
}

func TestSelect_Scenarios(t *testing.T) {
	slots := hourly("09:00", "10:00", "11:00", "12:00")

	r := Select(slots, Range{}, "10:00")
	assert.Equal(t, "10:00", r.Start)
	assert.Equal(t, "11:00", r.End)

	r = Select(slots, r, "12:00")
	assert.Equal(t, Range{Start: "10:00", End: "12:00"}, r)

	// a finished range starts over on the next click
	r = Select(slots, r, "09:00")
	assert.Equal(t, Range{Start: "09:00", End: "10:00", Anchored: true}, r)

	r = Select(slots, Range{}, "11:00")
	r = Select(slots, r, "09:00")
	assert.Equal(t, "09:00", r.Start)
	assert.Equal(t, "10:00", r.End)
}

func TestRange_Contains(t *testing.T) {
	r := Range{Start: "10:00", End: "12:00"}
	assert.False(t, r.Contains("09:00"))
	assert.True(t, r.Contains("10:00"))
	assert.True(t, r.Contains("11:00"))
	assert.False(t, r.Contains("12:00"))

	assert.False(t, Range{Start: "10:00"}.Contains("10:00"))
	assert.False(t, Range{}.Contains("10:00"))
}

func TestSpans(t *testing.T) {
	slots := hourly("09:00", "10:00", "11:00", "12:00")
	slots[2].Available = false

	assert.True(t, Spans(slots, Range{Start: "09:00", End: "11:00"}))
	assert.False(t, Spans(slots, Range{Start: "09:00", End: "12:00"}))
	assert.False(t, Spans(slots, Range{Start: "09:00"}))
	assert.False(t, Spans(slots, Range{Start: "11:00", End: "10:00"}))
	assert.False(t, Spans(slots, Range{Start: "08:00", End: "10:00"}))
}

func TestCanExtendTo(t *testing.T) {
	slots := hourly("09:00", "10:00", "11:00", "12:00", "13:00")
	slots[2].Available = false

	anchored := Range{Start: "09:00", End: "10:00", Anchored: true}
	assert.True(t, CanExtendTo(slots, anchored, "10:00"))
	assert.False(t, CanExtendTo(slots, anchored, "12:00"))
	assert.False(t, CanExtendTo(slots, anchored, "13:00"))
	// restarting never crosses a gap
	assert.True(t, CanExtendTo(slots, Range{Start: "12:00", End: "13:00", Anchored: true}, "09:00"))
	assert.True(t, CanExtendTo(slots, Range{}, "12:00"))
}
