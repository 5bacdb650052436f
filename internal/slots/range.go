package slots

import "github.com/AWS-JaeminJung/sauna-app/internal/models"

// Range is a half-open [Start, End) selection over a slot list.
// Empty strings mean "not set".
//
// A fresh click produces a one-slot range with Anchored set: the range is
// complete and priceable, and the next click extends it instead of starting
// over. Extending clears Anchored so the following click starts a new range.
type Range struct {
	Start    string `json:"start,omitempty"`
	End      string `json:"end,omitempty"`
	Anchored bool   `json:"anchored,omitempty"`
}

// Empty reports whether nothing is selected.
func (r Range) Empty() bool {
	return r.Start == "" && r.End == ""
}

// Complete reports whether both bounds are set.
func (r Range) Complete() bool {
	return r.Start != "" && r.End != ""
}

// Extending reports whether the next click extends the current start.
func (r Range) Extending() bool {
	return r.Start != "" && (r.End == "" || r.Anchored)
}

// Contains reports whether a slot time is highlighted by the range.
func (r Range) Contains(t string) bool {
	if !r.Complete() {
		return false
	}
	return t >= r.Start && t < r.End
}

// Select applies one click to the current range.
//
// Starting a range picks the clicked slot and the next boundary; clicking the
// last slot leaves the range unchanged. While extending, a click after the
// start moves the end to slots[min(clickIdx+1, len)-1]; a click at or before
// the start restarts the selection.
func Select(slots []models.TimeSlot, current Range, clicked string) Range {
	if !current.Extending() {
		return start(slots, current, clicked)
	}

	startIdx := IndexOf(slots, current.Start)
	clickIdx := IndexOf(slots, clicked)
	if clickIdx > startIdx {
		end := clicked
		if endIdx := min(clickIdx+1, len(slots)); endIdx-1 >= 0 && endIdx-1 < len(slots) {
			end = slots[endIdx-1].Time
		}
		return Range{Start: current.Start, End: end}
	}

	return start(slots, current, clicked)
}

func start(slots []models.TimeSlot, current Range, clicked string) Range {
	idx := IndexOf(slots, clicked)
	if idx < 0 || idx >= len(slots)-1 {
		return current
	}
	return Range{Start: clicked, End: slots[idx+1].Time, Anchored: true}
}

// Spans reports whether every slot in [Start, End) exists and is available.
func Spans(slots []models.TimeSlot, r Range) bool {
	if !r.Complete() || r.Start >= r.End {
		return false
	}

	startIdx := IndexOf(slots, r.Start)
	endIdx := IndexOf(slots, r.End)
	if startIdx < 0 || endIdx <= startIdx {
		return false
	}

	for i := startIdx; i < endIdx; i++ {
		if !slots[i].Available {
			return false
		}
	}
	return true
}

// CanExtendTo reports whether clicking clicked keeps the selection gap free.
// Clicks that start a new range are always allowed.
func CanExtendTo(slots []models.TimeSlot, current Range, clicked string) bool {
	next := Select(slots, current, clicked)
	if next == current || next.Anchored {
		return true
	}
	return Spans(slots, next)
}
