package google

import (
	"strconv"
	"strings"
)

// rowFromRange extracts the first row number of an A1 range like "Bookings!A7:K7".
func rowFromRange(rng string) (int, bool) {
	if i := strings.LastIndexByte(rng, '!'); i >= 0 {
		rng = rng[i+1:]
	}
	if i := strings.IndexByte(rng, ':'); i >= 0 {
		rng = rng[:i]
	}
	digits := strings.TrimLeft(rng, "ABCDEFGHIJKLMNOPQRSTUVWXYZ$")
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
