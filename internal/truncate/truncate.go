// Package truncate bounds large log blobs to a character budget while
// keeping both ends of the stream. Failure signatures conventionally sit
// at the tail of a log while startup context sits at the head, so the
// middle is the cheapest part to drop.
package truncate

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// maxHeadChars caps how much of the head is kept regardless of budget.
	maxHeadChars = 5000
	// markerReserve is the budget reserved for the truncation marker.
	markerReserve = 100
)

// String returns text bounded to roughly maxChars characters. Inputs at
// or under the budget come back unchanged. Oversized inputs keep
// min(5000, maxChars/5) head characters and maxChars-head-100 tail
// characters around a marker that states exactly how much was cut and
// the original total, so the output is verifiable against the input.
func String(text string, maxChars int) (string, bool) {
	if len(text) <= maxChars {
		return text, false
	}

	headChars := maxChars / 5
	if headChars > maxHeadChars {
		headChars = maxHeadChars
	}
	tailChars := maxChars - headChars - markerReserve
	if tailChars < 0 {
		tailChars = 0
	}

	marker := fmt.Sprintf(
		"\n\n... [Truncated %s characters. Total log size: %s characters] ...\n\n",
		groupThousands(len(text)-maxChars),
		groupThousands(len(text)),
	)

	var b strings.Builder
	b.Grow(headChars + len(marker) + tailChars)
	b.WriteString(text[:headChars])
	b.WriteString(marker)
	b.WriteString(text[len(text)-tailChars:])
	return b.String(), true
}

// groupThousands renders n with comma thousands separators.
func groupThousands(n int) string {
	s := strconv.Itoa(n)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}
