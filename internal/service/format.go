package service

import (
	"fmt"
	"strings"
)

// humanTime formats a second count as compact units, e.g. "1w 2d 3h".
func humanTime(seconds int) string {
	if seconds <= 0 {
		return "0s"
	}

	const (
		minute = 60
		hour   = minute * 60
		day    = hour * 24
		week   = day * 7
	)

	var parts []string
	add := func(v int, unit string) {
		if v > 0 {
			parts = append(parts, fmt.Sprintf("%d%s", v, unit))
		}
	}

	add(seconds/week, "w")
	seconds %= week
	add(seconds/day, "d")
	seconds %= day
	add(seconds/hour, "h")
	seconds %= hour
	add(seconds/minute, "m")
	add(seconds%minute, "s")

	return strings.Join(parts, " ")
}

// truncate shortens a string for one-line list output. Cuts on rune
// boundaries so multibyte text stays valid UTF-8.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
