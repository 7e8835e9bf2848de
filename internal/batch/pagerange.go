package batch

import (
	"strconv"
	"strings"
)

// ParsePageRange parses a selection like "1-3,5" into 1-based page numbers.
// Empty input selects every page. Reversed ranges are normalized, pages
// beyond maxPages are dropped, duplicates are removed preserving order, and
// unparsable parts are ignored.
func ParsePageRange(s string, maxPages int) []int {
	if strings.TrimSpace(s) == "" {
		pages := make([]int, 0, maxPages)
		for i := 1; i <= maxPages; i++ {
			pages = append(pages, i)
		}
		return pages
	}

	var raw []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err1 := strconv.Atoi(strings.TrimSpace(lo))
			end, err2 := strconv.Atoi(strings.TrimSpace(hi))
			if err1 != nil || err2 != nil {
				continue
			}
			if start <= 0 {
				start = 1
			}
			if end < start {
				start, end = end, start
			}
			for n := start; n <= end; n++ {
				raw = append(raw, n)
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			continue
		}
		raw = append(raw, n)
	}

	seen := make(map[int]struct{}, len(raw))
	pages := make([]int, 0, len(raw))
	for _, n := range raw {
		if n > maxPages {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		pages = append(pages, n)
	}
	return pages
}
