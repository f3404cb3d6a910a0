package firewall

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseSelection resolves an operator's deletion selection over a displayed
// 1-based indexed list of n items. Accepted forms: "all" (case-insensitive)
// for every index, or a comma-separated list like "1,3". The returned
// indices are 0-based, deduplicated, and in input order: exactly the
// requested set, never more, never fewer.
func ParseSelection(input string, n int) ([]int, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil, fmt.Errorf("empty selection")
	}
	if strings.EqualFold(s, "all") {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}

	seen := make(map[int]bool)
	var indices []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid selection %q: not a number", part)
		}
		if idx < 1 || idx > n {
			return nil, fmt.Errorf("selection %d out of range 1-%d", idx, n)
		}
		if seen[idx] {
			continue
		}
		seen[idx] = true
		indices = append(indices, idx-1)
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("empty selection")
	}
	return indices, nil
}
