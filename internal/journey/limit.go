package journey

import "strconv"

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ParseLimit reads a ?limit= value, falling back to DefaultLimit when it is
// missing or not a positive number and capping it at MaxLimit.
func ParseLimit(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return DefaultLimit
	}
	return min(n, MaxLimit)
}
