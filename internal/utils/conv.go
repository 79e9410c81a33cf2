package utils

import (
	"strconv"
)

// StringToUint converts a route param to a uint id, returns 0 on error.
func StringToUint(s string) uint {
	i, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return uint(i)
}
