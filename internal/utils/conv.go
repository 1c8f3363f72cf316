package utils

import (
	"strconv"
	"strings"
)

// StringToInt converts string to int, returns 0 if error
func StringToInt(s string) int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return i
}

// StringToUint parses a positive id; ok is false for anything else.
func StringToUint(s string) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// IntInRange 解析查询参数，空值或非法值返回 def，超出 [lo, hi] 时截断
func IntInRange(s string, def, lo, hi int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n := StringToInt(s)
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
