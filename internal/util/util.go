// Package util provides small helpers shared by the command parsers and controllers.
package util

import (
	"fmt"
	"strconv"
	"strings"
)

// TrimQuotes removes surrounding whitespace and double quotes from a command argument.
func TrimQuotes(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"`)
}

// ParseFloatArg parses a possibly quoted float argument.
func ParseFloatArg(s string) (float64, error) {
	v, err := strconv.ParseFloat(TrimQuotes(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return v, nil
}

// ParseIntArg parses a possibly quoted integer argument.
func ParseIntArg(s string) (int, error) {
	v, err := strconv.Atoi(TrimQuotes(s))
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q: %w", s, err)
	}
	return v, nil
}

// Clamp01 limits v to [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
