package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
)

// ErrMissingArgs is returned when a command carries fewer arguments than it needs.
var ErrMissingArgs = errors.New("missing arguments")

// parseIntFromFloat parses a string that may be an integer ("32") or float ("32.00") into int64.
// Place documents written by other clients may serialize scores as floats.
func parseIntFromFloat(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a valid int64", s)
	}
	return int64(f), nil
}

// requireArgs checks that at least n arguments were passed.
func requireArgs(args []string, n int, command string) error {
	if len(args) < n {
		return fmt.Errorf("%w: %s needs %d, got %d", ErrMissingArgs, command, n, len(args))
	}
	return nil
}

// Parser provides pure []string -> core struct conversion.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}
