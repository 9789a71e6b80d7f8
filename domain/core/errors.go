package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Arithmetic domain errors
	ErrUndefinedProportion = errors.New("undefined proportion: zero denominator")
	ErrEmptyTrialSet       = errors.New("empty trial set")
	ErrNegativeCount       = errors.New("negative count")
	ErrProbabilityRange    = errors.New("probability outside [0,1]")
	ErrInvalidParameter    = errors.New("invalid parameter")

	// Input errors
	ErrDataShape        = errors.New("malformed input table")
	ErrMissingColumn    = fmt.Errorf("%w: missing column", ErrDataShape)
	ErrDuplicateDate    = fmt.Errorf("%w: duplicate date", ErrDataShape)
	ErrInsufficientData = errors.New("insufficient data for analysis")
)

// Error constructors with context
func NewUndefinedProportionError(what string) error {
	return fmt.Errorf("%w: %s", ErrUndefinedProportion, what)
}

func NewEmptyTrialSetError(metric string) error {
	return fmt.Errorf("%w: every day tied for %s", ErrEmptyTrialSet, metric)
}

func NewParameterError(name string, value interface{}) error {
	return fmt.Errorf("%w: %s=%v", ErrInvalidParameter, name, value)
}

func NewMissingColumnError(sheet, column string) error {
	return fmt.Errorf("%w %q in %s", ErrMissingColumn, column, sheet)
}

func NewDataShapeError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDataShape, fmt.Sprintf(format, args...))
}

// Error checking helpers
func IsDomainError(err error) bool {
	return errors.Is(err, ErrUndefinedProportion) ||
		errors.Is(err, ErrEmptyTrialSet) ||
		errors.Is(err, ErrNegativeCount) ||
		errors.Is(err, ErrProbabilityRange)
}

func IsDataShapeError(err error) bool {
	return errors.Is(err, ErrDataShape)
}
