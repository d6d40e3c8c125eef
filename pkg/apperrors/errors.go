package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrConfiguration   = errors.New("configuration error")
	ErrConnectivity    = errors.New("connectivity error")
	ErrValidation      = errors.New("validation error")
	ErrUnsupportedType = errors.New("unsupported datasource type")
)

// Configuration reports missing or invalid connection parameters.
func Configuration(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Validation reports input rejected before any backend is contacted.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Connectivity wraps a failed listing, probe or query call. The backend's
// own message is kept verbatim and the cause stays reachable via errors.As.
func Connectivity(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConnectivity) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrConnectivity, op, err)
}

func IsConfiguration(err error) bool { return errors.Is(err, ErrConfiguration) }
func IsConnectivity(err error) bool  { return errors.Is(err, ErrConnectivity) }
func IsValidation(err error) bool    { return errors.Is(err, ErrValidation) }
