/*
errors.go - Sentinel errors for the time primitives

PURPOSE:
  Malformed inputs to the calendar and interval helpers surface as one of
  these sentinels. Domain packages wrap them with context (which org, which
  rule) and decide whether the failure is fatal.

USAGE:
  if errors.Is(err, generic.ErrInvalidLocalTime) {
      return &payroll.ConfigurationError{...}
  }

SEE ALSO:
  - payroll/errors.go: Domain error taxonomy
*/
package generic

import "errors"

var (
	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidLocalTime is returned for wall-clock strings that are not HH:MM.
	ErrInvalidLocalTime = errors.New("invalid local time")

	// ErrInvalidTimezone is returned when an IANA zone cannot be resolved.
	ErrInvalidTimezone = errors.New("invalid timezone")

	// ErrInvalidInterval is returned when an interval has End <= Start.
	ErrInvalidInterval = errors.New("invalid interval: end not after start")

	// ErrPeriodTooLong is returned when a period exceeds what one run may cover.
	ErrPeriodTooLong = errors.New("period too long")
)

// IsClientError returns true if the error is due to invalid input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidLocalTime) ||
		errors.Is(err, ErrInvalidTimezone) ||
		errors.Is(err, ErrInvalidInterval) ||
		errors.Is(err, ErrPeriodTooLong)
}
