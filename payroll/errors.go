/*
errors.go - Error taxonomy for the payroll engine

ERROR CATEGORIES:
  1. ConfigurationError (fatal): missing timezone, malformed break/premium rule.
     Aborts the whole refresh run.
  2. DataLoadError (per person): the span source failed for one person.
     Recorded in the run result; other persons continue.
  3. ErrEntryLocked (per person): the stored entry is locked. Reported as a
     skipped outcome, original values untouched.
  4. No data (informational): not an error at all, see RefreshResult.NoData.

USAGE:
  result, err := refresher.Refresh(ctx, input)
  if payroll.IsConfigurationError(err) {
      // 400: fix the org config
  }
*/
package payroll

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrConfiguration is wrapped by every ConfigurationError.
	ErrConfiguration = errors.New("invalid payroll configuration")

	// ErrOrgNotFound is returned by sources that have no config for an org.
	ErrOrgNotFound = errors.New("organization payroll config not found")

	// ErrEntryLocked is returned by BasisStore.UpsertBasis when the stored
	// entry is locked and must not be overwritten.
	ErrEntryLocked = errors.New("payroll basis entry is locked")

	// ErrEntryNotFound is returned when a basis entry does not exist.
	ErrEntryNotFound = errors.New("payroll basis entry not found")

	// ErrDataLoad is wrapped by every DataLoadError.
	ErrDataLoad = errors.New("failed to load work spans")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConfigurationError names the missing or invalid part of an org config.
type ConfigurationError struct {
	OrgID  OrgID
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("payroll config for org %q: %s: %s", e.OrgID, e.Field, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrConfiguration, e.Err}
	}
	return []error{ErrConfiguration}
}

// DataLoadError records a per-person failure to read raw spans.
type DataLoadError struct {
	PersonID PersonID
	Err      error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("load spans for person %q: %v", e.PersonID, e.Err)
}

func (e *DataLoadError) Unwrap() []error {
	return []error{ErrDataLoad, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConfigurationError returns true if the run cannot proceed for the org.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrOrgNotFound)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntryNotFound) || errors.Is(err, ErrOrgNotFound)
}
