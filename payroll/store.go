package payroll

import (
	"context"
	"time"

	"github.com/warp/payroll-basis/generic"
)

// =============================================================================
// SPAN SOURCE - Read side (attendance / time-entry store)
// =============================================================================

// SpanSource is the engine's read contract with the attendance/time-entry
// store. Which raw records become spans (attendance sessions or approved time
// entries) is the source's decision, driven by OrgPayrollConfig.SpanSource.
type SpanSource interface {
	// LoadOrgConfig returns the org's payroll configuration. Returns
	// ErrOrgNotFound (or a ConfigurationError) when it is missing or invalid.
	LoadOrgConfig(ctx context.Context, orgID OrgID) (OrgPayrollConfig, error)

	// ListPersons returns every person with selectable spans in the period.
	ListPersons(ctx context.Context, cfg OrgPayrollConfig, period generic.Period) ([]PersonID, error)

	// LoadSpans returns raw spans overlapping the period's local days.
	LoadSpans(ctx context.Context, cfg OrgPayrollConfig, personID PersonID, period generic.Period) ([]WorkSpan, error)
}

// =============================================================================
// BASIS STORE - Write side
// =============================================================================

// UpsertOutcome reports what an upsert did.
type UpsertOutcome string

const (
	UpsertCreated UpsertOutcome = "created"
	UpsertUpdated UpsertOutcome = "updated"
)

// BasisStore persists payroll basis entries.
//
// INVARIANT: UpsertBasis never overwrites a locked entry. The lock check and
// the write must be one atomic step in the implementation; on a locked row
// it returns ErrEntryLocked and leaves the stored values untouched.
type BasisStore interface {
	UpsertBasis(ctx context.Context, entry PayrollBasisEntry) (UpsertOutcome, error)
	GetBasis(ctx context.Context, key BasisKey) (*PayrollBasisEntry, error)
	ListBasis(ctx context.Context, orgID OrgID, period generic.Period) ([]PayrollBasisEntry, error)

	// LockBasis / UnlockBasis are admin/foreman actions.
	LockBasis(ctx context.Context, key BasisKey, lockedBy string, at time.Time) error
	UnlockBasis(ctx context.Context, key BasisKey) error

	// DeleteBasis is an explicit admin action; the engine never calls it.
	DeleteBasis(ctx context.Context, key BasisKey) error
}

// =============================================================================
// KEY LOCKER - Serializes writes per (org, person, period)
// =============================================================================

// KeyLocker serializes compute-and-write for one basis key across goroutines
// (store/memory) or processes (store/redislock).
type KeyLocker interface {
	Lock(ctx context.Context, key string) (func(), error)
}
