package memory_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-basis/generic"
	"github.com/warp/payroll-basis/payroll"
	"github.com/warp/payroll-basis/store/memory"
)

var march = generic.Period{Start: generic.MustParseDate("2025-03-01"), End: generic.MustParseDate("2025-03-31")}

func cfg(t *testing.T, source payroll.SpanSourceKind) payroll.OrgPayrollConfig {
	t.Helper()
	c := payroll.OrgPayrollConfig{OrgID: "org-1", Timezone: "Europe/Stockholm", SpanSource: source}
	require.NoError(t, c.Validate())
	return c
}

func record(person payroll.PersonID, kind payroll.SpanSourceKind, approved bool, day int) payroll.SpanRecord {
	start := time.Date(2025, 3, day, 8, 0, 0, 0, time.UTC)
	return payroll.SpanRecord{
		OrgID:    "org-1",
		PersonID: person,
		Kind:     kind,
		Approved: approved,
		Interval: generic.Interval{Start: start, End: start.Add(4 * time.Hour)},
	}
}

func TestStore_SpanSelectionFollowsConfig(t *testing.T) {
	// GIVEN: attendance sessions and time entries for the same person
	ctx := context.Background()
	st := memory.New()
	st.AddSpans(
		record("alice", payroll.SourceAttendance, false, 5),
		record("alice", payroll.SourceAttendance, false, 3),
		record("alice", payroll.SourceTimeEntries, true, 4),
		record("alice", payroll.SourceTimeEntries, false, 6),
	)

	// WHEN / THEN: attendance orgs see sessions, ordered by start
	spans, err := st.LoadSpans(ctx, cfg(t, payroll.SourceAttendance), "alice", march)
	require.NoError(t, err)
	require.Len(t, spans, 2)
	assert.Equal(t, 3, spans[0].Start.Day())

	// AND: time-entry orgs see approved entries only
	spans, err = st.LoadSpans(ctx, cfg(t, payroll.SourceTimeEntries), "alice", march)
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, 4, spans[0].Start.Day())
}

func TestStore_ListPersons(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	st.AddSpans(
		record("bob", payroll.SourceAttendance, false, 3),
		record("alice", payroll.SourceAttendance, false, 3),
		record("carol", payroll.SourceTimeEntries, true, 3),
	)

	persons, err := st.ListPersons(ctx, cfg(t, payroll.SourceAttendance), march)

	require.NoError(t, err)
	assert.Equal(t, []payroll.PersonID{"alice", "bob"}, persons)
}

func TestStore_LoadOrgConfigMissing(t *testing.T) {
	_, err := memory.New().LoadOrgConfig(context.Background(), "nope")
	assert.ErrorIs(t, err, payroll.ErrOrgNotFound)
}

func TestStore_UpsertRespectsLock(t *testing.T) {
	// GIVEN: a stored, locked entry
	ctx := context.Background()
	st := memory.New()
	entry := payroll.PayrollBasisEntry{ID: "e-1", OrgID: "org-1", PersonID: "alice", Period: march, TotalHours: decimal.NewFromInt(8)}

	outcome, err := st.UpsertBasis(ctx, entry)
	require.NoError(t, err)
	assert.Equal(t, payroll.UpsertCreated, outcome)
	require.NoError(t, st.LockBasis(ctx, entry.Key(), "admin", time.Now()))

	// WHEN
	entry.ID = "e-2"
	entry.TotalHours = decimal.NewFromInt(10)
	_, err = st.UpsertBasis(ctx, entry)

	// THEN
	assert.ErrorIs(t, err, payroll.ErrEntryLocked)
	got, err := st.GetBasis(ctx, entry.Key())
	require.NoError(t, err)
	assert.True(t, got.TotalHours.Equal(decimal.NewFromInt(8)))
	assert.Equal(t, "e-1", got.ID)
	assert.True(t, got.Locked)
	require.NotNil(t, got.LockedAt)
}

func TestStore_UpdateKeepsID(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	entry := payroll.PayrollBasisEntry{ID: "e-1", OrgID: "org-1", PersonID: "alice", Period: march}
	_, err := st.UpsertBasis(ctx, entry)
	require.NoError(t, err)

	entry.ID = "e-2"
	outcome, err := st.UpsertBasis(ctx, entry)

	require.NoError(t, err)
	assert.Equal(t, payroll.UpsertUpdated, outcome)
	got, _ := st.GetBasis(ctx, entry.Key())
	assert.Equal(t, "e-1", got.ID)
}

func TestStore_DeleteAndMissing(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	key := payroll.BasisKey{OrgID: "org-1", PersonID: "alice", Period: march}

	assert.ErrorIs(t, st.LockBasis(ctx, key, "admin", time.Now()), payroll.ErrEntryNotFound)
	assert.ErrorIs(t, st.DeleteBasis(ctx, key), payroll.ErrEntryNotFound)

	_, err := st.UpsertBasis(ctx, payroll.PayrollBasisEntry{OrgID: "org-1", PersonID: "alice", Period: march})
	require.NoError(t, err)
	require.NoError(t, st.DeleteBasis(ctx, key))
	_, err = st.GetBasis(ctx, key)
	assert.ErrorIs(t, err, payroll.ErrEntryNotFound)
}

func TestStore_ReturnedEntriesAreCopies(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	_, err := st.UpsertBasis(ctx, payroll.PayrollBasisEntry{
		OrgID: "org-1", PersonID: "alice", Period: march,
		OBByCategory: map[string]decimal.Decimal{"night": decimal.NewFromInt(2)},
	})
	require.NoError(t, err)

	list, err := st.ListBasis(ctx, "org-1", march)
	require.NoError(t, err)
	list[0].OBByCategory["night"] = decimal.NewFromInt(99)

	got, _ := st.GetBasis(ctx, list[0].Key())
	assert.True(t, got.OBByCategory["night"].Equal(decimal.NewFromInt(2)))
}

// =============================================================================
// KEY LOCKER
// =============================================================================

func TestKeyLocker_SerializesSameKey(t *testing.T) {
	locker := memory.NewKeyLocker()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "org-1/alice/2025-03")
			require.NoError(t, err)
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Zero(t, locker.Len())
}

func TestKeyLocker_DifferentKeysDoNotBlock(t *testing.T) {
	locker := memory.NewKeyLocker()
	unlockA, err := locker.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	unlockB, err := locker.Lock(context.Background(), "b")
	require.NoError(t, err)
	unlockB()
}

func TestKeyLocker_ContextTimeout(t *testing.T) {
	locker := memory.NewKeyLocker()
	unlock, err := locker.Lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "a")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	unlock()
	unlock() // second call is a no-op
	assert.Zero(t, locker.Len())
}
