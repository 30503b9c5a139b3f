// Package memory provides in-memory SpanSource, BasisStore and KeyLocker
// implementations for tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-basis/generic"
	"github.com/warp/payroll-basis/payroll"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Store struct {
	mu      sync.RWMutex
	configs map[payroll.OrgID]payroll.OrgPayrollConfig
	spans   map[spanKey][]payroll.SpanRecord
	basis   map[string]payroll.PayrollBasisEntry
}

type spanKey struct {
	OrgID    payroll.OrgID
	PersonID payroll.PersonID
}

var (
	_ payroll.SpanSource = (*Store)(nil)
	_ payroll.BasisStore = (*Store)(nil)
)

func New() *Store {
	return &Store{
		configs: make(map[payroll.OrgID]payroll.OrgPayrollConfig),
		spans:   make(map[spanKey][]payroll.SpanRecord),
		basis:   make(map[string]payroll.PayrollBasisEntry),
	}
}

// =============================================================================
// SEEDING
// =============================================================================

// SetOrgConfig stores cfg under cfg.OrgID, replacing any previous config.
func (s *Store) SetOrgConfig(cfg payroll.OrgPayrollConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.OrgID] = cfg
}

// AddSpans stores raw records, keeping each person's records ordered by start.
func (s *Store) AddSpans(records ...payroll.SpanRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		k := spanKey{OrgID: rec.OrgID, PersonID: rec.PersonID}
		recs := s.spans[k]

		i := sort.Search(len(recs), func(i int) bool {
			return recs[i].Interval.Start.After(rec.Interval.Start)
		})
		recs = append(recs, payroll.SpanRecord{})
		copy(recs[i+1:], recs[i:])
		recs[i] = rec
		s.spans[k] = recs
	}
}

// =============================================================================
// SPAN SOURCE
// =============================================================================

func (s *Store) LoadOrgConfig(_ context.Context, orgID payroll.OrgID) (payroll.OrgPayrollConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[orgID]
	if !ok {
		return payroll.OrgPayrollConfig{}, payroll.ErrOrgNotFound
	}
	return cfg, nil
}

func (s *Store) ListPersons(_ context.Context, cfg payroll.OrgPayrollConfig, period generic.Period) ([]payroll.PersonID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []payroll.SpanRecord
	for k, recs := range s.spans {
		if k.OrgID == cfg.OrgID {
			all = append(all, recs...)
		}
	}
	return payroll.PersonsWithSpans(all, cfg, period), nil
}

func (s *Store) LoadSpans(_ context.Context, cfg payroll.OrgPayrollConfig, personID payroll.PersonID, period generic.Period) ([]payroll.WorkSpan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return payroll.SelectSpans(s.spans[spanKey{OrgID: cfg.OrgID, PersonID: personID}], cfg, period), nil
}

// =============================================================================
// BASIS STORE
// =============================================================================

// UpsertBasis writes entry unless the stored entry is locked. An update keeps
// the stored ID.
func (s *Store) UpsertBasis(_ context.Context, entry payroll.PayrollBasisEntry) (payroll.UpsertOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := entry.Key().String()
	existing, ok := s.basis[k]
	if ok && existing.Locked {
		return "", payroll.ErrEntryLocked
	}

	entry = cloneEntry(entry)
	entry.Locked, entry.LockedBy, entry.LockedAt = false, "", nil
	if ok {
		entry.ID = existing.ID
		s.basis[k] = entry
		return payroll.UpsertUpdated, nil
	}
	s.basis[k] = entry
	return payroll.UpsertCreated, nil
}

func (s *Store) GetBasis(_ context.Context, key payroll.BasisKey) (*payroll.PayrollBasisEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.basis[key.String()]
	if !ok {
		return nil, payroll.ErrEntryNotFound
	}
	entry = cloneEntry(entry)
	return &entry, nil
}

func (s *Store) ListBasis(_ context.Context, orgID payroll.OrgID, period generic.Period) ([]payroll.PayrollBasisEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []payroll.PayrollBasisEntry
	for _, e := range s.basis {
		if e.OrgID == orgID && e.Period.Key() == period.Key() {
			out = append(out, cloneEntry(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PersonID < out[j].PersonID })
	return out, nil
}

func (s *Store) LockBasis(_ context.Context, key payroll.BasisKey, lockedBy string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key.String()
	entry, ok := s.basis[k]
	if !ok {
		return payroll.ErrEntryNotFound
	}
	at = at.UTC()
	entry.Locked, entry.LockedBy, entry.LockedAt = true, lockedBy, &at
	s.basis[k] = entry
	return nil
}

func (s *Store) UnlockBasis(_ context.Context, key payroll.BasisKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key.String()
	entry, ok := s.basis[k]
	if !ok {
		return payroll.ErrEntryNotFound
	}
	entry.Locked, entry.LockedBy, entry.LockedAt = false, "", nil
	s.basis[k] = entry
	return nil
}

func (s *Store) DeleteBasis(_ context.Context, key payroll.BasisKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key.String()
	if _, ok := s.basis[k]; !ok {
		return payroll.ErrEntryNotFound
	}
	delete(s.basis, k)
	return nil
}

func cloneEntry(e payroll.PayrollBasisEntry) payroll.PayrollBasisEntry {
	if e.OBByCategory != nil {
		m := make(map[string]decimal.Decimal, len(e.OBByCategory))
		for k, v := range e.OBByCategory {
			m[k] = v
		}
		e.OBByCategory = m
	}
	if e.Weeks != nil {
		e.Weeks = append([]payroll.WeekBucket(nil), e.Weeks...)
	}
	if e.LockedAt != nil {
		at := *e.LockedAt
		e.LockedAt = &at
	}
	return e
}
