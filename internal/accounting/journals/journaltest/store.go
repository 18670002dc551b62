// Package journaltest provides an in-memory journal store for tests of the
// journal engine and of packages that post through it.
package journaltest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nordeim/ledgersg/internal/accounting/accounts"
	"github.com/nordeim/ledgersg/internal/accounting/journals"
	"github.com/nordeim/ledgersg/internal/accounting/periods"
	"github.com/nordeim/ledgersg/internal/accounting/shared"
	internalShared "github.com/nordeim/ledgersg/internal/shared"
)

// Store implements journals.Repository. Transactions are serialised and work
// on a copy of the ledger that replaces the committed state on success.
type Store struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]accounts.Account
	periods  map[uuid.UUID]periods.Period
	entries  map[uuid.UUID]journals.JournalEntry
	counters map[uuid.UUID]int64
	audits   []internalShared.AuditLog

	// FailInsert, when set, is returned by InsertEntry.
	FailInsert error
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[uuid.UUID]accounts.Account),
		periods:  make(map[uuid.UUID]periods.Period),
		entries:  make(map[uuid.UUID]journals.JournalEntry),
		counters: make(map[uuid.UUID]int64),
	}
}

// AddAccount stores an active account and returns it.
func (s *Store) AddAccount(tenantID uuid.UUID, code string, t accounts.AccountType) accounts.Account {
	a := accounts.Account{ID: uuid.New(), TenantID: tenantID, Code: code, Name: code, Type: t, IsActive: true}
	s.PutAccount(a)
	return a
}

func (s *Store) PutAccount(a accounts.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = a
}

// Accounts returns the tenant's accounts ordered by code.
func (s *Store) Accounts(tenantID uuid.UUID) []accounts.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []accounts.Account
	for _, a := range s.accounts {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// AddYear stores open monthly periods covering the calendar year.
func (s *Store) AddYear(tenantID uuid.UUID, year int) []periods.Period {
	fy := periods.FiscalYear{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Label:     "FY",
		StartDate: time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	list := periods.GeneratePeriods(fy)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range list {
		s.periods[p.ID] = p
	}
	return list
}

// SetPeriodOpen toggles the open flag of a stored period.
func (s *Store) SetPeriodOpen(id uuid.UUID, open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.periods[id]
	p.Open = open
	s.periods[id] = p
}

// Entries returns the committed entries of the tenant by number.
func (s *Store) Entries(tenantID uuid.UUID) []journals.JournalEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []journals.JournalEntry
	for _, e := range s.entries {
		if e.TenantID == tenantID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Audits returns the committed audit records.
func (s *Store) Audits() []internalShared.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]internalShared.AuditLog(nil), s.audits...)
}

// Balance returns debits minus credits posted to the account.
func (s *Store) Balance(tenantID, accountID uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, e := range s.Entries(tenantID) {
		for _, l := range e.Lines {
			if l.AccountID == accountID {
				total = total.Add(l.Debit).Sub(l.Credit)
			}
		}
	}
	return total
}

func (s *Store) Get(ctx context.Context, tenantID, id uuid.UUID) (journals.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || e.TenantID != tenantID {
		return journals.JournalEntry{}, shared.ErrJournalNotFound
	}
	return e, nil
}

func (s *Store) List(ctx context.Context, tenantID uuid.UUID, filter journals.ListFilter) ([]journals.JournalEntry, error) {
	var out []journals.JournalEntry
	for _, e := range s.Entries(tenantID) {
		if matches(e, filter) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Number > out[j].Number
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func matches(e journals.JournalEntry, f journals.ListFilter) bool {
	switch {
	case f.Type != "" && e.Type != f.Type:
		return false
	case f.PeriodID != nil && e.PeriodID != *f.PeriodID:
		return false
	case f.From != nil && e.Date.Before(periods.Day(*f.From)):
		return false
	case f.To != nil && e.Date.After(periods.Day(*f.To)):
		return false
	case f.SourceDocumentID != nil && (e.SourceDocumentID == nil || *e.SourceDocumentID != *f.SourceDocumentID):
		return false
	}
	if f.AccountID == nil {
		return true
	}
	for _, l := range e.Lines {
		if l.AccountID == *f.AccountID {
			return true
		}
	}
	return false
}

// Begin locks the store and returns a transaction over a copy of the ledger.
// It must be finished with Commit or Rollback.
func (s *Store) Begin() *Tx {
	s.mu.Lock()
	tx := &Tx{
		store:    s,
		entries:  make(map[uuid.UUID]journals.JournalEntry, len(s.entries)),
		counters: make(map[uuid.UUID]int64, len(s.counters)),
		audits:   append([]internalShared.AuditLog(nil), s.audits...),
	}
	for k, v := range s.entries {
		tx.entries[k] = v
	}
	for k, v := range s.counters {
		tx.counters[k] = v
	}
	return tx
}

// Commit publishes the transaction's changes and unlocks the store.
func (s *Store) Commit(tx *Tx) {
	s.entries = tx.entries
	s.counters = tx.counters
	s.audits = tx.audits
	s.mu.Unlock()
}

// Rollback discards the transaction and unlocks the store.
func (s *Store) Rollback(*Tx) {
	s.mu.Unlock()
}

func (s *Store) WithTx(ctx context.Context, fn func(context.Context, journals.TxRepository) error) error {
	tx := s.Begin()
	if err := fn(ctx, tx); err != nil {
		s.Rollback(tx)
		return err
	}
	s.Commit(tx)
	return nil
}

// Tx implements journals.TxRepository.
type Tx struct {
	store    *Store
	entries  map[uuid.UUID]journals.JournalEntry
	counters map[uuid.UUID]int64
	audits   []internalShared.AuditLog
}

// Periods reads the store's periods. The store lock is already held.
func (t *Tx) Periods() periods.Finder {
	return finder{store: t.store}
}

func (t *Tx) NextNumber(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	t.counters[tenantID]++
	return t.counters[tenantID], nil
}

func (t *Tx) GetAccount(ctx context.Context, tenantID, id uuid.UUID) (accounts.Account, error) {
	a, ok := t.store.accounts[id]
	if !ok || a.TenantID != tenantID {
		return accounts.Account{}, shared.ErrAccountNotFound
	}
	return a, nil
}

func (t *Tx) InsertEntry(ctx context.Context, e journals.JournalEntry) error {
	if t.store.FailInsert != nil {
		return t.store.FailInsert
	}
	for _, existing := range t.entries {
		if existing.TenantID == e.TenantID && existing.Number == e.Number {
			return shared.Duplicatef("uq_journal_entries_number")
		}
	}
	t.entries[e.ID] = e
	return nil
}

func (t *Tx) GetEntryForUpdate(ctx context.Context, tenantID, id uuid.UUID) (journals.JournalEntry, error) {
	e, ok := t.entries[id]
	if !ok || e.TenantID != tenantID {
		return journals.JournalEntry{}, shared.ErrJournalNotFound
	}
	return e, nil
}

func (t *Tx) SetReversedBy(ctx context.Context, tenantID, id, reversalID uuid.UUID) error {
	e, ok := t.entries[id]
	if !ok || e.TenantID != tenantID {
		return shared.ErrJournalNotFound
	}
	if e.ReversedBy != nil {
		return shared.ErrAlreadyReversed
	}
	e.ReversedBy = &reversalID
	t.entries[id] = e
	return nil
}

func (t *Tx) RecordAudit(ctx context.Context, log internalShared.AuditLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	t.audits = append(t.audits, log)
	return nil
}

type finder struct {
	store *Store
}

func (f finder) FindByDate(ctx context.Context, tenantID uuid.UUID, date time.Time) (periods.Period, error) {
	for _, p := range f.store.periods {
		if p.TenantID == tenantID && p.Contains(date) {
			return p, nil
		}
	}
	return periods.Period{}, shared.ErrPeriodNotFound
}

func (f finder) Get(ctx context.Context, tenantID, id uuid.UUID) (periods.Period, error) {
	p, ok := f.store.periods[id]
	if !ok || p.TenantID != tenantID {
		return periods.Period{}, shared.ErrPeriodNotFound
	}
	return p, nil
}
