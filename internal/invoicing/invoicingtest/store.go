// Package invoicingtest layers in-memory documents over journaltest for tests
// of invoicing and of packages that update documents.
package invoicingtest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/nordeim/ledgersg/internal/accounting/journals/journaltest"
	"github.com/nordeim/ledgersg/internal/invoicing"
)

// Store implements invoicing.Repository. Transactions hold the ledger lock
// and the document lock until Commit or Rollback.
type Store struct {
	Ledger *journaltest.Store

	mu       sync.Mutex
	docs     map[uuid.UUID]invoicing.Document
	counters map[string]int64
}

func NewStore(ledger *journaltest.Store) *Store {
	if ledger == nil {
		ledger = journaltest.NewStore()
	}
	return &Store{
		Ledger:   ledger,
		docs:     make(map[uuid.UUID]invoicing.Document),
		counters: make(map[string]int64),
	}
}

// Put stores doc as committed state.
func (s *Store) Put(doc invoicing.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
}

func (s *Store) Get(ctx context.Context, tenantID, id uuid.UUID) (invoicing.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok || doc.TenantID != tenantID {
		return invoicing.Document{}, invoicing.ErrDocumentNotFound
	}
	return doc, nil
}

// Begin starts a transaction over copies of the ledger and the documents.
func (s *Store) Begin() *Tx {
	ledgerTx := s.Ledger.Begin()
	s.mu.Lock()
	tx := &Tx{
		Tx:       ledgerTx,
		docs:     make(map[uuid.UUID]invoicing.Document, len(s.docs)),
		counters: make(map[string]int64, len(s.counters)),
	}
	for k, v := range s.docs {
		tx.docs[k] = v
	}
	for k, v := range s.counters {
		tx.counters[k] = v
	}
	return tx
}

func (s *Store) Commit(tx *Tx) {
	s.docs = tx.docs
	s.counters = tx.counters
	s.mu.Unlock()
	s.Ledger.Commit(tx.Tx)
}

func (s *Store) Rollback(tx *Tx) {
	s.mu.Unlock()
	s.Ledger.Rollback(tx.Tx)
}

func (s *Store) WithTx(ctx context.Context, fn func(context.Context, invoicing.TxRepository) error) error {
	tx := s.Begin()
	if err := fn(ctx, tx); err != nil {
		s.Rollback(tx)
		return err
	}
	s.Commit(tx)
	return nil
}

// Tx implements invoicing.TxRepository.
type Tx struct {
	*journaltest.Tx
	docs     map[uuid.UUID]invoicing.Document
	counters map[string]int64
}

func (t *Tx) NextDocumentNumber(ctx context.Context, tenantID uuid.UUID, key string) (int64, error) {
	k := tenantID.String() + "/" + key
	t.counters[k]++
	return t.counters[k], nil
}

func (t *Tx) InsertDocument(ctx context.Context, doc invoicing.Document) error {
	t.docs[doc.ID] = doc
	return nil
}

func (t *Tx) GetDocumentForUpdate(ctx context.Context, tenantID, id uuid.UUID) (invoicing.Document, error) {
	doc, ok := t.docs[id]
	if !ok || doc.TenantID != tenantID {
		return invoicing.Document{}, invoicing.ErrDocumentNotFound
	}
	return doc, nil
}

func (t *Tx) UpdateDocument(ctx context.Context, doc invoicing.Document) error {
	if _, ok := t.docs[doc.ID]; !ok {
		return invoicing.ErrDocumentNotFound
	}
	t.docs[doc.ID] = doc
	return nil
}
