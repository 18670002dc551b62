package accounts

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nordeim/ledgersg/internal/accounting/mappings"
	"github.com/nordeim/ledgersg/internal/accounting/shared"
	internalShared "github.com/nordeim/ledgersg/internal/shared"
)

// BalanceReader reports the debit-positive balance of an account.
type BalanceReader interface {
	AccountBalance(ctx context.Context, tenantID, accountID uuid.UUID, asOf *time.Time) (decimal.Decimal, error)
}

// MappingReader resolves tenant specific control account overrides.
type MappingReader interface {
	Get(ctx context.Context, tenantID uuid.UUID, key string) (mappings.AccountMapping, error)
}

type Service struct {
	repo     Repository
	balances BalanceReader
	mappings MappingReader
	now      func() time.Time
}

// NewService wires the chart of accounts. Every change is written together
// with its audit record; a failed audit write rolls the change back.
func NewService(repo Repository, balances BalanceReader, mappings MappingReader) *Service {
	return &Service{repo: repo, balances: balances, mappings: mappings, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get returns the account or shared.ErrAccountNotFound. Accounts of other
// tenants are reported as missing.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (Account, error) {
	return s.repo.Get(ctx, tenantID, id)
}

func (s *Service) GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (Account, error) {
	return s.repo.GetByCode(ctx, tenantID, strings.TrimSpace(code))
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]Account, error) {
	return s.repo.List(ctx, tenantID, filter)
}

// Tree returns the active accounts arranged by parent.
func (s *Service) Tree(ctx context.Context, tenantID uuid.UUID) ([]Node, error) {
	list, err := s.repo.List(ctx, tenantID, ListFilter{})
	if err != nil {
		return nil, err
	}
	return buildTree(list), nil
}

func buildTree(list []Account) []Node {
	children := make(map[uuid.UUID][]Account)
	known := make(map[uuid.UUID]bool, len(list))
	for _, a := range list {
		known[a.ID] = true
	}
	var roots []Account
	for _, a := range list {
		if a.ParentID != nil && known[*a.ParentID] {
			children[*a.ParentID] = append(children[*a.ParentID], a)
			continue
		}
		roots = append(roots, a)
	}
	var build func([]Account) []Node
	build = func(level []Account) []Node {
		sort.Slice(level, func(i, j int) bool { return level[i].Code < level[j].Code })
		out := make([]Node, 0, len(level))
		for _, a := range level {
			out = append(out, Node{Account: a, Children: build(children[a.ID])})
		}
		return out
	}
	return build(roots)
}

// Create validates and stores a new account.
func (s *Service) Create(ctx context.Context, in CreateInput) (Account, error) {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := shared.ValidateStruct(in); err != nil {
		return Account{}, err
	}
	if !in.Type.Valid() {
		return Account{}, shared.Validationf("invalid account type")
	}
	if prefix := in.Type.CodePrefix(); !strings.HasPrefix(in.Code, prefix) {
		return Account{}, shared.Validationf("account code must start with %q for type %s", prefix, in.Type)
	}
	now := s.now()
	account := Account{
		ID:          uuid.New(),
		TenantID:    in.TenantID,
		Code:        in.Code,
		Name:        in.Name,
		Description: in.Description,
		Type:        in.Type,
		ParentID:    in.ParentID,
		IsSystem:    in.IsSystem,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if in.ParentID != nil {
			if err := checkParent(ctx, tx, in.TenantID, *in.ParentID, in.Type); err != nil {
				return err
			}
		}
		if err := tx.Insert(ctx, account); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, s.auditLog(in.ActorID, "account.create", nil, account))
	})
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

func checkParent(ctx context.Context, tx TxRepository, tenantID, parentID uuid.UUID, t AccountType) error {
	parent, err := tx.Get(ctx, tenantID, parentID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.Validationf("parent account not found")
		}
		return err
	}
	if parent.Type.Category() != t.Category() {
		return shared.Validationf("parent account must be of the same category (%s)", parent.Type.Category())
	}
	level := 2
	current := parent
	for current.ParentID != nil {
		level++
		if level > MaxDepth {
			return shared.Validationf("maximum account hierarchy depth (%d) exceeded", MaxDepth)
		}
		current, err = tx.Get(ctx, tenantID, *current.ParentID)
		if err != nil {
			return err
		}
	}
	return nil
}

// Update changes name and description. System accounts only accept a new
// description.
func (s *Service) Update(ctx context.Context, in UpdateInput) (Account, error) {
	if err := shared.ValidateStruct(in); err != nil {
		return Account{}, err
	}
	var updated Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, in.TenantID, in.AccountID)
		if err != nil {
			return err
		}
		updated = current
		if in.Name != nil {
			if current.IsSystem {
				return shared.Validationf("cannot rename system account %s", current.Code)
			}
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return shared.Validationf("account name cannot be empty")
			}
			updated.Name = name
		}
		if in.Description != nil {
			updated.Description = strings.TrimSpace(*in.Description)
		}
		updated.UpdatedAt = s.now()
		if err := tx.UpdateDetails(ctx, updated); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, s.auditLog(in.ActorID, "account.update", &current, updated))
	})
	if err != nil {
		return Account{}, err
	}
	return updated, nil
}

// Archive deactivates an account. System accounts, accounts with active
// children and accounts carrying a balance stay active.
func (s *Service) Archive(ctx context.Context, tenantID, id, actorID uuid.UUID) (Account, error) {
	if s.balances == nil {
		return Account{}, errors.New("accounting: balance reader not configured")
	}
	var account Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		account, err = tx.GetForUpdate(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if account.IsSystem {
			return shared.Validationf("system accounts cannot be archived")
		}
		if !account.IsActive {
			return nil
		}
		children, err := tx.CountActiveChildren(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if children > 0 {
			return shared.Validationf("cannot archive account with sub-accounts, archive sub-accounts first")
		}
		// The row lock holds off new postings, so the balance read here is final.
		balance, err := s.balances.AccountBalance(ctx, tenantID, id, nil)
		if err != nil {
			return err
		}
		if !balance.IsZero() {
			return shared.Validationf("cannot archive account with non-zero balance (%s)", balance.StringFixed(4))
		}
		before := account
		account.IsActive = false
		account.UpdatedAt = s.now()
		if err := tx.SetActive(ctx, tenantID, id, false, account.UpdatedAt); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, s.auditLog(actorID, "account.archive", &before, account))
	})
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

func (s *Service) auditLog(actor uuid.UUID, action string, before *Account, after Account) internalShared.AuditLog {
	log := internalShared.AuditLog{
		TenantID: after.TenantID,
		ActorID:  actor,
		Action:   action,
		Entity:   "account",
		EntityID: after.ID.String(),
		After:    snapshot(after),
		At:       s.now(),
	}
	if before != nil {
		log.Before = snapshot(*before)
	}
	return log
}

func snapshot(a Account) map[string]any {
	return map[string]any{
		"code":         a.Code,
		"name":         a.Name,
		"description":  a.Description,
		"account_type": a.Type.String(),
		"is_active":    a.IsActive,
	}
}
