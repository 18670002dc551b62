package accounts

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/nordeim/ledgersg/internal/accounting/mappings"
	"github.com/nordeim/ledgersg/internal/accounting/shared"
)

// ControlAccount names an account the ledger posts to on behalf of a
// source document.
type ControlAccount string

const (
	ControlReceivable ControlAccount = mappings.KeyReceivable
	ControlPayable    ControlAccount = mappings.KeyPayable
	ControlGSTOutput  ControlAccount = mappings.KeyGSTOutput
	ControlGSTInput   ControlAccount = mappings.KeyGSTInput
)

type controlRule struct {
	label    string
	code     string
	prefix   string
	fallback AccountType
}

var controlRules = map[ControlAccount]controlRule{
	ControlReceivable: {label: "Accounts Receivable", code: "1200", fallback: TypeAssetCurrent},
	ControlPayable:    {label: "Accounts Payable", code: "2100", fallback: TypeLiabilityCurrent},
	ControlGSTOutput:  {label: "GST Output Tax", prefix: "220", fallback: TypeLiabilityCurrent},
	ControlGSTInput:   {label: "GST Input Tax", code: "1300", fallback: TypeAssetCurrent},
}

// ResolveControl finds the account used for a control role. A tenant mapping
// wins; otherwise the standard code is tried, then the first active account
// of the fallback type.
func (s *Service) ResolveControl(ctx context.Context, tenantID uuid.UUID, role ControlAccount) (Account, error) {
	rule, ok := controlRules[role]
	if !ok {
		return Account{}, shared.Validationf("unknown control account %q", role)
	}
	if s.mappings != nil {
		mapping, err := s.mappings.Get(ctx, tenantID, string(role))
		switch {
		case err == nil:
			return s.repo.Get(ctx, tenantID, mapping.AccountID)
		case !errors.Is(err, shared.ErrNotFound):
			return Account{}, err
		}
	}
	var (
		account Account
		err     error
	)
	if rule.code != "" {
		account, err = s.repo.GetByCode(ctx, tenantID, rule.code)
		if err == nil && !account.IsActive {
			err = shared.ErrAccountNotFound
		}
	} else {
		account, err = s.repo.FirstByCodePrefix(ctx, tenantID, rule.prefix)
	}
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return Account{}, err
	}
	account, err = s.repo.FirstOfType(ctx, tenantID, rule.fallback)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Account{}, shared.Validationf("no %s account found, set up the chart of accounts", rule.label)
		}
		return Account{}, err
	}
	return account, nil
}
