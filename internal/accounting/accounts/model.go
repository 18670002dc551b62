package accounts

import (
	"time"

	"github.com/google/uuid"
)

// MaxDepth is the deepest level an account may sit at in the hierarchy.
const MaxDepth = 3

// Account models a chart of accounts node.
type Account struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Code        string
	Name        string
	Description string
	Type        AccountType
	ParentID    *uuid.UUID
	IsSystem    bool
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NormalBalance returns the natural side of the account.
func (a Account) NormalBalance() NormalBalance {
	return a.Type.NormalBalance()
}

// Node is an account with its children, used to render the hierarchy.
type Node struct {
	Account
	Children []Node
}

// ListFilter narrows List results.
type ListFilter struct {
	Type            AccountType
	IncludeArchived bool
	Search          string
}

// CreateInput carries the fields for a new account.
type CreateInput struct {
	TenantID    uuid.UUID   `validate:"required"`
	Code        string      `validate:"required,min=4,max=10,alphanum"`
	Name        string      `validate:"required,max=255"`
	Description string      `validate:"max=2000"`
	Type        AccountType `validate:"required"`
	ParentID    *uuid.UUID
	IsSystem    bool
	ActorID     uuid.UUID
}

// UpdateInput carries the metadata that may change after creation.
type UpdateInput struct {
	TenantID    uuid.UUID `validate:"required"`
	AccountID   uuid.UUID `validate:"required"`
	Name        *string
	Description *string
	ActorID     uuid.UUID
}
