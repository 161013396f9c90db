package ledger

import (
	"context"

	"cashbook/internal/core"
)

// Ports for the persistence gateway. Reads and deletes are scoped by owner:
// a row that exists but belongs to another user is reported as core.ErrNotFound.
type (
	AccountStore interface {
		ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
		// CreateAccount assigns an id when a.ID is empty and returns the stored row.
		CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
		UpdateAccount(ctx context.Context, a core.Account) (core.Account, error)
		DeleteAccount(ctx context.Context, userID, id string) error
	}

	TransactionStore interface {
		ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, userID, id string) error
	}

	Store interface {
		AccountStore
		TransactionStore
	}

	// Publisher announces confirmed ledger changes. Implementations must be
	// safe for concurrent use.
	Publisher interface {
		PublishLedgerEvent(ctx context.Context, ev Event) error
	}
)

// Entity kinds and actions carried by events.
const (
	EntityAccount     = "account"
	EntityTransaction = "transaction"

	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Event describes one confirmed change.
type Event struct {
	UserID   string
	Entity   string
	Action   string
	EntityID string
}
