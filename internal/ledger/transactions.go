package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"cashbook/internal/core"
)

// TransactionLedger is the in-memory list of one user's transactions,
// mirrored to a TransactionStore.
type TransactionLedger struct {
	owner string
	store TransactionStore
	reg   Registry[core.Transaction]

	mu *sync.Mutex

	accountExists func(id string) bool
	commit        func()
	notify        func(ctx context.Context, action, id string)
	diverged      func()
	now           func() time.Time
}

// List returns the user's transactions in registry order.
func (l *TransactionLedger) List() []core.Transaction {
	return l.reg.Items()
}

// Find returns the transaction with id.
func (l *TransactionLedger) Find(id string) (core.Transaction, bool) {
	return l.reg.Find(id)
}

// Totals recomputes the aggregate view from the current transactions.
func (l *TransactionLedger) Totals() core.Totals {
	return core.Summarize(l.reg.Items())
}

// Create validates t, persists it and appends the stored transaction.
// Nothing is persisted when validation fails.
func (l *TransactionLedger) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t = l.normalize(t)
	if t.DateCreated.IsZero() {
		t.DateCreated = l.now().UTC()
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	var stored core.Transaction
	err := withLock(l.mu, func() error {
		if err := l.checkAccount(t.AccountID); err != nil {
			return err
		}
		var err error
		if stored, err = l.store.CreateTransaction(ctx, t); err != nil {
			return fmt.Errorf("persist transaction: %w", err)
		}
		l.reg.Dispatch(Add[core.Transaction]{Item: stored})
		l.commit()
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	l.notify(ctx, ActionCreated, stored.ID)
	return stored, nil
}

// Update validates t, persists it and replaces the entry with the same id.
func (l *TransactionLedger) Update(ctx context.Context, t core.Transaction) error {
	if t.ID == "" {
		return fmt.Errorf("%w: transaction id required", core.ErrValidation)
	}
	t = l.normalize(t)
	if err := t.Validate(); err != nil {
		return err
	}

	err := withLock(l.mu, func() error {
		if err := l.checkAccount(t.AccountID); err != nil {
			return err
		}
		stored, err := l.store.UpdateTransaction(ctx, t)
		if err != nil {
			return fmt.Errorf("persist transaction %s: %w", t.ID, err)
		}
		l.commit()
		if _, ok := l.reg.Find(stored.ID); !ok {
			l.diverged()
			return fmt.Errorf("transaction %s updated but missing locally: %w", stored.ID, core.ErrConsistency)
		}
		l.reg.Dispatch(Update[core.Transaction]{Item: stored})
		return nil
	})
	if err != nil {
		return err
	}
	l.notify(ctx, ActionUpdated, t.ID)
	return nil
}

// Delete removes the transaction with id.
func (l *TransactionLedger) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: transaction id required", core.ErrValidation)
	}

	err := withLock(l.mu, func() error {
		if err := l.store.DeleteTransaction(ctx, l.owner, id); err != nil {
			return fmt.Errorf("delete transaction %s: %w", id, err)
		}
		l.reg.Dispatch(Delete[core.Transaction]{ID: id})
		l.commit()
		return nil
	})
	if err != nil {
		return err
	}
	l.notify(ctx, ActionDeleted, id)
	return nil
}

func (l *TransactionLedger) normalize(t core.Transaction) core.Transaction {
	t.UserID = l.owner
	t.AccountID = strings.TrimSpace(t.AccountID)
	t.PaidTo = strings.TrimSpace(t.PaidTo)
	t.CheckNumber = strings.TrimSpace(t.CheckNumber)
	return t
}

func (l *TransactionLedger) checkAccount(accountID string) error {
	if accountID == "" || l.accountExists == nil {
		return nil
	}
	if !l.accountExists(accountID) {
		return fmt.Errorf("account %s: %w", accountID, core.ErrUnknownAccount)
	}
	return nil
}

// references is called with mu held.
func (l *TransactionLedger) references(accountID string) bool {
	for _, t := range l.reg.Items() {
		if t.AccountID == accountID {
			return true
		}
	}
	return false
}
