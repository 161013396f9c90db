package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"cashbook/internal/core"
)

// AccountRegistry is the in-memory list of one user's accounts, mirrored to
// an AccountStore.
type AccountRegistry struct {
	owner string
	store AccountStore
	reg   Registry[core.Account]

	// shared with the owning session so that integrity checks and writes
	// across both registries do not interleave
	mu *sync.Mutex

	inUse func(accountID string) bool

	// commit runs with mu held after every durable write; notify runs after
	// mu is released
	commit   func()
	notify   func(ctx context.Context, action, id string)
	diverged func()
	now      func() time.Time
}

// List returns the user's accounts in registry order.
func (r *AccountRegistry) List() []core.Account {
	return r.reg.Items()
}

// Find returns the account with id.
func (r *AccountRegistry) Find(id string) (core.Account, bool) {
	return r.reg.Find(id)
}

// Create validates a, persists it and appends the stored account.
func (r *AccountRegistry) Create(ctx context.Context, a core.Account) (core.Account, error) {
	a.UserID = r.owner
	a.Number = strings.TrimSpace(a.Number)
	a.Name = strings.TrimSpace(a.Name)
	if a.DateCreated.IsZero() {
		a.DateCreated = r.now().UTC()
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}

	var stored core.Account
	err := withLock(r.mu, func() error {
		var err error
		if stored, err = r.store.CreateAccount(ctx, a); err != nil {
			return fmt.Errorf("persist account: %w", err)
		}
		r.reg.Dispatch(Add[core.Account]{Item: stored})
		r.commit()
		return nil
	})
	if err != nil {
		return core.Account{}, err
	}
	r.notify(ctx, ActionCreated, stored.ID)
	return stored, nil
}

// Update validates a, persists it and replaces the entry with the same id.
func (r *AccountRegistry) Update(ctx context.Context, a core.Account) error {
	if a.ID == "" {
		return fmt.Errorf("%w: account id required", core.ErrValidation)
	}
	a.UserID = r.owner
	a.Number = strings.TrimSpace(a.Number)
	a.Name = strings.TrimSpace(a.Name)
	if err := a.Validate(); err != nil {
		return err
	}

	err := withLock(r.mu, func() error {
		stored, err := r.store.UpdateAccount(ctx, a)
		if err != nil {
			return fmt.Errorf("persist account %s: %w", a.ID, err)
		}
		r.commit()
		if _, ok := r.reg.Find(stored.ID); !ok {
			r.diverged()
			return fmt.Errorf("account %s updated but missing locally: %w", stored.ID, core.ErrConsistency)
		}
		r.reg.Dispatch(Update[core.Account]{Item: stored})
		return nil
	})
	if err != nil {
		return err
	}
	r.notify(ctx, ActionUpdated, a.ID)
	return nil
}

// Delete removes the account. Accounts still referenced by a transaction are
// rejected with core.ErrAccountInUse.
func (r *AccountRegistry) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: account id required", core.ErrValidation)
	}

	err := withLock(r.mu, func() error {
		if r.inUse != nil && r.inUse(id) {
			return fmt.Errorf("delete account %s: %w", id, core.ErrAccountInUse)
		}
		if err := r.store.DeleteAccount(ctx, r.owner, id); err != nil {
			return fmt.Errorf("delete account %s: %w", id, err)
		}
		r.reg.Dispatch(Delete[core.Account]{ID: id})
		r.commit()
		return nil
	})
	if err != nil {
		return err
	}
	r.notify(ctx, ActionDeleted, id)
	return nil
}

func withLock(mu *sync.Mutex, fn func() error) error {
	mu.Lock()
	defer mu.Unlock()
	return fn()
}

// contains is called with mu held.
func (r *AccountRegistry) contains(id string) bool {
	_, ok := r.reg.Find(id)
	return ok
}
