package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"cashbook/internal/core"
)

// Session is one user's ledger: an account registry and a transaction ledger
// loaded from the same store.
type Session struct {
	user         core.User
	store        Store
	publisher    Publisher
	mu           sync.Mutex
	accounts     *AccountRegistry
	transactions *TransactionLedger
	stale        atomic.Bool
	loadedAt     time.Time

	// onCommit runs with mu held after each durable write.
	onCommit func()

	// epoch is the owner's write epoch this session is known to reflect,
	// guarded by the Manager.
	epoch uint64
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithPublisher sets where confirmed changes are announced.
func WithPublisher(p Publisher) SessionOption {
	return func(s *Session) { s.publisher = p }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.accounts.now = now
		s.transactions.now = now
	}
}

// NewSession builds an empty session for user. Call Load to fill it.
func NewSession(user core.User, store Store, opts ...SessionOption) *Session {
	s := &Session{user: user, store: store}
	s.accounts = &AccountRegistry{
		owner:    user.ID,
		store:    store,
		mu:       &s.mu,
		commit:   s.committed,
		notify:   s.notifier(EntityAccount),
		diverged: s.markStale,
		now:      time.Now,
	}
	s.transactions = &TransactionLedger{
		owner:    user.ID,
		store:    store,
		mu:       &s.mu,
		commit:   s.committed,
		notify:   s.notifier(EntityTransaction),
		diverged: s.markStale,
		now:      time.Now,
	}
	s.accounts.inUse = s.transactions.references
	s.transactions.accountExists = s.accounts.contains
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces both registries with the user's persisted state.
func (s *Session) Load(ctx context.Context) error {
	var (
		accounts     []core.Account
		transactions []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accounts, err = s.store.ListAccounts(gctx, s.user.ID)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		transactions, err = s.store.ListTransactions(gctx, s.user.ID)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts.reg.Dispatch(SetAll[core.Account]{Items: accounts})
	s.transactions.reg.Dispatch(SetAll[core.Transaction]{Items: transactions})
	s.loadedAt = time.Now()
	s.stale.Store(false)

	slog.DebugContext(ctx, "Ledger session loaded",
		"user_id", s.user.ID,
		"accounts", len(accounts),
		"transactions", len(transactions))
	return nil
}

func (s *Session) User() core.User { return s.user }

func (s *Session) Accounts() *AccountRegistry { return s.accounts }

func (s *Session) Transactions() *TransactionLedger { return s.transactions }

// Totals is shorthand for Transactions().Totals().
func (s *Session) Totals() core.Totals { return s.transactions.Totals() }

// Stale reports whether a write diverged from local state; a stale session
// must be reloaded before use.
func (s *Session) Stale() bool { return s.stale.Load() }

func (s *Session) markStale() { s.stale.Store(true) }

func (s *Session) committed() {
	if s.onCommit != nil {
		s.onCommit()
	}
}

func (s *Session) notifier(entity string) func(ctx context.Context, action, id string) {
	return func(ctx context.Context, action, id string) {
		if s.publisher == nil {
			return
		}
		ev := Event{UserID: s.user.ID, Entity: entity, Action: action, EntityID: id}
		if err := s.publisher.PublishLedgerEvent(ctx, ev); err != nil {
			// the write is already durable
			slog.ErrorContext(ctx, "Failed to publish ledger event",
				"user_id", s.user.ID,
				"entity", entity,
				"action", action,
				"id", id,
				"error", err)
		}
	}
}
