// Package memory is a process-local store with the same semantics as the
// SQLite repository. Data is lost on restart.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"cashbook/internal/core"
)

type Store struct {
	mu           sync.Mutex
	accounts     []core.Account
	transactions []core.Transaction
	credentials  map[string]core.Credential
	reports      map[string]core.ReportLink
}

func New() *Store {
	return &Store{
		credentials: make(map[string]core.Credential),
		reports:     make(map[string]core.ReportLink),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) ListAccounts(_ context.Context, userID string) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Account
	for _, a := range s.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	for _, existing := range s.accounts {
		if existing.ID == a.ID {
			return core.Account{}, fmt.Errorf("%w: account %s exists", core.ErrConflict, a.ID)
		}
	}
	s.accounts = append(s.accounts, a)
	slog.DebugContext(ctx, "Account stored in memory", "id", a.ID, "user_id", a.UserID)
	return a, nil
}

func (s *Store) UpdateAccount(_ context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.accounts {
		if existing.ID == a.ID && existing.UserID == a.UserID {
			a.DateCreated = existing.DateCreated
			s.accounts[i] = a
			return a, nil
		}
	}
	return core.Account{}, fmt.Errorf("account %s: %w", a.ID, core.ErrNotFound)
}

func (s *Store) DeleteAccount(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.accounts {
		if existing.ID == id && existing.UserID == userID {
			s.accounts = append(s.accounts[:i:i], s.accounts[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("account %s: %w", id, core.ErrNotFound)
}

func (s *Store) ListTransactions(_ context.Context, userID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	for _, existing := range s.transactions {
		if existing.ID == t.ID {
			return core.Transaction{}, fmt.Errorf("%w: transaction %s exists", core.ErrConflict, t.ID)
		}
	}
	s.transactions = append(s.transactions, t)
	slog.DebugContext(ctx, "Transaction stored in memory", "id", t.ID, "user_id", t.UserID)
	return t, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.transactions {
		if existing.ID == t.ID && existing.UserID == t.UserID {
			t.DateCreated = existing.DateCreated
			s.transactions[i] = t
			return t, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("transaction %s: %w", t.ID, core.ErrNotFound)
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.transactions {
		if existing.ID == id && existing.UserID == userID {
			s.transactions = append(s.transactions[:i:i], s.transactions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
}

func (s *Store) SaveCredential(_ context.Context, c core.Credential) error {
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[c.UserID] = c
	return nil
}

func (s *Store) GetCredential(_ context.Context, userID string) (core.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credentials[userID]
	if !ok {
		return core.Credential{}, fmt.Errorf("credential for %s: %w", userID, core.ErrNotFound)
	}
	return c, nil
}

func (s *Store) ClearCredential(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.credentials, userID)
	return nil
}

func (s *Store) SaveReportLink(_ context.Context, l core.ReportLink) error {
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[l.UserID] = l
	return nil
}

func (s *Store) GetReportLink(_ context.Context, userID string) (core.ReportLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.reports[userID]
	if !ok {
		return core.ReportLink{}, fmt.Errorf("report link for %s: %w", userID, core.ErrNotFound)
	}
	return l, nil
}
