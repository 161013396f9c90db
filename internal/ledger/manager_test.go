package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cashbook/internal/cache"
	"cashbook/internal/core"
)

func TestManager_Session(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	m := NewManager(store, nil, cache.NewLRUCache[*Session](4, time.Minute))

	first, err := m.Session(ctx, testUser)
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Session(ctx, testUser)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("expected the cached session to be reused")
	}

	first.markStale()
	third, err := m.Session(ctx, testUser)
	if err != nil {
		t.Fatal(err)
	}
	if third == first {
		t.Error("expected a stale session to be replaced")
	}

	m.Invalidate(testUser.ID)
	fourth, err := m.Session(ctx, testUser)
	if err != nil {
		t.Fatal(err)
	}
	if fourth == third {
		t.Error("expected a fresh session after Invalidate")
	}
}

func TestManager_SessionRequiresUser(t *testing.T) {
	m := NewManager(&fakeStore{}, nil, cache.NewLRUCache[*Session](4, time.Minute))
	if _, err := m.Session(context.Background(), core.User{}); !errors.Is(err, core.ErrPermission) {
		t.Fatalf("Session() error = %v, want permission error", err)
	}
}

func TestManager_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	m := NewManager(store, nil, cache.NewLRUCache[*Session](4, time.Minute))

	alice, err := m.Session(ctx, core.User{ID: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	bob, err := m.Session(ctx, core.User{ID: "bob"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := alice.Accounts().Create(ctx, core.Account{Type: core.AccountExpense, Number: "1", Name: "Rent"}); err != nil {
		t.Fatal(err)
	}
	if n := len(bob.Accounts().List()); n != 0 {
		t.Errorf("bob sees %d accounts, want 0", n)
	}
}

func TestManager_ConcurrentLoadsShareOneSession(t *testing.T) {
	ctx := context.Background()
	m := NewManager(&fakeStore{}, nil, cache.NewLRUCache[*Session](4, time.Minute))

	const n = 8
	sessions := make([]*Session, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := m.Session(ctx, testUser)
			if err != nil {
				t.Error(err)
				return
			}
			sessions[i] = s
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if sessions[i] != sessions[0] {
			t.Fatalf("session %d differs from session 0", i)
		}
	}
}

func TestManager_WriteThroughEvictedSessionIsVisible(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	m := NewManager(store, nil, cache.NewLRUCache[*Session](1, time.Minute))

	held, err := m.Session(ctx, testUser)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Session(ctx, core.User{ID: "bob"}); err != nil {
		t.Fatal(err)
	}
	if !held.Stale() {
		t.Error("expected the evicted session to be marked stale")
	}
	replacement, err := m.Session(ctx, testUser)
	if err != nil {
		t.Fatal(err)
	}
	if replacement == held {
		t.Fatal("expected a new session after eviction")
	}

	// a request still holding the evicted session completes its write
	acc, err := held.Accounts().Create(ctx, core.Account{Type: core.AccountReceipts, Number: "7", Name: "Salary"})
	if err != nil {
		t.Fatal(err)
	}

	current, err := m.Session(ctx, testUser)
	if err != nil {
		t.Fatal(err)
	}
	if current == replacement {
		t.Fatal("expected the outdated session to be reloaded")
	}
	if _, ok := current.Accounts().Find(acc.ID); !ok {
		t.Fatalf("accounts = %+v, want %s", current.Accounts().List(), acc.ID)
	}
	if _, err := current.Transactions().Create(ctx, core.Transaction{
		Value:     mustAmount(t, "10"),
		Type:      core.Income,
		PaidTo:    "Employer",
		AccountID: acc.ID,
		Date:      core.NewDate(2025, 3, 1),
	}); err != nil {
		t.Fatalf("transaction referencing the new account: %v", err)
	}

	again, err := m.Session(ctx, testUser)
	if err != nil {
		t.Fatal(err)
	}
	if again != current {
		t.Error("writes through the current session must not force a reload")
	}
}

func TestManager_WriteThroughInvalidatedSession(t *testing.T) {
	ctx := context.Background()
	m := NewManager(&fakeStore{}, nil, cache.NewLRUCache[*Session](4, time.Minute))

	held, err := m.Session(ctx, testUser)
	if err != nil {
		t.Fatal(err)
	}
	m.Invalidate(testUser.ID)
	replacement, err := m.Session(ctx, testUser)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := held.Accounts().Create(ctx, core.Account{Type: core.AccountExpense, Number: "1", Name: "Rent"}); err != nil {
		t.Fatal(err)
	}
	current, err := m.Session(ctx, testUser)
	if err != nil {
		t.Fatal(err)
	}
	if current == replacement || len(current.Accounts().List()) != 1 {
		t.Errorf("accounts = %+v, want the write made through the old session", current.Accounts().List())
	}
}

// gatedStore blocks account listing until release is closed and then honours
// the caller's context.
type gatedStore struct {
	*fakeStore
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.fakeStore.ListAccounts(ctx, userID)
}

func TestManager_LoadOutlivesFirstCaller(t *testing.T) {
	store := &gatedStore{
		fakeStore: &fakeStore{},
		entered:   make(chan struct{}, 1),
		release:   make(chan struct{}),
	}
	m := NewManager(store, nil, cache.NewLRUCache[*Session](4, time.Minute))

	leaderCtx, cancel := context.WithCancel(context.Background())
	type result struct {
		s   *Session
		err error
	}
	leader := make(chan result, 1)
	go func() {
		s, err := m.Session(leaderCtx, testUser)
		leader <- result{s, err}
	}()
	<-store.entered

	follower := make(chan result, 1)
	go func() {
		s, err := m.Session(context.Background(), testUser)
		follower <- result{s, err}
	}()

	cancel()
	close(store.release)

	for name, ch := range map[string]chan result{"leader": leader, "follower": follower} {
		res := <-ch
		if res.err != nil {
			t.Errorf("%s: Session() error = %v", name, res.err)
		} else if res.s == nil {
			t.Errorf("%s: nil session", name)
		}
	}
}
