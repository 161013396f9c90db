package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cashbook/internal/core"
	"cashbook/internal/ledger"
)

var _ ledger.Store = (*SQLiteRepository)(nil)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_Accounts(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	salary, err := repo.CreateAccount(ctx, core.Account{
		UserID: "u1", Type: core.AccountReceipts, Number: "7", Name: "Salary", DateCreated: created,
	})
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	if salary.ID == "" {
		t.Fatal("CreateAccount() did not assign an id")
	}
	if _, err := repo.CreateAccount(ctx, core.Account{
		UserID: "u1", Type: core.AccountExpense, Number: "3", Name: "Rent", DateCreated: created,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateAccount(ctx, core.Account{
		UserID: "u2", Type: core.AccountExpense, Number: "1", Name: "Other", DateCreated: created,
	}); err != nil {
		t.Fatal(err)
	}

	list, err := repo.ListAccounts(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != salary.ID || list[1].Name != "Rent" {
		t.Fatalf("ListAccounts() = %+v", list)
	}
	if !list[0].DateCreated.Equal(created) {
		t.Errorf("DateCreated = %v, want %v", list[0].DateCreated, created)
	}

	salary.Name = "Wages"
	updated, err := repo.UpdateAccount(ctx, salary)
	if err != nil {
		t.Fatalf("UpdateAccount() error = %v", err)
	}
	if updated.Name != "Wages" || !updated.DateCreated.Equal(created) {
		t.Errorf("UpdateAccount() = %+v", updated)
	}

	other := salary
	other.UserID = "u2"
	if _, err := repo.UpdateAccount(ctx, other); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("UpdateAccount() by another user error = %v, want not found", err)
	}
	if err := repo.DeleteAccount(ctx, "u2", salary.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeleteAccount() by another user error = %v, want not found", err)
	}
	if err := repo.DeleteAccount(ctx, "u1", salary.ID); err != nil {
		t.Fatalf("DeleteAccount() error = %v", err)
	}
	if err := repo.DeleteAccount(ctx, "u1", salary.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second DeleteAccount() error = %v, want not found", err)
	}
}

func TestSQLiteRepository_DuplicateIDIsConflict(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	a := core.Account{ID: "fixed", UserID: "u1", Type: core.AccountExpense, Number: "1", Name: "Rent"}
	if _, err := repo.CreateAccount(ctx, a); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateAccount(ctx, a); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("CreateAccount() duplicate error = %v, want conflict", err)
	}
}

func TestSQLiteRepository_Transactions(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	income, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID: "u1", AccountID: "acc-1", Value: core.Money{Cents: 25050}, Type: core.Income,
		Date: core.NewDate(2025, 3, 1), PaidTo: "Employer", CheckNumber: "1001",
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	if _, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID: "u1", Value: core.Money{Cents: 4000}, Type: core.Expense,
		Date: core.NewDate(2025, 3, 2), PaidTo: "Store",
	}); err != nil {
		t.Fatal(err)
	}

	list, err := repo.ListTransactions(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("ListTransactions() = %+v", list)
	}
	got := list[0]
	if got.ID != income.ID || got.Value.Cents != 25050 || got.Type != core.Income ||
		got.Date.String() != "2025-03-01" || got.CheckNumber != "1001" || got.AccountID != "acc-1" {
		t.Errorf("first transaction = %+v", got)
	}
	if totals := core.Summarize(list); totals.Balance.Cents != 21050 {
		t.Errorf("balance = %d, want 21050", totals.Balance.Cents)
	}

	income.PaidTo = "New Employer"
	income.Value = core.Money{Cents: 30000}
	if _, err := repo.UpdateTransaction(ctx, income); err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}
	list, _ = repo.ListTransactions(ctx, "u1")
	if list[0].PaidTo != "New Employer" || list[0].Value.Cents != 30000 {
		t.Errorf("after update = %+v", list[0])
	}

	if err := repo.DeleteTransaction(ctx, "u1", income.ID); err != nil {
		t.Fatal(err)
	}
	if list, _ = repo.ListTransactions(ctx, "u1"); len(list) != 1 {
		t.Errorf("after delete = %+v", list)
	}
	if list, _ = repo.ListTransactions(ctx, "u2"); len(list) != 0 {
		t.Errorf("u2 transactions = %+v", list)
	}
}

func TestSQLiteRepository_Credentials(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.GetCredential(ctx, "u1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("GetCredential() error = %v, want not found", err)
	}

	expiry := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	if err := repo.SaveCredential(ctx, core.Credential{UserID: "u1", AccessToken: "tok-1", Expiry: expiry}); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveCredential(ctx, core.Credential{UserID: "u1", AccessToken: "tok-2"}); err != nil {
		t.Fatal(err)
	}

	c, err := repo.GetCredential(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if c.AccessToken != "tok-2" || !c.Expiry.IsZero() || c.UpdatedAt.IsZero() {
		t.Errorf("GetCredential() = %+v", c)
	}

	if err := repo.ClearCredential(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if err := repo.ClearCredential(ctx, "u1"); err != nil {
		t.Errorf("clearing twice: %v", err)
	}
	if _, err := repo.GetCredential(ctx, "u1"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("after clear error = %v", err)
	}
}

func TestSQLiteRepository_ReportLinks(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	link := core.ReportLink{UserID: "u1", FileID: "file-1", FileURL: "https://docs.google.com/spreadsheets/d/file-1", Range: "Sheet1!J5"}
	if err := repo.SaveReportLink(ctx, link); err != nil {
		t.Fatal(err)
	}
	link.FileID = "file-2"
	if err := repo.SaveReportLink(ctx, link); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetReportLink(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.FileID != "file-2" || got.Range != "Sheet1!J5" {
		t.Errorf("GetReportLink() = %+v", got)
	}
	if _, err := repo.GetReportLink(ctx, "u2"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetReportLink(u2) error = %v, want not found", err)
	}
}

func TestSQLiteRepository_BackingLedgerSession(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	user := core.User{ID: "u1"}

	s := ledger.NewSession(user, repo)
	if err := s.Load(ctx); err != nil {
		t.Fatal(err)
	}
	acc, err := s.Accounts().Create(ctx, core.Account{Type: core.AccountReceipts, Number: "7", Name: "Salary"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Transactions().Create(ctx, core.Transaction{
		AccountID: acc.ID, Value: core.Money{Cents: 25050}, Type: core.Income,
		Date: core.NewDate(2025, 3, 1), PaidTo: "Employer",
	}); err != nil {
		t.Fatal(err)
	}

	reloaded := ledger.NewSession(user, repo)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if got := reloaded.Accounts().List(); len(got) != 1 || got[0].Label() != "R07 - Salary" {
		t.Errorf("reloaded accounts = %+v", got)
	}
	if got := reloaded.Totals().Income.Euros(); got != 250.5 {
		t.Errorf("reloaded income = %v, want 250.5", got)
	}
}
