package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestAccountLabel(t *testing.T) {
	cases := []struct {
		typ, number, name string
		want              string
	}{
		{"Expense", "3", "Mythical", "E03 - Mythical"},
		{"Receipts", "7", "Salary", "R07 - Salary"},
		{"Non-Expense", "12", "Savings", "N12 - Savings"},
		{"receipts", "123", "Bonus", "R123 - Bonus"},
		{"", "3", "Mythical", ""},
		{"Expense", "", "Mythical", ""},
		{"Expense", "3", "", ""},
		{"", "", "", ""},
	}
	for _, tc := range cases {
		if got := AccountLabel(tc.typ, tc.number, tc.name); got != tc.want {
			t.Errorf("AccountLabel(%q, %q, %q) = %q, want %q", tc.typ, tc.number, tc.name, got, tc.want)
		}
	}
}

func TestParseAccountType(t *testing.T) {
	cases := []struct {
		in   string
		want AccountType
		err  error
	}{
		{"Expense", AccountExpense, nil},
		{"non-expense", AccountNonExpense, nil},
		{"RECEIPTS", AccountReceipts, nil},
		{"Non-Income-Deposits", AccountNonIncomeDeposits, nil},
		{"E", AccountExpense, nil},
		{"ne", AccountNonExpense, nil},
		{"R", AccountReceipts, nil},
		{"NI", AccountNonIncomeDeposits, nil},
		{"", "", ErrEmptyAccountType},
		{"Assets", "", ErrInvalidAccountType},
	}
	for _, tc := range cases {
		got, err := ParseAccountType(tc.in)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Errorf("ParseAccountType(%q) error = %v, want %v", tc.in, err, tc.err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseAccountType(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestParseTransactionType(t *testing.T) {
	for in, want := range map[string]TransactionType{"income": Income, "Expense": Expense, " INCOME ": Income} {
		got, err := ParseTransactionType(in)
		if err != nil || got != want {
			t.Errorf("ParseTransactionType(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseTransactionType("transfer"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-14")
	if err != nil || d.String() != "2025-03-14" {
		t.Fatalf("ParseDate = %v, %v", d, err)
	}
	d, err = ParseDate("2025-03-14T18:30:00Z")
	if err != nil || d.String() != "2025-03-14" {
		t.Fatalf("ParseDate RFC3339 = %v, %v", d, err)
	}
	if _, err := ParseDate(""); !errors.Is(err, ErrMissingDate) {
		t.Fatalf("expected ErrMissingDate, got %v", err)
	}
	if _, err := ParseDate("14/03/2025"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestAccountValidate(t *testing.T) {
	good := Account{Type: AccountReceipts, Number: "7", Name: "Salary"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if good.Label() != "R07 - Salary" {
		t.Fatalf("unexpected label %q", good.Label())
	}

	bads := []struct {
		a    Account
		want error
	}{
		{Account{Number: "7", Name: "Salary"}, ErrEmptyAccountType},
		{Account{Type: "Assets", Number: "7", Name: "Salary"}, ErrInvalidAccountType},
		{Account{Type: AccountReceipts, Name: "Salary"}, ErrEmptyAccountNumber},
		{Account{Type: AccountReceipts, Number: "7", Name: "  "}, ErrEmptyAccountName},
		{Account{Type: AccountReceipts, Number: "7", Name: strings.Repeat("a", 201)}, ErrAccountNameTooLong},
	}
	for i, tc := range bads {
		err := tc.a.Validate()
		if !errors.Is(err, tc.want) || !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d: got %v, want %v", i, err, tc.want)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		PaidTo: "Employer",
		Value:  Money{Cents: 25050},
		Type:   Income,
		Date:   NewDate(2025, 1, 15),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	zero := good
	zero.Value = Money{}
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero value should be accepted, got %v", err)
	}

	bads := []struct {
		mutate func(*Transaction)
		want   error
	}{
		{func(tx *Transaction) { tx.PaidTo = "" }, ErrEmptyPaidTo},
		{func(tx *Transaction) { tx.Value = Money{Cents: -1} }, ErrNegativeValue},
		{func(tx *Transaction) { tx.Date = Date{Time: time.Time{}} }, ErrMissingDate},
		{func(tx *Transaction) { tx.Type = "transfer" }, ErrInvalidTransactionType},
		{func(tx *Transaction) { tx.PaidTo = strings.Repeat("x", 201) }, ErrPaidToTooLong},
	}
	for i, tc := range bads {
		tx := good
		tc.mutate(&tx)
		if err := tx.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d: got %v, want %v", i, err, tc.want)
		}
	}
}

func TestValidateCountsCharacters(t *testing.T) {
	accented := strings.Repeat("é", 200)
	a := Account{Type: AccountReceipts, Number: "7", Name: accented}
	if err := a.Validate(); err != nil {
		t.Errorf("Account.Validate() = %v, want ok for 200 characters", err)
	}
	tx := Transaction{PaidTo: accented, Value: Money{Cents: 1}, Type: Expense, Date: NewDate(2025, 1, 15)}
	if err := tx.Validate(); err != nil {
		t.Errorf("Transaction.Validate() = %v, want ok for 200 characters", err)
	}
	tx.PaidTo += "é"
	if err := tx.Validate(); !errors.Is(err, ErrPaidToTooLong) {
		t.Errorf("Transaction.Validate() = %v, want %v", err, ErrPaidToTooLong)
	}
}

func TestSummarize(t *testing.T) {
	txs := []Transaction{
		{Type: Income, Value: Money{Cents: 25050}},
		{Type: Expense, Value: Money{Cents: 4000}},
	}
	got := Summarize(txs)
	if got.Income.Cents != 25050 || got.Expenses.Cents != 4000 || got.Balance.Cents != 21050 {
		t.Fatalf("unexpected totals %+v", got)
	}
	if got.Income.Euros() != 250.5 || got.Balance.Euros() != 210.5 {
		t.Fatalf("unexpected euro totals %+v", got)
	}

	got = Summarize(txs[1:])
	if got.Income.Cents != 0 || got.Balance.Cents != -4000 {
		t.Fatalf("unexpected totals after removing income %+v", got)
	}

	if empty := Summarize(nil); empty != (Totals{}) {
		t.Fatalf("expected zero totals, got %+v", empty)
	}
}
