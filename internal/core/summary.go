package core

import (
	"strings"
	"unicode/utf8"
)

// Totals is the aggregate view of a set of transactions.
type Totals struct {
	Income   Money
	Expenses Money
	Balance  Money
}

// Summarize sums income and expense values. Balance is always Income - Expenses.
func Summarize(txs []Transaction) Totals {
	var t Totals
	for _, tx := range txs {
		switch tx.Type {
		case Income:
			t.Income.Cents += tx.Value.Cents
		case Expense:
			t.Expenses.Cents += tx.Value.Cents
		}
	}
	t.Balance = Money{Cents: t.Income.Cents - t.Expenses.Cents}
	return t
}

// AccountLabel builds "{type initial}{number padded to 2} - {name}".
// It returns "" when any part is empty.
func AccountLabel(accountType, number, name string) string {
	if accountType == "" || number == "" || name == "" {
		return ""
	}
	initial, _ := utf8.DecodeRuneInString(accountType)
	if utf8.RuneCountInString(number) < 2 {
		number = strings.Repeat("0", 2-utf8.RuneCountInString(number)) + number
	}
	return strings.ToUpper(string(initial)) + number + " - " + name
}
