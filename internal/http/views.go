package http

import (
	"time"

	"cashbook/internal/core"
)

type userView struct {
	ID            string `json:"uid"`
	Email         string `json:"email,omitempty"`
	DisplayName   string `json:"displayName,omitempty"`
	EmailVerified bool   `json:"emailVerified"`
}

type accountView struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Number      string    `json:"number"`
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	DateCreated time.Time `json:"dateCreated"`
}

type transactionView struct {
	ID           string    `json:"id"`
	AccountID    string    `json:"accountId,omitempty"`
	AccountLabel string    `json:"accountLabel,omitempty"`
	Value        float64   `json:"value"`
	ValueCents   int64     `json:"valueCents"`
	Type         string    `json:"type"`
	Date         string    `json:"date"`
	DateCreated  time.Time `json:"dateCreated"`
	CheckNumber  string    `json:"checkNumber,omitempty"`
	PaidTo       string    `json:"paidTo"`
}

type summaryView struct {
	TotalIncome   float64 `json:"totalIncome"`
	TotalExpenses float64 `json:"totalExpenses"`
	Balance       float64 `json:"balance"`
	IncomeCents   int64   `json:"totalIncomeCents"`
	ExpensesCents int64   `json:"totalExpensesCents"`
	BalanceCents  int64   `json:"balanceCents"`
	Formatted     string  `json:"balanceFormatted"`
}

type reportView struct {
	FileID    string    `json:"fileId"`
	FileURL   string    `json:"fileUrl"`
	Range     string    `json:"range"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type credentialView struct {
	Connected bool       `json:"connected"`
	Expiry    *time.Time `json:"expiry,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func toUserView(u core.User) userView {
	return userView{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, EmailVerified: u.EmailVerified}
}

func toAccountView(a core.Account) accountView {
	return accountView{
		ID:          a.ID,
		Type:        string(a.Type),
		Number:      a.Number,
		Name:        a.Name,
		Label:       a.Label(),
		DateCreated: a.DateCreated,
	}
}

func toTransactionView(t core.Transaction, label string) transactionView {
	return transactionView{
		ID:           t.ID,
		AccountID:    t.AccountID,
		AccountLabel: label,
		Value:        t.Value.Euros(),
		ValueCents:   t.Value.Cents,
		Type:         string(t.Type),
		Date:         t.Date.String(),
		DateCreated:  t.DateCreated,
		CheckNumber:  t.CheckNumber,
		PaidTo:       t.PaidTo,
	}
}

func toSummaryView(t core.Totals) summaryView {
	return summaryView{
		TotalIncome:   t.Income.Euros(),
		TotalExpenses: t.Expenses.Euros(),
		Balance:       t.Balance.Euros(),
		IncomeCents:   t.Income.Cents,
		ExpensesCents: t.Expenses.Cents,
		BalanceCents:  t.Balance.Cents,
		Formatted:     t.Balance.String(),
	}
}

func toReportView(l core.ReportLink) reportView {
	return reportView{FileID: l.FileID, FileURL: l.FileURL, Range: l.Range, UpdatedAt: l.UpdatedAt}
}
