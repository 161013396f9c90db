package core

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	AccountExpense           AccountType = "Expense"
	AccountNonExpense        AccountType = "Non-Expense"
	AccountReceipts          AccountType = "Receipts"
	AccountNonIncomeDeposits AccountType = "Non-Income-Deposits"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	AccountType     string
	TransactionType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// User is the identity resolved for the current request.
	User struct {
		ID            string
		Email         string
		DisplayName   string
		EmailVerified bool
	}

	Account struct {
		ID          string
		UserID      string
		Type        AccountType
		Number      string
		Name        string
		DateCreated time.Time
	}

	Transaction struct {
		ID          string
		UserID      string
		AccountID   string
		Value       Money
		Type        TransactionType
		Date        Date
		DateCreated time.Time
		CheckNumber string // optional
		PaidTo      string
	}

	// Credential is a delegated Google access token stored for a user.
	Credential struct {
		UserID      string
		AccessToken string
		Expiry      time.Time // zero when unknown
		UpdatedAt   time.Time
	}

	// ReportLink remembers the spreadsheet last generated for a user.
	ReportLink struct {
		UserID    string
		FileID    string
		FileURL   string
		Range     string
		UpdatedAt time.Time
	}
)

// accountTypeCodes maps the short codes used by the entry form.
var accountTypeCodes = map[string]AccountType{
	"e":  AccountExpense,
	"ne": AccountNonExpense,
	"r":  AccountReceipts,
	"ni": AccountNonIncomeDeposits,
}

// AccountTypes lists every known account type in display order.
func AccountTypes() []AccountType {
	return []AccountType{AccountExpense, AccountNonExpense, AccountReceipts, AccountNonIncomeDeposits}
}

// ParseAccountType accepts a canonical name or a short code, case-insensitively.
func ParseAccountType(s string) (AccountType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyAccountType
	}
	if t, ok := accountTypeCodes[strings.ToLower(s)]; ok {
		return t, nil
	}
	for _, t := range AccountTypes() {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", ErrInvalidAccountType
}

func (t AccountType) Valid() bool {
	for _, known := range AccountTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// ParseTransactionType is case-insensitive.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	}
	return "", ErrInvalidTransactionType
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD or a full RFC 3339 timestamp.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrMissingDate
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

// DateLayout is the wire and storage format of business dates.
const DateLayout = "2006-01-02"

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrMissingDate
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrNegativeValue
	}
	return nil
}

// EntityID lets accounts live in a generic registry.
func (a Account) EntityID() string { return a.ID }

// EntityID lets transactions live in a generic registry.
func (t Transaction) EntityID() string { return t.ID }

// Label is the display label of the account, e.g. "E03 - Mythical".
func (a Account) Label() string {
	return AccountLabel(string(a.Type), a.Number, a.Name)
}

func (a Account) Validate() error {
	if strings.TrimSpace(string(a.Type)) == "" {
		return ErrEmptyAccountType
	}
	if !a.Type.Valid() {
		return ErrInvalidAccountType
	}
	if strings.TrimSpace(a.Number) == "" {
		return ErrEmptyAccountNumber
	}
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyAccountName
	}
	if utf8.RuneCountInString(a.Name) > maxTextLength {
		return ErrAccountNameTooLong
	}
	return nil
}

// maxTextLength bounds names and payees, in characters.
const maxTextLength = 200

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.PaidTo) == "" {
		return ErrEmptyPaidTo
	}
	if utf8.RuneCountInString(t.PaidTo) > maxTextLength {
		return ErrPaidToTooLong
	}
	if err := t.Value.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return ErrInvalidTransactionType
	}
	return nil
}
