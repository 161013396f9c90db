package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"cashbook/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists ledgers, credentials and report links in a single
// SQLite file. Every query is scoped by user id.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// migrates it.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

// ListAccounts returns the user's accounts in creation order.
func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, type, number, name, date_created
		   FROM accounts WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var (
			a       core.Account
			typ     string
			created string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &typ, &a.Number, &a.Name, &created); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.Type = core.AccountType(typ)
		if a.DateCreated, err = parseTimestamp(created); err != nil {
			return nil, fmt.Errorf("account %s: %w", a.ID, err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, user_id, type, number, name, date_created)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, string(a.Type), a.Number, a.Name, formatTimestamp(a.DateCreated))
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", mapWriteError(err))
	}

	slog.InfoContext(ctx, "Account saved to SQLite", "id", a.ID, "user_id", a.UserID, "type", a.Type)
	return a, nil
}

// UpdateAccount rewrites the mutable fields. DateCreated is kept as stored.
func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET type = ?, number = ?, name = ?
		  WHERE id = ? AND user_id = ?`,
		string(a.Type), a.Number, a.Name, a.ID, a.UserID)
	if err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	if err := expectOneRow(res, "account", a.ID); err != nil {
		return core.Account{}, err
	}

	var created string
	if err := r.db.QueryRowContext(ctx,
		`SELECT date_created FROM accounts WHERE id = ?`, a.ID).Scan(&created); err != nil {
		return core.Account{}, fmt.Errorf("reload account: %w", err)
	}
	if a.DateCreated, err = parseTimestamp(created); err != nil {
		return core.Account{}, err
	}
	return a, nil
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return expectOneRow(res, "account", id)
}

// ListTransactions returns the user's transactions in creation order.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, account_id, value_cents, type, date, date_created, check_number, paid_to
		   FROM transactions WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var (
			t             core.Transaction
			typ           string
			date, created string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.AccountID, &t.Value.Cents, &typ,
			&date, &created, &t.CheckNumber, &t.PaidTo); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Type = core.TransactionType(typ)
		if t.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("transaction %s date %q: %w", t.ID, date, err)
		}
		if t.DateCreated, err = parseTimestamp(created); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions
		   (id, user_id, account_id, value_cents, type, date, date_created, check_number, paid_to)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.AccountID, t.Value.Cents, string(t.Type),
		t.Date.String(), formatTimestamp(t.DateCreated), t.CheckNumber, t.PaidTo)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", mapWriteError(err))
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"user_id", t.UserID,
		"type", t.Type,
		"value_cents", t.Value.Cents,
		"date", t.Date.String())
	return t, nil
}

// UpdateTransaction rewrites the mutable fields. DateCreated is kept as stored.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		    SET account_id = ?, value_cents = ?, type = ?, date = ?, check_number = ?, paid_to = ?
		  WHERE id = ? AND user_id = ?`,
		t.AccountID, t.Value.Cents, string(t.Type), t.Date.String(), t.CheckNumber, t.PaidTo,
		t.ID, t.UserID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", mapWriteError(err))
	}
	if err := expectOneRow(res, "transaction", t.ID); err != nil {
		return core.Transaction{}, err
	}

	var created string
	if err := r.db.QueryRowContext(ctx,
		`SELECT date_created FROM transactions WHERE id = ?`, t.ID).Scan(&created); err != nil {
		return core.Transaction{}, fmt.Errorf("reload transaction: %w", err)
	}
	if t.DateCreated, err = parseTimestamp(created); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return expectOneRow(res, "transaction", id)
}

// SaveCredential stores or replaces the user's delegated token.
func (r *SQLiteRepository) SaveCredential(ctx context.Context, c core.Credential) error {
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_tokens (user_id, access_token, expiry, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   access_token = excluded.access_token,
		   expiry = excluded.expiry,
		   updated_at = excluded.updated_at`,
		c.UserID, c.AccessToken, formatOptionalTimestamp(c.Expiry), formatTimestamp(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetCredential(ctx context.Context, userID string) (core.Credential, error) {
	var (
		c               core.Credential
		expiry, updated string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, access_token, expiry, updated_at FROM user_tokens WHERE user_id = ?`, userID).
		Scan(&c.UserID, &c.AccessToken, &expiry, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Credential{}, fmt.Errorf("credential for %s: %w", userID, core.ErrNotFound)
	}
	if err != nil {
		return core.Credential{}, fmt.Errorf("get credential: %w", err)
	}
	if expiry != "" {
		if c.Expiry, err = parseTimestamp(expiry); err != nil {
			return core.Credential{}, err
		}
	}
	if c.UpdatedAt, err = parseTimestamp(updated); err != nil {
		return core.Credential{}, err
	}
	return c, nil
}

// ClearCredential removes the user's token. Clearing a missing token is not an error.
func (r *SQLiteRepository) ClearCredential(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_tokens WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SaveReportLink(ctx context.Context, l core.ReportLink) error {
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO report_links (user_id, file_id, file_url, range_a1, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   file_id = excluded.file_id,
		   file_url = excluded.file_url,
		   range_a1 = excluded.range_a1,
		   updated_at = excluded.updated_at`,
		l.UserID, l.FileID, l.FileURL, l.Range, formatTimestamp(l.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save report link: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetReportLink(ctx context.Context, userID string) (core.ReportLink, error) {
	var (
		l       core.ReportLink
		updated string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, file_id, file_url, range_a1, updated_at FROM report_links WHERE user_id = ?`, userID).
		Scan(&l.UserID, &l.FileID, &l.FileURL, &l.Range, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ReportLink{}, fmt.Errorf("report link for %s: %w", userID, core.ErrNotFound)
	}
	if err != nil {
		return core.ReportLink{}, fmt.Errorf("get report link: %w", err)
	}
	if l.UpdatedAt, err = parseTimestamp(updated); err != nil {
		return core.ReportLink{}, err
	}
	return l, nil
}

func expectOneRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	return nil
}

func mapWriteError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", core.ErrConflict, err)
	case strings.Contains(msg, "CHECK constraint failed"):
		return fmt.Errorf("%w: %v", core.ErrValidation, err)
	}
	return err
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatOptionalTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
