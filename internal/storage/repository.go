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

	"kakeibo/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists users, items and sessions.
//
// Every item operation that takes an owner is scoped: the WHERE clause
// matches id AND user_id in a single statement, so "not yours" and
// "does not exist" are indistinguishable by construction.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ---- users ----

// CreateUser inserts a new account. A unique-constraint hit on email maps
// to core.ErrDuplicateAccount; emails are compared exactly as stored.
func (r *SQLiteRepository) CreateUser(ctx context.Context, email, passwordHash string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (email, password_hash) VALUES (?, ?)",
		email, passwordHash,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, core.ErrDuplicateAccount
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "User created", "user_id", id)
	return id, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, created_at FROM users WHERE email = ?",
		email,
	)

	var u core.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (*core.User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, created_at FROM users WHERE id = ?",
		id,
	)

	var u core.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &u, nil
}

// ---- items ----

// CreateItem inserts an item owned by userID. in.CreatedAt must already be
// resolved by the caller (the service defaults it to now).
func (r *SQLiteRepository) CreateItem(ctx context.Context, userID int64, in core.ItemInput) (core.Item, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO items (user_id, event, amount, kind, memo, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, in.Event, in.Amount, string(in.Kind), nullableString(in.Memo), in.CreatedAt.UTC(),
	)
	if err != nil {
		return core.Item{}, fmt.Errorf("insert item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Item{}, fmt.Errorf("last insert id: %w", err)
	}

	return r.GetItem(ctx, userID, id)
}

// GetItem is a scoped read: it matches id AND owner.
func (r *SQLiteRepository) GetItem(ctx context.Context, userID, id int64) (core.Item, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, event, amount, kind, memo, created_at
		 FROM items WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	return scanItem(row)
}

// GetItemByID reads an item regardless of owner. Reserved for the export
// worker, which acts on ids it received over the queue, never on caller input.
func (r *SQLiteRepository) GetItemByID(ctx context.Context, id int64) (core.Item, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, event, amount, kind, memo, created_at
		 FROM items WHERE id = ?`,
		id,
	)
	return scanItem(row)
}

// UpdateItem performs the conditional mutate-if-match: one UPDATE matching
// both id and owner. Zero rows affected means core.ErrNotFound, whether the
// id is missing or belongs to someone else.
func (r *SQLiteRepository) UpdateItem(ctx context.Context, userID, id int64, in core.ItemInput) (core.Item, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE items
		 SET event = ?, amount = ?, kind = ?, memo = ?, created_at = ?,
		     version = version + 1, synced = 0, sync_error = 0
		 WHERE id = ? AND user_id = ?`,
		in.Event, in.Amount, string(in.Kind), nullableString(in.Memo), in.CreatedAt.UTC(),
		id, userID,
	)
	if err != nil {
		return core.Item{}, fmt.Errorf("update item: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return core.Item{}, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.Item{}, core.ErrNotFound
	}

	return r.GetItem(ctx, userID, id)
}

// DeleteItem is the scoped delete counterpart of UpdateItem.
func (r *SQLiteRepository) DeleteItem(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM items WHERE id = ? AND user_id = ?",
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ListItems returns the owner's items matching the filter, newest first.
// Ties on created_at keep insertion order.
func (r *SQLiteRepository) ListItems(ctx context.Context, userID int64, f core.Filter) ([]core.Item, error) {
	query := `SELECT id, user_id, event, amount, kind, memo, created_at
	          FROM items WHERE user_id = ?`
	args := []any{userID}

	if f.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(f.Kind))
	}
	if !f.StartDate.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, f.StartDate.UTC())
	}
	if !f.EndDate.IsZero() {
		query += " AND created_at <= ?"
		args = append(args, core.EndOfDay(f.EndDate).UTC())
	}

	query += " ORDER BY created_at DESC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := []core.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// Summary aggregates income and expense totals under the same date window
// as ListItems. Empty windows yield zeros.
func (r *SQLiteRepository) Summary(ctx context.Context, userID int64, f core.Filter) (core.Summary, error) {
	query := `SELECT
	            COALESCE(SUM(CASE WHEN kind = 'Income' THEN amount ELSE 0 END), 0),
	            COALESCE(SUM(CASE WHEN kind = 'Expense' THEN amount ELSE 0 END), 0)
	          FROM items WHERE user_id = ?`
	args := []any{userID}

	if !f.StartDate.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, f.StartDate.UTC())
	}
	if !f.EndDate.IsZero() {
		query += " AND created_at <= ?"
		args = append(args, core.EndOfDay(f.EndDate).UTC())
	}

	var s core.Summary
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&s.TotalIncome, &s.TotalExpense); err != nil {
		return core.Summary{}, fmt.Errorf("summary: %w", err)
	}
	s.Balance = s.TotalIncome - s.TotalExpense
	return s, nil
}

// ---- export tracking ----

// PendingExportItem is the minimal handle the export worker needs.
type PendingExportItem struct {
	ID      int64
	Version int64
}

// GetPendingExportItems lists items not yet appended to the export target.
func (r *SQLiteRepository) GetPendingExportItems(ctx context.Context, limit int) ([]PendingExportItem, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, version FROM items WHERE synced = 0 ORDER BY id ASC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("get pending export items: %w", err)
	}
	defer rows.Close()

	var pending []PendingExportItem
	for rows.Next() {
		var p PendingExportItem
		if err := rows.Scan(&p.ID, &p.Version); err != nil {
			return nil, fmt.Errorf("scan pending export item: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

func (r *SQLiteRepository) MarkExported(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE items SET synced = 1, sync_error = 0 WHERE id = ?", id,
	); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkExportError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE items SET sync_error = 1 WHERE id = ?", id,
	); err != nil {
		return fmt.Errorf("mark export error: %w", err)
	}
	return nil
}

// ---- sessions (sqlite session backend) ----

func (r *SQLiteRepository) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	if _, err := r.db.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, expiresAt.UTC(),
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession resolves a token to its user if the session has not expired.
// Expiry is not extended on read.
func (r *SQLiteRepository) GetSession(ctx context.Context, token string) (int64, bool, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT user_id FROM sessions WHERE token = ? AND expires_at > ?",
		token, time.Now().UTC(),
	)

	var userID int64
	if err := row.Scan(&userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get session: %w", err)
	}
	return userID, true, nil
}

// DeleteSession is idempotent; deleting an absent token is not an error.
func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE token = ?", token,
	); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions drops every session past its expiry.
func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at <= ?", time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// ---- helpers ----

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (core.Item, error) {
	var (
		item core.Item
		kind string
		memo sql.NullString
	)
	if err := row.Scan(&item.ID, &item.UserID, &item.Event, &item.Amount, &kind, &memo, &item.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Item{}, core.ErrNotFound
		}
		return core.Item{}, fmt.Errorf("scan item: %w", err)
	}
	item.Kind = core.Kind(kind)
	item.Memo = memo.String
	return item, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
