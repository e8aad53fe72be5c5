package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// AccountStore is the persistence surface for credentials and principals.
type AccountStore interface {
	AccountLookup
	RoleLookup
	CreatePrincipal(ctx context.Context, role Role) (*Principal, error)
	CreateAccount(ctx context.Context, cred *Credential) error
	CreateAccountWithRole(ctx context.Context, cred *Credential, role Role) error
	List(ctx context.Context) ([]Account, error)
	SetActive(ctx context.Context, username string, active bool) error
	UpdatePassword(ctx context.Context, username, passwordHash string) error
	Count(ctx context.Context) (int, error)
}

// SQLiteAccountRepository implements AccountStore using SQLite.
type SQLiteAccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new SQLite-backed account repository.
func NewAccountRepository(db *sql.DB) *SQLiteAccountRepository {
	return &SQLiteAccountRepository{db: db}
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CreatePrincipal inserts a principal with a generated ID.
func (r *SQLiteAccountRepository) CreatePrincipal(ctx context.Context, role Role) (*Principal, error) {
	return insertPrincipal(ctx, r.db, role)
}

func insertPrincipal(ctx context.Context, db execer, role Role) (*Principal, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	p := &Principal{
		ID:        "prn-" + uuid.NewString(),
		Role:      role,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	_, err := db.ExecContext(ctx,
		"INSERT INTO principals (id, role, created_at) VALUES (?, ?, ?)",
		p.ID, string(p.Role), p.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("creating principal: %w", err)
	}
	return p, nil
}

// CreateAccount inserts a credential. AccountID is generated if empty.
// A duplicate username returns ErrUsernameExists.
func (r *SQLiteAccountRepository) CreateAccount(ctx context.Context, cred *Credential) error {
	return insertAccount(ctx, r.db, cred)
}

func insertAccount(ctx context.Context, db execer, cred *Credential) error {
	if !IsValidUsername(cred.Username) {
		return fmt.Errorf("%w: %q", ErrInvalidUsername, cred.Username)
	}
	if cred.PasswordHash == "" {
		return errors.New("creating account: password hash is required")
	}
	if cred.AccountID == "" {
		cred.AccountID = "acc-" + uuid.NewString()
	}
	cred.CreatedAt = time.Now().UTC().Truncate(time.Second)
	cred.UpdatedAt = cred.CreatedAt
	now := cred.CreatedAt.Format(time.RFC3339)

	_, err := db.ExecContext(ctx,
		`INSERT INTO accounts (id, principal_id, username, password_hash, active, email, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cred.AccountID, nullString(cred.PrincipalID), cred.Username, cred.PasswordHash,
		boolToInt(cred.Active), nullString(cred.Email), now, now,
	)
	if err != nil {
		if isUniqueViolation(err, "accounts.username") {
			return ErrUsernameExists
		}
		return fmt.Errorf("creating account: %w", err)
	}
	return nil
}

// CreateAccountWithRole creates a principal and its account atomically.
func (r *SQLiteAccountRepository) CreateAccountWithRole(ctx context.Context, cred *Credential, role Role) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	p, err := insertPrincipal(ctx, tx, role)
	if err != nil {
		return err
	}
	cred.PrincipalID = p.ID
	if err := insertAccount(ctx, tx, cred); err != nil {
		cred.PrincipalID = ""
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing account: %w", err)
	}
	return nil
}

// FindByUsername retrieves a credential by exact username.
func (r *SQLiteAccountRepository) FindByUsername(ctx context.Context, username string) (*Credential, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, principal_id, username, password_hash, active, email, created_at, updated_at
		 FROM accounts WHERE username = ?`, username)

	var c Credential
	if _, err := scanCredential(row, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// RoleForPrincipal returns the principal's current role.
func (r *SQLiteAccountRepository) RoleForPrincipal(ctx context.Context, principalID string) (Role, error) {
	var role string
	err := r.db.QueryRowContext(ctx, "SELECT role FROM principals WHERE id = ?", principalID).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrPrincipalNotFound
		}
		return "", fmt.Errorf("reading principal role: %w", err)
	}
	return Role(role), nil
}

// List returns all accounts with their principal's role, oldest first.
func (r *SQLiteAccountRepository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.principal_id, a.username, a.password_hash, a.active, a.email, a.created_at, a.updated_at, p.role
		 FROM accounts a LEFT JOIN principals p ON p.id = a.principal_id
		 ORDER BY a.created_at ASC, a.username ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	accounts := []Account{}
	for rows.Next() {
		var a Account
		var role sql.NullString
		if _, err := scanCredential(rows, &a.Credential, &role); err != nil {
			return nil, err
		}
		a.Role = Role(role.String)
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accounts: %w", err)
	}
	return accounts, nil
}

// SetActive enables or disables login for username.
func (r *SQLiteAccountRepository) SetActive(ctx context.Context, username string, active bool) error {
	return r.update(ctx, "UPDATE accounts SET active = ?, updated_at = ? WHERE username = ?",
		boolToInt(active), time.Now().UTC().Format(time.RFC3339), username)
}

// UpdatePassword replaces the stored hash for username.
func (r *SQLiteAccountRepository) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	if passwordHash == "" {
		return errors.New("updating password: hash is required")
	}
	return r.update(ctx, "UPDATE accounts SET password_hash = ?, updated_at = ? WHERE username = ?",
		passwordHash, time.Now().UTC().Format(time.RFC3339), username)
}

func (r *SQLiteAccountRepository) update(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating account: %w", err)
	}
	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// Count returns the number of accounts.
func (r *SQLiteAccountRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting accounts: %w", err)
	}
	return count, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanCredential scans the eight account columns into c, followed by any extra destinations.
func scanCredential(s scanner, c *Credential, extra ...any) (*Credential, error) {
	var principalID, email sql.NullString
	var active int
	var createdAt, updatedAt string

	dest := append([]any{&c.AccountID, &principalID, &c.Username, &c.PasswordHash,
		&active, &email, &createdAt, &updatedAt}, extra...)
	if err := s.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("scanning account: %w", err)
	}

	c.PrincipalID = principalID.String
	c.Email = email.String
	c.Active = active != 0
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled
	return c, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation reports a UNIQUE constraint failure from go-sqlite3 on
// the given table.column.
func isUniqueViolation(err error, column string) bool {
	var se sqlite3.Error
	return errors.As(err, &se) &&
		se.ExtendedCode == sqlite3.ErrConstraintUnique &&
		strings.HasSuffix(se.Error(), column)
}
