package auth

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/edugate-core/internal/infrastructure/database"
	_ "github.com/nerrad567/edugate-core/migrations"
)

// testSecret is long enough for NewTokenCodec.
const testSecret = "test-secret-that-is-at-least-32-bytes-long"

// testDB opens a migrated SQLite database in a temp dir.
// The database is closed when the test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Path:        filepath.Join(t.TempDir(), "auth-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	return db.DB
}

// seedAccount inserts an account with the given role and password.
// An empty role creates an account with no principal.
func seedAccount(t *testing.T, repo *SQLiteAccountRepository, username, password string, role Role, active bool) *Credential {
	t.Helper()

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	cred := &Credential{
		Username:     username,
		PasswordHash: hash,
		Active:       active,
		Email:        username + "@school.test",
	}

	ctx := context.Background()
	if role == "" {
		err = repo.CreateAccount(ctx, cred)
	} else {
		err = repo.CreateAccountWithRole(ctx, cred, role)
	}
	if err != nil {
		t.Fatalf("seeding account %q: %v", username, err)
	}
	return cred
}

// testCodec builds a codec over repo with a fixed clock.
func testCodec(t *testing.T, roles RoleLookup, now func() time.Time) *TokenCodec {
	t.Helper()

	codec, err := NewTokenCodec(TokenConfig{Secret: testSecret, Now: now}, roles)
	if err != nil {
		t.Fatalf("NewTokenCodec() error = %v", err)
	}
	return codec
}

// staticRoles is an in-memory RoleLookup.
type staticRoles map[string]Role

func (s staticRoles) RoleForPrincipal(_ context.Context, principalID string) (Role, error) {
	r, ok := s[principalID]
	if !ok {
		return "", ErrPrincipalNotFound
	}
	return r, nil
}

// failingRoles is a RoleLookup whose backend is down.
type failingRoles struct{ err error }

func (f failingRoles) RoleForPrincipal(context.Context, string) (Role, error) {
	return "", f.err
}

// fixedClock returns a clock stuck at t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
