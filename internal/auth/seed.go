package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// seedPasswordBytes is the number of random bytes for the seed admin password.
const seedPasswordBytes = 16

// DefaultSeedUsername is used when SeedAdmin is given an empty username.
const DefaultSeedUsername = "admin"

// SeedAdmin creates the initial ADMIN account on first boot if no accounts exist.
// The generated password is logged once at WARN and must be changed immediately.
// Returns the generated password (empty string if seeding was skipped).
func SeedAdmin(ctx context.Context, store AccountStore, username string, logger *slog.Logger) (string, error) {
	if username == "" {
		username = DefaultSeedUsername
	}

	count, err := store.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking account count: %w", err)
	}
	if count > 0 {
		logger.Info("accounts exist, skipping admin seed")
		return "", nil
	}

	passwordBytes := make([]byte, seedPasswordBytes)
	if _, err := rand.Read(passwordBytes); err != nil { //nolint:govet // shadow: err re-declared in nested scope
		return "", fmt.Errorf("generating seed password: %w", err)
	}
	password := hex.EncodeToString(passwordBytes)

	hash, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	cred := &Credential{
		Username:     username,
		PasswordHash: hash,
		Active:       true,
	}
	if err := store.CreateAccountWithRole(ctx, cred, RoleAdmin); err != nil {
		return "", fmt.Errorf("creating seed admin: %w", err)
	}

	logger.Warn("seed admin account created",
		"username", username,
		"initial_password", password,
		"action_required", "change this password immediately",
	)

	return password, nil
}
