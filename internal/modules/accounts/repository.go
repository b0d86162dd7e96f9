// Package accounts provides the account registry that order owners must belong to.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aristath/portfoliobot/internal/domain"
	"github.com/rs/zerolog"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,64}$`)

// Account is a registered owner. Credentials are handled elsewhere.
type Account struct {
	CreatedAt time.Time `json:"created_at"`
	Username  string    `json:"username"`
}

// Repository handles account persistence in portfolio.db
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new account repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "accounts").Logger(),
	}
}

// NormalizeUsername trims whitespace; usernames are case-sensitive
func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

// Register creates a new account, rejecting invalid or duplicate usernames
func (r *Repository) Register(ctx context.Context, username string) (*Account, error) {
	username = NormalizeUsername(username)
	if !usernamePattern.MatchString(username) {
		return nil, &domain.ValidationError{
			Field:   "username",
			Message: "must be 3-64 characters of letters, digits, '.', '_' or '-'",
		}
	}

	exists, err := r.Exists(ctx, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &domain.ValidationError{Field: "username", Message: "already taken"}
	}

	now := time.Now().UTC().Truncate(time.Second)
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO users (username, created_at) VALUES (?, ?)",
		username, now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert account: %w", err)
	}

	r.log.Info().Str("username", username).Msg("Account registered")

	return &Account{Username: username, CreatedAt: now}, nil
}

// Get returns an account or a NotFoundError
func (r *Repository) Get(ctx context.Context, username string) (*Account, error) {
	username = NormalizeUsername(username)

	var createdAt int64
	err := r.db.QueryRowContext(ctx,
		"SELECT created_at FROM users WHERE username = ?", username,
	).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Resource: "account", ID: username}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &Account{Username: username, CreatedAt: time.Unix(createdAt, 0).UTC()}, nil
}

// Exists implements domain.AccountDirectory
func (r *Repository) Exists(ctx context.Context, username string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE username = ?", NormalizeUsername(username),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check account: %w", err)
	}
	return count > 0, nil
}

// List returns all accounts ordered by username
func (r *Repository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT username, created_at FROM users ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]Account, 0)
	for rows.Next() {
		var a Account
		var createdAt int64
		if err := rows.Scan(&a.Username, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a.CreatedAt = time.Unix(createdAt, 0).UTC()
		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}
