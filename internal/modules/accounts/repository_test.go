package accounts

import (
	"context"
	"errors"
	"testing"

	"github.com/aristath/portfoliobot/internal/domain"
	testingpkg "github.com/aristath/portfoliobot/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) *Repository {
	t.Helper()
	db, cleanup := testingpkg.NewTestDB(t, "portfolio")
	t.Cleanup(cleanup)
	return NewRepository(db.Conn(), zerolog.Nop())
}

func TestRegister(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	account, err := repo.Register(ctx, "  alice ")
	require.NoError(t, err)
	assert.Equal(t, "alice", account.Username)
	assert.False(t, account.CreatedAt.IsZero())

	exists, err := repo.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRegister_Rejects(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	_, err := repo.Register(ctx, "alice")
	require.NoError(t, err)

	testCases := []struct {
		name     string
		username string
	}{
		{"duplicate", "alice"},
		{"too short", "al"},
		{"spaces", "al ice"},
		{"empty", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := repo.Register(ctx, tc.username)
			require.Error(t, err)
			assert.True(t, domain.IsValidationError(err))
		})
	}
}

func TestGet(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	_, err := repo.Get(ctx, "nobody")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = repo.Register(ctx, "bob")
	require.NoError(t, err)

	account, err := repo.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", account.Username)
}

func TestList(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	for _, name := range []string{"carol", "alice", "bob"} {
		_, err := repo.Register(ctx, name)
		require.NoError(t, err)
	}

	accounts, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	assert.Equal(t, "alice", accounts[0].Username)
	assert.Equal(t, "carol", accounts[2].Username)
}
