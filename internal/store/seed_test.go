package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"memberdesk/internal/domain"
)

func TestSeedFreshStore(t *testing.T) {
	s := NewMemory()
	require.NoError(t, Seed(context.Background(), s, "letmein"))

	all, err := s.Bootstrap(context.Background())
	require.NoError(t, err)
	for _, name := range domain.AllCollections() {
		require.Contains(t, all, name)
		if name == domain.Accounts {
			continue
		}
		require.Empty(t, all[name], "collection %s should seed empty", name)
	}

	accounts, err := domain.DecodeRecords[domain.Account](all[domain.Accounts])
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	require.Equal(t, "admin", accounts[0].Username)
	require.Equal(t, "admin", accounts[0].Role)
	require.NotEqual(t, "letmein", accounts[0].PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(accounts[0].PasswordHash), []byte("letmein")))
}

func TestSeedIsIdempotent(t *testing.T) {
	s := NewMemory()
	require.NoError(t, Seed(context.Background(), s, "letmein"))
	require.NoError(t, Seed(context.Background(), s, "other-password"))

	raw, err := s.Get(context.Background(), domain.Accounts)
	require.NoError(t, err)
	accounts, err := domain.DecodeRecords[domain.Account](raw)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	// First seed wins; a later password change goes through the UI, not
	// the seeder.
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(accounts[0].PasswordHash), []byte("letmein")))
}

func TestSeedLeavesExistingDataAlone(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Put(context.Background(), domain.Members, rawRecords(`{"id":"m1"}`)))
	require.NoError(t, Seed(context.Background(), s, "letmein"))

	members, err := s.Get(context.Background(), domain.Members)
	require.NoError(t, err)
	require.Len(t, members, 1)
}
