package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletvault/walletvault/pkg/auth"
	"github.com/walletvault/walletvault/pkg/storage"
	"github.com/walletvault/walletvault/pkg/wallet"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedUser(t *testing.T, store *Store, id, email string) *auth.User {
	t.Helper()
	now := time.Now().UTC()
	user := &auth.User{
		ID: id, Email: email, FirstName: "Ada", LastName: "Lovelace",
		PasswordHash: "hash", CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func seedWallet(t *testing.T, store *Store, id, userID, chain, address string) *wallet.Wallet {
	t.Helper()
	now := time.Now().UTC()
	w := &wallet.Wallet{
		ID: id, UserID: userID, Chain: chain, Address: address,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, store.CreateWallet(context.Background(), w))
	return w
}

func TestStore_Users(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedUser(t, store, "u1", "ada@example.com")

	byEmail, err := store.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)

	byID, err := store.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", byID.Email)

	_, err = store.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_Users_DuplicateEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedUser(t, store, "u1", "ada@example.com")

	now := time.Now().UTC()
	err := store.CreateUser(ctx, &auth.User{
		ID: "u2", Email: "ada@example.com", FirstName: "Other", LastName: "Person",
		PasswordHash: "hash2", CreatedAt: now, UpdatedAt: now,
	})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestStore_Revocations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	revoked, err := store.IsTokenRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, revoked)

	token := auth.RevokedToken{Token: "tok", ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, store.RevokeToken(ctx, token))
	require.NoError(t, store.RevokeToken(ctx, token), "revocation is idempotent")

	revoked, err = store.IsTokenRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestStore_DeleteExpiredTokens(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.RevokeToken(ctx, auth.RevokedToken{Token: "old", ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, store.RevokeToken(ctx, auth.RevokedToken{Token: "live", ExpiresAt: now.Add(time.Hour)}))

	deleted, err := store.DeleteExpiredTokens(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	revoked, err := store.IsTokenRevoked(ctx, "old")
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = store.IsTokenRevoked(ctx, "live")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestStore_Wallets_CRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedUser(t, store, "u1", "ada@example.com")
	seedWallet(t, store, "w1", "u1", "ethereum", "0xabc")

	got, err := store.GetWallet(ctx, "u1", "w1")
	require.NoError(t, err)
	assert.Equal(t, "ethereum", got.Chain)
	assert.Equal(t, "0xabc", got.Address)

	got.Tag = "savings"
	got.UpdatedAt = time.Now().UTC()
	require.NoError(t, store.UpdateWallet(ctx, got))

	got, err = store.GetWallet(ctx, "u1", "w1")
	require.NoError(t, err)
	assert.Equal(t, "savings", got.Tag)

	require.NoError(t, store.DeleteWallet(ctx, "u1", "w1"))
	_, err = store.GetWallet(ctx, "u1", "w1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_Wallets_DuplicateTriple(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedUser(t, store, "u1", "ada@example.com")
	seedWallet(t, store, "w1", "u1", "ethereum", "0xabc")

	now := time.Now().UTC()
	err := store.CreateWallet(ctx, &wallet.Wallet{
		ID: "w2", UserID: "u1", Chain: "ethereum", Address: "0xabc",
		CreatedAt: now, UpdatedAt: now,
	})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	// Same triple under another user is fine.
	seedUser(t, store, "u2", "grace@example.com")
	err = store.CreateWallet(ctx, &wallet.Wallet{
		ID: "w3", UserID: "u2", Chain: "ethereum", Address: "0xabc",
		CreatedAt: now, UpdatedAt: now,
	})
	assert.NoError(t, err)
}

func TestStore_Wallets_OwnerScoping(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedUser(t, store, "u1", "ada@example.com")
	seedUser(t, store, "u2", "grace@example.com")
	seedWallet(t, store, "w1", "u1", "ethereum", "0xabc")

	// Another user cannot see, update, or delete the wallet.
	_, err := store.GetWallet(ctx, "u2", "w1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, store.UpdateWallet(ctx, &wallet.Wallet{
		ID: "w1", UserID: "u2", Chain: "ethereum", Address: "0xdef",
		UpdatedAt: time.Now().UTC(),
	}), storage.ErrNotFound)

	assert.ErrorIs(t, store.DeleteWallet(ctx, "u2", "w1"), storage.ErrNotFound)

	// The owner still has it, untouched.
	got, err := store.GetWallet(ctx, "u1", "w1")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", got.Address)
}

func TestStore_ListWallets(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedUser(t, store, "u1", "ada@example.com")
	seedUser(t, store, "u2", "grace@example.com")

	now := time.Now().UTC()
	require.NoError(t, store.CreateWallet(ctx, &wallet.Wallet{
		ID: "w1", UserID: "u1", Chain: "ethereum", Address: "0xabc",
		CreatedAt: now.Add(-time.Hour), UpdatedAt: now.Add(-time.Hour),
	}))
	require.NoError(t, store.CreateWallet(ctx, &wallet.Wallet{
		ID: "w2", UserID: "u1", Chain: "bitcoin", Address: "bc1q",
		CreatedAt: now, UpdatedAt: now,
	}))
	seedWallet(t, store, "w3", "u2", "solana", "sol1")

	wallets, err := store.ListWallets(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.Equal(t, "w2", wallets[0].ID, "newest first")
	assert.Equal(t, "w1", wallets[1].ID)

	empty, err := store.ListWallets(ctx, "u3")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
