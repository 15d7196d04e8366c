package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletvault/walletvault/pkg/wallet"
)

func createWallet(t *testing.T, server *Server, token, chain, address string) *wallet.Wallet {
	t.Helper()
	rec, env := doJSON(t, server, http.MethodPost, "/api/wallet", token, map[string]string{
		"tag":     "main",
		"chain":   chain,
		"address": address,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var w wallet.Wallet
	require.NoError(t, json.Unmarshal(env.Data, &w))
	return &w
}

func TestWalletCreate(t *testing.T) {
	server := newTestServer(t)
	token, _ := registerUser(t, server, "ada@example.com")

	rec, env := doJSON(t, server, http.MethodPost, "/api/wallet", token, map[string]string{
		"tag":     "savings",
		"chain":   "ethereum",
		"address": "0xabc",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Wallet created successfully", env.Message)

	var w wallet.Wallet
	require.NoError(t, json.Unmarshal(env.Data, &w))
	assert.NotEmpty(t, w.ID)
	assert.Equal(t, "savings", w.Tag)
	assert.Equal(t, "ethereum", w.Chain)
	assert.Equal(t, "0xabc", w.Address)
}

func TestWalletCreate_Validation(t *testing.T) {
	server := newTestServer(t)
	token, _ := registerUser(t, server, "ada@example.com")

	rec, env := doJSON(t, server, http.MethodPost, "/api/wallet", token, map[string]string{
		"address": "0xabc",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Chain is required", env.Message)

	rec, env = doJSON(t, server, http.MethodPost, "/api/wallet", token, map[string]string{
		"chain": "ethereum",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Address is required", env.Message)

	// The tag is optional.
	rec, _ = doJSON(t, server, http.MethodPost, "/api/wallet", token, map[string]string{
		"chain":   "ethereum",
		"address": "0xabc",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestWalletCreate_Duplicate(t *testing.T) {
	server := newTestServer(t)
	token, _ := registerUser(t, server, "ada@example.com")
	createWallet(t, server, token, "ethereum", "0xabc")

	rec, env := doJSON(t, server, http.MethodPost, "/api/wallet", token, map[string]string{
		"chain":   "ethereum",
		"address": "0xabc",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Wallet already exists", env.Message)
}

func TestWalletList(t *testing.T) {
	server := newTestServer(t)
	token, _ := registerUser(t, server, "ada@example.com")

	rec, env := doJSON(t, server, http.MethodGet, "/api/wallet", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Wallets fetched successfully", env.Message)
	assert.Equal(t, "[]", string(env.Data), "empty list, not null")

	createWallet(t, server, token, "ethereum", "0xabc")
	createWallet(t, server, token, "bitcoin", "bc1q")

	rec, env = doJSON(t, server, http.MethodGet, "/api/wallet", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var wallets []wallet.Wallet
	require.NoError(t, json.Unmarshal(env.Data, &wallets))
	assert.Len(t, wallets, 2)
}

func TestWalletGet(t *testing.T) {
	server := newTestServer(t)
	token, _ := registerUser(t, server, "ada@example.com")
	created := createWallet(t, server, token, "ethereum", "0xabc")

	rec, env := doJSON(t, server, http.MethodGet, "/api/wallet/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Wallet fetched successfully", env.Message)

	var w wallet.Wallet
	require.NoError(t, json.Unmarshal(env.Data, &w))
	assert.Equal(t, created.ID, w.ID)
}

func TestWalletGet_NotFound(t *testing.T) {
	server := newTestServer(t)
	token, _ := registerUser(t, server, "ada@example.com")

	rec, env := doJSON(t, server, http.MethodGet, "/api/wallet/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Wallet not found", env.Message)
}

func TestWalletUpdate(t *testing.T) {
	server := newTestServer(t)
	token, _ := registerUser(t, server, "ada@example.com")
	created := createWallet(t, server, token, "ethereum", "0xabc")

	rec, env := doJSON(t, server, http.MethodPut, "/api/wallet/"+created.ID, token, map[string]string{
		"tag": "cold storage",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Wallet updated successfully", env.Message)

	var w wallet.Wallet
	require.NoError(t, json.Unmarshal(env.Data, &w))
	assert.Equal(t, "cold storage", w.Tag)
	assert.Equal(t, "ethereum", w.Chain, "unset fields are untouched")
	assert.Equal(t, "0xabc", w.Address)
}

func TestWalletUpdate_NoFields(t *testing.T) {
	server := newTestServer(t)
	token, _ := registerUser(t, server, "ada@example.com")
	created := createWallet(t, server, token, "ethereum", "0xabc")

	rec, env := doJSON(t, server, http.MethodPut, "/api/wallet/"+created.ID, token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "At least one field (tag, chain, or address) is required to update", env.Message)
}

func TestWalletUpdate_NotFound(t *testing.T) {
	server := newTestServer(t)
	token, _ := registerUser(t, server, "ada@example.com")

	rec, env := doJSON(t, server, http.MethodPut, "/api/wallet/missing", token, map[string]string{
		"tag": "anything",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Wallet not found", env.Message)
}

func TestWalletDelete(t *testing.T) {
	server := newTestServer(t)
	token, _ := registerUser(t, server, "ada@example.com")
	created := createWallet(t, server, token, "ethereum", "0xabc")

	rec, env := doJSON(t, server, http.MethodDelete, "/api/wallet/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Wallet deleted successfully", env.Message)
	assert.Equal(t, "true", string(env.Data))

	rec, env = doJSON(t, server, http.MethodDelete, "/api/wallet/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Wallet not found", env.Message)
}

func TestWallet_UserScoping(t *testing.T) {
	server := newTestServer(t)
	adaToken, _ := registerUser(t, server, "ada@example.com")
	graceToken, _ := registerUser(t, server, "grace@example.com")
	created := createWallet(t, server, adaToken, "ethereum", "0xabc")

	// Another user cannot see, update, or delete the wallet, and the
	// responses are indistinguishable from a nonexistent wallet.
	rec, env := doJSON(t, server, http.MethodGet, "/api/wallet/"+created.ID, graceToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Wallet not found", env.Message)

	rec, env = doJSON(t, server, http.MethodPut, "/api/wallet/"+created.ID, graceToken, map[string]string{"tag": "stolen"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Wallet not found", env.Message)

	rec, env = doJSON(t, server, http.MethodDelete, "/api/wallet/"+created.ID, graceToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Wallet not found", env.Message)

	// The other user's list does not include it either.
	rec, env = doJSON(t, server, http.MethodGet, "/api/wallet", graceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", string(env.Data))

	// The owner still has it.
	rec, _ = doJSON(t, server, http.MethodGet, "/api/wallet/"+created.ID, adaToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWallet_RequiresAuth(t *testing.T) {
	server := newTestServer(t)

	rec, _ := doJSON(t, server, http.MethodGet, "/api/wallet", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Authorization header is missing", body["message"])
}
