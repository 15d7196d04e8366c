package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletvault/walletvault/pkg/auth"
)

func TestRegister(t *testing.T) {
	server := newTestServer(t)

	rec, env := doJSON(t, server, http.MethodPost, "/api/auth/register", "", map[string]string{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     "ada@example.com",
		"password":  "correct-horse",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "User registered successfully", env.Message)
	assert.Equal(t, http.StatusCreated, env.StatusCode)
	assert.Equal(t, "/api/auth/register", env.Path)

	_, err := time.Parse(time.RFC3339, env.Timestamp)
	assert.NoError(t, err, "timestamp is RFC 3339")

	var result auth.UserToken
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.NotEmpty(t, result.Token)
	assert.NotEmpty(t, result.User.ID)
	assert.Equal(t, "ada@example.com", result.User.Email)

	// The password hash never appears in the response.
	assert.NotContains(t, rec.Body.String(), "passwordHash")
	assert.NotContains(t, rec.Body.String(), "correct-horse")
}

func TestRegister_Validation(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name    string
		body    map[string]string
		message string
	}{
		{"missing first name", map[string]string{"lastName": "L", "email": "a@b.co", "password": "x"}, "First name is required"},
		{"missing last name", map[string]string{"firstName": "A", "email": "a@b.co", "password": "x"}, "Last name is required"},
		{"missing email", map[string]string{"firstName": "A", "lastName": "L", "password": "x"}, "Email is required"},
		{"invalid email", map[string]string{"firstName": "A", "lastName": "L", "email": "nope", "password": "x"}, "Email is invalid"},
		{"missing password", map[string]string{"firstName": "A", "lastName": "L", "email": "a@b.co"}, "Password is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := doJSON(t, server, http.MethodPost, "/api/auth/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.message, env.Message)
			assert.Equal(t, "null", string(env.Data))
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	server := newTestServer(t)
	registerUser(t, server, "ada@example.com")

	rec, env := doJSON(t, server, http.MethodPost, "/api/auth/register", "", map[string]string{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     "ada@example.com",
		"password":  "correct-horse",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already exists", env.Message)
}

func TestLogin(t *testing.T) {
	server := newTestServer(t)
	_, userID := registerUser(t, server, "ada@example.com")

	rec, env := doJSON(t, server, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "ada@example.com",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User logged in successfully", env.Message)

	var result auth.UserToken
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, userID, result.User.ID)
	assert.NotEmpty(t, result.Token)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	server := newTestServer(t)
	registerUser(t, server, "ada@example.com")

	// Unknown email and wrong password are indistinguishable.
	bodies := []map[string]string{
		{"email": "nobody@example.com", "password": "correct-horse"},
		{"email": "ada@example.com", "password": "wrong"},
	}
	for _, body := range bodies {
		rec, env := doJSON(t, server, http.MethodPost, "/api/auth/login", "", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid credentials", env.Message)
	}
}

func TestLogout(t *testing.T) {
	server := newTestServer(t)
	token, _ := registerUser(t, server, "ada@example.com")

	rec, env := doJSON(t, server, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User logged out successfully", env.Message)

	// The token is revoked now, so a second logout is rejected at the gate.
	rec, env = doJSON(t, server, http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token has been revoked", env.Message)
}

func TestLogout_MissingToken(t *testing.T) {
	server := newTestServer(t)

	rec, env := doJSON(t, server, http.MethodPost, "/api/auth/logout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authorization header is missing", env.Message)
}

func TestLogout_MalformedToken(t *testing.T) {
	server := newTestServer(t)

	rec, env := doJSON(t, server, http.MethodPost, "/api/auth/logout", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", env.Message)
}

func TestAuthFlow_LogoutRevokesToken(t *testing.T) {
	server := newTestServer(t)
	token, _ := registerUser(t, server, "ada@example.com")

	// The token works before logout.
	rec, _ := doJSON(t, server, http.MethodGet, "/api/wallet", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, server, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// And is rejected as revoked afterwards.
	rec, _ = doJSON(t, server, http.MethodGet, "/api/wallet", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Token has been revoked", body["message"])

	// A fresh login issues a new, working token.
	rec, env := doJSON(t, server, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "ada@example.com",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var result auth.UserToken
	require.NoError(t, json.Unmarshal(env.Data, &result))

	rec, _ = doJSON(t, server, http.MethodGet, "/api/wallet", result.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
