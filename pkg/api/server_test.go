package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/walletvault/walletvault/pkg/auth"
	"github.com/walletvault/walletvault/pkg/storage/sqlite"
)

// envelope mirrors httputil.Envelope with a raw data field for per-test
// decoding.
type envelope struct {
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	StatusCode int             `json:"statusCode"`
	Timestamp  string          `json:"timestamp"`
	Path       string          `json:"path"`
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := auth.NewService(
		store,
		store,
		auth.NewBcryptHasher(auth.WithCost(bcrypt.MinCost)),
		auth.NewIssuer("test-secret", time.Hour),
	)
	return NewServer(svc, store)
}

func doJSON(t *testing.T, server *Server, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	var env envelope
	// The auth gate writes bare bodies, not envelopes; leave env zeroed
	// when decoding fails and let the test inspect rec.Body directly.
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func registerUser(t *testing.T, server *Server, email string) (token string, userID string) {
	t.Helper()
	rec, env := doJSON(t, server, http.MethodPost, "/api/auth/register", "", map[string]string{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     email,
		"password":  "correct-horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var result auth.UserToken
	require.NoError(t, json.Unmarshal(env.Data, &result))
	return result.Token, result.User.ID
}
