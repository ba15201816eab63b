package dineinsdk_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/dinein/pkg/dineinsdk"
	"github.com/aussiebroadwan/dinein/pkg/slogx"
)

// mintToken signs a token carrying user_id, username, exp and a unique jti.
func mintToken(t *testing.T, userID int64, exp time.Time, jti string) string {
	t.Helper()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  userID,
		"username": "ana",
		"exp":      exp.Unix(),
		"jti":      jti,
	})
	signed, err := tok.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return signed
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// newTestClient starts mux on an httptest server and returns a client bound
// to it with an in-memory credential store.
func newTestClient(t *testing.T, mux http.Handler) (*dineinsdk.Client, *dineinsdk.MemoryCredentialStore) {
	t.Helper()

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	store := dineinsdk.NewMemoryCredentialStore()
	client := dineinsdk.NewClient(srv.URL+"/", store)
	client.Logger = slogx.Discard()
	return client, store
}

// signedIn returns a session holding an access token valid for an hour.
func signedIn(t *testing.T, client *dineinsdk.Client, store *dineinsdk.MemoryCredentialStore, jti string) (*dineinsdk.Session, string) {
	t.Helper()

	access := mintToken(t, 7, time.Now().Add(time.Hour), jti)
	creds := dineinsdk.Credentials{
		AccessToken:  access,
		RefreshToken: "refresh-1",
		TokenType:    "bearer",
		UserID:       7,
		Username:     "ana",
	}
	require.NoError(t, store.SaveCredentials(t.Context(), creds))
	return client.NewSessionFromCredentials(creds), access
}
