package dineinsdk_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/dinein/pkg/dineinsdk"
	"github.com/aussiebroadwan/dinein/pkg/slogx"
)

func TestConcurrentUnauthorizedSharesOneRefresh(t *testing.T) {
	t.Parallel()

	const n = 8

	var (
		refreshCalls atomic.Int32
		staleArrived atomic.Int32
		freshServed  atomic.Int32
		release      = make(chan struct{})
		newToken     string
	)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["refresh_token"] != "refresh-1" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "bad refresh request"})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"access_token": newToken})
	})
	mux.HandleFunc("GET /restaurants/categories", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer "+newToken {
			freshServed.Add(1)
			writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{{"id": 1, "name": "Thai"}}})
			return
		}

		// Hold every stale request until all of them are in flight.
		if staleArrived.Add(1) == n {
			close(release)
		}
		<-release
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "token expired"})
	})

	client, store := newTestClient(t, mux)
	session, _ := signedIn(t, client, store, "old")
	newToken = mintToken(t, 7, time.Now().Add(time.Hour), "new")

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cats, err := session.ListCategories(t.Context())
			if err == nil && len(cats) != 1 {
				err = errors.New("unexpected category count")
			}
			errs[i] = err
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int32(1), refreshCalls.Load(), "exactly one refresh call")
	require.Equal(t, int32(n), freshServed.Load(), "every request retried with the new token")

	stored, err := store.LoadCredentials(t.Context())
	require.NoError(t, err)
	require.Equal(t, newToken, stored.AccessToken)
	require.Equal(t, "refresh-1", stored.RefreshToken, "refresh token kept when not rotated")
}

func TestRetriedRequestIsNotRefreshedAgain(t *testing.T) {
	t.Parallel()

	var (
		refreshCalls atomic.Int32
		expiredHook  atomic.Int32
		mu           sync.Mutex
		requestIDs   []string
	)

	rotated := mintToken(t, 7, time.Now().Add(time.Hour), "rotated")

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  rotated,
			"refresh_token": "refresh-2",
		})
	})
	mux.HandleFunc("GET /restaurants/categories", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requestIDs = append(requestIDs, r.Header.Get(slogx.RequestIDHeader))
		mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "nope"})
	})

	client, store := newTestClient(t, mux)
	client.OnSessionExpired = func() { expiredHook.Add(1) }
	session, _ := signedIn(t, client, store, "old")

	_, err := session.ListCategories(t.Context())
	require.ErrorIs(t, err, dineinsdk.ErrSessionExpired)

	require.Equal(t, int32(1), refreshCalls.Load())
	require.Len(t, requestIDs, 2, "original request plus one retry")
	require.NotEmpty(t, requestIDs[0])
	require.Equal(t, requestIDs[0], requestIDs[1], "retry keeps the request id")

	// The refresh itself succeeded, so its tokens stay.
	require.Zero(t, expiredHook.Load())
	require.True(t, session.IsAuthenticated())

	stored, err := store.LoadCredentials(t.Context())
	require.NoError(t, err)
	require.Equal(t, rotated, stored.AccessToken)
	require.Equal(t, "refresh-2", stored.RefreshToken)
}

func TestUnauthorizedAfterSettledRefreshReusesCurrentToken(t *testing.T) {
	t.Parallel()

	var (
		refreshCalls atomic.Int32
		fresh        string
		arrived      = make(chan struct{})
		gate         = make(chan struct{})
	)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"access_token": fresh})
	})
	mux.HandleFunc("GET /restaurants/ambiences", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer "+fresh {
			writeJSON(w, http.StatusOK, map[string]any{"data": []any{}})
			return
		}
		writeJSON(w, http.StatusUnauthorized, nil)
	})
	mux.HandleFunc("GET /restaurants/categories", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer "+fresh {
			writeJSON(w, http.StatusOK, map[string]any{"data": []any{}})
			return
		}
		// Answer the stale request only after the other call refreshed.
		close(arrived)
		<-gate
		writeJSON(w, http.StatusUnauthorized, nil)
	})

	client, store := newTestClient(t, mux)
	session, _ := signedIn(t, client, store, "old")
	fresh = mintToken(t, 7, time.Now().Add(time.Hour), "fresh")

	late := make(chan error, 1)
	go func() {
		_, err := session.ListCategories(t.Context())
		late <- err
	}()
	<-arrived

	_, err := session.ListAmbiences(t.Context())
	require.NoError(t, err)
	require.Equal(t, int32(1), refreshCalls.Load())

	close(gate)
	require.NoError(t, <-late)
	require.Equal(t, int32(1), refreshCalls.Load(), "settled refresh is not repeated")
}

func TestConcurrentWaitersShareRefreshFailure(t *testing.T) {
	t.Parallel()

	const n = 6

	var (
		refreshCalls atomic.Int32
		staleArrived atomic.Int32
		release      = make(chan struct{})
	)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "refresh token revoked"})
	})
	mux.HandleFunc("GET /restaurants/categories", func(w http.ResponseWriter, r *http.Request) {
		if staleArrived.Add(1) == n {
			close(release)
		}
		<-release
		writeJSON(w, http.StatusUnauthorized, nil)
	})

	client, store := newTestClient(t, mux)
	session, _ := signedIn(t, client, store, "old")

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = session.ListCategories(t.Context())
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.ErrorIs(t, err, dineinsdk.ErrSessionExpired)
	}
	require.Equal(t, int32(1), refreshCalls.Load())
	require.False(t, session.IsAuthenticated())

	_, err := store.LoadCredentials(t.Context())
	require.ErrorIs(t, err, dineinsdk.ErrNoCredentials)
}

func TestRefreshFailureClearsSession(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "refresh token revoked"})
	})
	mux.HandleFunc("GET /restaurants/categories", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, nil)
	})

	client, store := newTestClient(t, mux)
	session, _ := signedIn(t, client, store, "old")

	_, err := session.ListCategories(t.Context())
	require.ErrorIs(t, err, dineinsdk.ErrSessionExpired)
	require.Zero(t, session.UserID())

	_, err = store.LoadCredentials(t.Context())
	require.ErrorIs(t, err, dineinsdk.ErrNoCredentials)
}

func TestUnauthorizedWithoutRefreshToken(t *testing.T) {
	t.Parallel()

	var refreshCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
	})
	mux.HandleFunc("GET /restaurants/ambiences", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, nil)
	})

	client, _ := newTestClient(t, mux)
	session := client.NewSessionFromCredentials(dineinsdk.Credentials{
		AccessToken: mintToken(t, 7, time.Now().Add(time.Hour), "x"),
	})

	_, err := session.ListAmbiences(t.Context())
	require.ErrorIs(t, err, dineinsdk.ErrSessionExpired)
	require.Zero(t, refreshCalls.Load())
}

func TestExpiredTokenIsRefreshedBeforeSending(t *testing.T) {
	t.Parallel()

	var (
		fresh      string
		staleSeen  atomic.Int32
		refreshHit atomic.Int32
	)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshHit.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"access_token": fresh, "token_type": "bearer"})
	})
	mux.HandleFunc("GET /restaurants/ambiences", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+fresh {
			staleSeen.Add(1)
			writeJSON(w, http.StatusUnauthorized, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{}})
	})

	client, _ := newTestClient(t, mux)
	fresh = mintToken(t, 7, time.Now().Add(time.Hour), "fresh")
	session := client.NewSessionFromCredentials(dineinsdk.Credentials{
		AccessToken:  mintToken(t, 7, time.Now().Add(-time.Minute), "stale"),
		RefreshToken: "refresh-1",
	})

	_, err := session.ListAmbiences(t.Context())
	require.NoError(t, err)
	require.Equal(t, int32(1), refreshHit.Load())
	require.Zero(t, staleSeen.Load(), "stale token should never be sent")
}

func TestIsAuthenticated(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)

	client := dineinsdk.NewClient("http://127.0.0.1:0", nil)
	client.Now = func() time.Time { return now }

	tests := []struct {
		name string
		exp  time.Time
		want bool
	}{
		{"expired", now.Add(-time.Second), false},
		{"exp equals now", now, false},
		{"exp in the future", now.Add(time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := client.NewSessionFromCredentials(dineinsdk.Credentials{
				AccessToken: mintToken(t, 7, tt.exp, "x"),
			})
			require.Equal(t, tt.want, session.IsAuthenticated())
		})
	}

	t.Run("garbage token", func(t *testing.T) {
		session := client.NewSessionFromCredentials(dineinsdk.Credentials{AccessToken: "not-a-jwt"})
		require.False(t, session.IsAuthenticated())
	})
}

func TestAuthorizationHeader(t *testing.T) {
	t.Parallel()

	var got string

	mux := http.NewServeMux()
	mux.HandleFunc("GET /notifications/notifications", func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{}, "meta": map[string]any{"total": 0}})
	})

	client, store := newTestClient(t, mux)
	session, access := signedIn(t, client, store, "hdr")

	_, err := session.ListNotifications(t.Context(), "", 0)
	require.NoError(t, err)
	require.Equal(t, "Bearer "+access, got)
}

func TestLogoutSwallowsServerErrors(t *testing.T) {
	t.Parallel()

	var logoutCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /users/logout", func(w http.ResponseWriter, r *http.Request) {
		logoutCalls.Add(1)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "boom"})
	})

	client, store := newTestClient(t, mux)
	session, _ := signedIn(t, client, store, "bye")

	require.NoError(t, session.Logout(t.Context()))
	require.Equal(t, int32(1), logoutCalls.Load())
	require.False(t, session.IsAuthenticated())

	_, err := store.LoadCredentials(t.Context())
	require.ErrorIs(t, err, dineinsdk.ErrNoCredentials)
}

func TestExplicitRefreshRotatesTokens(t *testing.T) {
	t.Parallel()

	var fresh string

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"access_token": fresh, "refresh_token": "refresh-2"})
	})

	client, store := newTestClient(t, mux)
	session, _ := signedIn(t, client, store, "before")
	fresh = mintToken(t, 7, time.Now().Add(time.Hour), "after")

	require.NoError(t, session.Refresh(t.Context()))

	creds := session.Credentials()
	require.Equal(t, fresh, creds.AccessToken)
	require.Equal(t, "refresh-2", creds.RefreshToken)
	require.Equal(t, int64(7), creds.UserID)

	stored, err := store.LoadCredentials(t.Context())
	require.NoError(t, err)
	require.Equal(t, creds, stored)
}
