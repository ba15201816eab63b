package slogx_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/dinein/pkg/idx"
	"github.com/aussiebroadwan/dinein/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestTransportStampsRequestID(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(slogx.RequestIDHeader)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{Service: "test", Level: "debug", Format: "json", Output: &buf})

	client := &http.Client{Transport: slogx.NewTransport(nil, logger)}
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/restaurants/locations", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret-token")

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	_, err = idx.Parse(seen)
	require.NoError(t, err, "request id should be a ULID")
	require.Empty(t, req.Header.Get(slogx.RequestIDHeader), "caller's request must not be mutated")

	out := buf.String()
	require.Contains(t, out, `"path":"/restaurants/locations"`)
	require.Contains(t, out, `"status":204`)
	require.NotContains(t, out, "secret-token")
}

func TestTransportKeepsCallerRequestID(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(slogx.RequestIDHeader)
	}))
	defer srv.Close()

	client := &http.Client{Transport: slogx.NewTransport(nil, slogx.Discard())}
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set(slogx.RequestIDHeader, "caller-id")

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, "caller-id", seen)
}

func TestTransportUsesContextLogger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := slogx.WithContext(t.Context(), logger.With("command", "slots"))

	client := &http.Client{Transport: slogx.NewTransport(nil, nil)}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/x", nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Contains(t, buf.String(), `"command":"slots"`)
	require.Same(t, slog.Default(), slogx.FromContext(t.Context()))
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, "DEBUG", slogx.ParseLevel("debug").String())
	require.Equal(t, "WARN", slogx.ParseLevel("Warning").String())
	require.Equal(t, "ERROR", slogx.ParseLevel("error").String())
	require.Equal(t, "INFO", slogx.ParseLevel(strings.ToUpper("nonsense")).String())
}

func TestTransportDatesCallerULID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	tests := []struct {
		name  string
		reqID string
		aged  bool
	}{
		{"ulid", idx.NewAt(time.Now().Add(-2 * time.Second)).String(), true},
		{"opaque", "caller-id", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			client := &http.Client{Transport: slogx.NewTransport(nil, logger)}
			req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
			require.NoError(t, err)
			req.Header.Set(slogx.RequestIDHeader, tt.reqID)

			resp, err := client.Do(req)
			require.NoError(t, err)
			resp.Body.Close()

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			age, ok := entry["since_first_ms"].(float64)
			require.Equal(t, tt.aged, ok)
			if tt.aged {
				require.GreaterOrEqual(t, age, float64(1900))
			}
		})
	}
}
