package bot

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/joinkeeper/internal/metrics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMux_Healthz(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		health     func(ctx context.Context) error
		wantCode   int
		wantStatus string
	}{
		{"healthy", func(ctx context.Context) error { return nil }, http.StatusOK, "ok"},
		{"database down", func(ctx context.Context) error { return errors.New("disk I/O error") }, http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mux := NewMux(MuxOptions{Logger: discardLogger(), Mode: "production", Health: tt.health})
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			var body healthResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, "production", body.Mode)
		})
	}
}

func TestMux_Webhook(t *testing.T) {
	t.Parallel()

	called := false
	webhook := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	mux := NewMux(MuxOptions{Logger: discardLogger(), WebhookPath: "/webhook", Webhook: webhook})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"update_id":1}`)))
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "joinkeeper is running", rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMux_Metrics(t *testing.T) {
	t.Parallel()

	m := metrics.NewLocal()
	m.JoinRequests.Inc()
	mux := NewMux(MuxOptions{Logger: discardLogger(), Metrics: m.Handler()})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "joinkeeper_join_requests_total 1")
}
