package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleAPIForwards(t *testing.T) {
	var got *http.Request
	var gotBody string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(r.Context())
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	handler := NewHandler(
		NewServiceProxy("api", upstream.URL, upstream.Client()),
		nil,
		silentLogger(),
	)

	req := httptest.NewRequest(http.MethodPost, "/api/orders?limit=5", strings.NewReader(`{"items":[]}`))
	req.Header.Set("Authorization", "Bearer tok")
	req.Header.Set("X-Session-ID", "s1")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Internal-Debug", "1")
	rec := httptest.NewRecorder()

	handler.HandleAPI(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if got.URL.Path != "/orders" {
		t.Errorf("expected /api prefix stripped, got %s", got.URL.Path)
	}
	if got.URL.RawQuery != "limit=5" {
		t.Errorf("expected query string preserved, got %q", got.URL.RawQuery)
	}
	if got.Header.Get("Authorization") != "Bearer tok" || got.Header.Get("X-Session-ID") != "s1" {
		t.Errorf("expected auth headers forwarded, got %v", got.Header)
	}
	if got.Header.Get("X-Internal-Debug") != "" {
		t.Error("unexpected header crossed the gateway")
	}
	if gotBody != `{"items":[]}` {
		t.Errorf("expected body forwarded, got %q", gotBody)
	}

	var resp map[string]bool
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp["ok"] {
		t.Error("expected upstream body passed through")
	}
}

func TestHandleBoardForwards(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/board" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	handler := NewHandler(
		nil,
		NewServiceProxy("board", upstream.URL, upstream.Client()),
		silentLogger(),
	)

	rec := httptest.NewRecorder()
	handler.HandleBoard(rec, httptest.NewRequest(http.MethodGet, "/board", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestDeadUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close()

	handler := NewHandler(
		NewServiceProxy("api", upstream.URL, http.DefaultClient),
		nil,
		silentLogger(),
	)

	t.Run("connection errors are 502", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.HandleAPI(rec, httptest.NewRequest(http.MethodGet, "/api/menu", nil))

		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", rec.Code)
		}
	})

	t.Run("breaker opens after repeated failures", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			rec := httptest.NewRecorder()
			handler.HandleAPI(rec, httptest.NewRequest(http.MethodGet, "/api/menu", nil))
		}

		rec := httptest.NewRecorder()
		handler.HandleAPI(rec, httptest.NewRequest(http.MethodGet, "/api/menu", nil))

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503 with open breaker, got %d", rec.Code)
		}
	})
}
