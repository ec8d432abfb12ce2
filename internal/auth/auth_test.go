package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmarinho/campus-eats/internal/domain"
)

func TestGateResolve(t *testing.T) {
	gate := NewGate("test-secret")
	identity := domain.Identity{UserID: "u1", Name: "Alice", Role: domain.RoleStudent}

	t.Run("round trips a signed token", func(t *testing.T) {
		token, err := gate.Sign(identity, time.Hour)
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		got, err := gate.Resolve(req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.UserID != "u1" || got.Name != "Alice" || got.Role != domain.RoleStudent {
			t.Errorf("unexpected identity: %+v", got)
		}
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)

		if _, err := gate.Resolve(req); err != domain.ErrUnauthorized {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set("Authorization", "Bearer not.a.token")

		if _, err := gate.Resolve(req); err != domain.ErrUnauthorized {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewGate("other-secret")
		token, err := other.Sign(identity, time.Hour)
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		if _, err := gate.Resolve(req); err != domain.ErrUnauthorized {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := gate.Sign(identity, -time.Minute)
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		if _, err := gate.Resolve(req); err != domain.ErrUnauthorized {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("unknown role", func(t *testing.T) {
		token, err := gate.Sign(domain.Identity{UserID: "u1", Role: "superuser"}, time.Hour)
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		if _, err := gate.Resolve(req); err != domain.ErrUnauthorized {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestGateMiddleware(t *testing.T) {
	gate := NewGate("test-secret")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := FromContext(r.Context())
		if identity == nil {
			t.Error("expected identity in context")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid token passes through with identity", func(t *testing.T) {
		token, err := gate.Sign(domain.Identity{UserID: "u1", Role: domain.RoleStaff}, time.Hour)
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		gate.Middleware(next).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("missing token is rejected before the handler", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		rec := httptest.NewRecorder()

		gate.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not run")
		})).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})
}
