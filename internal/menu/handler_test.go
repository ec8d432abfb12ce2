package menu

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmarinho/campus-eats/internal/auth"
	"github.com/dmarinho/campus-eats/internal/domain"
)

// Write paths are admin-gated before any storage access, so these run with no
// repository behind the handler. Storage behavior is covered by the
// integration suite.
func TestWriteOpsRequireAdmin(t *testing.T) {
	handler := NewHandler(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ops := []struct {
		name string
		call func(w http.ResponseWriter, r *http.Request)
	}{
		{"create", handler.HandleCreate},
		{"update", handler.HandleUpdate},
		{"delete", handler.HandleDelete},
	}

	for _, op := range ops {
		t.Run(op.name+" without identity is 401", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/menu", strings.NewReader(`{}`))
			rec := httptest.NewRecorder()
			op.call(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})

		for _, role := range []domain.Role{domain.RoleStudent, domain.RoleStaff} {
			t.Run(op.name+" as "+string(role)+" is 403", func(t *testing.T) {
				req := httptest.NewRequest(http.MethodPost, "/menu", strings.NewReader(`{}`))
				req = req.WithContext(auth.WithIdentity(req.Context(), &domain.Identity{
					UserID: "u1",
					Role:   role,
				}))
				rec := httptest.NewRecorder()
				op.call(rec, req)

				if rec.Code != http.StatusForbidden {
					t.Errorf("expected 403, got %d", rec.Code)
				}
			})
		}
	}
}

func TestItemRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  itemRequest
		want string
	}{
		{"valid", itemRequest{Name: "Fries", Price: 299}, ""},
		{"free item is fine", itemRequest{Name: "Water", Price: 0}, ""},
		{"missing name", itemRequest{Price: 299}, "name is required"},
		{"negative price", itemRequest{Name: "Fries", Price: -1}, "price must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.validate(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
