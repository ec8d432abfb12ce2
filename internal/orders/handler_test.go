package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmarinho/campus-eats/internal/auth"
	"github.com/dmarinho/campus-eats/internal/domain"
	"github.com/dmarinho/campus-eats/internal/handoff"
)

type fakeSlots struct {
	snapshots map[string]*handoff.Snapshot
}

func (f *fakeSlots) Take(ctx context.Context, token string) (*handoff.Snapshot, error) {
	snapshot, ok := f.snapshots[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	// One-shot: the slot is gone whatever happens next.
	delete(f.snapshots, token)
	return snapshot, nil
}

type fakeCartClearer struct {
	cleared []string
}

func (f *fakeCartClearer) Clear(ctx context.Context, sessionID string) error {
	f.cleared = append(f.cleared, sessionID)
	return nil
}

func newTestHandler(t *testing.T, slots Slots, carts CartClearer) (*Handler, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	service := newTestService(t, store, defaultCatalog(), nil)
	return NewHandler(service, slots, carts, silentLogger()), store
}

func authed(r *http.Request, identity *domain.Identity) *http.Request {
	return r.WithContext(auth.WithIdentity(r.Context(), identity))
}

func TestHandleCreate(t *testing.T) {
	t.Run("creates an order", func(t *testing.T) {
		handler, _ := newTestHandler(t, nil, nil)

		body := `{"items":[{"item_id":"burrito","quantity":2}]}`
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
		req = authed(req, student("u1"))
		rec := httptest.NewRecorder()

		handler.HandleCreate(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}

		var order domain.Order
		if err := json.NewDecoder(rec.Body).Decode(&order); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if order.Total != 2*899 {
			t.Errorf("expected total %d, got %d", 2*899, order.Total)
		}
		if order.Status != domain.OrderStatusPending {
			t.Errorf("expected pending, got %s", order.Status)
		}
	})

	t.Run("no identity", func(t *testing.T) {
		handler, _ := newTestHandler(t, nil, nil)

		body := `{"items":[{"item_id":"burrito","quantity":1}]}`
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.HandleCreate(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("unknown item maps to 422", func(t *testing.T) {
		handler, _ := newTestHandler(t, nil, nil)

		body := `{"items":[{"item_id":"pizza","quantity":1}]}`
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
		req = authed(req, student("u1"))
		rec := httptest.NewRecorder()

		handler.HandleCreate(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected 422, got %d", rec.Code)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		handler, _ := newTestHandler(t, nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader("{not json"))
		req = authed(req, student("u1"))
		rec := httptest.NewRecorder()

		handler.HandleCreate(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestHandleClaim(t *testing.T) {
	newClaimRequest := func(token string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/orders/claim", strings.NewReader(`{"token":"`+token+`"}`))
		return authed(req, student("u1"))
	}

	t.Run("claims a parked cart and clears the session", func(t *testing.T) {
		slots := &fakeSlots{snapshots: map[string]*handoff.Snapshot{
			"tok-1": {
				SessionID: "s1",
				Lines: []handoff.Line{
					{ItemID: "burrito", Quantity: 1},
					{ItemID: "coffee", Quantity: 2},
				},
			},
		}}
		carts := &fakeCartClearer{}
		handler, _ := newTestHandler(t, slots, carts)

		rec := httptest.NewRecorder()
		handler.HandleClaim(rec, newClaimRequest("tok-1"))

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}

		var order domain.Order
		if err := json.NewDecoder(rec.Body).Decode(&order); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if order.Total != 899+2*349 {
			t.Errorf("expected total %d, got %d", 899+2*349, order.Total)
		}

		if len(carts.cleared) != 1 || carts.cleared[0] != "s1" {
			t.Errorf("expected session s1 cleared, got %v", carts.cleared)
		}
	})

	t.Run("second claim of the same token fails", func(t *testing.T) {
		slots := &fakeSlots{snapshots: map[string]*handoff.Snapshot{
			"tok-1": {SessionID: "s1", Lines: []handoff.Line{{ItemID: "burrito", Quantity: 1}}},
		}}
		handler, store := newTestHandler(t, slots, &fakeCartClearer{})

		rec := httptest.NewRecorder()
		handler.HandleClaim(rec, newClaimRequest("tok-1"))
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		handler.HandleClaim(rec, newClaimRequest("tok-1"))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 on reuse, got %d", rec.Code)
		}

		if len(store.orders) != 1 {
			t.Errorf("expected exactly 1 order, got %d", len(store.orders))
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		handler, _ := newTestHandler(t, &fakeSlots{snapshots: map[string]*handoff.Snapshot{}}, nil)

		rec := httptest.NewRecorder()
		handler.HandleClaim(rec, newClaimRequest("nope"))

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		handler, _ := newTestHandler(t, &fakeSlots{snapshots: map[string]*handoff.Snapshot{}}, nil)

		req := httptest.NewRequest(http.MethodPost, "/orders/claim", strings.NewReader(`{}`))
		req = authed(req, student("u1"))
		rec := httptest.NewRecorder()
		handler.HandleClaim(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestHandleUpdateStatus(t *testing.T) {
	newMux := func(handler *Handler) *http.ServeMux {
		mux := http.NewServeMux()
		mux.HandleFunc("PATCH /orders/{id}/status", handler.HandleUpdateStatus)
		return mux
	}

	t.Run("staff moves an order forward", func(t *testing.T) {
		handler, _ := newTestHandler(t, nil, nil)

		order, err := handler.service.Create(context.Background(), student("u1"), []Line{{ItemID: "burrito", Quantity: 1}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		req := httptest.NewRequest(http.MethodPatch, "/orders/"+order.ID+"/status", strings.NewReader(`{"status":"preparing"}`))
		req = authed(req, &domain.Identity{UserID: "staff-1", Role: domain.RoleStaff})
		rec := httptest.NewRecorder()
		newMux(handler).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("error mapping", func(t *testing.T) {
		handler, _ := newTestHandler(t, nil, nil)
		mux := newMux(handler)

		order, err := handler.service.Create(context.Background(), student("u1"), []Line{{ItemID: "burrito", Quantity: 1}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tests := []struct {
			name     string
			orderID  string
			body     string
			identity *domain.Identity
			want     int
		}{
			{"unknown status is 400", order.ID, `{"status":"shipped"}`, &domain.Identity{UserID: "staff-1", Role: domain.RoleStaff}, http.StatusBadRequest},
			{"illegal transition is 409", order.ID, `{"status":"completed"}`, &domain.Identity{UserID: "staff-1", Role: domain.RoleStaff}, http.StatusConflict},
			{"student driving kitchen is 403", order.ID, `{"status":"preparing"}`, student("u1"), http.StatusForbidden},
			{"missing order is 404", "b2b0a0ea-0000-0000-0000-000000000000", `{"status":"preparing"}`, &domain.Identity{UserID: "staff-1", Role: domain.RoleStaff}, http.StatusNotFound},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := httptest.NewRequest(http.MethodPatch, "/orders/"+tt.orderID+"/status", strings.NewReader(tt.body))
				req = authed(req, tt.identity)
				rec := httptest.NewRecorder()
				mux.ServeHTTP(rec, req)

				if rec.Code != tt.want {
					t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
				}
			})
		}
	})
}

func TestHandleGetForbidden(t *testing.T) {
	handler, _ := newTestHandler(t, nil, nil)

	order, err := handler.service.Create(context.Background(), student("u1"), []Line{{ItemID: "burrito", Quantity: 1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /orders/{id}", handler.HandleGet)

	req := httptest.NewRequest(http.MethodGet, "/orders/"+order.ID, nil)
	req = authed(req, student("u2"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}
