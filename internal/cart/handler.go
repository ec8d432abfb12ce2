package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmarinho/campus-eats/internal/domain"
	"github.com/dmarinho/campus-eats/internal/handoff"
)

// Catalog is the menu surface the cart consults before admitting an item.
type Catalog interface {
	GetByID(ctx context.Context, id string) (*domain.MenuItem, error)
}

// Slots parks cart snapshots for the cart-to-order handoff.
type Slots interface {
	Put(ctx context.Context, snapshot handoff.Snapshot) (string, error)
}

type Handler struct {
	sessions *Sessions
	catalog  Catalog
	slots    Slots
	logger   *slog.Logger
}

func NewHandler(sessions *Sessions, catalog Catalog, slots Slots, logger *slog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		catalog:  catalog,
		slots:    slots,
		logger:   logger,
	}
}

// sessionID identifies the client-held cart. The web client generates one
// uuid per browser session and sends it on every cart call.
func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get("X-Session-ID")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing X-Session-ID header")
		return "", false
	}
	return id, true
}

type cartResponse struct {
	Items     []Entry `json:"items"`
	Total     int64   `json:"total"`
	ItemCount int     `json:"item_count"`
}

func (h *Handler) view(ctx context.Context, sessionID string) cartResponse {
	resp := cartResponse{Items: []Entry{}}
	_ = h.sessions.With(ctx, sessionID, func(c *Cart) error {
		resp.Items = c.Entries()
		resp.Total = c.Total()
		resp.ItemCount = c.ItemCount()
		return nil
	})
	return resp
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, h.view(r.Context(), sessionID))
}

type addItemRequest struct {
	ItemID string `json:"item_id"`
}

func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemID == "" {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.catalog.GetByID(r.Context(), req.ItemID)
	if err != nil {
		h.logger.Error("failed to resolve menu item", "error", err, "item_id", req.ItemID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if item == nil {
		h.writeError(w, http.StatusUnprocessableEntity, "menu item not found")
		return
	}

	err = h.sessions.With(r.Context(), sessionID, func(c *Cart) error {
		return c.Add(item)
	})
	if err != nil {
		h.writeCartError(w, err)
		return
	}

	h.logger.Info("cart item added", "session_id", sessionID, "item_id", req.ItemID)
	h.writeJSON(w, http.StatusOK, h.view(r.Context(), sessionID))
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) HandleSetQuantity(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	itemID := r.PathValue("itemId")
	if itemID == "" {
		h.writeError(w, http.StatusBadRequest, "missing item id")
		return
	}

	var req setQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.sessions.With(r.Context(), sessionID, func(c *Cart) error {
		return c.SetQuantity(itemID, req.Quantity)
	})
	if err != nil {
		h.writeCartError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, h.view(r.Context(), sessionID))
}

func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	itemID := r.PathValue("itemId")
	if itemID == "" {
		h.writeError(w, http.StatusBadRequest, "missing item id")
		return
	}

	_ = h.sessions.With(r.Context(), sessionID, func(c *Cart) error {
		c.Remove(itemID)
		return nil
	})

	h.writeJSON(w, http.StatusOK, h.view(r.Context(), sessionID))
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	if err := h.sessions.Clear(r.Context(), sessionID); err != nil {
		h.logger.Warn("cart clear left a stale mirror", "error", err, "session_id", sessionID)
	}

	h.writeJSON(w, http.StatusOK, h.view(r.Context(), sessionID))
}

type handoffResponse struct {
	Token string `json:"token"`
}

// HandleHandoff freezes the current cart into a one-shot slot and returns
// the claim token. The cart itself stays intact until the order is placed;
// the client redirects to authentication and claims with the token after.
func (h *Handler) HandleHandoff(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	entries := h.sessions.Snapshot(r.Context(), sessionID)
	if len(entries) == 0 {
		h.writeError(w, http.StatusBadRequest, "cart is empty")
		return
	}

	snapshot := handoff.Snapshot{SessionID: sessionID}
	for _, entry := range entries {
		snapshot.Lines = append(snapshot.Lines, handoff.Line{
			ItemID:   entry.ItemID,
			Quantity: entry.Quantity,
		})
	}

	token, err := h.slots.Put(r.Context(), snapshot)
	if err != nil {
		h.logger.Error("failed to park handoff snapshot", "error", err, "session_id", sessionID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("handoff snapshot parked", "session_id", sessionID, "lines", len(snapshot.Lines))
	h.writeJSON(w, http.StatusCreated, handoffResponse{Token: token})
}

// writeCartError surfaces cart failures as per-request notices. They never
// corrupt cart state and are never fatal.
func (h *Handler) writeCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnavailable):
		h.writeError(w, http.StatusConflict, "item is currently unavailable")
	case errors.Is(err, domain.ErrQuantityCap):
		h.writeError(w, http.StatusConflict, "quantity cap of 10 reached for this item")
	case errors.Is(err, domain.ErrItemNotFound):
		h.writeError(w, http.StatusUnprocessableEntity, "item is not in the cart")
	case errors.Is(err, domain.ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, "invalid item")
	default:
		h.logger.Error("cart operation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
