package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmarinho/campus-eats/internal/auth"
	"github.com/dmarinho/campus-eats/internal/domain"
	"github.com/dmarinho/campus-eats/internal/handoff"
)

// Slots is the consuming side of the cart-to-order handoff.
type Slots interface {
	Take(ctx context.Context, token string) (*handoff.Snapshot, error)
}

// CartClearer empties the originating session cart after a successful claim.
type CartClearer interface {
	Clear(ctx context.Context, sessionID string) error
}

type Handler struct {
	service *Service
	slots   Slots
	carts   CartClearer
	logger  *slog.Logger
}

func NewHandler(service *Service, slots Slots, carts CartClearer, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		slots:   slots,
		carts:   carts,
		logger:  logger,
	}
}

type createOrderRequest struct {
	Items []Line `json:"items"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity := auth.FromContext(r.Context())

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.Create(r.Context(), identity, req.Items)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, order)
}

type claimRequest struct {
	Token string `json:"token"`
}

// HandleClaim consumes a handoff slot and creates the order from the parked
// snapshot. The slot is taken before creation is attempted, so a reload or
// back-navigation can never resubmit it; on failure the caller retries
// explicitly from its own copy of the cart.
func (h *Handler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	identity := auth.FromContext(r.Context())

	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snapshot, err := h.slots.Take(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "handoff slot expired or already used")
			return
		}
		h.logger.Error("failed to take handoff slot", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	lines := make([]Line, 0, len(snapshot.Lines))
	for _, l := range snapshot.Lines {
		lines = append(lines, Line{ItemID: l.ItemID, Quantity: l.Quantity})
	}

	order, err := h.service.Create(r.Context(), identity, lines)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	if h.carts != nil && snapshot.SessionID != "" {
		if err := h.carts.Clear(r.Context(), snapshot.SessionID); err != nil {
			h.logger.Warn("failed to clear cart after claim", "error", err, "session_id", snapshot.SessionID)
		}
	}

	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListForUser(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListAll(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.service.GetByID(r.Context(), auth.FromContext(r.Context()), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), auth.FromContext(r.Context()), id, req.Status)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	if err := h.service.Delete(r.Context(), auth.FromContext(r.Context()), id); err != nil {
		h.writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		h.writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		h.writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, domain.ErrItemNotFound):
		h.writeError(w, http.StatusUnprocessableEntity, "menu item not found")
	case errors.Is(err, domain.ErrInvalidStatus):
		h.writeError(w, http.StatusBadRequest, "unrecognized order status")
	case errors.Is(err, domain.ErrInvalidTransition):
		h.writeError(w, http.StatusConflict, "illegal status transition")
	case errors.Is(err, domain.ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, "invalid order input")
	default:
		h.logger.Error("order operation failed", "error", err)
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
