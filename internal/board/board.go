package board

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dmarinho/campus-eats/internal/domain"
)

// Board keeps the latest kitchen queue snapshot, refreshed by a poll task
// against the order query surface. Reads never block on the upstream: a
// failed refresh keeps serving the previous snapshot, marked stale.
type Board struct {
	apiURL       string
	serviceToken string
	httpClient   *http.Client
	logger       *slog.Logger
	maxAge       time.Duration

	mu        sync.RWMutex
	orders    []domain.Order
	fetchedAt time.Time
}

func New(apiURL, serviceToken string, client *http.Client, maxAge time.Duration, logger *slog.Logger) *Board {
	return &Board{
		apiURL:       apiURL,
		serviceToken: serviceToken,
		httpClient:   client,
		logger:       logger,
		maxAge:       maxAge,
	}
}

// Refresh fetches the full order list with the board's staff service token.
func (b *Board) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.apiURL+"/orders/all", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+b.serviceToken)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("orders api returned status %d", resp.StatusCode)
	}

	var orders []domain.Order
	if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
		return fmt.Errorf("decode orders: %w", err)
	}

	b.mu.Lock()
	b.orders = orders
	b.fetchedAt = time.Now()
	b.mu.Unlock()

	return nil
}

type queueResponse struct {
	Pending   []domain.Order `json:"pending"`
	Preparing []domain.Order `json:"preparing"`
	Ready     []domain.Order `json:"ready"`
	Counts    map[string]int `json:"counts"`
	FetchedAt time.Time      `json:"fetched_at"`
	Stale     bool           `json:"stale"`
}

// HandleQueue serves the active kitchen queue grouped by status. Terminal
// orders are excluded; the display only cares about work in flight.
func (b *Board) HandleQueue(w http.ResponseWriter, r *http.Request) {
	b.mu.RLock()
	orders := b.orders
	fetchedAt := b.fetchedAt
	b.mu.RUnlock()

	resp := queueResponse{
		Pending:   []domain.Order{},
		Preparing: []domain.Order{},
		Ready:     []domain.Order{},
		FetchedAt: fetchedAt,
		Stale:     b.stale(fetchedAt),
	}

	for _, order := range orders {
		switch order.Status {
		case domain.OrderStatusPending:
			resp.Pending = append(resp.Pending, order)
		case domain.OrderStatusPreparing:
			resp.Preparing = append(resp.Preparing, order)
		case domain.OrderStatusReady:
			resp.Ready = append(resp.Ready, order)
		}
	}

	resp.Counts = map[string]int{
		"pending":   len(resp.Pending),
		"preparing": len(resp.Preparing),
		"ready":     len(resp.Ready),
	}

	b.writeJSON(w, http.StatusOK, resp)
}

func (b *Board) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	b.mu.RLock()
	fetchedAt := b.fetchedAt
	b.mu.RUnlock()

	if b.stale(fetchedAt) {
		b.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "stale"})
		return
	}

	b.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (b *Board) stale(fetchedAt time.Time) bool {
	return fetchedAt.IsZero() || time.Since(fetchedAt) > b.maxAge
}

func (b *Board) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		b.logger.Error("failed to encode response", "error", err)
	}
}
