package orders

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/dmarinho/campus-eats/internal/domain"
)

// Line is one (item, quantity) pair submitted at creation time.
type Line struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	UpdateStatusFrom(ctx context.Context, id string, from, to domain.OrderStatus) (bool, error)
	ListForUser(ctx context.Context, userID string, role domain.Role) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Catalog resolves item references against the menu.
type Catalog interface {
	GetByID(ctx context.Context, id string) (*domain.MenuItem, error)
}

// Publisher emits lifecycle events. May be nil when no broker is configured.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Service turns cart snapshots into persisted orders and governs the status
// state machine.
type Service struct {
	store    Store
	catalog  Catalog
	producer Publisher
	logger   *slog.Logger

	createdCounter    metric.Int64Counter
	transitionCounter metric.Int64Counter
}

func NewService(store Store, catalog Catalog, producer Publisher, logger *slog.Logger) (*Service, error) {
	meter := otel.Meter("orders")

	created, err := meter.Int64Counter("orders.created",
		metric.WithDescription("Orders successfully created"))
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter("orders.status_transitions",
		metric.WithDescription("Successful order status transitions"))
	if err != nil {
		return nil, err
	}

	return &Service{
		store:             store,
		catalog:           catalog,
		producer:          producer,
		logger:            logger,
		createdCounter:    created,
		transitionCounter: transitions,
	}, nil
}

// dedupe collapses repeated lines for the same item, summing quantities and
// keeping first-appearance order. Creation never trusts callers to have done
// this already.
func dedupe(lines []Line) []Line {
	seen := make(map[string]int, len(lines))
	out := make([]Line, 0, len(lines))
	for _, line := range lines {
		if idx, ok := seen[line.ItemID]; ok {
			out[idx].Quantity += line.Quantity
			continue
		}
		seen[line.ItemID] = len(out)
		out = append(out, line)
	}
	return out
}

// Create builds and persists an order from a cart snapshot. The total is
// computed from catalog prices at this moment and frozen on the order; later
// menu edits never change it.
func (s *Service) Create(ctx context.Context, identity *domain.Identity, lines []Line) (*domain.Order, error) {
	if identity == nil {
		return nil, domain.ErrUnauthorized
	}
	if identity.Role != domain.RoleStudent && identity.Role != domain.RoleStaff {
		return nil, domain.ErrForbidden
	}
	if len(lines) == 0 {
		return nil, domain.ErrInvalidInput
	}
	for _, line := range lines {
		if line.ItemID == "" || line.Quantity < 1 {
			return nil, domain.ErrInvalidInput
		}
	}

	lines = dedupe(lines)

	var total int64
	items := make([]domain.OrderLine, 0, len(lines))
	for _, line := range lines {
		item, err := s.catalog.GetByID(ctx, line.ItemID)
		if err != nil {
			return nil, fmt.Errorf("resolve item %s: %w", line.ItemID, err)
		}
		if item == nil {
			return nil, domain.ErrItemNotFound
		}

		items = append(items, domain.OrderLine{
			ItemID:    item.ID,
			Name:      item.Name,
			Quantity:  line.Quantity,
			UnitPrice: item.Price,
		})
		total += item.Price * int64(line.Quantity)
	}

	now := time.Now().UTC()
	order := &domain.Order{
		UserID:    identity.UserID,
		UserName:  identity.Name,
		Role:      identity.Role,
		Items:     items,
		Total:     total,
		Status:    domain.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	s.createdCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("role", string(order.Role)),
	))
	s.publish(ctx, domain.EventOrderPlaced, order)

	s.logger.Info("order created", "order_id", order.ID, "user_id", order.UserID, "total", order.Total)
	return order, nil
}

// UpdateStatus applies one state-machine transition on behalf of identity.
// On success only status and updated_at change.
func (s *Service) UpdateStatus(ctx context.Context, identity *domain.Identity, orderID string, to domain.OrderStatus) (*domain.Order, error) {
	if identity == nil {
		return nil, domain.ErrUnauthorized
	}

	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}

	if err := Allowed(order, identity, to); err != nil {
		return nil, err
	}

	changed, err := s.store.UpdateStatusFrom(ctx, orderID, order.Status, to)
	if err != nil {
		return nil, fmt.Errorf("persist transition: %w", err)
	}
	if !changed {
		// Lost a race: the order moved on since we loaded it.
		return nil, domain.ErrInvalidTransition
	}

	updated, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("reload order: %w", err)
	}

	s.transitionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("to", string(to)),
	))
	s.publish(ctx, domain.EventOrderStatusChanged, updated)

	s.logger.Info("order status updated", "order_id", orderID, "status", to, "requester", identity.UserID)
	return updated, nil
}

// ListForUser returns the caller's own orders under their current role.
func (s *Service) ListForUser(ctx context.Context, identity *domain.Identity) ([]domain.Order, error) {
	if identity == nil {
		return nil, domain.ErrUnauthorized
	}
	return s.store.ListForUser(ctx, identity.UserID, identity.Role)
}

// ListAll is the privileged query surface behind the staff and admin
// dashboards.
func (s *Service) ListAll(ctx context.Context, identity *domain.Identity) ([]domain.Order, error) {
	if identity == nil {
		return nil, domain.ErrUnauthorized
	}
	if !domain.Privileged(identity.Role) {
		return nil, domain.ErrForbidden
	}
	return s.store.ListAll(ctx)
}

// GetByID returns one order, visible to its owner and to staff/admin.
func (s *Service) GetByID(ctx context.Context, identity *domain.Identity, orderID string) (*domain.Order, error) {
	if identity == nil {
		return nil, domain.ErrUnauthorized
	}

	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}

	if order.UserID != identity.UserID && !domain.Privileged(identity.Role) {
		return nil, domain.ErrForbidden
	}

	return order, nil
}

// Delete removes an order entirely. Admin only.
func (s *Service) Delete(ctx context.Context, identity *domain.Identity, orderID string) error {
	if identity == nil {
		return domain.ErrUnauthorized
	}
	if identity.Role != domain.RoleAdmin {
		return domain.ErrForbidden
	}

	found, err := s.store.Delete(ctx, orderID)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if !found {
		return domain.ErrNotFound
	}

	s.logger.Info("order deleted", "order_id", orderID, "requester", identity.UserID)
	return nil
}

func (s *Service) publish(ctx context.Context, event string, order *domain.Order) {
	if s.producer == nil {
		return
	}

	err := s.producer.Publish(ctx, order.ID, domain.OrderEvent{
		Event:     event,
		OrderID:   order.ID,
		UserID:    order.UserID,
		UserName:  order.UserName,
		Status:    order.Status,
		Total:     order.Total,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error("failed to publish order event", "error", err, "event", event, "order_id", order.ID)
	}
}
