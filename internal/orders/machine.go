package orders

import (
	"github.com/dmarinho/campus-eats/internal/domain"
)

// staffEdges are the forward transitions staff and admin may drive. There is
// no entry out of completed or cancelled: terminal states are absorbing and
// no role can resurrect an order.
var staffEdges = map[domain.OrderStatus]map[domain.OrderStatus]bool{
	domain.OrderStatusPending: {
		domain.OrderStatusPreparing: true,
		domain.OrderStatusCancelled: true,
	},
	domain.OrderStatusPreparing: {
		domain.OrderStatusReady:     true,
		domain.OrderStatusCancelled: true,
	},
	domain.OrderStatusReady: {
		domain.OrderStatusCompleted: true,
	},
}

// Allowed is the single authorization function for status transitions.
// It decides the (from, to, requester) triple for the whole application:
//
//   - unrecognized target status        -> ErrInvalidStatus
//   - staff/admin along a table edge    -> nil
//   - staff/admin off the table         -> ErrInvalidTransition
//   - owner cancelling a pending order  -> nil
//   - owner cancelling a non-pending    -> ErrInvalidTransition
//   - anyone else, anything else        -> ErrForbidden
func Allowed(order *domain.Order, identity *domain.Identity, to domain.OrderStatus) error {
	if !domain.KnownStatus(to) {
		return domain.ErrInvalidStatus
	}

	if domain.Privileged(identity.Role) {
		if staffEdges[order.Status][to] {
			return nil
		}
		return domain.ErrInvalidTransition
	}

	if to == domain.OrderStatusCancelled && order.UserID == identity.UserID {
		if order.Status == domain.OrderStatusPending {
			return nil
		}
		return domain.ErrInvalidTransition
	}

	return domain.ErrForbidden
}
