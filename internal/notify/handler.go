package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dmarinho/campus-eats/internal/domain"
)

// Handler turns order lifecycle events into mail through the campus mail
// relay. Only ready and cancelled are user-visible moments; everything else
// is acknowledged and skipped.
type Handler struct {
	mailerURL  string
	mailDomain string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHandler(mailerURL, mailDomain string, client *http.Client, logger *slog.Logger) *Handler {
	return &Handler{
		mailerURL:  mailerURL,
		mailDomain: mailDomain,
		httpClient: client,
		logger:     logger,
	}
}

func (h *Handler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order event: %w", err)
	}

	switch {
	case event.Event == domain.EventOrderStatusChanged && event.Status == domain.OrderStatusReady:
		return h.sendReadyMail(ctx, event)
	case event.Event == domain.EventOrderStatusChanged && event.Status == domain.OrderStatusCancelled:
		return h.sendCancelledMail(ctx, event)
	default:
		h.logger.Debug("order event skipped", "event", event.Event, "status", event.Status, "order_id", event.OrderID)
		return nil
	}
}

func (h *Handler) sendReadyMail(ctx context.Context, event domain.OrderEvent) error {
	err := h.send(ctx, map[string]string{
		"to":      event.UserID + "@" + h.mailDomain,
		"subject": "Your order is ready for pickup",
		"body":    fmt.Sprintf("Hi %s, order %s is ready at the counter.", event.UserName, event.OrderID),
	})
	if err != nil {
		return fmt.Errorf("send ready mail for order %s: %w", event.OrderID, err)
	}

	h.logger.Info("pickup mail sent", "order_id", event.OrderID, "user_id", event.UserID)
	return nil
}

func (h *Handler) sendCancelledMail(ctx context.Context, event domain.OrderEvent) error {
	err := h.send(ctx, map[string]string{
		"to":      event.UserID + "@" + h.mailDomain,
		"subject": "Your order was cancelled",
		"body":    fmt.Sprintf("Hi %s, order %s has been cancelled.", event.UserName, event.OrderID),
	})
	if err != nil {
		return fmt.Errorf("send cancellation mail for order %s: %w", event.OrderID, err)
	}

	h.logger.Info("cancellation mail sent", "order_id", event.OrderID, "user_id", event.UserID)
	return nil
}

func (h *Handler) send(ctx context.Context, mail map[string]string) error {
	data, err := json.Marshal(mail)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.mailerURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mailer returned status %d", resp.StatusCode)
	}

	return nil
}
