package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmarinho/campus-eats/internal/domain"
)

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sentMail struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func newMailerStub(t *testing.T) (*httptest.Server, *[]sentMail) {
	t.Helper()
	var sent []sentMail
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/send" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var mail sentMail
		if err := json.NewDecoder(r.Body).Decode(&mail); err != nil {
			t.Errorf("failed to decode mail: %v", err)
		}
		sent = append(sent, mail)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, &sent
}

func eventPayload(t *testing.T, event domain.OrderEvent) []byte {
	t.Helper()
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}
	return data
}

func TestHandleReadyEvent(t *testing.T) {
	mailer, sent := newMailerStub(t)
	handler := NewHandler(mailer.URL, "campus.edu", mailer.Client(), silentLogger())

	payload := eventPayload(t, domain.OrderEvent{
		Event:     domain.EventOrderStatusChanged,
		OrderID:   "o1",
		UserID:    "alice",
		UserName:  "Alice",
		Status:    domain.OrderStatusReady,
		Timestamp: time.Now(),
	})

	if err := handler.Handle(context.Background(), payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(*sent) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(*sent))
	}
	mail := (*sent)[0]
	if mail.To != "alice@campus.edu" {
		t.Errorf("expected alice@campus.edu, got %s", mail.To)
	}
	if mail.Subject != "Your order is ready for pickup" {
		t.Errorf("unexpected subject %q", mail.Subject)
	}
}

func TestHandleCancelledEvent(t *testing.T) {
	mailer, sent := newMailerStub(t)
	handler := NewHandler(mailer.URL, "campus.edu", mailer.Client(), silentLogger())

	payload := eventPayload(t, domain.OrderEvent{
		Event:    domain.EventOrderStatusChanged,
		OrderID:  "o1",
		UserID:   "bob",
		UserName: "Bob",
		Status:   domain.OrderStatusCancelled,
	})

	if err := handler.Handle(context.Background(), payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*sent) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(*sent))
	}
	if (*sent)[0].Subject != "Your order was cancelled" {
		t.Errorf("unexpected subject %q", (*sent)[0].Subject)
	}
}

func TestHandleSkipsQuietEvents(t *testing.T) {
	mailer, sent := newMailerStub(t)
	handler := NewHandler(mailer.URL, "campus.edu", mailer.Client(), silentLogger())

	quiet := []domain.OrderEvent{
		{Event: domain.EventOrderPlaced, OrderID: "o1", Status: domain.OrderStatusPending},
		{Event: domain.EventOrderStatusChanged, OrderID: "o1", Status: domain.OrderStatusPreparing},
		{Event: domain.EventOrderStatusChanged, OrderID: "o1", Status: domain.OrderStatusCompleted},
	}

	for _, event := range quiet {
		if err := handler.Handle(context.Background(), eventPayload(t, event)); err != nil {
			t.Fatalf("unexpected error for %s/%s: %v", event.Event, event.Status, err)
		}
	}

	if len(*sent) != 0 {
		t.Errorf("expected no mail, got %d", len(*sent))
	}
}

func TestHandleRejectsGarbage(t *testing.T) {
	handler := NewHandler("http://unused", "campus.edu", http.DefaultClient, silentLogger())

	if err := handler.Handle(context.Background(), []byte("not json")); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestHandleMailerFailure(t *testing.T) {
	mailer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer mailer.Close()

	handler := NewHandler(mailer.URL, "campus.edu", mailer.Client(), silentLogger())

	payload := eventPayload(t, domain.OrderEvent{
		Event:   domain.EventOrderStatusChanged,
		OrderID: "o1",
		UserID:  "alice",
		Status:  domain.OrderStatusReady,
	})

	// The error must propagate so the message is not committed and gets
	// redelivered.
	if err := handler.Handle(context.Background(), payload); err == nil {
		t.Error("expected error when the mailer is down")
	}
}
