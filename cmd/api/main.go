package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dmarinho/campus-eats/internal/auth"
	"github.com/dmarinho/campus-eats/internal/cart"
	"github.com/dmarinho/campus-eats/internal/handoff"
	"github.com/dmarinho/campus-eats/internal/menu"
	"github.com/dmarinho/campus-eats/internal/messaging"
	"github.com/dmarinho/campus-eats/internal/orders"
	"github.com/dmarinho/campus-eats/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "api", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("api", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", postgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		logger.Error("REDIS_ADDR environment variable is required")
		os.Exit(1)
	}
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer func() { _ = redisClient.Close() }()

	authSecret := os.Getenv("AUTH_SECRET")
	if authSecret == "" {
		logger.Error("AUTH_SECRET environment variable is required")
		os.Exit(1)
	}
	gate := auth.NewGate(authSecret)

	var producer *messaging.Producer
	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers != "" {
		brokers := strings.Split(kafkaBrokers, ",")
		producer = messaging.NewProducer(brokers, messaging.TopicOrderEvents)
		defer func() { _ = producer.Close() }()
	}

	menuRepo := menu.NewRepository(db)
	menuHandler := menu.NewHandler(menuRepo, logger)

	slots := handoff.NewStore(redisClient)
	sessions := cart.NewSessions(cart.NewRedisStore(redisClient), logger)
	cartHandler := cart.NewHandler(sessions, menuRepo, slots, logger)

	orderRepo := orders.NewRepository(db)
	orderService, err := orders.NewService(orderRepo, menuRepo, publisher(producer), logger)
	if err != nil {
		logger.Error("failed to create order service", "error", err)
		os.Exit(1)
	}
	orderHandler := orders.NewHandler(orderService, slots, sessions, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /menu", menuHandler.HandleList)
	mux.HandleFunc("GET /menu/{id}", menuHandler.HandleGet)
	mux.Handle("POST /menu", gate.Middleware(http.HandlerFunc(menuHandler.HandleCreate)))
	mux.Handle("PUT /menu/{id}", gate.Middleware(http.HandlerFunc(menuHandler.HandleUpdate)))
	mux.Handle("DELETE /menu/{id}", gate.Middleware(http.HandlerFunc(menuHandler.HandleDelete)))

	// Cart routes are pre-authentication: the cart exists before the user
	// signs in, keyed only by the client session.
	mux.HandleFunc("GET /cart", cartHandler.HandleGet)
	mux.HandleFunc("POST /cart/items", cartHandler.HandleAddItem)
	mux.HandleFunc("PATCH /cart/items/{itemId}", cartHandler.HandleSetQuantity)
	mux.HandleFunc("DELETE /cart/items/{itemId}", cartHandler.HandleRemoveItem)
	mux.HandleFunc("DELETE /cart", cartHandler.HandleClear)
	mux.HandleFunc("POST /cart/handoff", cartHandler.HandleHandoff)

	mux.Handle("POST /orders", gate.Middleware(http.HandlerFunc(orderHandler.HandleCreate)))
	mux.Handle("POST /orders/claim", gate.Middleware(http.HandlerFunc(orderHandler.HandleClaim)))
	mux.Handle("GET /orders", gate.Middleware(http.HandlerFunc(orderHandler.HandleList)))
	mux.Handle("GET /orders/all", gate.Middleware(http.HandlerFunc(orderHandler.HandleListAll)))
	mux.Handle("GET /orders/{id}", gate.Middleware(http.HandlerFunc(orderHandler.HandleGet)))
	mux.Handle("PATCH /orders/{id}/status", gate.Middleware(http.HandlerFunc(orderHandler.HandleUpdateStatus)))
	mux.Handle("DELETE /orders/{id}", gate.Middleware(http.HandlerFunc(orderHandler.HandleDelete)))

	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "api",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting api service", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

// publisher keeps the nil check honest: a nil *Producer inside a non-nil
// interface would dodge the service's producer == nil guard.
func publisher(p *messaging.Producer) orders.Publisher {
	if p == nil {
		return nil
	}
	return p
}
