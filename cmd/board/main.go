package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dmarinho/campus-eats/internal/board"
	"github.com/dmarinho/campus-eats/internal/poll"
	"github.com/dmarinho/campus-eats/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "board", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		logger.Error("API_URL environment variable is required")
		os.Exit(1)
	}

	serviceToken := os.Getenv("BOARD_SERVICE_TOKEN")
	if serviceToken == "" {
		logger.Error("BOARD_SERVICE_TOKEN environment variable is required")
		os.Exit(1)
	}

	interval := 5 * time.Second
	if raw := os.Getenv("BOARD_POLL_INTERVAL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			logger.Error("invalid BOARD_POLL_INTERVAL", "value", raw, "error", err)
			os.Exit(1)
		}
		interval = parsed
	}

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	// The snapshot counts as stale once the poller has missed a couple of
	// cycles in a row.
	b := board.New(apiURL, serviceToken, httpClient, 3*interval, logger)

	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()

	task := poll.NewTask("board-refresh", interval, time.Minute, b.Refresh, logger)
	go task.Run(pollCtx)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /board", telemetry.WithHTTPRoute(b.HandleQueue))
	mux.HandleFunc("GET /healthz", b.HandleHealthz)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      otelhttp.NewHandler(mux, "board"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting board service", "port", port, "poll_interval", interval)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	stopPolling()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
