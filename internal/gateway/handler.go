package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sony/gobreaker/v2"
)

type Handler struct {
	apiProxy   *ServiceProxy
	boardProxy *ServiceProxy
	logger     *slog.Logger
}

func NewHandler(apiProxy, boardProxy *ServiceProxy, logger *slog.Logger) *Handler {
	return &Handler{
		apiProxy:   apiProxy,
		boardProxy: boardProxy,
		logger:     logger,
	}
}

// HandleAPI forwards /api/* to the application server with the prefix
// stripped.
func (h *Handler) HandleAPI(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api")
	h.proxyRequest(w, r, h.apiProxy, path)
}

func (h *Handler) HandleBoard(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.boardProxy, "/board")
}

func (h *Handler) proxyRequest(w http.ResponseWriter, r *http.Request, proxy *ServiceProxy, path string) {
	resp, err := proxy.ForwardRequest(r.Context(), r, path)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			h.logger.Warn("circuit open, refusing request", "path", path)
			h.writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
			return
		}
		h.logger.Error("failed to forward request", "error", err, "path", path)
		h.writeError(w, http.StatusBadGateway, "service unavailable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.logger.Error("failed to encode error response", "error", err)
	}
}
