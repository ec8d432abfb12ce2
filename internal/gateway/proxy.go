package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// forwarded are the request headers that cross the gateway. Everything else
// stops here.
var forwarded = []string{"Content-Type", "Authorization", "X-Session-ID"}

// ServiceProxy forwards requests to one upstream behind a circuit breaker,
// so a dead upstream fails fast instead of tying up gateway connections.
type ServiceProxy struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

func NewServiceProxy(name, baseURL string, client *http.Client) *ServiceProxy {
	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:    name,
		Timeout: 10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &ServiceProxy{
		baseURL: baseURL,
		client:  client,
		breaker: breaker,
	}
}

// ForwardRequest replays r against the upstream at path, keeping the query
// string and the forwarded headers.
func (p *ServiceProxy) ForwardRequest(ctx context.Context, r *http.Request, path string) (*http.Response, error) {
	target := p.baseURL + path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, r.Body)
	if err != nil {
		return nil, err
	}

	for _, header := range forwarded {
		if v := r.Header.Get(header); v != "" {
			req.Header.Set(header, v)
		}
	}

	return p.breaker.Execute(func() (*http.Response, error) {
		return p.client.Do(req)
	})
}
