package handlers

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"
)

// Pinger is a dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	checks map[string]Pinger
}

func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Health handles GET /health.
func (h *HealthHandler) Health(ctx *fasthttp.RequestCtx) {
	status := fasthttp.StatusOK
	deps := make(map[string]string, len(h.checks))

	for name, check := range h.checks {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := check.Ping(pingCtx)
		cancel()
		if err != nil {
			deps[name] = err.Error()
			status = fasthttp.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	state := "ok"
	if status != fasthttp.StatusOK {
		state = "degraded"
	}
	writeJSON(ctx, status, map[string]interface{}{
		"status":       state,
		"dependencies": deps,
		"time":         time.Now().UTC().Format(time.RFC3339),
	})
}
