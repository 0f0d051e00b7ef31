package modules

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

// HealthModule serves GET /healthz. Required checks turn the response into
// 503 when they fail; optional ones are only reported.
type HealthModule struct {
	Required map[string]Check
	Optional map[string]Check
	Timeout  time.Duration
}

func NewHealthModule(required, optional map[string]Check) *HealthModule {
	return &HealthModule{Required: required, Optional: optional, Timeout: 2 * time.Second}
}

func (m *HealthModule) Register(rg *gin.RouterGroup) {
	rg.GET("/healthz", m.handle)
}

func run(ctx context.Context, checks map[string]Check, out map[string]string) bool {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	ok := true
	for _, name := range names {
		if err := checks[name](ctx); err != nil {
			out[name] = err.Error()
			ok = false
			continue
		}
		out[name] = "ok"
	}
	return ok
}

func (m *HealthModule) handle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), m.Timeout)
	defer cancel()

	results := map[string]string{}
	healthy := run(ctx, m.Required, results)
	run(ctx, m.Optional, results)

	status, text := http.StatusOK, "ok"
	if !healthy {
		status, text = http.StatusServiceUnavailable, "unavailable"
	}
	c.JSON(status, gin.H{"status": text, "checks": results})
}
