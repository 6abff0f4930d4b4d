package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"merchant-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
)

const healthTimeout = 2 * time.Second

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthCheck handles GET /health. Every checker runs in parallel under a
// shared deadline; any failure turns the answer into 503 degraded.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		var (
			mu      sync.Mutex
			wg      sync.WaitGroup
			healthy = true
			deps    = make(map[string]dependencyStatus, len(checkers))
		)
		for _, hc := range checkers {
			wg.Add(1)
			go func(hc ports.HealthChecker) {
				defer wg.Done()
				st := dependencyStatus{Status: "healthy"}
				if err := hc.Ping(ctx); err != nil {
					st = dependencyStatus{Status: "unhealthy", Error: err.Error()}
				}
				mu.Lock()
				defer mu.Unlock()
				deps[hc.Name()] = st
				healthy = healthy && st.Error == ""
			}(hc)
		}
		wg.Wait()

		code, status := http.StatusOK, "healthy"
		if !healthy {
			code, status = http.StatusServiceUnavailable, "degraded"
		}
		c.JSON(code, gin.H{"status": status, "dependencies": deps})
	}
}
