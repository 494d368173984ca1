package main

import (
	"context"
	"net/http"
	"time"

	"telecom-billing/internal/httpapi"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc, health gin.HandlerFunc) {
	// public
	r.GET("/healthz", health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpapi.Register(r, h, authMW)
}

// healthCheck answers 503 when Postgres cannot be reached. A Redis failure,
// or Redis not configured (pingRedis nil), is reported as degraded with 200.
func healthCheck(pingDB, pingRedis func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := pingDB(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "postgres": err.Error()})
			return
		}
		out := gin.H{"status": "ok", "postgres": "ok", "redis": "ok"}
		switch {
		case pingRedis == nil:
			out["status"] = "degraded"
			out["redis"] = "disabled"
		default:
			if err := pingRedis(ctx); err != nil {
				out["status"] = "degraded"
				out["redis"] = err.Error()
			}
		}
		c.JSON(http.StatusOK, out)
	}
}
