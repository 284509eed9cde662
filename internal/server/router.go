// Package server assembles the HTTP router and the gRPC health server.
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	healthhandler "moon-oracle/backend/internal/health/handler"
	oraclehandler "moon-oracle/backend/internal/oracle/handler"
	"moon-oracle/backend/internal/telemetry"
)

// RouterDeps holds the handlers and cross-cutting dependencies for the HTTP API.
type RouterDeps struct {
	Oracle *oraclehandler.Handler
	Health *healthhandler.Handler
	// Emitter receives http_request events. If nil, no request telemetry is emitted.
	Emitter telemetry.EventEmitter
	// CORS selects allowed origins. If nil, any origin is allowed.
	CORS CORSPolicy
	// ServiceName is the otelgin server name.
	ServiceName string
}

// CORSPolicy is satisfied by *config.Config.
type CORSPolicy interface {
	CORSOrigins() []string
	AllowAllOrigins() bool
}

// quietPaths are polled by clients and load balancers; they produce no request events.
var quietPaths = map[string]bool{
	"/":          true,
	"/api/hello": true,
}

// NewRouter returns the gin engine serving the oracle API.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(deps.CORS)))
	if deps.ServiceName != "" {
		r.Use(otelgin.Middleware(deps.ServiceName))
	}
	r.Use(RequestID())
	r.Use(Telemetry(deps.Emitter, quietPaths))

	if deps.Health != nil {
		deps.Health.RegisterRoutes(r)
	}
	if deps.Oracle != nil {
		deps.Oracle.RegisterRoutes(r)
	}
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return r
}

func corsConfig(policy CORSPolicy) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", RequestIDHeader},
		ExposeHeaders: []string{RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if policy == nil || policy.AllowAllOrigins() {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = policy.CORSOrigins()
	cfg.AllowCredentials = true
	return cfg
}
