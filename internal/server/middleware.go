package server

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"moon-oracle/backend/internal/telemetry"
	"moon-oracle/backend/internal/telemetry/domain"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// maxRequestIDLength bounds client-supplied request ids; longer ones are replaced.
const maxRequestIDLength = 128

// RequestID honors a client X-Request-ID or generates a UUID, stores it on the context and echoes it back.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the id set by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// Telemetry emits an http_request event after each request. Best-effort: emit failures are logged and
// never affect the response. skipPaths holds route paths that emit nothing (e.g. "/" and "/api/hello").
func Telemetry(emitter telemetry.EventEmitter, skipPaths map[string]bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if emitter == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		if skipPaths[route] {
			return
		}
		status := c.Writer.Status()
		if status >= 500 {
			log.Printf("http: %s %s -> %d (request %s)", c.Request.Method, route, status, GetRequestID(c))
		}
		telemetry.EmitAsync(emitter, domain.NewEvent("", domain.EventHTTPRequest, "http", map[string]any{
			"method":      c.Request.Method,
			"route":       route,
			"status_code": status,
			"duration_ms": time.Since(start).Milliseconds(),
			"client_ip":   c.ClientIP(),
			"request_id":  GetRequestID(c),
		}))
	}
}
