package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is used to check store connectivity (e.g. a session repository).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// StoreInfo describes the configured store for the /test diagnostic. Values are never exposed, only whether they are set.
type StoreInfo struct {
	Backend         string
	DatabaseURLSet  bool
	DatabaseNameSet bool
	Collections     []string
}

const (
	rootMessage  = "Madame of the Moon • Oracle online"
	helloMessage = "Hello from the backend API!"

	pingTimeout  = 2 * time.Second
	maxErrorText = 50
)

// Handler serves the liveness and diagnostic endpoints.
type Handler struct {
	pinger Pinger
	info   StoreInfo
}

// NewHandler returns a Handler. pinger may be nil, in which case the store is reported as not available.
func NewHandler(pinger Pinger, info StoreInfo) *Handler {
	return &Handler{pinger: pinger, info: info}
}

// RegisterRoutes mounts GET /, GET /api/hello and GET /test.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/api/hello", h.Hello)
	r.GET("/test", h.Diagnostic)
}

// Root is the liveness banner.
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": rootMessage})
}

// Hello is a fixed greeting used by clients to check API reachability.
func (h *Handler) Hello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": helloMessage})
}

// DiagnosticReport is the /test response body.
type DiagnosticReport struct {
	Backend          string   `json:"backend"`
	Database         string   `json:"database"`
	DatabaseURL      string   `json:"database_url"`
	DatabaseName     string   `json:"database_name"`
	ConnectionStatus string   `json:"connection_status"`
	Collections      []string `json:"collections"`
	Store            string   `json:"store,omitempty"`
}

// Diagnostic reports store connectivity. It always answers 200; failures are described in the body.
func (h *Handler) Diagnostic(c *gin.Context) {
	c.JSON(http.StatusOK, h.Report(c.Request.Context()))
}

// Report builds the diagnostic body by pinging the store.
func (h *Handler) Report(ctx context.Context) DiagnosticReport {
	rep := DiagnosticReport{
		Backend:          "✅ Running",
		Database:         "❌ Not Available",
		DatabaseURL:      setOrNot(h.info.DatabaseURLSet),
		DatabaseName:     setOrNot(h.info.DatabaseNameSet),
		ConnectionStatus: "Not Connected",
		Collections:      []string{},
		Store:            h.info.Backend,
	}
	if h.pinger == nil {
		return rep
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := h.pinger.PingContext(pingCtx); err != nil {
		rep.Database = "❌ Error: " + truncate(err.Error(), maxErrorText)
		return rep
	}
	rep.Database = "✅ Connected & Working"
	rep.ConnectionStatus = "Connected"
	if len(h.info.Collections) > 0 {
		rep.Collections = append(rep.Collections, h.info.Collections...)
	}
	return rep
}

func setOrNot(ok bool) string {
	if ok {
		return "✅ Set"
	}
	return "❌ Not Set"
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
