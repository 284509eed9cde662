package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"moon-oracle/backend/internal/oracle/domain"
	sessiondomain "moon-oracle/backend/internal/session/domain"
)

// Oracle is the gate behind the HTTP handlers.
type Oracle interface {
	Activate(ctx context.Context, sessionID string) (*domain.Activation, error)
	Read(ctx context.Context, sessionID string) (*domain.Result, error)
}

// Handler serves the oracle endpoints.
type Handler struct {
	oracle Oracle
}

// NewHandler returns a Handler backed by oracle.
func NewHandler(oracle Oracle) *Handler {
	return &Handler{oracle: oracle}
}

// RegisterRoutes mounts POST /api/activate and POST /api/read.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api")
	api.POST("/activate", h.Activate)
	api.POST("/read", h.Read)
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

func bindSession(c *gin.Context) (string, bool) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: body must be {\"session_id\": string}"})
		return "", false
	}
	if err := sessiondomain.ValidateID(req.SessionID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return req.SessionID, true
}

func writeError(c *gin.Context, op string, err error) {
	if errors.Is(err, sessiondomain.ErrInvalidSessionID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	log.Printf("oracle: %s %s: %v", op, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// Activate registers a session without consuming a reading.
func (h *Handler) Activate(c *gin.Context) {
	id, ok := bindSession(c)
	if !ok {
		return
	}
	act, err := h.oracle.Activate(c.Request.Context(), id)
	if err != nil {
		writeError(c, "activate", err)
		return
	}
	c.JSON(http.StatusOK, act)
}

// Read serves a reading object, or a one-element alert list once the session's quota is spent.
func (h *Handler) Read(c *gin.Context) {
	id, ok := bindSession(c)
	if !ok {
		return
	}
	res, err := h.oracle.Read(c.Request.Context(), id)
	if err != nil {
		writeError(c, "read", err)
		return
	}
	c.JSON(http.StatusOK, res.Body())
}
