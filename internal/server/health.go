package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"bitelogs/pkg/database"
)

type Health struct {
	DB      *sqlx.DB
	Version string
	Timeout time.Duration
}

func NewHealth(db *sqlx.DB, version string) *Health {
	return &Health{DB: db, Version: version, Timeout: 2 * time.Second}
}

func (h *Health) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.health)
	rg.GET("/live", h.live)
	rg.GET("/ready", h.ready)
}

func (h *Health) ping(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, h.Timeout)
	defer cancel()
	return database.Ping(ctx, h.DB)
}

func (h *Health) health(c *gin.Context) {
	status, code, dbState := "healthy", http.StatusOK, "connected"
	if err := h.ping(c.Request.Context()); err != nil {
		status, code, dbState = "unhealthy", http.StatusServiceUnavailable, "disconnected"
	}
	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"database":  dbState,
		"version":   h.Version,
	})
}

func (h *Health) live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Health) ready(c *gin.Context) {
	if err := h.ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
