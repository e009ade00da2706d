package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the operational endpoints
type Handler struct {
	db      *sqlx.DB
	started time.Time
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{db: db, started: time.Now()}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK
	if err := h.db.PingContext(c.Request.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status": status,
		"time":   time.Now().UTC(),
		"uptime": time.Since(h.started).String(),
	})
}

func (h *Handler) MetricsHandler(c *gin.Context) {
	promhttp.Handler().ServeHTTP(c.Writer, c.Request)
}
