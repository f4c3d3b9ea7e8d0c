package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	Store pinger
	Cache pinger
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{"ok": true, "store": "ok", "cache": "ok"}
	if err := h.Store.Ping(ctx); err != nil {
		status = http.StatusServiceUnavailable
		body["ok"] = false
		body["store"] = err.Error()
	}
	if err := h.Cache.Ping(ctx); err != nil {
		status = http.StatusServiceUnavailable
		body["ok"] = false
		body["cache"] = err.Error()
	}
	c.JSON(status, body)
}
