package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"chatline/internal/cache"
	"chatline/internal/metrics"
	"chatline/internal/middleware"
	"chatline/internal/model"
	"chatline/internal/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type MessageHandler struct {
	Store store.MessageStore
	Cache *cache.RangeCache
}

type sendMessageBody struct {
	Content string `json:"content" binding:"required"`
}

type updateMessageBody struct {
	ID      int64  `json:"id" binding:"required"`
	Content string `json:"content" binding:"required"`
}

type deleteMessageBody struct {
	ID int64 `json:"id" binding:"required"`
}

// List serves one page of the log, newest first, through the range cache.
func (h *MessageHandler) List(c *gin.Context) {
	var lastID int64
	if raw := c.Query("last_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid last_id"})
			return
		}
		lastID = id
	}
	limit := defaultPageSize
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPageSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	ctx := c.Request.Context()
	key := cache.KeyFor(lastID, limit)
	if page, ok := h.Cache.Get(ctx, key); ok {
		c.Header("X-Cache", "HIT")
		c.JSON(http.StatusOK, gin.H{"messages": page.Messages})
		return
	}

	messages, err := h.Store.ScanMessages(ctx, lastID, limit)
	if err != nil {
		middleware.LoggerFromContext(c).Error().Err(err).Msg("scan messages failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if err := h.Cache.Put(ctx, key, messages); err != nil {
		middleware.LoggerFromContext(c).Warn().Err(err).Str("key", key.String()).Msg("cache put failed")
	}

	c.Header("X-Cache", "MISS")
	c.JSON(http.StatusOK, gin.H{"messages": nonNil(messages)})
}

func (h *MessageHandler) Send(c *gin.Context) {
	var body sendMessageBody
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	username, ok := middleware.UsernameFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	ctx := c.Request.Context()
	msg, err := h.Store.AppendMessage(ctx, body.Content, username)
	if err != nil {
		middleware.LoggerFromContext(c).Error().Err(err).Msg("append message failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	metrics.MessageWrites.WithLabelValues("append").Inc()
	h.invalidate(c)

	middleware.LoggerFromContext(c).Info().Int64("id", msg.ID).Msg("message created")
	c.JSON(http.StatusOK, gin.H{"id": msg.ID})
}

// Update edits a message and patches the cached pages holding it instead
// of dropping the whole cache.
func (h *MessageHandler) Update(c *gin.Context) {
	var body updateMessageBody
	if err := c.ShouldBindJSON(&body); err != nil || body.ID <= 0 || strings.TrimSpace(body.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ctx := c.Request.Context()
	msg, err := h.Store.UpdateMessage(ctx, body.ID, body.Content)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
			return
		}
		middleware.LoggerFromContext(c).Error().Err(err).Msg("update message failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	metrics.MessageWrites.WithLabelValues("update").Inc()

	if msg.UpdatedAt != nil {
		if n, err := h.Cache.Patch(ctx, msg.ID, msg.Content, *msg.UpdatedAt); err != nil {
			middleware.LoggerFromContext(c).Warn().Err(err).Msg("cache patch failed, invalidating")
			h.invalidate(c)
		} else {
			middleware.LoggerFromContext(c).Debug().Int("pages", n).Msg("cache patched")
		}
	}

	middleware.LoggerFromContext(c).Info().Int64("id", msg.ID).Msg("message updated")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Delete takes the id from the query string or a JSON body.
func (h *MessageHandler) Delete(c *gin.Context) {
	id, ok := deleteID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.Store.DeleteMessage(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
			return
		}
		middleware.LoggerFromContext(c).Error().Err(err).Msg("delete message failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	metrics.MessageWrites.WithLabelValues("delete").Inc()
	h.invalidate(c)

	middleware.LoggerFromContext(c).Info().Int64("id", id).Msg("message deleted")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *MessageHandler) invalidate(c *gin.Context) {
	if err := h.Cache.InvalidateAll(c.Request.Context()); err != nil {
		middleware.LoggerFromContext(c).Warn().Err(err).Msg("cache invalidation failed")
	}
}

func deleteID(c *gin.Context) (int64, bool) {
	if raw := c.Query("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		return id, err == nil && id > 0
	}
	var body deleteMessageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		return 0, false
	}
	return body.ID, body.ID > 0
}

func nonNil(messages []model.Message) []model.Message {
	if messages == nil {
		return []model.Message{}
	}
	return messages
}
