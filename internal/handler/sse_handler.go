package handler

import (
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_systempay/internal/sse"
	"github.com/GTDGit/gtd_systempay/internal/utils"
)

const sseHeartbeat = 30 * time.Second

// SSEHandler streams payment events to the back office.
type SSEHandler struct {
	hub *sse.Hub
}

// NewSSEHandler creates a new SSEHandler.
func NewSSEHandler(hub *sse.Hub) *SSEHandler {
	return &SSEHandler{hub: hub}
}

// Stream handles GET /v1/admin/sse?token=<jwt>
// EventSource cannot set headers, so the JWT comes in the query string.
func (h *SSEHandler) Stream(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		utils.Error(c, 401, "UNAUTHORIZED", "Missing token query parameter")
		return
	}

	claims, err := utils.ValidateJWT(token)
	if err != nil {
		utils.Error(c, 401, "INVALID_TOKEN", "Invalid or expired token")
		return
	}

	subscriberID := fmt.Sprintf("admin-%d-%d", claims.UserID, time.Now().UnixNano())

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	sub := h.hub.Subscribe(subscriberID)
	defer h.hub.Unsubscribe(sub)

	c.SSEvent("connected", gin.H{
		"subscriberId": subscriberID,
		"timestamp":    time.Now().Format(time.RFC3339),
	})
	c.Writer.Flush()

	log.Info().Str("subscriber_id", subscriberID).Int("user_id", claims.UserID).Msg("Payment event stream started")

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case data, ok := <-sub.Events:
			if !ok {
				return false
			}
			c.SSEvent("payment", string(data))
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", gin.H{"timestamp": time.Now().Format(time.RFC3339)})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
