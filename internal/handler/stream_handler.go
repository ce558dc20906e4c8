package handler

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"pulseflow/internal/realtime"
	"pulseflow/internal/workspace"
)

// StreamHandler relays the caller's change events as server-sent events.
type StreamHandler struct {
	registry *workspace.Registry
	sub      realtime.Subscriber

	done chan struct{}
	once sync.Once
}

func NewStreamHandler(registry *workspace.Registry, sub realtime.Subscriber) *StreamHandler {
	return &StreamHandler{registry: registry, sub: sub, done: make(chan struct{})}
}

// Close ends every open stream.
func (h *StreamHandler) Close() {
	h.once.Do(func() { close(h.done) })
}

// Stream держит соединение, пока клиент не отключится. Подписка
// фиксирует набор досок на момент подключения. С ?feedback=true
// в поток попадают и новые отзывы
func (h *StreamHandler) Stream(c *gin.Context) {
	ws, ok := openWorkspace(c, h.registry)
	if !ok {
		return
	}
	// пока поток открыт, пространство не выселяется
	release := ws.Hold()
	defer release()

	user := currentSession(c).UserID.String()
	topics := []realtime.Topic{
		{Table: "notifications", Column: "user_id", Value: user},
		{Table: "board_shares", Column: "user_id", Value: user},
		{Table: "boards", Column: "owner_id", Value: user},
	}
	if c.Query("feedback") == "true" {
		topics = append(topics, realtime.Topic{Table: "feedback"})
	}
	for _, id := range ws.Store.BoardIDs() {
		topics = append(topics,
			realtime.Topic{Table: "boards", Column: "id", Value: id.String()},
			realtime.Topic{Table: "tasks", Column: "board_id", Value: id.String()},
		)
	}

	ctx := c.Request.Context()
	subscription, err := h.sub.Subscribe(ctx, topics...)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to subscribe to changes"})
		return
	}
	defer subscription.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case ev, ok := <-subscription.Events():
			if !ok {
				return
			}
			c.SSEvent(ev.Table, ev)
			c.Writer.Flush()
		}
	}
}
