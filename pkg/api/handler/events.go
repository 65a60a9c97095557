package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/LENAX/email-scheduler/pkg/core/run"
)

// EventsHandler run事件流处理器（websocket）
type EventsHandler struct {
	bus      *run.EventBus
	upgrader websocket.Upgrader
}

// NewEventsHandler 创建EventsHandler
func NewEventsHandler(bus *run.EventBus) *EventsHandler {
	return &EventsHandler{
		bus: bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Stream 推送指定run的事件流
// GET /api/v1/runs/:id/events （websocket升级）
func (h *EventsHandler) Stream(c *gin.Context) {
	runID := c.Param("id")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("⚠️  [WebSocket升级失败] run_id=%s: %v", runID, err)
		return
	}
	defer conn.Close()

	messages, err := h.bus.Subscribe(c.Request.Context())
	if err != nil {
		log.Printf("⚠️  [事件订阅失败] run_id=%s: %v", runID, err)
		return
	}

	// 客户端断开时读循环报错，借此退出写循环
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return
			}

			var ev run.Event
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				msg.Ack()
				continue
			}
			msg.Ack()

			// 只推送目标run的事件
			if ev.RunID != runID {
				continue
			}

			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}

			// run终结事件推送完即关闭连接
			if ev.Type == run.EventRunCompleted || ev.Type == run.EventRunFailed {
				return
			}
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
