package run

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// TopicRunEvents run事件总线主题
const TopicRunEvents = "run.events"

// 事件类型
const (
	EventRunStarted   = "run_started"
	EventRunCompleted = "run_completed"
	EventRunFailed    = "run_failed"
	EventTaskStatus   = "task_status"
)

// Event run/任务状态事件
type Event struct {
	RunID     string    `json:"run_id"`
	Type      string    `json:"type"`
	EmailID   string    `json:"email_id,omitempty"`
	Status    string    `json:"status,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventBus 进程内事件总线（对外导出）
// 基于watermill gochannel实现，协调器发布、websocket等订阅方消费
type EventBus struct {
	pubsub *gochannel.GoChannel
}

// NewEventBus 创建事件总线
func NewEventBus() *EventBus {
	return &EventBus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 256},
			watermill.NopLogger{},
		),
	}
}

// Publish 发布一个事件（非关键路径，失败只记录不中断调度）
func (b *EventBus) Publish(ev Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	return b.pubsub.Publish(TopicRunEvents, msg)
}

// Subscribe 订阅run事件流
func (b *EventBus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, TopicRunEvents)
}

// Close 关闭事件总线
func (b *EventBus) Close() error {
	return b.pubsub.Close()
}
