// Package sink 提供带重试退避的回复投递汇
package sink

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LENAX/email-scheduler/pkg/client"
	"github.com/LENAX/email-scheduler/pkg/core/email"
)

// Outcome 单次投递的终态
type Outcome int

const (
	// OutcomeDelivered 投递成功
	OutcomeDelivered Outcome = iota
	// OutcomeDropped 永久错误，立即丢弃
	OutcomeDropped
	// OutcomeExhausted 瞬时错误重试耗尽
	OutcomeExhausted
	// OutcomeAborted run被取消，投递中止
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeDropped:
		return "dropped"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// ResponsePoster 出站投递接口，由client.EmailClient实现
type ResponsePoster interface {
	PostResponse(ctx context.Context, payload email.Out) error
}

// Metrics 投递指标快照
type Metrics struct {
	SuccessCount int64 `json:"success_count"`
	FailureCount int64 `json:"failure_count"`
	RetryCount   int64 `json:"retry_count"`
}

// Config 投递汇配置
type Config struct {
	MaxRetries  int           // 最大尝试次数（含首次）
	BackoffBase time.Duration // 退避基础间隔，逐次翻倍
}

// ResponseSink 投递汇（对外导出）
// 瞬时错误按指数退避重试（±20%抖动），永久错误立即丢弃
// 只维护计数器和出站调用，不直接修改任何任务状态
type ResponseSink struct {
	poster ResponsePoster
	cfg    Config

	successCount atomic.Int64
	failureCount atomic.Int64
	retryCount   atomic.Int64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewResponseSink 创建投递汇
func NewResponseSink(poster ResponsePoster, cfg Config) *ResponseSink {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 200 * time.Millisecond
	}
	return &ResponseSink{
		poster: poster,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Send 投递一条回复并返回终态（对外导出）
// 重试期间context取消则返回OutcomeAborted
func (s *ResponseSink) Send(ctx context.Context, payload email.Out) Outcome {
	delay := s.cfg.BackoffBase

	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		err := s.poster.PostResponse(ctx, payload)
		if err == nil {
			s.successCount.Add(1)
			return OutcomeDelivered
		}

		if ctx.Err() != nil {
			return OutcomeAborted
		}

		if !client.IsTransient(err) {
			s.failureCount.Add(1)
			log.Printf("❌ [投递失败] email_id=%s, 永久错误不重试: %v", payload.EmailID, err)
			return OutcomeDropped
		}

		log.Printf("⚠️  [投递重试] email_id=%s, 第%d/%d次尝试失败: %v",
			payload.EmailID, attempt, s.cfg.MaxRetries, err)

		if attempt >= s.cfg.MaxRetries {
			s.failureCount.Add(1)
			return OutcomeExhausted
		}

		// ±20%抖动，避免重试风暴同步
		s.mu.Lock()
		jitter := 0.8 + 0.4*s.rng.Float64()
		s.mu.Unlock()

		timer := time.NewTimer(time.Duration(float64(delay) * jitter))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return OutcomeAborted
		}
		timer.Stop()

		s.retryCount.Add(1)
		delay *= 2
	}

	s.failureCount.Add(1)
	return OutcomeExhausted
}

// Snapshot 返回当前指标快照
func (s *ResponseSink) Snapshot() Metrics {
	return Metrics{
		SuccessCount: s.successCount.Load(),
		FailureCount: s.failureCount.Load(),
		RetryCount:   s.retryCount.Load(),
	}
}
