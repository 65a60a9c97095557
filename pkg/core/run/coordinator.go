// Package run 提供run生命周期协调：抓取、校验、调度和状态查询
package run

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/LENAX/email-scheduler/pkg/core/email"
	"github.com/LENAX/email-scheduler/pkg/core/generator"
	"github.com/LENAX/email-scheduler/pkg/core/graph"
	"github.com/LENAX/email-scheduler/pkg/core/scheduler"
	"github.com/LENAX/email-scheduler/pkg/sink"
	"github.com/LENAX/email-scheduler/pkg/storage"
)

var errNoValidEmails = errors.New("解析后没有有效邮件")

// EmailFetcher 邮件拉取接口，由client.EmailClient实现
type EmailFetcher interface {
	FetchEmails(ctx context.Context, testMode bool) ([]email.In, error)
}

// Options 协调器依赖与配置
type Options struct {
	Fetcher    EmailFetcher
	Poster     sink.ResponsePoster
	Generator  generator.ResponseGenerator
	Scheduler  scheduler.Config
	Sink       sink.Config
	Clock      scheduler.Clock       // nil时使用真实时钟
	Bus        *EventBus             // nil时不发布事件
	Repository storage.RunRepository // nil时不持久化run历史
}

// Coordinator run协调器（对外导出）
// 持有run状态机：PENDING → RUNNING → COMPLETED|FAILED
// 每次Start创建独立的调度器和投递汇，run之间无共享可变状态
type Coordinator struct {
	opts     Options
	registry *Registry
}

// NewCoordinator 创建协调器
func NewCoordinator(opts Options) *Coordinator {
	return &Coordinator{
		opts:     opts,
		registry: NewRegistry(),
	}
}

// Start 启动一次run并返回run_id（对外导出）
// 处理在后台进行，进度通过Status查询
func (c *Coordinator) Start(ctx context.Context, testMode bool) string {
	runID := uuid.NewString()
	c.registry.Create(runID, testMode)

	log.Printf("🚀 [Run启动] run_id=%s, test_mode=%v", runID, testMode)
	c.publish(Event{RunID: runID, Type: EventRunStarted})

	go c.execute(ctx, runID, testMode)
	return runID
}

// Status 查询run状态（幂等）
func (c *Coordinator) Status(runID string) (State, bool) {
	return c.registry.Get(runID)
}

// List 列出协调器持有的全部run状态
func (c *Coordinator) List() []State {
	return c.registry.List()
}

// execute 执行一次完整run：抓取 → 解析 → 建图 → 调度 → 收尾
func (c *Coordinator) execute(ctx context.Context, runID string, testMode bool) {
	raw, err := c.opts.Fetcher.FetchEmails(ctx, testMode)
	if err != nil {
		c.fail(runID, StageFetch, err)
		return
	}
	log.Printf("📥 [邮件拉取完成] run_id=%s, 数量=%d", runID, len(raw))

	// 截止时间以抓取完成时刻为基准换算为绝对时间
	fetchStart := time.Now()
	emails := make([]*email.Email, 0, len(raw))
	for i, r := range raw {
		if r.EmailID == "" {
			// 个别畸形邮件跳过，不中断整个run
			log.Printf("⚠️  [跳过畸形邮件] run_id=%s, 序号=%d", runID, i)
			continue
		}
		emails = append(emails, email.FromExternal(r, fetchStart, i))
	}

	if len(emails) == 0 {
		c.fail(runID, StageParse, errNoValidEmails)
		return
	}

	g, err := graph.Build(emails)
	if err != nil {
		// 校验失败在任何派发之前终止，没有任何投递副作用
		c.fail(runID, StageValidation, err)
		return
	}

	c.registry.Update(runID, func(s *State) {
		s.Status = StatusRunning
		s.TotalEmails = len(emails)
	})

	// 每个run独立的投递汇与调度器，计数器互不串扰
	snk := sink.NewResponseSink(c.opts.Poster, c.opts.Sink)
	schedCfg := c.opts.Scheduler
	schedCfg.TestMode = testMode
	sched := scheduler.New(schedCfg, c.opts.Clock, c.opts.Generator, snk, func(ev scheduler.TaskEvent) {
		c.publish(Event{
			RunID:     runID,
			Type:      EventTaskStatus,
			EmailID:   ev.EmailID,
			Status:    ev.Status,
			Message:   ev.Message,
			Timestamp: ev.Timestamp,
		})
	})

	outcome, runErr := sched.Run(ctx, g, emails)

	now := time.Now()
	c.registry.Update(runID, func(s *State) {
		s.FinishedAt = &now
		if outcome != nil {
			s.DoneCount = outcome.Done
			s.FailedCount = outcome.Failed
			s.Delivery = outcome.Delivery
		}
		if runErr != nil {
			s.Status = StatusFailed
			s.Stage = StageProcessing
			s.ErrorMessage = runErr.Error()
		} else {
			s.Status = StatusCompleted
		}
	})

	if runErr != nil {
		log.Printf("❌ [Run失败] run_id=%s: %v", runID, runErr)
		c.publish(Event{RunID: runID, Type: EventRunFailed, Message: runErr.Error()})
	} else {
		log.Printf("✅ [Run完成] run_id=%s, 成功=%d, 失败=%d, 重试=%d",
			runID, outcome.Delivery.SuccessCount, outcome.Delivery.FailureCount, outcome.Delivery.RetryCount)
		c.publish(Event{RunID: runID, Type: EventRunCompleted})
	}

	c.persist(runID)
}

// fail 将run置为FAILED并记录失败阶段
func (c *Coordinator) fail(runID, stage string, err error) {
	log.Printf("❌ [Run失败] run_id=%s, 阶段=%s: %v", runID, stage, err)

	now := time.Now()
	c.registry.Update(runID, func(s *State) {
		s.Status = StatusFailed
		s.Stage = stage
		s.ErrorMessage = err.Error()
		s.FinishedAt = &now
	})

	c.publish(Event{RunID: runID, Type: EventRunFailed, Message: err.Error()})
	c.persist(runID)
}

// persist 将run终态写入存储（未配置存储时跳过）
func (c *Coordinator) persist(runID string) {
	if c.opts.Repository == nil {
		return
	}

	state, ok := c.registry.Get(runID)
	if !ok {
		return
	}

	record := &storage.RunRecord{
		RunID:        state.RunID,
		Status:       state.Status,
		Stage:        state.Stage,
		ErrorMessage: state.ErrorMessage,
		TestMode:     state.TestMode,
		TotalEmails:  state.TotalEmails,
		DoneCount:    state.DoneCount,
		FailedCount:  state.FailedCount,
		SuccessCount: state.Delivery.SuccessCount,
		FailureCount: state.Delivery.FailureCount,
		RetryCount:   state.Delivery.RetryCount,
		StartedAt:    state.StartedAt,
		FinishedAt:   state.FinishedAt,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.opts.Repository.Save(ctx, record); err != nil {
		log.Printf("⚠️  [Run记录保存失败] run_id=%s: %v", runID, err)
	}
}

// publish 发布事件（总线未配置时跳过）
func (c *Coordinator) publish(ev Event) {
	if c.opts.Bus == nil {
		return
	}
	if err := c.opts.Bus.Publish(ev); err != nil {
		log.Printf("⚠️  [事件发布失败] run_id=%s, type=%s: %v", ev.RunID, ev.Type, err)
	}
}
