// Package scheduler 实现截止时间/依赖双重约束下的并发worker池调度
package scheduler

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/LENAX/email-scheduler/pkg/core/email"
	"github.com/LENAX/email-scheduler/pkg/core/generator"
	"github.com/LENAX/email-scheduler/pkg/core/graph"
	"github.com/LENAX/email-scheduler/pkg/core/readyset"
	"github.com/LENAX/email-scheduler/pkg/sink"
)

// Config 调度器配置
// SafetyMargin与生成器延迟窗口相互独立，可单独调整
type Config struct {
	Concurrency        int           // worker并发数
	SafetyMargin       time.Duration // 截止前安全余量（提前对齐到此时刻开始生成）
	InterDependencyGap time.Duration // 父任务完成到下游释放的最小间隔
	GeneratorTimeout   time.Duration // 生成调用硬超时
	APIKey             string
	TestMode           bool
}

// TaskEvent 任务状态变更事件
type TaskEvent struct {
	EmailID   string    `json:"email_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventFunc 任务事件回调
type EventFunc func(TaskEvent)

// Outcome 一次run的执行结果
type Outcome struct {
	Total    int          `json:"total"`
	Done     int          `json:"done"`
	Failed   int          `json:"failed"`
	Delivery sink.Metrics `json:"delivery"`
}

// Scheduler worker池调度器（对外导出）
// 从就绪集按deadline顺序取任务，对齐时间窗口后生成回复并投递，
// 完成后释放下游任务，直至就绪集彻底排空
type Scheduler struct {
	cfg     Config
	clock   Clock
	gen     generator.ResponseGenerator
	snk     *sink.ResponseSink
	onEvent EventFunc
}

// New 创建调度器
// clock为nil时使用真实时钟；onEvent为nil时不发布事件
func New(cfg Config, clock Clock, gen generator.ResponseGenerator, snk *sink.ResponseSink, onEvent EventFunc) *Scheduler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	if cfg.SafetyMargin <= 0 {
		cfg.SafetyMargin = 500 * time.Millisecond
	}
	if cfg.InterDependencyGap <= 0 {
		cfg.InterDependencyGap = 100 * time.Microsecond
	}
	if cfg.GeneratorTimeout <= 0 {
		cfg.GeneratorTimeout = 10 * time.Second
	}
	if clock == nil {
		clock = NewRealClock()
	}
	return &Scheduler{
		cfg:     cfg,
		clock:   clock,
		gen:     gen,
		snk:     snk,
		onEvent: onEvent,
	}
}

// Run 执行一次完整的调度run（对外导出）
// 返回error表示致命失败（run级Failed）；单任务失败只计入Outcome.Failed
func (s *Scheduler) Run(ctx context.Context, g *graph.DependencyGraph, emails []*email.Email) (*Outcome, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	rs := readyset.New(len(emails))
	for _, root := range g.Roots() {
		rs.Push(root)
	}

	// context取消时唤醒所有阻塞在Pop上的worker
	go func() {
		<-runCtx.Done()
		rs.Abort()
	}()

	var wg sync.WaitGroup
	var fatalOnce sync.Once
	var fatalErr error

	log.Printf("🚀 [调度启动] 任务数=%d, 并发数=%d", len(emails), s.cfg.Concurrency)

	for i := 0; i < s.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			if err := s.workerLoop(runCtx, g, rs); err != nil {
				fatalOnce.Do(func() {
					fatalErr = err
					log.Printf("❌ [Worker致命错误] worker=%d: %v", workerID, err)
					cancel()
					rs.Abort()
				})
			}
		}(i)
	}

	wg.Wait()

	outcome := s.tally(emails)
	if fatalErr != nil {
		return outcome, fatalErr
	}
	if err := ctx.Err(); err != nil {
		return outcome, err
	}

	log.Printf("✅ [调度完成] 总数=%d, 成功=%d, 失败=%d", outcome.Total, outcome.Done, outcome.Failed)
	return outcome, nil
}

// workerLoop 单个worker的主循环
// panic被捕获为致命错误上抛，由Run统一转为run级失败
func (s *Scheduler) workerLoop(ctx context.Context, g *graph.DependencyGraph, rs *readyset.ReadySet) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panic: %v\n%s", r, debug.Stack())
		}
	}()

	for {
		e, ok := rs.Pop(ctx)
		if !ok {
			return nil
		}
		if err := s.processOne(ctx, g, rs, e); err != nil {
			return err
		}
	}
}

// processOne 处理单个任务：时间对齐 → 生成 → 投递 → 间隔 → 释放下游
// 返回非nil error仅表示run级中断；任务级失败在内部记为FAILED后正常返回
func (s *Scheduler) processOne(ctx context.Context, g *graph.DependencyGraph, rs *readyset.ReadySet, e *email.Email) error {
	e.SetStatus(email.StatusInFlight)
	s.emit(e.EmailID, email.StatusInFlight, "")

	// 截止前对齐：slack超过安全余量时休眠，使生成+投递落在deadline前的余量窗口内
	slack := e.Deadline.Sub(s.clock.Now()) - s.cfg.SafetyMargin
	if slack > 0 {
		if err := s.clock.Sleep(ctx, slack); err != nil {
			return err
		}
	}

	text, genErr := s.generate(ctx, e)
	if genErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// 生成超时/失败是任务级失败，不重试生成，下游照常释放以保证run能排空
		log.Printf("❌ [生成失败] email_id=%s: %v", e.EmailID, genErr)
		return s.finish(ctx, g, rs, e, email.StatusFailed, genErr.Error())
	}

	payload := email.Out{
		EmailID:      e.EmailID,
		ResponseBody: text,
		APIKey:       s.cfg.APIKey,
	}
	if s.cfg.TestMode {
		payload.TestMode = "true"
	}

	switch s.snk.Send(ctx, payload) {
	case sink.OutcomeDelivered:
		return s.finish(ctx, g, rs, e, email.StatusDone, "")
	case sink.OutcomeAborted:
		return ctx.Err()
	default:
		return s.finish(ctx, g, rs, e, email.StatusFailed, "投递失败")
	}
}

// generate 带硬超时的生成调用
func (s *Scheduler) generate(ctx context.Context, e *email.Email) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, s.cfg.GeneratorTimeout)
	defer cancel()

	text, err := s.gen.Generate(genCtx, e)
	if err != nil {
		if genCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("生成超时(%v): %w", s.cfg.GeneratorTimeout, err)
		}
		return "", err
	}
	return text, nil
}

// finish 任务收尾：先等待最小间隔，再释放下游并更新终态
// 间隔在MarkDone之前执行，保证下游观察到的父任务完成间距不小于配置值
func (s *Scheduler) finish(ctx context.Context, g *graph.DependencyGraph, rs *readyset.ReadySet, e *email.Email, status, message string) error {
	if err := s.clock.Sleep(ctx, s.cfg.InterDependencyGap); err != nil {
		return err
	}

	e.SetStatus(status)
	s.emit(e.EmailID, status, message)

	for _, child := range g.MarkDone(e.EmailID) {
		rs.Push(child)
	}
	rs.TaskFinished()
	return nil
}

// tally 汇总终态计数
func (s *Scheduler) tally(emails []*email.Email) *Outcome {
	outcome := &Outcome{Total: len(emails)}
	for _, e := range emails {
		switch e.Status() {
		case email.StatusDone:
			outcome.Done++
		case email.StatusFailed:
			outcome.Failed++
		}
	}
	if s.snk != nil {
		outcome.Delivery = s.snk.Snapshot()
	}
	return outcome
}

func (s *Scheduler) emit(emailID, status, message string) {
	if s.onEvent == nil {
		return
	}
	s.onEvent(TaskEvent{
		EmailID:   emailID,
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	})
}
