package run

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/LENAX/email-scheduler/pkg/core/email"
	"github.com/LENAX/email-scheduler/pkg/core/generator"
	"github.com/LENAX/email-scheduler/pkg/core/scheduler"
	"github.com/LENAX/email-scheduler/pkg/sink"
)

// stubFetcher 返回预置邮件列表或错误
type stubFetcher struct {
	emails []email.In
	err    error
}

func (f *stubFetcher) FetchEmails(ctx context.Context, testMode bool) ([]email.In, error) {
	return f.emails, f.err
}

// countingPoster 记录投递调用次数
type countingPoster struct {
	mu    sync.Mutex
	calls int
}

func (p *countingPoster) PostResponse(ctx context.Context, payload email.Out) error {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return nil
}

func (p *countingPoster) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func newTestCoordinator(fetcher EmailFetcher, poster sink.ResponsePoster) *Coordinator {
	return NewCoordinator(Options{
		Fetcher:   fetcher,
		Poster:    poster,
		Generator: generator.NewMockGenerator(generator.MockConfig{DelayMin: time.Microsecond, DelayMax: time.Microsecond}),
		Scheduler: scheduler.Config{
			Concurrency:        4,
			SafetyMargin:       time.Hour, // 截止对齐休眠在测试中直接跳过
			InterDependencyGap: 100 * time.Microsecond,
			GeneratorTimeout:   time.Second,
		},
		Sink: sink.Config{MaxRetries: 3, BackoffBase: time.Millisecond},
	})
}

// waitTerminal 轮询直到run进入终态
func waitTerminal(t *testing.T, c *Coordinator, runID string) State {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		state, ok := c.Status(runID)
		if !ok {
			t.Fatalf("run不存在: %s", runID)
		}
		if state.Status == StatusCompleted || state.Status == StatusFailed {
			return state
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("run %s 在5秒内未进入终态", runID)
	return State{}
}

func TestCoordinator_SuccessfulRun(t *testing.T) {
	fetcher := &stubFetcher{emails: []email.In{
		{EmailID: "A", Subject: "a", Deadline: 10},
		{EmailID: "B", Subject: "b", Deadline: 20, Dependencies: []string{"A"}},
	}}
	poster := &countingPoster{}
	c := newTestCoordinator(fetcher, poster)

	runID := c.Start(context.Background(), false)
	state := waitTerminal(t, c, runID)

	if state.Status != StatusCompleted {
		t.Fatalf("期望COMPLETED，实际%s（错误: %s）", state.Status, state.ErrorMessage)
	}
	if state.TotalEmails != 2 || state.DoneCount != 2 || state.FailedCount != 0 {
		t.Errorf("计数异常: total=%d done=%d failed=%d", state.TotalEmails, state.DoneCount, state.FailedCount)
	}
	if state.Delivery.SuccessCount != 2 {
		t.Errorf("期望success_count为2，实际%d", state.Delivery.SuccessCount)
	}
	if state.FinishedAt == nil {
		t.Error("期望终态记录结束时间")
	}
	if poster.count() != 2 {
		t.Errorf("期望投递2次，实际%d次", poster.count())
	}
}

// TestCoordinator_CycleRejected 循环依赖在校验阶段被拒绝：零投递副作用
func TestCoordinator_CycleRejected(t *testing.T) {
	fetcher := &stubFetcher{emails: []email.In{
		{EmailID: "A", Subject: "a", Deadline: 10, Dependencies: []string{"B"}},
		{EmailID: "B", Subject: "b", Deadline: 20, Dependencies: []string{"A"}},
	}}
	poster := &countingPoster{}
	c := newTestCoordinator(fetcher, poster)

	runID := c.Start(context.Background(), false)
	state := waitTerminal(t, c, runID)

	if state.Status != StatusFailed {
		t.Fatalf("期望FAILED，实际%s", state.Status)
	}
	if state.Stage != StageValidation {
		t.Errorf("期望失败阶段为validation，实际%s", state.Stage)
	}
	if state.ErrorMessage == "" {
		t.Error("期望记录错误信息")
	}
	if poster.count() != 0 {
		t.Errorf("期望校验失败时无任何投递，实际%d次", poster.count())
	}
}

func TestCoordinator_UnknownDependencyRejected(t *testing.T) {
	fetcher := &stubFetcher{emails: []email.In{
		{EmailID: "A", Subject: "a", Deadline: 10, Dependencies: []string{"ghost"}},
	}}
	poster := &countingPoster{}
	c := newTestCoordinator(fetcher, poster)

	runID := c.Start(context.Background(), false)
	state := waitTerminal(t, c, runID)

	if state.Status != StatusFailed || state.Stage != StageValidation {
		t.Fatalf("期望validation阶段FAILED，实际status=%s stage=%s", state.Status, state.Stage)
	}
	if poster.count() != 0 {
		t.Errorf("期望无投递副作用，实际%d次", poster.count())
	}
}

func TestCoordinator_FetchFailure(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("网络不可达")}
	c := newTestCoordinator(fetcher, &countingPoster{})

	runID := c.Start(context.Background(), false)
	state := waitTerminal(t, c, runID)

	if state.Status != StatusFailed || state.Stage != StageFetch {
		t.Fatalf("期望fetch阶段FAILED，实际status=%s stage=%s", state.Status, state.Stage)
	}
}

// TestCoordinator_MalformedSkipped 缺少email_id的畸形邮件跳过，其余照常处理
func TestCoordinator_MalformedSkipped(t *testing.T) {
	fetcher := &stubFetcher{emails: []email.In{
		{EmailID: "", Subject: "畸形", Deadline: 10},
		{EmailID: "A", Subject: "a", Deadline: 10},
	}}
	poster := &countingPoster{}
	c := newTestCoordinator(fetcher, poster)

	runID := c.Start(context.Background(), false)
	state := waitTerminal(t, c, runID)

	if state.Status != StatusCompleted {
		t.Fatalf("期望COMPLETED，实际%s", state.Status)
	}
	if state.TotalEmails != 1 {
		t.Errorf("期望有效邮件1封，实际%d", state.TotalEmails)
	}
}

func TestCoordinator_EmptyListFails(t *testing.T) {
	fetcher := &stubFetcher{emails: []email.In{}}
	c := newTestCoordinator(fetcher, &countingPoster{})

	runID := c.Start(context.Background(), false)
	state := waitTerminal(t, c, runID)

	if state.Status != StatusFailed || state.Stage != StageParse {
		t.Fatalf("期望parse阶段FAILED，实际status=%s stage=%s", state.Status, state.Stage)
	}
}

func TestCoordinator_UnknownRunID(t *testing.T) {
	c := newTestCoordinator(&stubFetcher{}, &countingPoster{})
	if _, ok := c.Status("no-such-run"); ok {
		t.Fatal("期望未知run_id返回not found")
	}
}

// TestCoordinator_IndependentRuns 两次run的投递计数互不串扰
func TestCoordinator_IndependentRuns(t *testing.T) {
	fetcher := &stubFetcher{emails: []email.In{
		{EmailID: "A", Subject: "a", Deadline: 10},
	}}
	poster := &countingPoster{}
	c := newTestCoordinator(fetcher, poster)

	first := waitTerminal(t, c, c.Start(context.Background(), false))
	second := waitTerminal(t, c, c.Start(context.Background(), true))

	if first.Delivery.SuccessCount != 1 || second.Delivery.SuccessCount != 1 {
		t.Errorf("期望每次run独立计数1，实际%d和%d",
			first.Delivery.SuccessCount, second.Delivery.SuccessCount)
	}
	if !second.TestMode {
		t.Error("期望第二次run记录test_mode=true")
	}
	if len(c.List()) != 2 {
		t.Errorf("期望注册表记录2次run，实际%d", len(c.List()))
	}
}
