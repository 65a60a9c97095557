package run

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// CronTrigger 定时触发器（对外导出）
// 按cron表达式（秒级精度）周期性触发新的run
type CronTrigger struct {
	cron        *cron.Cron
	coordinator *Coordinator
	entryID     cron.EntryID
	testMode    bool
}

// NewCronTrigger 创建定时触发器
func NewCronTrigger(coordinator *Coordinator, expr string, testMode bool) (*CronTrigger, error) {
	if expr == "" {
		return nil, fmt.Errorf("cron表达式不能为空")
	}

	c := cron.New(cron.WithSeconds())
	trigger := &CronTrigger{
		cron:        c,
		coordinator: coordinator,
		testMode:    testMode,
	}

	entryID, err := c.AddFunc(expr, func() {
		runID := coordinator.Start(context.Background(), trigger.testMode)
		log.Printf("⏰ [定时触发] run_id=%s", runID)
	})
	if err != nil {
		return nil, fmt.Errorf("cron表达式无效: %w", err)
	}

	trigger.entryID = entryID
	return trigger, nil
}

// Start 启动定时触发
func (t *CronTrigger) Start() {
	t.cron.Start()
	log.Printf("✅ 定时触发器已启动")
}

// Stop 停止定时触发，等待进行中的触发回调返回
func (t *CronTrigger) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	log.Printf("✅ 定时触发器已停止")
}
