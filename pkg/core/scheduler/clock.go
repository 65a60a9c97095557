package scheduler

import (
	"context"
	"time"
)

// Clock 单调时钟抽象（对外导出）
// 调度器的所有时间读取和休眠都经过此接口，便于测试时注入可控时钟
type Clock interface {
	// Now 返回当前时刻
	Now() time.Time
	// Sleep 休眠指定时长，期间context取消则提前返回ctx.Err()
	Sleep(ctx context.Context, d time.Duration) error
}

// realClock 基于time包的真实时钟
type realClock struct{}

// NewRealClock 创建真实时钟
func NewRealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
