// Package storage 提供run历史记录的持久化
package storage

import (
	"context"
	"time"

	"github.com/LENAX/email-scheduler/pkg/storage/dao"
)

// RunRecord run历史记录（对外导出）
type RunRecord struct {
	RunID        string     `json:"run_id"`
	Status       string     `json:"status"`
	Stage        string     `json:"stage,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	TestMode     bool       `json:"test_mode"`
	TotalEmails  int        `json:"total_emails"`
	DoneCount    int        `json:"done_count"`
	FailedCount  int        `json:"failed_count"`
	SuccessCount int64      `json:"success_count"`
	FailureCount int64      `json:"failure_count"`
	RetryCount   int64      `json:"retry_count"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// RunRepository run记录存储接口（对外导出）
type RunRepository interface {
	// Save 保存或更新run记录（以run_id为冲突键）
	Save(ctx context.Context, record *RunRecord) error
	// GetByID 查询指定run记录，不存在时返回(nil, nil)
	GetByID(ctx context.Context, runID string) (*RunRecord, error)
	// List 按开始时间倒序列出最近的run记录
	List(ctx context.Context, limit int) ([]*RunRecord, error)
	// Close 关闭底层连接
	Close() error
}

// toDAO 转换为数据库映射对象
func toDAO(r *RunRecord) *dao.RunDAO {
	d := &dao.RunDAO{
		RunID:        r.RunID,
		Status:       r.Status,
		Stage:        r.Stage,
		ErrorMessage: r.ErrorMessage,
		TestMode:     r.TestMode,
		TotalEmails:  r.TotalEmails,
		DoneCount:    r.DoneCount,
		FailedCount:  r.FailedCount,
		SuccessCount: r.SuccessCount,
		FailureCount: r.FailureCount,
		RetryCount:   r.RetryCount,
		StartedAt:    r.StartedAt,
	}
	if r.FinishedAt != nil {
		d.FinishedAt.Time = *r.FinishedAt
		d.FinishedAt.Valid = true
	}
	return d
}

// fromDAO 从数据库映射对象转换
func fromDAO(d *dao.RunDAO) *RunRecord {
	r := &RunRecord{
		RunID:        d.RunID,
		Status:       d.Status,
		Stage:        d.Stage,
		ErrorMessage: d.ErrorMessage,
		TestMode:     d.TestMode,
		TotalEmails:  d.TotalEmails,
		DoneCount:    d.DoneCount,
		FailedCount:  d.FailedCount,
		SuccessCount: d.SuccessCount,
		FailureCount: d.FailureCount,
		RetryCount:   d.RetryCount,
		StartedAt:    d.StartedAt,
	}
	if d.FinishedAt.Valid {
		t := d.FinishedAt.Time
		r.FinishedAt = &t
	}
	return r
}
