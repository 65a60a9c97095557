package dao

import (
	"database/sql"
	"time"
)

// RunDAO run记录的数据库映射对象
type RunDAO struct {
	RunID        string       `db:"run_id"`
	Status       string       `db:"status"`
	Stage        string       `db:"stage"`
	ErrorMessage string       `db:"error_message"`
	TestMode     bool         `db:"test_mode"`
	TotalEmails  int          `db:"total_emails"`
	DoneCount    int          `db:"done_count"`
	FailedCount  int          `db:"failed_count"`
	SuccessCount int64        `db:"success_count"`
	FailureCount int64        `db:"failure_count"`
	RetryCount   int64        `db:"retry_count"`
	StartedAt    time.Time    `db:"started_at"`
	FinishedAt   sql.NullTime `db:"finished_at"`
}
