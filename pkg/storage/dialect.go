package storage

// Dialect 数据库方言接口（对外导出）
// 屏蔽不同数据库在驱动名、DSN、建表DDL和UPSERT语法上的差异
type Dialect interface {
	// Name 方言名称
	Name() string
	// Driver sqlx.Open使用的驱动名
	Driver() string
	// CreateTableSQL run表的建表DDL
	CreateTableSQL() string
	// UpsertSQL run表的命名参数UPSERT语句（冲突键run_id）
	UpsertSQL() string
}

// RunTableColumns run表的列清单，UPSERT语句按此顺序生成（对外导出，供方言实现使用）
func RunTableColumns() []string {
	return []string{
		"run_id", "status", "stage", "error_message", "test_mode",
		"total_emails", "done_count", "failed_count",
		"success_count", "failure_count", "retry_count",
		"started_at", "finished_at",
	}
}
