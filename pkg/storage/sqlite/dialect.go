package sqlite

import (
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/LENAX/email-scheduler/pkg/storage"
)

// SQLiteDialect SQLite方言实现（对外导出）
type SQLiteDialect struct{}

// NewSQLiteDialect 创建SQLite方言实例
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

// Name 返回方言名称
func (d *SQLiteDialect) Name() string {
	return "sqlite"
}

// Driver 返回驱动名
func (d *SQLiteDialect) Driver() string {
	return "sqlite3"
}

// CreateTableSQL 返回run表DDL
func (d *SQLiteDialect) CreateTableSQL() string {
	return `
CREATE TABLE IF NOT EXISTS runs (
    run_id        TEXT PRIMARY KEY,
    status        TEXT NOT NULL,
    stage         TEXT NOT NULL DEFAULT '',
    error_message TEXT NOT NULL DEFAULT '',
    test_mode     INTEGER NOT NULL DEFAULT 0,
    total_emails  INTEGER NOT NULL DEFAULT 0,
    done_count    INTEGER NOT NULL DEFAULT 0,
    failed_count  INTEGER NOT NULL DEFAULT 0,
    success_count INTEGER NOT NULL DEFAULT 0,
    failure_count INTEGER NOT NULL DEFAULT 0,
    retry_count   INTEGER NOT NULL DEFAULT 0,
    started_at    DATETIME NOT NULL,
    finished_at   DATETIME
);`
}

// UpsertSQL 返回SQLite的UPSERT语句（ON CONFLICT DO UPDATE）
func (d *SQLiteDialect) UpsertSQL() string {
	columns := storage.RunTableColumns()
	placeholders := make([]string, len(columns))
	updates := make([]string, 0, len(columns))
	for i, col := range columns {
		placeholders[i] = ":" + col
		if col != "run_id" {
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
		}
	}

	return fmt.Sprintf(
		"INSERT INTO runs (%s) VALUES (%s) ON CONFLICT(run_id) DO UPDATE SET %s",
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)
}
