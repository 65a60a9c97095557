package mysql

import (
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/LENAX/email-scheduler/pkg/storage"
)

// MySQLDialect MySQL方言实现（对外导出）
type MySQLDialect struct{}

// NewMySQLDialect 创建MySQL方言实例
func NewMySQLDialect() *MySQLDialect {
	return &MySQLDialect{}
}

// Name 返回方言名称
func (d *MySQLDialect) Name() string {
	return "mysql"
}

// Driver 返回驱动名
func (d *MySQLDialect) Driver() string {
	return "mysql"
}

// CreateTableSQL 返回run表DDL
func (d *MySQLDialect) CreateTableSQL() string {
	return `
CREATE TABLE IF NOT EXISTS runs (
    run_id        VARCHAR(64) PRIMARY KEY,
    status        VARCHAR(16) NOT NULL,
    stage         VARCHAR(32) NOT NULL DEFAULT '',
    error_message TEXT,
    test_mode     TINYINT(1) NOT NULL DEFAULT 0,
    total_emails  INT NOT NULL DEFAULT 0,
    done_count    INT NOT NULL DEFAULT 0,
    failed_count  INT NOT NULL DEFAULT 0,
    success_count BIGINT NOT NULL DEFAULT 0,
    failure_count BIGINT NOT NULL DEFAULT 0,
    retry_count   BIGINT NOT NULL DEFAULT 0,
    started_at    DATETIME(6) NOT NULL,
    finished_at   DATETIME(6)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`
}

// UpsertSQL 返回MySQL的UPSERT语句（ON DUPLICATE KEY UPDATE）
func (d *MySQLDialect) UpsertSQL() string {
	columns := storage.RunTableColumns()
	placeholders := make([]string, len(columns))
	updates := make([]string, 0, len(columns))
	for i, col := range columns {
		placeholders[i] = ":" + col
		if col != "run_id" {
			updates = append(updates, fmt.Sprintf("%s = VALUES(%s)", col, col))
		}
	}

	return fmt.Sprintf(
		"INSERT INTO runs (%s) VALUES (%s) ON DUPLICATE KEY UPDATE %s",
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)
}
