// Package storage 提供按配置选择数据库方言的RunRepository工厂
package storage

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/LENAX/email-scheduler/pkg/config"
	"github.com/LENAX/email-scheduler/pkg/storage"
	"github.com/LENAX/email-scheduler/pkg/storage/mysql"
	"github.com/LENAX/email-scheduler/pkg/storage/postgres"
	"github.com/LENAX/email-scheduler/pkg/storage/sqlite"
)

// NewRunRepository 根据数据库配置创建RunRepository（内部工厂方法）
// cfg.Type为空时返回(nil, nil)，表示不启用持久化
func NewRunRepository(cfg config.DatabaseConfig) (storage.RunRepository, error) {
	if cfg.Type == "" {
		return nil, nil
	}

	dialect, dsn, err := resolve(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(dialect.Driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}

	repo, err := storage.NewRunRepoWithDB(db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// resolve 选择方言并构建DSN
func resolve(cfg config.DatabaseConfig) (storage.Dialect, string, error) {
	switch cfg.Type {
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = "./email-scheduler.db"
		}
		return sqlite.NewSQLiteDialect(), path, nil
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)
		return mysql.NewMySQLDialect(), dsn, nil
	case "postgres", "postgresql":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName)
		return postgres.NewPostgresDialect(), dsn, nil
	default:
		return nil, "", fmt.Errorf("不支持的数据库类型: %s", cfg.Type)
	}
}
