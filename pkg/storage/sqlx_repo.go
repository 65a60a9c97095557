package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/LENAX/email-scheduler/pkg/storage/dao"
)

// sqlxRunRepo 基于sqlx的RunRepository实现，方言差异由Dialect处理
type sqlxRunRepo struct {
	db      *sqlx.DB
	dialect Dialect
}

// NewRunRepoWithDB 使用已有连接创建RunRepository（对外导出）
func NewRunRepoWithDB(db *sqlx.DB, dialect Dialect) (RunRepository, error) {
	repo := &sqlxRunRepo{db: db, dialect: dialect}
	if _, err := db.Exec(dialect.CreateTableSQL()); err != nil {
		return nil, fmt.Errorf("初始化run表结构失败: %w", err)
	}
	return repo, nil
}

// Save 保存或更新run记录
func (r *sqlxRunRepo) Save(ctx context.Context, record *RunRecord) error {
	if record == nil || record.RunID == "" {
		return fmt.Errorf("run记录或run_id不能为空")
	}

	if _, err := r.db.NamedExecContext(ctx, r.dialect.UpsertSQL(), toDAO(record)); err != nil {
		return fmt.Errorf("保存run记录失败: %w", err)
	}
	return nil
}

// GetByID 查询指定run记录
func (r *sqlxRunRepo) GetByID(ctx context.Context, runID string) (*RunRecord, error) {
	query := r.db.Rebind("SELECT * FROM runs WHERE run_id = ?")

	var d dao.RunDAO
	if err := r.db.GetContext(ctx, &d, query, runID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询run记录失败: %w", err)
	}
	return fromDAO(&d), nil
}

// List 按开始时间倒序列出最近的run记录
func (r *sqlxRunRepo) List(ctx context.Context, limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := r.db.Rebind("SELECT * FROM runs ORDER BY started_at DESC LIMIT ?")

	var daos []dao.RunDAO
	if err := r.db.SelectContext(ctx, &daos, query, limit); err != nil {
		return nil, fmt.Errorf("查询run列表失败: %w", err)
	}

	records := make([]*RunRecord, 0, len(daos))
	for i := range daos {
		records = append(records, fromDAO(&daos[i]))
	}
	return records, nil
}

// Close 关闭数据库连接
func (r *sqlxRunRepo) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
