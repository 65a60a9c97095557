package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/LENAX/email-scheduler/pkg/storage"
	"github.com/LENAX/email-scheduler/pkg/storage/sqlite"
)

func newTestRepo(t *testing.T) storage.RunRepository {
	t.Helper()

	dialect := sqlite.NewSQLiteDialect()
	db, err := sqlx.Open(dialect.Driver(), ":memory:")
	if err != nil {
		t.Fatalf("打开内存数据库失败: %v", err)
	}

	repo, err := storage.NewRunRepoWithDB(db, dialect)
	if err != nil {
		t.Fatalf("创建repo失败: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleRecord(runID string, startedAt time.Time) *storage.RunRecord {
	finished := startedAt.Add(30 * time.Second)
	return &storage.RunRecord{
		RunID:        runID,
		Status:       "COMPLETED",
		TestMode:     true,
		TotalEmails:  5,
		DoneCount:    4,
		FailedCount:  1,
		SuccessCount: 4,
		FailureCount: 1,
		RetryCount:   2,
		StartedAt:    startedAt,
		FinishedAt:   &finished,
	}
}

func TestRunRepo_SaveAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	record := sampleRecord("run-1", time.Now().UTC().Truncate(time.Second))
	if err := repo.Save(ctx, record); err != nil {
		t.Fatalf("保存失败: %v", err)
	}

	got, err := repo.GetByID(ctx, "run-1")
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if got == nil {
		t.Fatal("期望查到记录，实际为nil")
	}
	if got.Status != "COMPLETED" || got.TotalEmails != 5 || got.RetryCount != 2 {
		t.Errorf("记录内容异常: %+v", got)
	}
	if !got.TestMode {
		t.Error("期望test_mode为true")
	}
	if got.FinishedAt == nil {
		t.Error("期望finished_at非空")
	}
}

func TestRunRepo_GetMissing(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.GetByID(context.Background(), "no-such-run")
	if err != nil {
		t.Fatalf("期望缺失记录不报错: %v", err)
	}
	if got != nil {
		t.Errorf("期望nil，实际%+v", got)
	}
}

// TestRunRepo_UpsertOverwrites 同run_id重复保存按upsert覆盖
func TestRunRepo_UpsertOverwrites(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	record := sampleRecord("run-1", time.Now().UTC().Truncate(time.Second))
	record.Status = "RUNNING"
	record.FinishedAt = nil
	if err := repo.Save(ctx, record); err != nil {
		t.Fatalf("首次保存失败: %v", err)
	}

	record.Status = "COMPLETED"
	finished := record.StartedAt.Add(time.Minute)
	record.FinishedAt = &finished
	if err := repo.Save(ctx, record); err != nil {
		t.Fatalf("二次保存失败: %v", err)
	}

	got, err := repo.GetByID(ctx, "run-1")
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if got.Status != "COMPLETED" {
		t.Errorf("期望状态被覆盖为COMPLETED，实际%s", got.Status)
	}

	records, err := repo.List(ctx, 10)
	if err != nil {
		t.Fatalf("列表查询失败: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("期望upsert后仍只有1条记录，实际%d条", len(records))
	}
}

func TestRunRepo_ListOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"old", "mid", "new"} {
		record := sampleRecord(id, base.Add(time.Duration(i)*time.Minute))
		if err := repo.Save(ctx, record); err != nil {
			t.Fatalf("保存%s失败: %v", id, err)
		}
	}

	records, err := repo.List(ctx, 2)
	if err != nil {
		t.Fatalf("列表查询失败: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("期望limit截断为2条，实际%d条", len(records))
	}
	if records[0].RunID != "new" || records[1].RunID != "mid" {
		t.Errorf("期望按开始时间倒序[new mid]，实际[%s %s]", records[0].RunID, records[1].RunID)
	}

	if err := repo.Save(ctx, nil); err == nil {
		t.Error("期望nil记录保存报错")
	}
}
