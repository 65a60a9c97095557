// Package app 按配置装配各组件并管理进程生命周期
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/LENAX/email-scheduler/internal/storage"
	"github.com/LENAX/email-scheduler/pkg/api"
	"github.com/LENAX/email-scheduler/pkg/client"
	"github.com/LENAX/email-scheduler/pkg/config"
	"github.com/LENAX/email-scheduler/pkg/core/generator"
	"github.com/LENAX/email-scheduler/pkg/core/run"
	"github.com/LENAX/email-scheduler/pkg/core/scheduler"
	"github.com/LENAX/email-scheduler/pkg/sink"
	pkgstorage "github.com/LENAX/email-scheduler/pkg/storage"
)

// App 装配完成的应用实例
type App struct {
	Coordinator *run.Coordinator
	Bus         *run.EventBus
	Repo        pkgstorage.RunRepository
	Server      *api.APIServer
	Cron        *run.CronTrigger
}

// Build 按配置装配应用（对外导出）
func Build(cfg *config.Config, version string) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置校验失败: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.API.RequestTimeout}
	emailClient := client.NewEmailClient(httpClient, cfg.API.EmailsURL, cfg.API.RespondURL, cfg.API.APIKey)

	// 生成器在装配时选定，worker循环内不做mock/real分支
	var gen generator.ResponseGenerator
	switch cfg.Generator.Type {
	case "openai":
		gen = generator.NewOpenAIGenerator(cfg.Generator.OpenAIAPIKey, cfg.Generator.OpenAIModel, "", httpClient)
	default:
		gen = generator.NewMockGenerator(generator.MockConfig{
			DelayScale: cfg.Generator.DelayScale,
			DelayMin:   cfg.Generator.DelayMin,
			DelayMax:   cfg.Generator.DelayMax,
			Responses:  cfg.Generator.Responses,
		})
	}

	repo, err := storage.NewRunRepository(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("初始化run存储失败: %w", err)
	}

	bus := run.NewEventBus()
	coordinator := run.NewCoordinator(run.Options{
		Fetcher:   emailClient,
		Poster:    emailClient,
		Generator: gen,
		Scheduler: scheduler.Config{
			Concurrency:        cfg.Scheduler.Concurrency,
			SafetyMargin:       cfg.Scheduler.SafetyMargin,
			InterDependencyGap: cfg.Scheduler.InterDependencyGap,
			GeneratorTimeout:   cfg.Scheduler.GeneratorTimeout,
			APIKey:             cfg.API.APIKey,
		},
		Sink: sink.Config{
			MaxRetries:  cfg.Sink.MaxRetries,
			BackoffBase: cfg.Sink.BackoffBase,
		},
		Bus:        bus,
		Repository: repo,
	})

	serverCfg := api.DefaultServerConfig()
	serverCfg.Port = cfg.HTTPPort
	server := api.NewAPIServer(coordinator, bus, repo, serverCfg, version)

	a := &App{
		Coordinator: coordinator,
		Bus:         bus,
		Repo:        repo,
		Server:      server,
	}

	if cfg.Trigger.CronEnabled {
		trigger, err := run.NewCronTrigger(coordinator, cfg.Trigger.CronExpr, cfg.Trigger.CronTestMode)
		if err != nil {
			return nil, fmt.Errorf("初始化定时触发器失败: %w", err)
		}
		a.Cron = trigger
	}

	return a, nil
}

// Run 启动服务并阻塞直到context取消
func (a *App) Run(ctx context.Context) error {
	if a.Cron != nil {
		a.Cron.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  HTTP服务关闭异常: %v", err)
	}

	a.Close()
	return nil
}

// Close 释放资源
func (a *App) Close() {
	if a.Cron != nil {
		a.Cron.Stop()
	}
	if a.Bus != nil {
		a.Bus.Close()
	}
	if a.Repo != nil {
		if err := a.Repo.Close(); err != nil {
			log.Printf("⚠️  关闭run存储失败: %v", err)
		}
	}
}
