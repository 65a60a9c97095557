package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/LENAX/email-scheduler/internal/app"
	"github.com/LENAX/email-scheduler/pkg/config"
)

// version 构建版本号，由ldflags注入
var version = "dev"

func main() {
	configPath := flag.String("config", "./configs/scheduler.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ 加载配置失败: %v", err)
	}

	a, err := app.Build(cfg, version)
	if err != nil {
		log.Fatalf("❌ 初始化失败: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		log.Fatalf("❌ 服务异常退出: %v", err)
	}
}
