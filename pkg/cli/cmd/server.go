package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LENAX/email-scheduler/internal/app"
	"github.com/LENAX/email-scheduler/pkg/cli/output"
	"github.com/LENAX/email-scheduler/pkg/config"
)

var (
	serverPort int
	configPath string
)

// serverCmd server子命令
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "服务管理命令",
	Long:  `管理Email Scheduler HTTP API服务。`,
}

// serverStartCmd 启动服务
var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "启动HTTP API服务",
	Long: `启动Email Scheduler HTTP API服务。

示例：
  # 使用默认配置启动
  email-scheduler server start

  # 指定端口启动
  email-scheduler server start --port 8080

  # 指定配置文件启动
  email-scheduler server start --config ./configs/scheduler.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			defaultPaths := []string{
				"./configs/scheduler.yaml",
				"./config/scheduler.yaml",
				"./scheduler.yaml",
			}
			for _, p := range defaultPaths {
				if _, err := os.Stat(p); err == nil {
					configPath = p
					break
				}
			}
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			output.Error("加载配置失败: %v", err)
			return err
		}
		if serverPort > 0 {
			cfg.HTTPPort = serverPort
		}

		a, err := app.Build(cfg, Version)
		if err != nil {
			output.Error("初始化失败: %v", err)
			return err
		}

		output.Info("HTTP API服务启动中，端口: %d", cfg.HTTPPort)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return a.Run(ctx)
	},
}

func init() {
	serverStartCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "监听端口（覆盖配置文件）")
	serverStartCmd.Flags().StringVarP(&configPath, "config", "c", "", "配置文件路径")

	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)
}
