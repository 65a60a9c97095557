package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// 全局参数
	serverURL  string
	outputJSON bool
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "email-scheduler",
	Short: "Email Scheduler CLI - 邮件回复调度命令行工具",
	Long: `Email Scheduler CLI 是一个用于管理邮件回复调度run的命令行工具。

支持的功能：
  - 触发run（拉取邮件并按依赖/截止时间调度回复）
  - 查询run状态和历史
  - 启动HTTP API服务

使用示例：
  # 触发一次run（测试模式）
  email-scheduler run trigger --test

  # 查看run状态
  email-scheduler run status <run-id>

  # 列出run历史
  email-scheduler run list

  # 启动HTTP服务
  email-scheduler server start --port 8080`,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "Email Scheduler服务器地址")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "以JSON格式输出")
}
