package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version 构建版本号，由ldflags注入
var Version = "dev"

// versionCmd version子命令
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("email-scheduler %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
