package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/LENAX/email-scheduler/pkg/cli/output"
	"github.com/LENAX/email-scheduler/pkg/core/run"
	"github.com/LENAX/email-scheduler/pkg/storage"
)

var triggerTestMode bool

// runCmd run子命令
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run管理命令",
	Long:  `触发和查询邮件回复调度run。`,
}

// runTriggerCmd 触发run
var runTriggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "触发一次run",
	RunE: func(cmd *cobra.Command, args []string) error {
		body, _ := json.Marshal(map[string]bool{"test_mode": triggerTestMode})

		var resp struct {
			RunID string `json:"run_id"`
		}
		if err := callAPI(http.MethodPost, "/api/v1/runs", bytes.NewReader(body), &resp); err != nil {
			output.Error("触发run失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(resp)
		}
		output.Success("run已触发: %s", resp.RunID)
		return nil
	},
}

// runStatusCmd 查询run状态
var runStatusCmd = &cobra.Command{
	Use:   "status <run-id>",
	Short: "查询run状态",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var state run.State
		if err := callAPI(http.MethodGet, "/api/v1/runs/"+args[0], nil, &state); err != nil {
			output.Error("查询run状态失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(state)
		}

		table := output.NewTable([]string{"字段", "值"})
		table.AddRow([]string{"run_id", state.RunID})
		table.AddRow([]string{"状态", state.Status})
		if state.Stage != "" {
			table.AddRow([]string{"失败阶段", state.Stage})
		}
		if state.ErrorMessage != "" {
			table.AddRow([]string{"错误", state.ErrorMessage})
		}
		table.AddRow([]string{"邮件总数", fmt.Sprintf("%d", state.TotalEmails)})
		table.AddRow([]string{"成功", fmt.Sprintf("%d", state.DoneCount)})
		table.AddRow([]string{"失败", fmt.Sprintf("%d", state.FailedCount)})
		table.AddRow([]string{"投递成功", fmt.Sprintf("%d", state.Delivery.SuccessCount)})
		table.AddRow([]string{"投递失败", fmt.Sprintf("%d", state.Delivery.FailureCount)})
		table.AddRow([]string{"重试次数", fmt.Sprintf("%d", state.Delivery.RetryCount)})
		table.AddRow([]string{"开始时间", state.StartedAt.Format(time.RFC3339)})
		if state.FinishedAt != nil {
			table.AddRow([]string{"结束时间", state.FinishedAt.Format(time.RFC3339)})
		}
		table.Render()
		return nil
	},
}

// runListCmd 列出run历史
var runListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出run历史",
	RunE: func(cmd *cobra.Command, args []string) error {
		var list struct {
			Total int                 `json:"total"`
			Items []storage.RunRecord `json:"items"`
		}
		if err := callAPI(http.MethodGet, "/api/v1/runs", nil, &list); err != nil {
			output.Error("查询run历史失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(list)
		}

		table := output.NewTable([]string{"RUN_ID", "状态", "总数", "成功", "失败", "开始时间"})
		for _, r := range list.Items {
			table.AddRow([]string{
				r.RunID,
				r.Status,
				fmt.Sprintf("%d", r.TotalEmails),
				fmt.Sprintf("%d", r.DoneCount),
				fmt.Sprintf("%d", r.FailedCount),
				r.StartedAt.Format(time.RFC3339),
			})
		}
		table.Render()
		output.Info("共 %d 条记录", list.Total)
		return nil
	},
}

// apiEnvelope 服务端统一响应包装
type apiEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// callAPI 调用服务端API并解包统一响应
func callAPI(method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequest(method, serverURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求失败（服务是否已启动？）: %w", err)
	}
	defer resp.Body.Close()

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	if envelope.Code != 0 {
		return fmt.Errorf("服务端错误(%d): %s", envelope.Code, envelope.Message)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("解析响应数据失败: %w", err)
		}
	}
	return nil
}

func init() {
	runTriggerCmd.Flags().BoolVarP(&triggerTestMode, "test", "t", false, "以测试模式触发")

	runCmd.AddCommand(runTriggerCmd)
	runCmd.AddCommand(runStatusCmd)
	runCmd.AddCommand(runListCmd)
	rootCmd.AddCommand(runCmd)
}
