package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LENAX/email-scheduler/pkg/api/dto"
	"github.com/LENAX/email-scheduler/pkg/core/run"
	"github.com/LENAX/email-scheduler/pkg/storage"
)

// RunHandler run API处理器
type RunHandler struct {
	coordinator *run.Coordinator
	repo        storage.RunRepository // 可选，未配置时历史查询返回内存状态
}

// NewRunHandler 创建RunHandler
func NewRunHandler(coordinator *run.Coordinator, repo storage.RunRepository) *RunHandler {
	return &RunHandler{coordinator: coordinator, repo: repo}
}

// Trigger 触发一次run
// POST /api/v1/runs
func (h *RunHandler) Trigger(c *gin.Context) {
	var req dto.TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, fmt.Sprintf("请求体无效: %v", err)))
		return
	}

	// 兼容test查询参数（?test=true）
	if c.Query("test") == "true" {
		req.TestMode = true
	}

	// run在后台执行，生命周期不随本次请求结束
	runID := h.coordinator.Start(context.Background(), req.TestMode)
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(dto.TriggerResponse{RunID: runID}))
}

// Status 查询run状态
// GET /api/v1/runs/:id
func (h *RunHandler) Status(c *gin.Context) {
	runID := c.Param("id")

	state, ok := h.coordinator.Status(runID)
	if !ok {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(404, "run不存在"))
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.RunStatusResponse{State: state}))
}

// List 列出run历史
// GET /api/v1/runs
func (h *RunHandler) List(c *gin.Context) {
	if h.repo != nil {
		records, err := h.repo.List(c.Request.Context(), 50)
		if err != nil {
			c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("查询run历史失败: %v", err)))
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ListResponse[*storage.RunRecord]{
			Total: len(records),
			Items: records,
		}))
		return
	}

	states := h.coordinator.List()
	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ListResponse[run.State]{
		Total: len(states),
		Items: states,
	}))
}
