package api

import (
	"github.com/gin-gonic/gin"

	"github.com/LENAX/email-scheduler/pkg/api/handler"
	"github.com/LENAX/email-scheduler/pkg/api/middleware"
	"github.com/LENAX/email-scheduler/pkg/core/run"
	"github.com/LENAX/email-scheduler/pkg/storage"
)

// SetupRouter 设置路由
func SetupRouter(coordinator *run.Coordinator, bus *run.EventBus, repo storage.RunRepository, version string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// 全局中间件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS())

	runHandler := handler.NewRunHandler(coordinator, repo)
	healthHandler := handler.NewHealthHandler(version)

	// 健康检查路由（不带前缀）
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 路由组
	v1 := router.Group("/api/v1")
	{
		runs := v1.Group("/runs")
		{
			runs.POST("", runHandler.Trigger)
			runs.GET("", runHandler.List)
			runs.GET("/:id", runHandler.Status)
		}

		if bus != nil {
			eventsHandler := handler.NewEventsHandler(bus)
			runs.GET("/:id/events", eventsHandler.Stream)
		}
	}

	return router
}
