package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/fieldops/inventory-sync/controllers"
)

// RegisterSyncRoutes 注册同步计划相关路由
func RegisterSyncRoutes(router *gin.Engine, ctrl *controllers.SyncController) {
	syncRoutes := router.Group("/api/sync")

	// 同步计划管理
	syncRoutes.GET("/schedules", ctrl.GetSchedules)
	syncRoutes.POST("/schedules", ctrl.CreateSchedule)
	syncRoutes.PUT("/schedules/:id", ctrl.UpdateSchedule)
	syncRoutes.DELETE("/schedules/:id", ctrl.DeleteSchedule)

	// 手动同步与状态
	syncRoutes.POST("/manual", ctrl.ManualSync)
	syncRoutes.GET("/status", ctrl.GetStatus)
}
