package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldops/inventory-sync/controllers"
	"github.com/fieldops/inventory-sync/realtime"
	"github.com/fieldops/inventory-sync/utils"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes(
	router *gin.Engine,
	inventoryCtrl *controllers.InventoryController,
	syncCtrl *controllers.SyncController,
	hub *realtime.Hub,
) {
	RegisterInventoryRoutes(router, inventoryCtrl)
	RegisterSyncRoutes(router, syncCtrl)

	// 实时网关连接入口
	router.GET("/ws/inventory", func(c *gin.Context) {
		realtime.ServeWs(hub, c)
	})

	// 健康检查路由
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// 未匹配的路径同样返回标准信封
	router.NoRoute(func(c *gin.Context) {
		utils.ErrorResponse(c, "接口不存在", http.StatusNotFound)
	})
}
