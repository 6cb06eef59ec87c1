package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/fieldops/inventory-sync/controllers"
)

// RegisterInventoryRoutes 注册库存管理相关路由
func RegisterInventoryRoutes(router *gin.Engine, ctrl *controllers.InventoryController) {
	inventoryRoutes := router.Group("/api/inventory")

	// 库存项查询
	inventoryRoutes.GET("/items", ctrl.GetItems)
	inventoryRoutes.GET("/item/:itemCode", ctrl.GetItem)

	// 变动记录
	inventoryRoutes.GET("/movements", ctrl.GetMovements)
	inventoryRoutes.POST("/movements", ctrl.CreateMovement)

	// 领料/退料封装
	inventoryRoutes.POST("/issue", ctrl.Issue)
	inventoryRoutes.POST("/return", ctrl.Return)

	// 同步与统计
	inventoryRoutes.POST("/sync", ctrl.SyncInventory)
	inventoryRoutes.GET("/stats", ctrl.GetStats)
}
