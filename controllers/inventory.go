package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldops/inventory-sync/models"
	"github.com/fieldops/inventory-sync/repository"
	"github.com/fieldops/inventory-sync/service"
	"github.com/fieldops/inventory-sync/utils"
)

// InventoryController 库存接口控制器
type InventoryController struct {
	source      repository.InventorySource
	syncService *service.SyncService
}

// NewInventoryController 创建库存控制器
func NewInventoryController(source repository.InventorySource, syncService *service.SyncService) *InventoryController {
	return &InventoryController{
		source:      source,
		syncService: syncService,
	}
}

// GetItems 获取库存项列表
// 支持 warehouse/category/status/lowStock 过滤
func (ctrl *InventoryController) GetItems(c *gin.Context) {
	filter := models.ItemFilter{
		Warehouse: c.Query("warehouse"),
		Category:  c.Query("category"),
		Status:    c.Query("status"),
		LowStock:  c.Query("lowStock") == "true",
	}

	var items []models.InventoryItem
	var err error
	if filter.LowStock {
		items, err = ctrl.source.FetchLowStock(c.Request.Context(), filter.Warehouse)
	} else {
		items, err = ctrl.source.FetchItems(c.Request.Context(), filter.Warehouse)
	}
	if err != nil {
		handleServiceError(c, err)
		return
	}

	// 分类与状态在本地过滤，数据源只按仓库范围返回
	filtered := make([]models.InventoryItem, 0, len(items))
	for _, item := range items {
		if filter.Category != "" && item.Category != filter.Category {
			continue
		}
		if filter.Status != "" && string(item.Status) != filter.Status {
			continue
		}
		filtered = append(filtered, item)
	}

	utils.SuccessResponse(c, filtered, "")
}

// GetItem 获取单个库存项
func (ctrl *InventoryController) GetItem(c *gin.Context) {
	itemCode := c.Param("itemCode")
	warehouse := c.Query("warehouse")

	items, err := ctrl.source.FetchItems(c.Request.Context(), warehouse)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	for _, item := range items {
		if item.ItemCode == itemCode {
			if warehouse != "" && warehouse != models.ScopeAll && item.Warehouse != warehouse {
				continue
			}
			utils.SuccessResponse(c, item, "")
			return
		}
	}

	utils.HandleError(c, utils.CreateNotFoundError("库存项 "+itemCode))
}

// GetMovements 查询变动记录，按时间倒序
func (ctrl *InventoryController) GetMovements(c *gin.Context) {
	filter := models.MovementFilter{
		ItemCode:  c.Query("itemCode"),
		Warehouse: c.Query("warehouse"),
	}

	if startDate := c.Query("startDate"); startDate != "" {
		t, err := time.Parse(time.RFC3339, startDate)
		if err != nil {
			utils.HandleError(c, utils.CreateBadRequestError("startDate 格式错误，应为RFC3339"))
			return
		}
		filter.StartDate = &t
	}
	if endDate := c.Query("endDate"); endDate != "" {
		t, err := time.Parse(time.RFC3339, endDate)
		if err != nil {
			utils.HandleError(c, utils.CreateBadRequestError("endDate 格式错误，应为RFC3339"))
			return
		}
		filter.EndDate = &t
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			utils.HandleError(c, utils.CreateBadRequestError("limit 必须是非负整数"))
			return
		}
		filter.Limit = limit
	}

	movements, err := ctrl.source.FetchMovements(c.Request.Context(), filter)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, movements, "")
}

// CreateMovement 创建库存变动
func (ctrl *InventoryController) CreateMovement(c *gin.Context) {
	var req models.CreateMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.HandleError(c, utils.CreateBadRequestError("请求参数不完整: "+err.Error()))
		return
	}
	if !req.MovementType.IsValid() {
		utils.HandleError(c, utils.CreateBadRequestError("无效的变动类型: "+string(req.MovementType)))
		return
	}

	movement, err := ctrl.source.CreateMovement(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	ctrl.syncService.PublishMovement(movement)
	utils.SuccessResponse(c, movement, "库存变动创建成功", http.StatusCreated)
}

// Issue 领料，封装为OUT变动
func (ctrl *InventoryController) Issue(c *gin.Context) {
	var req models.IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.HandleError(c, utils.CreateBadRequestError("请求参数不完整: "+err.Error()))
		return
	}

	ctrl.createFromWrapper(c, models.CreateMovementRequest{
		ItemCode:     req.ItemCode,
		MovementType: models.MovementTypeOut,
		Quantity:     req.Quantity,
		Warehouse:    req.Warehouse,
		Reference:    req.Reference,
		Technician:   req.Technician,
		Notes:        req.Notes,
	}, "领料成功")
}

// Return 退料，封装为IN变动
func (ctrl *InventoryController) Return(c *gin.Context) {
	var req models.ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.HandleError(c, utils.CreateBadRequestError("请求参数不完整: "+err.Error()))
		return
	}

	ctrl.createFromWrapper(c, models.CreateMovementRequest{
		ItemCode:     req.ItemCode,
		MovementType: models.MovementTypeIn,
		Quantity:     req.Quantity,
		Warehouse:    req.Warehouse,
		Reference:    req.Reference,
		Technician:   req.Technician,
		Notes:        req.Notes,
	}, "退料成功")
}

// createFromWrapper 领料/退料的公共出口
func (ctrl *InventoryController) createFromWrapper(c *gin.Context, req models.CreateMovementRequest, message string) {
	movement, err := ctrl.source.CreateMovement(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	ctrl.syncService.PublishMovement(movement)
	utils.SuccessResponse(c, movement, message, http.StatusCreated)
}

// SyncInventory 触发一次库存同步
func (ctrl *InventoryController) SyncInventory(c *gin.Context) {
	var req models.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.HandleError(c, utils.CreateBadRequestError("请求参数错误: "+err.Error()))
		return
	}

	result, err := ctrl.syncService.RunSync(c.Request.Context(), req.Warehouse, service.SyncOptions{})
	if err != nil {
		if errors.Is(err, service.ErrSyncInProgress) {
			utils.HandleError(c, utils.CreateSyncInProgressError(req.Warehouse))
			return
		}
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, result, "同步完成")
}

// GetStats 获取库存统计信息
func (ctrl *InventoryController) GetStats(c *gin.Context) {
	warehouse := c.Query("warehouse")

	items, err := ctrl.source.FetchItems(c.Request.Context(), warehouse)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	stats := models.InventoryStats{
		ByCategory:  make(map[string]models.CategoryStats),
		ByWarehouse: make(map[string]models.WarehouseStats),
	}

	for _, item := range items {
		value := item.Quantity * item.UnitPrice

		stats.TotalItems++
		stats.TotalQuantity += item.Quantity
		stats.TotalValue += value
		if item.IsLowStock() {
			stats.LowStockItems++
		}

		cat := stats.ByCategory[item.Category]
		cat.ItemCount++
		cat.TotalQuantity += item.Quantity
		cat.TotalValue += value
		stats.ByCategory[item.Category] = cat

		wh := stats.ByWarehouse[item.Warehouse]
		wh.ItemCount++
		wh.TotalQuantity += item.Quantity
		wh.TotalValue += value
		if item.IsLowStock() {
			wh.LowStockItems++
		}
		stats.ByWarehouse[item.Warehouse] = wh
	}

	utils.SuccessResponse(c, stats, "")
}
