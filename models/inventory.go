package models

import (
	"time"
)

// ItemStatus 库存项状态
type ItemStatus string

const (
	ItemStatusActive       ItemStatus = "Active"
	ItemStatusInactive     ItemStatus = "Inactive"
	ItemStatusDiscontinued ItemStatus = "Discontinued"
)

// MovementType 库存变动类型
type MovementType string

const (
	MovementTypeIn         MovementType = "IN"
	MovementTypeOut        MovementType = "OUT"
	MovementTypeTransfer   MovementType = "TRANSFER"
	MovementTypeAdjustment MovementType = "ADJUSTMENT"
)

// IsValid 校验变动类型是否合法
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeIn, MovementTypeOut, MovementTypeTransfer, MovementTypeAdjustment:
		return true
	}
	return false
}

// ScopeAll 全仓库哨兵值
const ScopeAll = "all"

// InventoryItem 库存项
// 唯一键为 (itemCode, warehouse) 组合，同一物料在不同仓库是独立记录
type InventoryItem struct {
	ItemCode         string     `json:"itemCode"`
	Warehouse        string     `json:"warehouse"`
	Description      string     `json:"description"`
	Category         string     `json:"category"`
	Quantity         float64    `json:"quantity"`
	UnitPrice        float64    `json:"unitPrice"`
	Currency         string     `json:"currency"`
	Location         string     `json:"location"`
	MinimumStock     float64    `json:"minimumStock"`
	MaximumStock     float64    `json:"maximumStock"`
	ReorderLevel     float64    `json:"reorderLevel"`
	Supplier         string     `json:"supplier,omitempty"`
	SupplierName     string     `json:"supplierName,omitempty"`
	UnitOfMeasure    string     `json:"unitOfMeasure"`
	Status           ItemStatus `json:"status"`
	AverageCost      float64    `json:"averageCost"`
	LastMovementDate *time.Time `json:"lastMovementDate,omitempty"`
	LastUpdate       time.Time  `json:"lastUpdate"`
}

// Key 返回 (itemCode, warehouse) 组合键
func (i *InventoryItem) Key() string {
	return i.ItemCode + "|" + i.Warehouse
}

// IsLowStock 判断是否低于补货水位
func (i *InventoryItem) IsLowStock() bool {
	return i.Quantity <= i.ReorderLevel
}

// StockMovement 库存变动记录
// 创建后不可变，修正通过新增变动实现
type StockMovement struct {
	MovementID   string       `json:"movementId"`
	ItemCode     string       `json:"itemCode"`
	MovementType MovementType `json:"movementType"`
	Quantity     float64      `json:"quantity"`
	Warehouse    string       `json:"warehouse"`
	Location     string       `json:"location,omitempty"`
	Reference    string       `json:"reference,omitempty"`
	Date         time.Time    `json:"date"`
	Technician   string       `json:"technician,omitempty"`
	Notes        string       `json:"notes,omitempty"`
}

// CreateMovementRequest 创建库存变动请求
type CreateMovementRequest struct {
	ItemCode     string       `json:"itemCode" binding:"required"`
	MovementType MovementType `json:"movementType" binding:"required"`
	Quantity     float64      `json:"quantity" binding:"required,gt=0"`
	Warehouse    string       `json:"warehouse" binding:"required"`
	Location     string       `json:"location"`
	Reference    string       `json:"reference"`
	Technician   string       `json:"technician"`
	Notes        string       `json:"notes"`
}

// IssueRequest 领料请求（生成 OUT 变动）
type IssueRequest struct {
	ItemCode   string  `json:"itemCode" binding:"required"`
	Quantity   float64 `json:"quantity" binding:"required,gt=0"`
	Warehouse  string  `json:"warehouse" binding:"required"`
	Reference  string  `json:"reference"`
	Technician string  `json:"technician"`
	Notes      string  `json:"notes"`
}

// ReturnRequest 退料请求（生成 IN 变动）
type ReturnRequest struct {
	ItemCode   string  `json:"itemCode" binding:"required"`
	Quantity   float64 `json:"quantity" binding:"required,gt=0"`
	Warehouse  string  `json:"warehouse" binding:"required"`
	Reference  string  `json:"reference"`
	Technician string  `json:"technician"`
	Notes      string  `json:"notes"`
}

// MovementFilter 变动记录查询条件
type MovementFilter struct {
	ItemCode  string
	Warehouse string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
}

// ItemFilter 库存项查询条件
type ItemFilter struct {
	Warehouse string
	Category  string
	Status    string
	LowStock  bool
}

// CategoryStats 按分类汇总
type CategoryStats struct {
	ItemCount     int     `json:"itemCount"`
	TotalQuantity float64 `json:"totalQuantity"`
	TotalValue    float64 `json:"totalValue"`
}

// WarehouseStats 按仓库汇总
type WarehouseStats struct {
	ItemCount     int     `json:"itemCount"`
	TotalQuantity float64 `json:"totalQuantity"`
	TotalValue    float64 `json:"totalValue"`
	LowStockItems int     `json:"lowStockItems"`
}

// InventoryStats 库存统计信息
type InventoryStats struct {
	TotalItems    int                       `json:"totalItems"`
	TotalQuantity float64                   `json:"totalQuantity"`
	TotalValue    float64                   `json:"totalValue"`
	LowStockItems int                       `json:"lowStockItems"`
	ByCategory    map[string]CategoryStats  `json:"byCategory"`
	ByWarehouse   map[string]WarehouseStats `json:"byWarehouse"`
}
