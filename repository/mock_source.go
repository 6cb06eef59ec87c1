package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/inventory-sync/models"
)

// MockSource 内置模拟数据源
// ERP不可达时的降级实现，数据全部驻留内存并模拟变动的库存副作用
type MockSource struct {
	mu        sync.RWMutex
	items     map[string]*models.InventoryItem
	movements []models.StockMovement
}

// NewMockSource 创建带种子数据的模拟数据源
func NewMockSource() *MockSource {
	s := &MockSource{
		items: make(map[string]*models.InventoryItem),
	}
	for _, item := range seedItems() {
		it := item
		s.items[it.Key()] = &it
	}
	return s
}

// seedItems 种子库存数据，覆盖两个仓库
func seedItems() []models.InventoryItem {
	now := time.Now()
	return []models.InventoryItem{
		{
			ItemCode: "CBL-CAT6-305", Warehouse: "MAIN", Description: "六类网线 305米/箱",
			Category: "Cables", Quantity: 42, UnitPrice: 89.5, Currency: "EUR",
			Location: "A1-03", MinimumStock: 10, MaximumStock: 80, ReorderLevel: 15,
			Supplier: "SUP001", SupplierName: "NetParts BV", UnitOfMeasure: "BOX",
			Status: models.ItemStatusActive, AverageCost: 76.2, LastUpdate: now,
		},
		{
			ItemCode: "RTR-AX53", Warehouse: "MAIN", Description: "双频路由器 AX53",
			Category: "Network", Quantity: 8, UnitPrice: 129.0, Currency: "EUR",
			Location: "B2-11", MinimumStock: 5, MaximumStock: 30, ReorderLevel: 10,
			Supplier: "SUP002", SupplierName: "TeleSupply", UnitOfMeasure: "PCS",
			Status: models.ItemStatusActive, AverageCost: 102.4, LastUpdate: now,
		},
		{
			ItemCode: "ONT-G240G", Warehouse: "MAIN", Description: "光猫 G-240G-E",
			Category: "Fiber", Quantity: 120, UnitPrice: 45.0, Currency: "EUR",
			Location: "C1-07", MinimumStock: 40, MaximumStock: 200, ReorderLevel: 60,
			Supplier: "SUP002", SupplierName: "TeleSupply", UnitOfMeasure: "PCS",
			Status: models.ItemStatusActive, AverageCost: 39.8, LastUpdate: now,
		},
		{
			ItemCode: "CBL-CAT6-305", Warehouse: "VAN-07", Description: "六类网线 305米/箱",
			Category: "Cables", Quantity: 3, UnitPrice: 89.5, Currency: "EUR",
			Location: "SHELF-1", MinimumStock: 1, MaximumStock: 6, ReorderLevel: 2,
			Supplier: "SUP001", SupplierName: "NetParts BV", UnitOfMeasure: "BOX",
			Status: models.ItemStatusActive, AverageCost: 76.2, LastUpdate: now,
		},
		{
			ItemCode: "SPL-1X8", Warehouse: "VAN-07", Description: "1x8 光分路器",
			Category: "Fiber", Quantity: 14, UnitPrice: 12.5, Currency: "EUR",
			Location: "SHELF-2", MinimumStock: 5, MaximumStock: 30, ReorderLevel: 8,
			Supplier: "SUP003", SupplierName: "FiberDirect", UnitOfMeasure: "PCS",
			Status: models.ItemStatusActive, AverageCost: 10.1, LastUpdate: now,
		},
		{
			ItemCode: "MDM-OLD90", Warehouse: "MAIN", Description: "旧款调制解调器",
			Category: "Network", Quantity: 2, UnitPrice: 25.0, Currency: "EUR",
			Location: "D4-01", MinimumStock: 0, MaximumStock: 10, ReorderLevel: 0,
			Supplier: "SUP002", SupplierName: "TeleSupply", UnitOfMeasure: "PCS",
			Status: models.ItemStatusDiscontinued, AverageCost: 30.5, LastUpdate: now,
		},
	}
}

// FetchItems 返回指定范围的库存快照副本
func (s *MockSource) FetchItems(ctx context.Context, scope string) ([]models.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]models.InventoryItem, 0, len(s.items))
	for _, item := range s.items {
		if scope != "" && scope != models.ScopeAll && item.Warehouse != scope {
			continue
		}
		items = append(items, *item)
	}

	// 固定排序保证快照迭代顺序稳定
	sort.Slice(items, func(a, b int) bool {
		if items[a].ItemCode == items[b].ItemCode {
			return items[a].Warehouse < items[b].Warehouse
		}
		return items[a].ItemCode < items[b].ItemCode
	})
	return items, nil
}

// FetchLowStock 返回低库存项
func (s *MockSource) FetchLowStock(ctx context.Context, scope string) ([]models.InventoryItem, error) {
	items, err := s.FetchItems(ctx, scope)
	if err != nil {
		return nil, err
	}
	low := make([]models.InventoryItem, 0)
	for _, item := range items {
		if item.IsLowStock() {
			low = append(low, item)
		}
	}
	return low, nil
}

// FetchMovements 按条件查询变动记录，时间倒序
func (s *MockSource) FetchMovements(ctx context.Context, filter models.MovementFilter) ([]models.StockMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.StockMovement, 0)
	for _, m := range s.movements {
		if filter.ItemCode != "" && m.ItemCode != filter.ItemCode {
			continue
		}
		if filter.Warehouse != "" && filter.Warehouse != models.ScopeAll && m.Warehouse != filter.Warehouse {
			continue
		}
		if filter.StartDate != nil && m.Date.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && m.Date.After(*filter.EndDate) {
			continue
		}
		result = append(result, m)
	}

	sort.Slice(result, func(a, b int) bool {
		return result[a].Date.After(result[b].Date)
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// CreateMovement 创建变动并模拟库存副作用
// OUT/TRANSFER 扣减数量，扣到0为止；IN 增加；ADJUSTMENT 直接设置
func (s *MockSource) CreateMovement(ctx context.Context, req models.CreateMovementRequest) (*models.StockMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	movement := models.StockMovement{
		MovementID:   uuid.NewString(),
		ItemCode:     req.ItemCode,
		MovementType: req.MovementType,
		Quantity:     req.Quantity,
		Warehouse:    req.Warehouse,
		Location:     req.Location,
		Reference:    req.Reference,
		Date:         now,
		Technician:   req.Technician,
		Notes:        req.Notes,
	}

	key := req.ItemCode + "|" + req.Warehouse
	if item, ok := s.items[key]; ok {
		switch req.MovementType {
		case models.MovementTypeIn:
			item.Quantity += req.Quantity
		case models.MovementTypeOut, models.MovementTypeTransfer:
			item.Quantity -= req.Quantity
			if item.Quantity < 0 {
				item.Quantity = 0
			}
		case models.MovementTypeAdjustment:
			item.Quantity = req.Quantity
		}
		item.LastMovementDate = &now
		item.LastUpdate = now
	}

	s.movements = append(s.movements, movement)
	return &movement, nil
}
