package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fieldops/inventory-sync/models"
	"github.com/fieldops/inventory-sync/repository"
	"github.com/fieldops/inventory-sync/utils"
)

// ErrSyncInProgress 同一范围的同步已在进行中
var ErrSyncInProgress = errors.New("同步正在进行中")

// SyncService 同步服务
// 负责 拉取快照 -> 变更比对 -> 发布事件 -> 替换缓存 的完整链路，
// 同一范围同一时刻只允许一次同步（按范围单飞，检查与占位在同一把锁内完成）
type SyncService struct {
	source repository.InventorySource
	cache  *repository.SnapshotCache
	bus    *EventBus

	mu          sync.Mutex
	inFlight    map[string]bool
	lastResults map[string]models.SyncResult
}

// NewSyncService 创建同步服务
func NewSyncService(source repository.InventorySource, cache *repository.SnapshotCache, bus *EventBus) *SyncService {
	return &SyncService{
		source:      source,
		cache:       cache,
		bus:         bus,
		inFlight:    make(map[string]bool),
		lastResults: make(map[string]models.SyncResult),
	}
}

// SyncOptions 单次同步的附加选项
type SyncOptions struct {
	NotifyOnLowStock  bool
	LowStockThreshold float64
}

// normalizeScope 空范围归一为 all
func normalizeScope(scope string) string {
	if scope == "" {
		return models.ScopeAll
	}
	return scope
}

// RunSync 执行一次同步
// 手动触发与计划触发共用此入口；范围冲突时立即返回 ErrSyncInProgress，不排队不阻塞
func (s *SyncService) RunSync(ctx context.Context, scope string, opts SyncOptions) (*models.SyncResult, error) {
	scope = normalizeScope(scope)

	// 单飞检查与占位必须原子完成
	s.mu.Lock()
	if s.inFlight[scope] {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSyncInProgress, scope)
	}
	s.inFlight[scope] = true
	s.mu.Unlock()

	result := models.SyncResult{
		Scope:     scope,
		StartedAt: time.Now(),
	}

	defer func() {
		result.FinishedAt = time.Now()
		s.mu.Lock()
		delete(s.inFlight, scope)
		s.lastResults[scope] = result
		s.mu.Unlock()
	}()

	current, err := s.source.FetchItems(ctx, scope)
	if err != nil {
		result.Error = err.Error()
		s.bus.Publish(models.SyncEvent{
			Type:      models.EventSyncError,
			Warehouse: scope,
			Timestamp: time.Now(),
			Payload:   map[string]interface{}{"error": err.Error()},
		})
		utils.LogError(err, map[string]interface{}{"scope": scope}, "同步失败")
		return nil, err
	}

	previous := s.cache.Get(scope)
	changes := DiffSnapshots(previous, current)

	for _, change := range changes {
		s.bus.Publish(models.SyncEvent{
			Type:      models.EventInventoryUpdated,
			Warehouse: change.Item.Warehouse,
			Timestamp: time.Now(),
			Payload:   change,
		})
		switch change.Type {
		case models.ChangeAdded:
			result.Added++
		case models.ChangeUpdated:
			result.Updated++
		case models.ChangeRemoved:
			result.Removed++
		}
	}

	if opts.NotifyOnLowStock {
		lowStock := collectLowStock(current, opts.LowStockThreshold)
		result.LowStock = len(lowStock)
		if len(lowStock) > 0 {
			s.bus.Publish(models.SyncEvent{
				Type:      models.EventLowStockAlert,
				Warehouse: scope,
				Timestamp: time.Now(),
				Payload:   map[string]interface{}{"items": lowStock},
			})
		}
	}

	// 成功后整体替换快照，供下一次比对使用
	s.cache.Replace(scope, current)

	result.ItemCount = len(current)
	s.bus.Publish(models.SyncEvent{
		Type:      models.EventSyncComplete,
		Warehouse: scope,
		Timestamp: time.Now(),
		Payload:   result,
	})

	utils.LogSyncOperation("sync", scope, map[string]interface{}{
		"items":   result.ItemCount,
		"added":   result.Added,
		"updated": result.Updated,
		"removed": result.Removed,
	})
	return &result, nil
}

// collectLowStock 按阈值收集低库存项，阈值为0时退回各项自身的补货水位
func collectLowStock(items []models.InventoryItem, threshold float64) []models.InventoryItem {
	low := make([]models.InventoryItem, 0)
	for _, item := range items {
		if threshold > 0 {
			if item.Quantity <= threshold {
				low = append(low, item)
			}
		} else if item.IsLowStock() {
			low = append(low, item)
		}
	}
	return low
}

// PublishMovement 发布变动事件
func (s *SyncService) PublishMovement(movement *models.StockMovement) {
	s.bus.Publish(models.SyncEvent{
		Type:      models.EventStockMovement,
		Warehouse: movement.Warehouse,
		Timestamp: time.Now(),
		Payload:   movement,
	})
}

// InFlightScopes 返回当前在途的同步范围
func (s *SyncService) InFlightScopes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	scopes := make([]string, 0, len(s.inFlight))
	for scope := range s.inFlight {
		scopes = append(scopes, scope)
	}
	return scopes
}

// LastResults 返回各范围最近一次同步结果
func (s *SyncService) LastResults() map[string]models.SyncResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]models.SyncResult, len(s.lastResults))
	for scope, result := range s.lastResults {
		out[scope] = result
	}
	return out
}
