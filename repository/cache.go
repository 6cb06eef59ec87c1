package repository

import (
	"sync"

	"github.com/fieldops/inventory-sync/models"
)

// SnapshotCache 按范围保存最近一次同步成功的库存快照
// 每次同步后整体替换，不做逐项修改；读写都返回副本，
// 多个范围的同步可以并发进行，因此用读写锁保护共享map
type SnapshotCache struct {
	mu        sync.RWMutex
	snapshots map[string][]models.InventoryItem
}

// NewSnapshotCache 创建快照缓存
func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{
		snapshots: make(map[string][]models.InventoryItem),
	}
}

// Get 读取指定范围的快照副本，首次同步前返回空切片
func (c *SnapshotCache) Get(scope string) []models.InventoryItem {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot, ok := c.snapshots[scope]
	if !ok {
		return nil
	}
	out := make([]models.InventoryItem, len(snapshot))
	copy(out, snapshot)
	return out
}

// Replace 整体替换指定范围的快照
func (c *SnapshotCache) Replace(scope string, items []models.InventoryItem) {
	snapshot := make([]models.InventoryItem, len(items))
	copy(snapshot, items)

	c.mu.Lock()
	c.snapshots[scope] = snapshot
	c.mu.Unlock()
}

// Scopes 返回已有快照的范围列表
func (c *SnapshotCache) Scopes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	scopes := make([]string, 0, len(c.snapshots))
	for scope := range c.snapshots {
		scopes = append(scopes, scope)
	}
	return scopes
}
