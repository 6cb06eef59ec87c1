package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/inventory-sync/models"
)

func TestSnapshotCacheEmptyBeforeFirstSync(t *testing.T) {
	cache := NewSnapshotCache()
	assert.Empty(t, cache.Get("MAIN"))
	assert.Empty(t, cache.Scopes())
}

func TestSnapshotCacheReplaceWholesale(t *testing.T) {
	cache := NewSnapshotCache()

	cache.Replace("MAIN", []models.InventoryItem{
		{ItemCode: "A", Warehouse: "MAIN"},
		{ItemCode: "B", Warehouse: "MAIN"},
	})
	require.Len(t, cache.Get("MAIN"), 2)

	// 整体替换，不合并
	cache.Replace("MAIN", []models.InventoryItem{
		{ItemCode: "C", Warehouse: "MAIN"},
	})
	got := cache.Get("MAIN")
	require.Len(t, got, 1)
	assert.Equal(t, "C", got[0].ItemCode)
}

func TestSnapshotCacheScopesAreIndependent(t *testing.T) {
	cache := NewSnapshotCache()

	cache.Replace("MAIN", []models.InventoryItem{{ItemCode: "A", Warehouse: "MAIN"}})
	cache.Replace("VAN-07", []models.InventoryItem{{ItemCode: "A", Warehouse: "VAN-07"}})

	assert.Len(t, cache.Get("MAIN"), 1)
	assert.Len(t, cache.Get("VAN-07"), 1)
	assert.ElementsMatch(t, []string{"MAIN", "VAN-07"}, cache.Scopes())
}

func TestSnapshotCacheReturnsCopies(t *testing.T) {
	cache := NewSnapshotCache()
	cache.Replace("MAIN", []models.InventoryItem{{ItemCode: "A", Warehouse: "MAIN", Quantity: 5}})

	got := cache.Get("MAIN")
	got[0].Quantity = 999

	// 调用方修改副本不影响缓存
	assert.Equal(t, 5.0, cache.Get("MAIN")[0].Quantity)
}
