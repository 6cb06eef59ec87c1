package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/inventory-sync/models"
	"github.com/fieldops/inventory-sync/repository"
)

// fakeSource 可编排的测试数据源
type fakeSource struct {
	mu      sync.Mutex
	items   []models.InventoryItem
	err     error
	calls   int
	started chan struct{}
	block   chan struct{}
	once    sync.Once
}

func (f *fakeSource) FetchItems(ctx context.Context, scope string) ([]models.InventoryItem, error) {
	if f.started != nil {
		f.once.Do(func() { close(f.started) })
	}
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.InventoryItem, len(f.items))
	copy(out, f.items)
	return out, nil
}

func (f *fakeSource) FetchLowStock(ctx context.Context, scope string) ([]models.InventoryItem, error) {
	items, err := f.FetchItems(ctx, scope)
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

func (f *fakeSource) FetchMovements(ctx context.Context, filter models.MovementFilter) ([]models.StockMovement, error) {
	return nil, nil
}

func (f *fakeSource) CreateMovement(ctx context.Context, req models.CreateMovementRequest) (*models.StockMovement, error) {
	return &models.StockMovement{ItemCode: req.ItemCode, MovementType: req.MovementType}, nil
}

func (f *fakeSource) setItems(items []models.InventoryItem) {
	f.mu.Lock()
	f.items = items
	f.mu.Unlock()
}

func (f *fakeSource) fetchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newSyncFixture(source *fakeSource) (*SyncService, *repository.SnapshotCache, *EventBus) {
	bus := NewEventBus()
	cache := repository.NewSnapshotCache()
	return NewSyncService(source, cache, bus), cache, bus
}

func TestRunSyncBootstrapThenUpdate(t *testing.T) {
	itemA := makeItem("A", "MAIN", 10)
	itemB := makeItem("B", "MAIN", 5)
	source := &fakeSource{items: []models.InventoryItem{itemA, itemB}}
	svc, cache, bus := newSyncFixture(source)

	var updates []models.ChangeRecord
	bus.Subscribe(models.EventInventoryUpdated, func(event models.SyncEvent) {
		updates = append(updates, event.Payload.(models.ChangeRecord))
	})

	// 首次同步: 空快照对比，两项都是 added
	result, err := svc.RunSync(context.Background(), "MAIN", SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Added)
	assert.Zero(t, result.Updated)
	assert.Len(t, cache.Get("MAIN"), 2)
	require.Len(t, updates, 2)
	assert.Equal(t, models.ChangeAdded, updates[0].Type)
	assert.Equal(t, models.ChangeAdded, updates[1].Type)

	// 第二次同步: A 数量变化，B 不变
	updates = nil
	itemA2 := itemA
	itemA2.Quantity = 4
	source.setItems([]models.InventoryItem{itemA2, itemB})

	result, err = svc.RunSync(context.Background(), "MAIN", SyncOptions{})
	require.NoError(t, err)
	assert.Zero(t, result.Added)
	assert.Equal(t, 1, result.Updated)
	require.Len(t, updates, 1)
	assert.Equal(t, models.ChangeUpdated, updates[0].Type)
	assert.Equal(t, "A", updates[0].Item.ItemCode)
	require.Len(t, updates[0].Changes, 1)
	assert.Equal(t, "quantity", updates[0].Changes[0].Field)
}

func TestRunSyncSingleFlightPerScope(t *testing.T) {
	source := &fakeSource{
		started: make(chan struct{}),
		block:   make(chan struct{}),
	}
	svc, _, _ := newSyncFixture(source)

	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.RunSync(context.Background(), "MAIN", SyncOptions{})
		firstDone <- err
	}()

	// 等第一次同步进入数据源调用后再发起第二次
	<-source.started
	_, err := svc.RunSync(context.Background(), "MAIN", SyncOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSyncInProgress))

	close(source.block)
	require.NoError(t, <-firstDone)

	// 释放后可以再次同步
	_, err = svc.RunSync(context.Background(), "MAIN", SyncOptions{})
	assert.NoError(t, err)
}

func TestRunSyncDifferentScopesInterleave(t *testing.T) {
	source := &fakeSource{
		started: make(chan struct{}),
		block:   make(chan struct{}),
	}
	svc, _, _ := newSyncFixture(source)

	done := make(chan error, 1)
	go func() {
		_, err := svc.RunSync(context.Background(), "MAIN", SyncOptions{})
		done <- err
	}()
	<-source.started

	// 不同范围不受 MAIN 在途同步影响
	assert.Contains(t, svc.InFlightScopes(), "MAIN")
	close(source.block)

	_, err := svc.RunSync(context.Background(), "VAN-07", SyncOptions{})
	assert.NoError(t, err)
	require.NoError(t, <-done)
}

func TestRunSyncPublishesSyncError(t *testing.T) {
	source := &fakeSource{err: repository.ErrSourceUnavailable}
	svc, _, bus := newSyncFixture(source)

	var errorEvents int
	bus.Subscribe(models.EventSyncError, func(event models.SyncEvent) {
		errorEvents++
	})

	_, err := svc.RunSync(context.Background(), "MAIN", SyncOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrSourceUnavailable))
	assert.Equal(t, 1, errorEvents)

	// 失败后单飞占位必须已释放
	assert.Empty(t, svc.InFlightScopes())
}

func TestRunSyncLowStockAlert(t *testing.T) {
	low := makeItem("A", "MAIN", 2)
	ok := makeItem("B", "MAIN", 50)
	source := &fakeSource{items: []models.InventoryItem{low, ok}}
	svc, _, bus := newSyncFixture(source)

	var alerts []models.SyncEvent
	bus.Subscribe(models.EventLowStockAlert, func(event models.SyncEvent) {
		alerts = append(alerts, event)
	})

	result, err := svc.RunSync(context.Background(), "MAIN", SyncOptions{
		NotifyOnLowStock:  true,
		LowStockThreshold: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.LowStock)
	require.Len(t, alerts, 1)

	payload := alerts[0].Payload.(map[string]interface{})
	items := payload["items"].([]models.InventoryItem)
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].ItemCode)
}

func TestRunSyncNormalizesEmptyScope(t *testing.T) {
	source := &fakeSource{}
	svc, cache, _ := newSyncFixture(source)

	result, err := svc.RunSync(context.Background(), "", SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.ScopeAll, result.Scope)
	assert.Contains(t, cache.Scopes(), models.ScopeAll)

	last := svc.LastResults()
	_, ok := last[models.ScopeAll]
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now(), last[models.ScopeAll].FinishedAt, time.Minute)
}
