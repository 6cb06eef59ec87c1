package service

import (
	"sync"

	"github.com/fieldops/inventory-sync/models"
	"github.com/fieldops/inventory-sync/utils"
)

// EventListener 事件回调
type EventListener func(event models.SyncEvent)

// EventBus 进程内类型化发布订阅
// 发布是同步调用，单个监听器panic不影响其余监听器和发布方；
// 某类型没有监听器时事件直接丢弃
type EventBus struct {
	mu        sync.RWMutex
	listeners map[models.EventType][]EventListener
}

// NewEventBus 创建事件总线
func NewEventBus() *EventBus {
	return &EventBus{
		listeners: make(map[models.EventType][]EventListener),
	}
}

// Subscribe 注册监听器
func (b *EventBus) Subscribe(eventType models.EventType, listener EventListener) {
	b.mu.Lock()
	b.listeners[eventType] = append(b.listeners[eventType], listener)
	b.mu.Unlock()
}

// Publish 同步发布事件给该类型的全部监听器
func (b *EventBus) Publish(event models.SyncEvent) {
	b.mu.RLock()
	listeners := b.listeners[event.Type]
	b.mu.RUnlock()

	for _, listener := range listeners {
		b.invoke(listener, event)
	}
}

// invoke 调用单个监听器并吸收panic
func (b *EventBus) invoke(listener EventListener, event models.SyncEvent) {
	defer func() {
		if r := recover(); r != nil {
			utils.Logger.Error().
				Interface("panic", r).
				Str("eventType", string(event.Type)).
				Msg("事件监听器异常")
		}
	}()
	listener(event)
}
