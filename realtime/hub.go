package realtime

import (
	"sync"
	"time"

	"github.com/fieldops/inventory-sync/models"
	"github.com/fieldops/inventory-sync/service"
	"github.com/fieldops/inventory-sync/utils"
)

// 客户端可订阅的频道集合，名单之外的频道名订阅时直接忽略
const (
	ChannelInventoryUpdates = "inventory_updates"
	ChannelStockMovements   = "stock_movements"
	ChannelLowStockAlerts   = "low_stock_alerts"
	ChannelSyncStatus       = "sync_status"
)

var validChannels = map[string]bool{
	ChannelInventoryUpdates: true,
	ChannelStockMovements:   true,
	ChannelLowStockAlerts:   true,
	ChannelSyncStatus:       true,
}

// OutboundMessage 下行消息
type OutboundMessage struct {
	Type      string      `json:"type"`
	Channel   string      `json:"channel,omitempty"`
	Warehouse string      `json:"warehouse,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// broadcastRequest 一次面向单个频道的广播
type broadcastRequest struct {
	channel string
	message *OutboundMessage
}

// Hub 连接注册表与广播中枢
// 注册/注销/广播都经由通道进入Run循环，连接集合由读写锁保护
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastRequest
	quit       chan struct{}

	pingPeriod time.Duration
	pongWait   time.Duration
}

// NewHub 创建广播中枢
// pongWait 为心跳超时窗口，超时未响应的连接会被强制移除
func NewHub(pingPeriod, pongWait time.Duration) *Hub {
	if pingPeriod <= 0 {
		pingPeriod = 30 * time.Second
	}
	if pongWait <= pingPeriod {
		pongWait = pingPeriod * 2
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client, 64),
		broadcast:  make(chan broadcastRequest, 256),
		quit:       make(chan struct{}),
		pingPeriod: pingPeriod,
		pongWait:   pongWait,
	}
}

// Run 广播主循环
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			utils.Logger.Info().Str("clientId", client.id).Msg("网关连接建立")

		case client := <-h.unregister:
			h.removeClient(client)

		case req := <-h.broadcast:
			h.deliver(req)

		case <-h.quit:
			h.shutdown()
			return
		}
	}
}

// Stop 关闭中枢与全部连接
func (h *Hub) Stop() {
	close(h.quit)
}

// Broadcast 将事件投递给订阅了该频道的全部连接
func (h *Hub) Broadcast(channel string, message *OutboundMessage) {
	select {
	case h.broadcast <- broadcastRequest{channel: channel, message: message}:
	default:
		utils.Logger.Warn().Str("channel", channel).Msg("广播队列已满，事件丢弃")
	}
}

// deliver 逐连接投递
// 发送失败（队列满/连接已关）只移除该接收方，不中断其余广播
func (h *Hub) deliver(req broadcastRequest) {
	h.mu.RLock()
	var dead []*Client
	for client := range h.clients {
		if !client.subscribed(req.channel) {
			continue
		}
		if !client.enqueue(req.message) {
			dead = append(dead, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range dead {
		client.conn.Close()
		h.removeClient(client)
	}
}

// removeClient 从注册表移除连接
// 队列关闭交给连接自身的锁，与读循环侧的应答互斥
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
	}
	h.mu.Unlock()

	if ok {
		client.closeSend()
		utils.Logger.Info().Str("clientId", client.id).Msg("网关连接移除")
	}
}

// shutdown 关闭全部连接
func (h *Hub) shutdown() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		client.conn.Close()
		h.removeClient(client)
	}
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// channelForEvent 事件类型到频道的映射，sync_complete/sync_error 共用状态频道
func channelForEvent(eventType models.EventType) string {
	switch eventType {
	case models.EventInventoryUpdated:
		return ChannelInventoryUpdates
	case models.EventStockMovement:
		return ChannelStockMovements
	case models.EventLowStockAlert:
		return ChannelLowStockAlerts
	case models.EventSyncComplete, models.EventSyncError:
		return ChannelSyncStatus
	}
	return ""
}

// BindBus 订阅事件总线，把同步事件转成频道广播
func (h *Hub) BindBus(bus *service.EventBus) {
	forward := func(event models.SyncEvent) {
		channel := channelForEvent(event.Type)
		if channel == "" {
			return
		}
		h.Broadcast(channel, &OutboundMessage{
			Type:      string(event.Type),
			Channel:   channel,
			Warehouse: event.Warehouse,
			Timestamp: event.Timestamp,
			Data:      event.Payload,
		})
	}

	bus.Subscribe(models.EventInventoryUpdated, forward)
	bus.Subscribe(models.EventStockMovement, forward)
	bus.Subscribe(models.EventLowStockAlert, forward)
	bus.Subscribe(models.EventSyncComplete, forward)
	bus.Subscribe(models.EventSyncError, forward)
}
