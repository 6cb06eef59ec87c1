package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/fieldops/inventory-sync/utils"
)

const (
	// 单次写超时
	writeWait = 10 * time.Second

	// 上行消息大小上限
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client 一条网关连接
// 订阅集合归连接自身持有，心跳由底层ping/pong帧维持，
// 与应用层的 ping/pong JSON 消息互不相干
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan *OutboundMessage

	mu            sync.Mutex
	subscriptions map[string]bool
	closed        bool
}

// inboundMessage 上行消息
type inboundMessage struct {
	Type     string   `json:"type"`
	Channels []string `json:"channels"`
}

// ServeWs 升级连接并接入中枢
// 先下发携带客户端ID的connection消息，再开始处理其余流量
func ServeWs(hub *Hub, c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.LogError(err, nil, "WebSocket升级失败")
		return
	}

	client := &Client{
		id:            uuid.NewString(),
		hub:           hub,
		conn:          conn,
		send:          make(chan *OutboundMessage, 64),
		subscriptions: make(map[string]bool),
	}

	client.send <- &OutboundMessage{
		Type:      "connection",
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"clientId": client.id},
	}

	hub.register <- client

	go client.writePump()
	go client.readPump()
}

// subscribed 判断是否订阅了频道
func (c *Client) subscribed(channel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscriptions[channel]
}

// channelList 当前订阅的频道列表
func (c *Client) channelList() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	channels := make([]string, 0, len(c.subscriptions))
	for channel := range c.subscriptions {
		channels = append(channels, channel)
	}
	return channels
}

// enqueue 尝试入队下行消息
// 入队与队列关闭由同一把锁串行化：连接已被中枢移除或队列满时丢弃并返回false
func (c *Client) enqueue(message *OutboundMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// closeSend 关闭下行队列，只会执行一次
// 关闭必须持有与enqueue相同的锁，读循环侧的应答才不会撞上已关闭的通道
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// reply 构造仅发给本连接的应答
func (c *Client) reply(msgType string, data interface{}) {
	c.enqueue(&OutboundMessage{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// handleMessage 处理一条上行消息
// 未知类型或非法负载只回错误给发送方，连接保持
func (c *Client) handleMessage(data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.reply("error", map[string]interface{}{"message": "消息格式错误"})
		return
	}

	switch msg.Type {
	case "subscribe":
		// 只认可闭集内的频道名，未知名称静默忽略
		accepted := make([]string, 0, len(msg.Channels))
		c.mu.Lock()
		for _, channel := range msg.Channels {
			if validChannels[channel] {
				c.subscriptions[channel] = true
				accepted = append(accepted, channel)
			}
		}
		c.mu.Unlock()
		c.reply("subscribed", map[string]interface{}{"channels": accepted})

	case "unsubscribe":
		removed := make([]string, 0, len(msg.Channels))
		c.mu.Lock()
		for _, channel := range msg.Channels {
			if c.subscriptions[channel] {
				delete(c.subscriptions, channel)
				removed = append(removed, channel)
			}
		}
		c.mu.Unlock()
		c.reply("unsubscribed", map[string]interface{}{"channels": removed})

	case "ping":
		// 应用层回显，与底层心跳无关
		c.reply("pong", nil)

	case "get_subscriptions":
		c.reply("subscriptions", map[string]interface{}{"channels": c.channelList()})

	default:
		c.reply("error", map[string]interface{}{"message": "未知的消息类型: " + msg.Type})
	}
}

// readPump 读循环，心跳超时或读错误时注销连接
func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		// 必须等到注销入队，否则断开的连接会留在注册表里；中枢已停时直接退出
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.Logger.Debug().Str("clientId", c.id).Err(err).Msg("连接读取中断")
			}
			break
		}
		c.handleMessage(data)
	}
}

// writePump 写循环，按固定周期发送底层心跳探测
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 中枢已移除本连接
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
