package websocket

import (
	"encoding/json"
	"sync"
)

// Hub WebSocket 连接管理中心
// 连接按摄取任务 id 分组，任务进度变化时向对应分组推送
type Hub struct {
	// 按任务 id 分组的连接
	jobs map[string]map[*Connection]bool
	// 注册连接
	register chan *Connection
	// 注销连接
	unregister chan *Connection
	// 广播消息
	broadcast chan *Message
	mu        sync.RWMutex
}

// Connection WebSocket 连接
type Connection struct {
	JobID string
	Send  chan []byte
}

// Message 消息
type Message struct {
	JobID string
	Data  []byte
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{
		jobs:       make(map[string]map[*Connection]bool),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *Message),
	}
}

// Run 运行 Hub（需要在 goroutine 中运行）
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.jobs[conn.JobID] == nil {
				h.jobs[conn.JobID] = make(map[*Connection]bool)
			}
			h.jobs[conn.JobID][conn] = true
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if group, ok := h.jobs[conn.JobID]; ok {
				if _, ok := group[conn]; ok {
					delete(group, conn)
					close(conn.Send)
					if len(group) == 0 {
						delete(h.jobs, conn.JobID)
					}
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			if group, ok := h.jobs[msg.JobID]; ok {
				for conn := range group {
					select {
					case conn.Send <- msg.Data:
					default:
						close(conn.Send)
						delete(group, conn)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Start 启动 Hub（启动后台 goroutine）
func (h *Hub) Start() {
	go h.Run()
}

// Register 注册连接
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister 注销连接
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// BroadcastToJob 向指定任务的订阅者广播消息
func (h *Hub) BroadcastToJob(jobID string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	h.broadcast <- &Message{
		JobID: jobID,
		Data:  jsonData,
	}
	return nil
}
