// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package v1

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/zintix-labs/wheellab/dto"
	"github.com/zintix-labs/wheellab/engine"
	"github.com/zintix-labs/wheellab/errs"
	"github.com/zintix-labs/wheellab/server/httperr"
)

// Message 是 /v1/events 推給渲染端的訊框。
//   - hello：連線建立時送一次目前的完整狀態。
//   - event：引擎事件（spin_started / winner_shown / winner_removed / selection_complete / board_changed）。
type Message struct {
	Type  string          `json:"type"`
	State *dto.WheelState `json:"state,omitempty"`
	Event *engine.Event   `json:"event,omitempty"`
}

// clientCommand 是渲染端可以送上來的指令；目前只有 spin（點擊轉盤或按空白鍵）。
type clientCommand struct {
	Op string `json:"op"`
}

// HubConfig 為 WebSocket 連線參數。
type HubConfig struct {
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration // 必須小於 ReadTimeout
	MaxMessageSize int64
	SendBuffer     int
	AllowedOrigins []string // 空時只允許同源
}

func DefaultHubConfig() HubConfig {
	return HubConfig{
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 1024,
		SendBuffer:     64,
	}
}

// EventHub 把引擎事件廣播給所有 WebSocket 連線。
//
// EventHub 本身是 engine.Observer（OnEvent 不阻塞：送不進 Send 的慢連線直接斷開），
// 也是 app.Component（Shutdown 時關閉所有連線）。
type EventHub struct {
	name     string
	eng      *engine.Engine
	log      *slog.Logger
	cfg      HubConfig
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	conns  map[*conn]struct{}
	closed bool
	unsub  func()
	done   chan struct{}
}

type conn struct {
	id          string
	ws          *websocket.Conn
	send        chan []byte
	hub         *EventHub
	connectedAt time.Time
}

// NewEventHub 建立 hub 並訂閱引擎事件。
func NewEventHub(name string, eng *engine.Engine, log *slog.Logger, cfg HubConfig) *EventHub {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	d := DefaultHubConfig()
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = d.WriteTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = d.ReadTimeout
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.ReadTimeout {
		cfg.PingInterval = cfg.ReadTimeout * 9 / 10
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = d.MaxMessageSize
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = d.SendBuffer
	}
	h := &EventHub{
		name:  name,
		eng:   eng,
		log:   log.With(slog.String("component", "events")),
		cfg:   cfg,
		conns: make(map[*conn]struct{}),
		done:  make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	h.unsub = eng.Subscribe(h)
	return h
}

func (h *EventHub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if slices.Contains(h.cfg.AllowedOrigins, origin) || slices.Contains(h.cfg.AllowedOrigins, "*") {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

// Serve 處理 GET /v1/events。
func (h *EventHub) Serve(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		httperr.Write(w, http.StatusServiceUnavailable, errs.NewLog("event hub closed"))
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade 已經寫回 4xx
		h.log.Warn("websocket upgrade failed", slog.Any("err", err))
		return
	}
	c := &conn{
		id:          uuid.NewString(),
		ws:          ws,
		send:        make(chan []byte, h.cfg.SendBuffer),
		hub:         h,
		connectedAt: time.Now(),
	}

	if !h.register(c) {
		_ = ws.Close()
		return
	}
	go c.writePump()
	go c.readPump()

	h.log.Info("websocket connected", slog.String("conn_id", c.id), slog.Int("conns", h.Len()))
}

// OnEvent 實作 engine.Observer。
func (h *EventHub) OnEvent(ev engine.Event) {
	b, err := json.Marshal(Message{Type: "event", Event: &ev})
	if err != nil {
		h.log.Error("marshal event", slog.String("kind", string(ev.Kind)), slog.Any("err", err))
		return
	}
	h.broadcast(b)
}

func (h *EventHub) broadcast(b []byte) {
	var slow []*conn
	h.mu.RLock()
	for c := range h.conns {
		select {
		case c.send <- b:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("connection send buffer full, closing", slog.String("conn_id", c.id))
		h.unregister(c)
		_ = c.ws.Close()
	}
}

// Len 回傳目前連線數。
func (h *EventHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// register 在 hub 鎖內取 hello 快照並加入連線；broadcast 需要同一把鎖，
// 所以快照之後的事件一定會送到這條連線上。
func (h *EventHub) register(c *conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	hello, err := json.Marshal(Message{Type: "hello", State: ptr(dto.NewWheelState(h.name, h.eng))})
	if err != nil {
		h.log.Error("marshal hello", slog.Any("err", err))
		return false
	}
	c.send <- hello
	h.conns[c] = struct{}{}
	return true
}

// unregister 只在寫鎖內 close(send)，broadcast 在讀鎖內送資料，不會送到已關閉的 channel。
func (h *EventHub) unregister(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; !ok {
		return
	}
	delete(h.conns, c)
	close(c.send)
}

// Run 阻塞直到 Shutdown。
func (h *EventHub) Run() error {
	<-h.done
	return nil
}

// Shutdown 取消訂閱並關閉所有連線（送出 close frame）。
func (h *EventHub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	conns := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
		delete(h.conns, c)
		close(c.send)
	}
	h.mu.Unlock()

	h.unsub()
	close(h.done)

	// writePump 收到關閉的 send 會送 close frame 並結束
	deadline := time.Now().Add(h.cfg.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	for _, c := range conns {
		_ = c.ws.SetReadDeadline(deadline)
	}
	return nil
}

func (c *conn) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
		c.hub.unregister(c)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.log.Debug("websocket write failed", slog.String("conn_id", c.id), slog.Any("err", err))
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *conn) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.ws.Close()
		c.hub.log.Info("websocket disconnected",
			slog.String("conn_id", c.id),
			slog.Duration("alive", time.Since(c.connectedAt)),
		)
	}()

	c.ws.SetReadLimit(c.hub.cfg.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.hub.cfg.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.hub.cfg.ReadTimeout))
	})

	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("unexpected websocket close", slog.String("conn_id", c.id), slog.Any("err", err))
			}
			return
		}
		c.handleClientMessage(msg)
		_ = c.ws.SetReadDeadline(time.Now().Add(c.hub.cfg.ReadTimeout))
	}
}

// handleClientMessage 處理渲染端指令；不認得的訊息忽略。
// Spin 的結果不直接回覆，會經由 spin_started 事件廣播給所有連線。
func (c *conn) handleClientMessage(msg []byte) {
	var cmd clientCommand
	if err := json.Unmarshal(msg, &cmd); err != nil {
		c.hub.log.Debug("ignore client message", slog.String("conn_id", c.id), slog.Any("err", err))
		return
	}
	switch cmd.Op {
	case "spin":
		_, _ = c.hub.eng.Spin()
	default:
		c.hub.log.Debug("unknown client op", slog.String("conn_id", c.id), slog.String("op", cmd.Op))
	}
}

func ptr[T any](v T) *T { return &v }
