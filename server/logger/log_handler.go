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

// Package logger 組裝伺服器用的 slog.Logger。
//
// LogMode 決定輸出格式與等級；AsyncHandler 把任何 slog.Handler 包成非阻塞版本，
// 讓引擎事件派送與 Sync 失敗的 log 不會拖慢請求路徑。
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zintix-labs/wheellab/errs"
)

type LogMode uint8

const (
	ModeDev     LogMode = iota // text / stderr / debug
	ModeProd                   // json / stdout / info
	ModeSilence                // 全部丟掉
)

var logModeNames = map[LogMode]string{
	ModeDev:     "dev",
	ModeProd:    "prod",
	ModeSilence: "silence",
}

func (m LogMode) String() string {
	if s, ok := logModeNames[m]; ok {
		return s
	}
	return "unknown"
}

// ParseLogMode 解析 flag / 環境變數（WHEEL_LOG_MODE）給的字串。
// 大小寫不敏感，同時接受 "ModeDev" 這種寫法；空字串視為 dev。
func ParseLogMode(s string) (LogMode, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimPrefix(v, "mode")
	if v == "" {
		return ModeDev, nil
	}
	for m, name := range logModeNames {
		if name == v {
			return m, nil
		}
	}
	return ModeDev, errs.Warnf("unknown log mode %q (dev|prod|silence)", s)
}

// NewAsync 以 mode 的預設 handler 建立非阻塞 Logger。
// 回傳的 *AsyncHandler 要在行程結束前 Close，才會把 buffer 內的 log 寫完。
func NewAsync(buf int, mode LogMode) (*slog.Logger, *AsyncHandler) {
	ah := NewAsyncHandler(buildHandler(mode), buf)
	return slog.New(ah), ah
}

// AsyncHandler 只在呼叫端做 enqueue，由單一背景 goroutine 寫出。
// buffer 滿或已 Close 時直接丟棄並計數，不把延遲傳回呼叫端。
type AsyncHandler struct {
	next slog.Handler
	d    *dispatcher
}

// dispatcher 由同一個 AsyncHandler 衍生出的 WithAttrs/WithGroup 共用。
type dispatcher struct {
	ch      chan queued
	closing chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
	dropped atomic.Uint64
	sink    slog.Handler // Close 時回報丟棄筆數用
}

type queued struct {
	ctx context.Context
	rec slog.Record
	h   slog.Handler
}

// NewAsyncHandler 包裝 next；buf <= 0 時用 1024。
func NewAsyncHandler(next slog.Handler, buf int) *AsyncHandler {
	if next == nil {
		next = buildHandler(ModeDev)
	}
	if buf <= 0 {
		buf = 1024
	}
	d := &dispatcher{
		ch:      make(chan queued, buf),
		closing: make(chan struct{}),
		sink:    next,
	}
	d.wg.Add(1)
	go d.run()
	return &AsyncHandler{next: next, d: d}
}

func (h *AsyncHandler) Ready() bool { return h != nil && h.d != nil }

// Dropped 回傳因 buffer 滿或 Close 後寫入而被丟棄的筆數。
func (h *AsyncHandler) Dropped() uint64 {
	if !h.Ready() {
		return 0
	}
	return h.d.dropped.Load()
}

// Close 停止接收並寫完 buffer。期間有丟棄時，最後補一筆 warn 記錄丟棄總數。
func (h *AsyncHandler) Close() {
	if !h.Ready() {
		return
	}
	h.d.once.Do(func() {
		close(h.d.closing)
		h.d.wg.Wait()
		if n := h.d.dropped.Load(); n > 0 {
			h.d.report(n)
		}
	})
}

func (d *dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case q := <-d.ch:
			_ = q.h.Handle(q.ctx, q.rec)
		case <-d.closing:
			for {
				select {
				case q := <-d.ch:
					_ = q.h.Handle(q.ctx, q.rec)
				default:
					return
				}
			}
		}
	}
}

func (d *dispatcher) report(n uint64) {
	ctx := context.Background()
	if !d.sink.Enabled(ctx, slog.LevelWarn) {
		return
	}
	r := slog.NewRecord(time.Now(), slog.LevelWarn, "log records dropped", 0)
	r.AddAttrs(slog.Uint64("dropped", n))
	_ = d.sink.Handle(ctx, r)
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.Ready() {
		return nil
	}
	select {
	case <-h.d.closing:
		h.d.dropped.Add(1)
		return nil
	default:
	}
	// Record 內的 attrs 可能被呼叫端重用，跨 goroutine 前先 Clone。
	select {
	case h.d.ch <- queued{ctx: ctx, rec: r.Clone(), h: h.next}:
	default:
		h.d.dropped.Add(1)
	}
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{next: h.next.WithAttrs(attrs), d: h.d}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{next: h.next.WithGroup(name), d: h.d}
}

func buildHandler(mode LogMode) slog.Handler {
	switch mode {
	case ModeProd:
		// 正式環境：JSON + stdout，給 Loki / Promtail
		return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	case ModeSilence:
		return slog.NewTextHandler(io.Discard, nil)
	default:
		return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}
