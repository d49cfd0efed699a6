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

// Package wheellab 提供轉盤的「組裝入口（assembler）」與「運行入口（runtime entry）」。
//
// Wheellab 把下列地基組裝在一起，並提供建立 Engine 與 Simulator 的入口：
//  1. WheelSetting：轉盤設定（名單、時序、版面、同步端）。
//  2. PRNGFactory：亂數核心工廠，seed 由 Wheellab 統一保存，可重現。
//  3. Store / Syncer：Persistence Sync 的介接；沒有設定同步端時為 nil。
//
// 典型使用情境：
//   - 後端服務（HTTP / WebSocket）：由 Wheellab 建立 Engine，Engine 對外提供 Spin。
//   - 模擬器（sim）：由 Wheellab 建立 Simulator，檢查抽選分佈。
package wheellab

import (
	"context"
	"io"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/zintix-labs/wheellab/engine"
	"github.com/zintix-labs/wheellab/errs"
	"github.com/zintix-labs/wheellab/persist"
	"github.com/zintix-labs/wheellab/sdk/core"
	"github.com/zintix-labs/wheellab/setting"
)

// Option 調整 Wheellab 的協作者。
type Option func(*Wheellab)

// WithLogger 指定 logger；預設不輸出。
func WithLogger(l *slog.Logger) Option {
	return func(w *Wheellab) { w.log = l }
}

// WithClock 指定時鐘；測試時注入 clockwork.FakeClock。
func WithClock(c clockwork.Clock) Option {
	return func(w *Wheellab) { w.clock = c }
}

// WithStore 直接指定 Store，忽略設定檔中的 sync 區塊。
func WithStore(s persist.Store) Option {
	return func(w *Wheellab) { w.store = s }
}

// WithPRNGFactory 指定亂數核心工廠；預設為 PCG64。
func WithPRNGFactory(cf core.PRNGFactory) Option {
	return func(w *Wheellab) { w.cf = cf }
}

// WithSeed 指定 seed；未指定時以 crypto/rand 產生。
func WithSeed(seed int64) Option {
	return func(w *Wheellab) {
		w.seed = seed
		w.seeded = true
	}
}

// Wheellab 是組裝器與運行入口。
type Wheellab struct {
	ws     *setting.WheelSetting
	cf     core.PRNGFactory
	seed   int64
	seeded bool
	clock  clockwork.Clock
	log    *slog.Logger

	store  persist.Store
	closer io.Closer
	syncer *persist.Syncer
}

// New 建立 Wheellab。ws 為 nil 時使用內嵌的預設設定。
//
// 同步端在此開啟（sqlite 會建立 schema），開不起來直接回傳錯誤；
// 但「讀取同步紀錄」失敗不是錯誤，NewEngine 會退回預設名單。
func New(ctx context.Context, ws *setting.WheelSetting, opts ...Option) (*Wheellab, error) {
	if ws == nil {
		def, err := setting.Default()
		if err != nil {
			return nil, err
		}
		ws = def
	}
	w := &Wheellab{ws: ws}
	for _, opt := range opts {
		opt(w)
	}
	if w.cf == nil {
		w.cf = core.Default()
	}
	if w.clock == nil {
		w.clock = clockwork.NewRealClock()
	}
	if w.log == nil {
		w.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if !w.seeded {
		seed, err := core.NewSeed()
		if err != nil {
			return nil, errs.Wrap(err, "generate seed")
		}
		w.seed = seed
		w.seeded = true
	}

	if w.store == nil {
		st, closer, err := OpenStore(ctx, ws.Sync, ws.Name)
		if err != nil {
			return nil, err
		}
		w.store, w.closer = st, closer
	}
	if w.store != nil {
		w.syncer = persist.NewSyncer(w.store, w.log.With(slog.String("wheel", ws.Name)), ws.Sync.Timeout())
	}
	return w, nil
}

// OpenStore 依設定建立 Store。kind=none 回傳 (nil, nil, nil)。
// 回傳的 io.Closer 可能為 nil。
func OpenStore(ctx context.Context, s setting.SyncSetting, wheel string) (persist.Store, io.Closer, error) {
	switch s.Kind {
	case setting.SyncNone, "":
		return nil, nil, nil
	case setting.SyncMem:
		return persist.NewMemStore(), nil, nil
	case setting.SyncHTTP:
		return persist.NewHTTPStore(s.URL, nil), nil, nil
	case setting.SyncFile:
		return persist.NewFileStore(s.Path), nil, nil
	case setting.SyncSQLite:
		st, err := persist.OpenSQLite(ctx, s.Path, wheel)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	default:
		return nil, nil, errs.Warnf("unknown sync kind %q", s.Kind)
	}
}

// Setting 回傳轉盤設定。
func (w *Wheellab) Setting() *setting.WheelSetting { return w.ws }

// Seed 回傳本 instance 使用的 seed。
func (w *Wheellab) Seed() int64 { return w.seed }

// Syncer 回傳同步器；沒有同步端時為 nil。
func (w *Wheellab) Syncer() *persist.Syncer { return w.syncer }

// NewEngine 建立 Engine：先嘗試由同步端還原 {remaining, history}，
// 失敗或沒有同步端時洗牌 Name Pool、歷史清空。
func (w *Wheellab) NewEngine(ctx context.Context) *engine.Engine {
	cfg := engine.Config{
		Pool:         w.ws.Pool,
		SpinDuration: w.ws.SpinDuration(),
		RemoveDelay:  w.ws.RemoveDelay(),
		Spin:         w.ws.Spin,
		Geometry:     w.ws.Geometry,
		Clock:        w.clock,
		Rand:         w.cf.New(w.seed),
		Logger:       w.log.With(slog.String("wheel", w.ws.Name)),
	}
	if w.syncer != nil {
		cfg.Sync = w.syncer
		if snap, ok := w.syncer.Load(ctx); ok {
			cfg.Initial = &snap
			w.log.Info("wheel restored from sync",
				slog.Int("remaining", len(snap.Remaining)),
				slog.Int("history", len(snap.History)),
			)
		}
	}
	return engine.New(cfg)
}

// Close 釋放同步端資源（例如 sqlite 連線）。呼叫前應先 Shutdown Syncer。
func (w *Wheellab) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}
