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

package persist

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// DefaultSyncTimeout 為單次 Load/Save 的預設逾時。
const DefaultSyncTimeout = 10 * time.Second

// Syncer 包裝 Store，提供 fire-and-forget 的 Push。
//
//   - Push 立即返回；Save 在獨立 goroutine 內執行，帶自己的 timeout。
//   - 失敗只記 warn log，不重試、不排隊。
//   - 多次 Push 之間不保證順序（last writer wins）。
//
// Syncer 實作 app.Component：Run 阻塞到 Shutdown，Shutdown 等待進行中的 Save 完成。
type Syncer struct {
	store   Store
	log     *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
	done   chan struct{}
	once   sync.Once
}

// NewSyncer 建立 Syncer；log 為 nil 時不輸出，timeout <= 0 時使用 DefaultSyncTimeout。
func NewSyncer(store Store, log *slog.Logger, timeout time.Duration) *Syncer {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if timeout <= 0 {
		timeout = DefaultSyncTimeout
	}
	return &Syncer{
		store:   store,
		log:     log,
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

// Store 回傳底層 Store。
func (s *Syncer) Store() Store { return s.store }

// Load 在 timeout 內讀取紀錄；任何失敗回傳 ok=false，由呼叫端退回預設狀態。
func (s *Syncer) Load(ctx context.Context) (Snapshot, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	snap, err := s.store.Load(ctx)
	if err != nil {
		s.log.Warn("sync load failed, fallback to default pool", slog.Any("err", err))
		return Snapshot{}, false
	}
	return snap, true
}

// Push 送出一次非同步 Save。Shutdown 之後的 Push 直接丟棄。
func (s *Syncer) Push(snap Snapshot) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.log.Debug("sync push after shutdown dropped")
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.store.Save(ctx, snap); err != nil {
			s.log.Warn("sync save failed",
				slog.Int("remaining", len(snap.Remaining)),
				slog.Int("history", len(snap.History)),
				slog.Any("err", err),
			)
		}
	}()
}

// Run 阻塞直到 Shutdown。
func (s *Syncer) Run() error {
	<-s.done
	return nil
}

// Shutdown 停止接受新的 Push，並等待進行中的 Save 結束或 ctx 到期。
func (s *Syncer) Shutdown(ctx context.Context) error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
	})
	waited := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
