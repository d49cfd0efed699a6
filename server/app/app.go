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

// Package app 提供應用程式生命週期管理（App），負責統一啟動與關閉多個 Component。
package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const DefaultShutdownTimeout = 5 * time.Second

// App 啟動所有註冊的 Component，並在收到 OS 信號、ctx 結束或任一 Component 返回時協調優雅關閉。
//
// 關閉順序與註冊順序相同：先停 HTTP server（不再收新請求），再關事件連線、停引擎 timer，
// 最後讓 Syncer 把尚未送出的快照送完。
type App struct {
	comps   []Component
	log     *slog.Logger
	timeout time.Duration
}

// New 建立一個新的 App 實例。
func New() *App {
	return &App{
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		timeout: DefaultShutdownTimeout,
	}
}

// NewWith 是 New 的語法糖，允許在建立時直接註冊多個 Component。
func NewWith(comps ...Component) *App {
	app := New()
	for _, c := range comps {
		app.Register(c)
	}
	return app
}

// WithLogger 指定關閉錯誤的輸出 logger。
func (a *App) WithLogger(log *slog.Logger) *App {
	if log != nil {
		a.log = log
	}
	return a
}

// WithShutdownTimeout 指定整體關閉期限。
func (a *App) WithShutdownTimeout(d time.Duration) *App {
	if d > 0 {
		a.timeout = d
	}
	return a
}

// Register 將一個 Component 註冊到 App 中；nil 會被忽略。
func (a *App) Register(c Component) {
	if c == nil {
		return
	}
	a.comps = append(a.comps, c)
}

// Run 等同 RunContext(context.Background())，並額外監聽 SIGINT/SIGTERM。
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext 啟動所有 Component 並阻塞：
//   - ctx 結束：優雅關閉並回傳 nil。
//   - 任一 Component Run 返回：優雅關閉並回傳該錯誤（可能為 nil）。
func (a *App) RunContext(ctx context.Context) error {
	errCh := make(chan error, len(a.comps))
	for _, c := range a.comps {
		go func(c Component) {
			errCh <- c.Run()
		}(c)
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
	}
	a.gracefulShutdown()
	return err
}

// gracefulShutdown 在 timeout 內依序呼叫所有 Component.Shutdown。
func (a *App) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	for _, c := range a.comps {
		if err := c.Shutdown(ctx); err != nil {
			a.log.Error("shutdown err", slog.Any("err", err))
		}
	}
}
