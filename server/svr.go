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

// Package server 組裝轉盤的 HTTP / WebSocket 服務。
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/zintix-labs/wheellab/errs"
	"github.com/zintix-labs/wheellab/server/api"
	"github.com/zintix-labs/wheellab/server/app"
	"github.com/zintix-labs/wheellab/server/netsvr"
	"github.com/zintix-labs/wheellab/server/svrcfg"
)

// Run 是 server 套件的「組裝器（assembler）」與「啟動入口（runtime entry）」。
//
// 它負責：
//  1. 驗證輸入的 SvrCfg（logger、Wheellab、Engine）。
//  2. 建立 HTTP server（netsvr），監聽 sCfg.Addr。
//  3. 註冊路由與 middleware（api.RegisterRoutes）。
//  4. 啟動 app，阻塞直到收到終止信號或任一元件停止。
//
// Run 不讀檔案、不讀環境變數；這些都在 cmd/svr 組裝好後以 SvrCfg 注入。
func Run(sCfg *svrcfg.SvrCfg) error {
	if err := sCfg.Vaild(); err != nil {
		// 防止外層傳入的logger不可用
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	svr := netsvr.NewChiServer(sCfg.Addr)
	sCfg.Log.Info("[wheellab] listening on http://localhost" + svr.Address())
	return RunWithSvr(sCfg, svr)
}

// RunWithSvr 與 Run 相同，但允許呼叫端注入自訂的 NetSvr（自訂 listener、TLS、timeout...）。
//
// 生命週期（依關閉順序）：
//
//	NetSvr → EventHub → Engine（停止 pending timer）→ Syncer（送完已排入的快照）
//
// 返回後會關閉 Wheellab 持有的同步端資源（例如 sqlite 連線）。
func RunWithSvr(sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) error {
	if err := sCfg.Vaild(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	if svr == nil {
		err := errs.NewFatal("svr is required")
		sCfg.Log.Error(err.Error())
		return err
	}
	if s, ok := svr.(*netsvr.ChiAdapter); ok && !s.Ready() {
		err := errs.NewFatal("default server is not ready")
		sCfg.Log.Error(err.Error())
		return err
	}

	hub, err := api.RegisterRoutes(svr, sCfg)
	if err != nil {
		sCfg.Log.Error("register routes", slog.Any("err", err))
		return err
	}

	a := app.NewWith(svr, hub, app.OnShutdown(func(ctx context.Context) error {
		sCfg.Engine.Close()
		return nil
	})).WithLogger(sCfg.Log)
	if sy := sCfg.Lab.Syncer(); sy != nil {
		a.Register(sy)
	}

	runErr := a.Run()
	if runErr != nil {
		sCfg.Log.Error("app stopped", slog.Any("err", runErr))
	}
	if err := sCfg.Lab.Close(); err != nil {
		sCfg.Log.Error("close store", slog.Any("err", err))
	}
	return runErr
}
