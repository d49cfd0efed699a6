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

package api

import (
	"log/slog"

	"github.com/zintix-labs/wheellab/server/api/page"
	v1 "github.com/zintix-labs/wheellab/server/api/v1"
	"github.com/zintix-labs/wheellab/server/netsvr"
	"github.com/zintix-labs/wheellab/server/netsvr/middleware"
	"github.com/zintix-labs/wheellab/server/svrcfg"
)

// RegisterRoutes 註冊 middleware 與所有路由，回傳需要交給 app 管理生命週期的 EventHub。
//
// sCfg 必須已經通過 Vaild。
func RegisterRoutes(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) (*v1.EventHub, error) {
	registerMiddleware(svr, sCfg) // 1. 註冊 middleware
	page.Register(svr)            // 2. 渲染頁
	return registerV1API(svr, sCfg)
}

func registerMiddleware(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(sCfg.Log))
	svr.Use(middleware.RecoverWith(sCfg.Log))
	svr.Use(middleware.CORS(sCfg.CORSOrigins))
	svr.Use(middleware.Compression)
}

func registerV1API(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) (*v1.EventHub, error) {
	name := sCfg.Lab.Setting().Name
	wh, err := v1.NewWheelHandler(name, sCfg.Engine)
	if err != nil {
		return nil, err
	}
	sh, err := v1.NewSimHandler(sCfg.Lab, sCfg.SimMaxRounds, sCfg.SimMaxMP)
	if err != nil {
		return nil, err
	}
	hubCfg := v1.DefaultHubConfig()
	hubCfg.AllowedOrigins = sCfg.CORSOrigins
	hub := v1.NewEventHub(name, sCfg.Engine, sCfg.Log, hubCfg)

	svr.Group("/v1", func(vOne netsvr.NetRouter) {
		vOne.Get("/wheel", wh.State)
		vOne.Get("/layout", wh.Layout)
		vOne.Get("/events", hub.Serve)
		vOne.Get("/sim", sh.Sim)

		vOne.Post("/spin", wh.Spin)
		vOne.Post("/candidates", wh.AddCandidate)
		vOne.Delete("/candidates/{name}", wh.RemoveCandidate)
		vOne.Post("/selected/{name}/restore", wh.RestoreOne)
		vOne.Post("/selected/restore", wh.RestoreAll)
		vOne.Post("/reshuffle", wh.Reshuffle)
		vOne.Post("/sim", sh.Sim)
	})
	sCfg.Log.Debug("routes registered", slog.String("wheel", name))
	return hub, nil
}
