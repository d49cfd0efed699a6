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

package svrcfg

import (
	"context"
	"log/slog"

	"github.com/zintix-labs/wheellab"
	"github.com/zintix-labs/wheellab/engine"
	"github.com/zintix-labs/wheellab/errs"
	"github.com/zintix-labs/wheellab/server/logger"
)

const (
	DefaultSimMaxRounds = 1_000_000
	DefaultSimMaxMP     = 8
)

// SvrCfg 為 server 層的組裝結果；由 cmd/svr 建好後交給 server.Run。
type SvrCfg struct {
	Log    *slog.Logger
	Addr   string             // 空字串時使用 netsvr.DefaultAddr
	Lab    *wheellab.Wheellab // 設定、PRNG、Syncer、Simulator 的來源
	Engine *engine.Engine     // 由 Lab.NewEngine 建立；nil 時 Vaild 會自動建立

	CORSOrigins  []string // 允許跨域呼叫的 origin；空為只允許同源
	SimMaxRounds int      // /v1/sim 單次上限
	SimMaxMP     int      // /v1/sim workers 上限
}

func (sc *SvrCfg) Vaild() error {
	if sc.Log != nil {
		if ah, ok := sc.Log.Handler().(*logger.AsyncHandler); ok && !ah.Ready() {
			return errs.NewFatal("nil default log handler: async handler is nil")
		}
	} else {
		sc.Log, _ = logger.NewAsync(1024, logger.ModeDev)
	}
	if sc.Lab == nil {
		return errs.NewFatal("wheellab is required")
	}
	if sc.SimMaxRounds <= 0 {
		sc.SimMaxRounds = DefaultSimMaxRounds
	}
	if sc.SimMaxMP <= 0 {
		sc.SimMaxMP = DefaultSimMaxMP
	}
	sc.SimMaxMP = min(64, sc.SimMaxMP)
	if sc.Engine == nil {
		sc.Engine = sc.Lab.NewEngine(context.Background())
	}
	return nil
}
