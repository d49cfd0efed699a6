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

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/zintix-labs/wheellab"
	"github.com/zintix-labs/wheellab/server"
	"github.com/zintix-labs/wheellab/server/logger"
	"github.com/zintix-labs/wheellab/server/svrcfg"
	"github.com/zintix-labs/wheellab/setting"
)

// 轉盤服務入口：讀設定、組裝 Wheellab 與 Engine，交給 server.Run。
//
// 優先順序：flag > 環境變數（含 .env）> 設定檔 > 內嵌預設。
func main() {
	sCfg, closeLog, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	err = server.Run(sCfg)
	closeLog()
	if err != nil {
		os.Exit(1)
	}
}

type config struct {
	ConfigPath string
	Addr       string
	LogMode    string
	Seed       int64
	EnvFile    string
	CORS       string
}

func parseFlags(args []string) (*config, error) {
	cfg := new(config)
	fs := flag.NewFlagSet("svr", flag.ContinueOnError)
	fs.StringVar(&cfg.ConfigPath, "config", "", "wheel setting file (.yaml/.yml/.json); empty uses the embedded default")
	fs.StringVar(&cfg.Addr, "addr", "", "listen address, e.g. :5808 (env WHEEL_ADDR)")
	fs.StringVar(&cfg.LogMode, "log-mode", "", "log mode: dev|prod|silence (env WHEEL_LOG_MODE)")
	fs.Int64Var(&cfg.Seed, "seed", -1, "int64 seed for the spin PRNG; < 0 uses crypto/rand")
	fs.StringVar(&cfg.EnvFile, "env", ".env", "dotenv file; missing file is ignored")
	fs.StringVar(&cfg.CORS, "cors", "", "comma separated allowed origins (env WHEEL_CORS_ORIGINS)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv 以環境變數補上沒有用 flag 指定的欄位。
func (cfg *config) applyEnv() {
	if cfg.Addr == "" {
		cfg.Addr = os.Getenv("WHEEL_ADDR")
	}
	if cfg.LogMode == "" {
		cfg.LogMode = os.Getenv("WHEEL_LOG_MODE")
	}
	if cfg.CORS == "" {
		cfg.CORS = os.Getenv("WHEEL_CORS_ORIGINS")
	}
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = os.Getenv("WHEEL_CONFIG")
	}
}

func loadConfig(args []string) (*svrcfg.SvrCfg, func(), error) {
	cfg, err := parseFlags(args)
	if err != nil {
		return nil, nil, err
	}
	// .env 不存在不是錯誤；已存在的環境變數不會被覆蓋
	if cfg.EnvFile != "" {
		if err := godotenv.Load(cfg.EnvFile); err != nil && !os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("load %s: %w", cfg.EnvFile, err)
		}
	}
	cfg.applyEnv()

	mode, err := logger.ParseLogMode(cfg.LogMode)
	if err != nil {
		return nil, nil, err
	}
	log, ah := logger.NewAsync(4096, mode)

	ws, err := setting.Load(cfg.ConfigPath)
	if err != nil {
		ah.Close()
		return nil, nil, err
	}
	if u := os.Getenv("WHEEL_SYNC_URL"); u != "" {
		ws.Sync.Kind = setting.SyncHTTP
		ws.Sync.URL = u
	}

	opts := []wheellab.Option{wheellab.WithLogger(log)}
	if cfg.Seed >= 0 {
		opts = append(opts, wheellab.WithSeed(cfg.Seed))
	}
	ctx := context.Background()
	lab, err := wheellab.New(ctx, ws, opts...)
	if err != nil {
		ah.Close()
		return nil, nil, err
	}
	log.Info("wheel ready",
		slog.String("wheel", ws.Name),
		slog.Int("pool", len(ws.Pool)),
		slog.String("sync", string(ws.Sync.Kind)),
		slog.Int64("seed", lab.Seed()),
	)

	sCfg := &svrcfg.SvrCfg{
		Log:         log,
		Addr:        cfg.Addr,
		Lab:         lab,
		Engine:      lab.NewEngine(ctx),
		CORSOrigins: splitOrigins(cfg.CORS),
	}
	return sCfg, ah.Close, nil
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
