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
	"io"
	"log"
	"os"
	"time"

	"github.com/zintix-labs/wheellab"
	"github.com/zintix-labs/wheellab/roster"
	"github.com/zintix-labs/wheellab/sdk/core"
	"github.com/zintix-labs/wheellab/sdk/perf"
	"github.com/zintix-labs/wheellab/setting"
	"github.com/zintix-labs/wheellab/stats"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// 抽選分佈模擬：
//
//	go run ./cmd/sim -rounds 1000000 -worker 8
//	go run ./cmd/sim -config wheel.yaml -format yaml -seed 42
//	go run ./cmd/sim -pool names.txt -p cpu
type config struct {
	configPath string
	poolPath   string
	worker     int
	rounds     int
	seed       int64
	format     string
	pprofmode  string
}

func parseFlags(args []string) (*config, error) {
	cfg := new(config)
	fs := flag.NewFlagSet("sim", flag.ContinueOnError)
	fs.StringVar(&cfg.configPath, "config", "", "wheel setting file; empty uses the embedded default")
	fs.StringVar(&cfg.poolPath, "pool", "", "name list file (one name per line), overrides the setting pool")
	fs.IntVar(&cfg.worker, "worker", 1, "number of workers")
	fs.IntVar(&cfg.rounds, "rounds", 1_000_000, "rounds per worker")
	fs.Int64Var(&cfg.seed, "seed", -1, "int64 seed for random number generator")
	fs.StringVar(&cfg.format, "format", "table", "output: table|json|yaml")
	fs.StringVar(&cfg.pprofmode, "p", "", "pprof: '', cpu, heap, allocs")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *config) valid() error {
	if cfg.worker < 1 {
		return fmt.Errorf("value err : worker must > 0")
	}
	if cfg.rounds < 1 {
		return fmt.Errorf("value err : rounds must > 0")
	}
	switch cfg.format {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("value err : unknown format %q", cfg.format)
	}
	if cfg.seed < 0 {
		seed, err := core.NewSeed()
		if err != nil {
			return err
		}
		cfg.seed = seed
	}
	return nil
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if err := cfg.valid(); err != nil {
		log.Fatal(err)
	}
	mode, err := perf.ParseMode(cfg.pprofmode)
	if err != nil {
		log.Fatal(err)
	}

	var runErr error
	path, err := perf.Run(func() { runErr = run(cfg, os.Stdout) }, mode, perf.DefaultDir)
	if err != nil {
		log.Fatal(err)
	}
	if runErr != nil {
		log.Fatal(runErr)
	}
	if path != "" {
		fmt.Fprintln(os.Stderr, "profile written:", path)
	}
}

func run(cfg *config, w io.Writer) error {
	ws, err := setting.Load(cfg.configPath)
	if err != nil {
		return err
	}
	if cfg.poolPath != "" {
		pool, err := roster.LoadFile(cfg.poolPath)
		if err != nil {
			return err
		}
		ws.Pool = pool
	}
	// 模擬不碰同步端
	ws.Sync = setting.SyncSetting{Kind: setting.SyncNone}

	lab, err := wheellab.New(context.Background(), ws, wheellab.WithSeed(cfg.seed))
	if err != nil {
		return err
	}
	sim, err := lab.NewSimulator()
	if err != nil {
		return err
	}

	showpb := cfg.format == "table"
	if showpb {
		green := "\033[1;32m"
		reset := "\033[0m"
		p := message.NewPrinter(language.English)
		p.Fprintf(w, "%s[WHEEL:%s] [WORKERS:%d] [SEGMENTS:%d] [ROUNDS:%d] [SEED:%d]%s\n",
			green, ws.Name, cfg.worker, len(ws.Pool), cfg.worker*cfg.rounds, cfg.seed, reset)
	}

	var (
		st   *stats.DrawReport
		used time.Duration
	)
	if cfg.worker == 1 {
		st, used, err = sim.Sim(cfg.rounds, showpb)
	} else {
		st, used, err = sim.SimMP(cfg.rounds, cfg.worker, showpb)
	}
	if err != nil {
		return err
	}

	switch cfg.format {
	case "json":
		return st.WriteWith(w, &stats.JsonDrawReportRender{})
	case "yaml":
		return st.WriteWith(w, &stats.YAMLDrawReportRender{})
	default:
		st.StdOut(used)
		return nil
	}
}
