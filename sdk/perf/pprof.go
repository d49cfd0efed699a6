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

// Package perf 包裝 runtime/pprof，讓 cmd/sim 可以對模擬器做 profiling。
package perf

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/zintix-labs/wheellab/errs"
)

// DefaultDir 為 profile 預設輸出目錄。
const DefaultDir = "build/profiling"

// Mode 為 profiling 種類。
type Mode string

const (
	ModeNone   Mode = ""
	ModeCPU    Mode = "cpu"
	ModeHeap   Mode = "heap"
	ModeAllocs Mode = "allocs"
)

// ParseMode 解析 -p flag。
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeNone, ModeCPU, ModeHeap, ModeAllocs:
		return m, nil
	default:
		return ModeNone, errs.Warnf("unknown pprof mode %q (cpu|heap|allocs)", s)
	}
}

// Run 依 mode 執行 exe 並把 profile 寫到 dir/<mode>.pprof，回傳檔案路徑（ModeNone 時為空）。
//
//   - cpu    ：exe 執行期間的 CPU profile，也可以拿來做 PGO。
//   - heap   ：exe 結束後先 GC 再寫 in-use heap。
//   - allocs ：exe 結束後寫累積配置（搭配 -alloc_space / -alloc_objects 查看）。
func Run(exe func(), mode Mode, dir string) (string, error) {
	if mode == ModeNone {
		exe()
		return "", nil
	}
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errs.Wrap(err, "create pprof dir")
	}
	path := filepath.Join(dir, string(mode)+".pprof")
	f, err := os.Create(path)
	if err != nil {
		return "", errs.Wrap(err, "create "+path)
	}
	defer f.Close()

	switch mode {
	case ModeCPU:
		if err := pprof.StartCPUProfile(f); err != nil {
			return "", errs.Wrap(err, "start cpu profile")
		}
		exe()
		pprof.StopCPUProfile()

	case ModeHeap:
		exe()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return "", errs.Wrap(err, "write heap profile")
		}

	case ModeAllocs:
		exe()
		if prof := pprof.Lookup("allocs"); prof != nil {
			if err := prof.WriteTo(f, 0); err != nil {
				return "", errs.Wrap(err, "write allocs profile")
			}
		}

	default:
		return "", errs.Warnf("unknown pprof mode %q", mode)
	}
	return path, nil
}
