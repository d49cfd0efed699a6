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

// 開發用任務：go run ./scripts [task]
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
)

type task struct {
	desc  string
	clean bool     // 先 go clean -testcache
	args  []string // go 子指令
	// filter 決定每一行輸出是否印出；nil 時直接串到終端
	filter func(line string) bool
}

var tasks = map[string]task{
	"test": {
		desc:   "go test ./... -cover -count=1，只顯示 ok / FAIL",
		clean:  true,
		args:   []string{"test", "./...", "-cover", "-count=1"},
		filter: summaryOnly,
	},
	"test-race": {
		desc:   "引擎 timer 與 Syncer 的併發測試（-race）",
		clean:  true,
		args:   []string{"test", "-race", "-count=1", "./engine/...", "./persist/...", "./server/..."},
		filter: summaryOnly,
	},
	"test-detail": {
		desc:   "verbose 測試，過濾 [no test files]",
		clean:  true,
		args:   []string{"test", "./...", "-v", "-count=1"},
		filter: func(line string) bool { return !strings.Contains(line, "[no test files]") },
	},
	"sim": {
		desc: "預設名單跑 1,000,000 輪 x 4 workers 的抽選分佈",
		args: []string{"run", "./cmd/sim", "-rounds", "1000000", "-worker", "4"},
	},
	"serve": {
		desc: "以 dev log 啟動轉盤服務（讀取 .env）",
		args: []string{"run", "./cmd/svr", "-log-mode", "dev"},
	},
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	name := os.Args[1]
	t, ok := tasks[name]
	if !ok {
		PrintYellow(fmt.Sprintf("Unknown task: %s", name))
		usage()
		os.Exit(1)
	}
	PrintGreen("running " + name)
	if err := run(t); err != nil {
		PrintRed(fmt.Sprintf("\n%s finished with errors: %v", name, err))
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: go run ./scripts [task]")
	names := make([]string, 0, len(tasks))
	for n := range tasks {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Printf("  %-12s %s\n", n, tasks[n].desc)
	}
}

func run(t task) error {
	if t.clean {
		// clean 失敗不中斷
		if err := exec.Command("go", "clean", "-testcache").Run(); err != nil {
			PrintRed(err.Error())
		}
	}

	cmd := exec.Command("go", t.args...)
	if t.filter == nil {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.Stdin = os.Stdin
		return cmd.Run()
	}

	out, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	// 編譯錯誤在 stderr，合併後才看得到
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return err
	}
	sc := bufio.NewScanner(out)
	for sc.Scan() {
		line := sc.Text()
		if !t.filter(line) {
			continue
		}
		switch {
		case strings.HasPrefix(line, "ok"):
			PrintGreen(line)
		case strings.HasPrefix(line, "FAIL"), strings.HasPrefix(line, "--- FAIL"):
			PrintRed(line)
		default:
			fmt.Println(line)
		}
	}
	if err := sc.Err(); err != nil {
		PrintRed(fmt.Sprintf("scanner error: %v", err))
	}
	return cmd.Wait()
}

// summaryOnly 等同 grep -E '^(ok|FAIL)'，另外保留 build/setup failed 讓編譯錯誤看得到。
func summaryOnly(line string) bool {
	return strings.HasPrefix(line, "ok") || strings.HasPrefix(line, "FAIL") ||
		strings.Contains(line, "build failed") || strings.Contains(line, "setup failed") ||
		strings.Contains(line, "DATA RACE")
}
