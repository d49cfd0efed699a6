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

// Package roster 提供 Name Pool：轉盤候選人的來源名單。
package roster

import (
	"bufio"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/zintix-labs/wheellab/errs"
)

// defaultPool 為內建名單（字母序）。
var defaultPool = []string{
	"Abby", "AJ", "Alicia", "Anastasia", "Asha", "Bailey", "Carla", "Chevron",
	"Daniel", "Danielle", "Dominic", "Elizabeth", "Jeremy", "Jess", "Johanna",
	"Jordan", "Juan", "Karthika", "Komal", "Kristen", "Leanne", "Mahesh",
	"Michael", "Paul", "Petra", "Rakhee", "Rayan", "Ritchie", "Safia", "Samaira",
	"Sarah", "Satish", "Sean", "Simon", "Sofia", "Tom", "Victoria", "Victor",
	"Zach", "Zack", "Vivien",
}

// Default 回傳內建名單的複本。
func Default() []string {
	return slices.Clone(defaultPool)
}

// Normalize 去除前後空白、丟棄空字串與重複，保留首次出現的順序。
func Normalize(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Parse 讀取名單：每行一個名字，# 開頭為註解，空行忽略。
//
// 名字不可包含逗號（同步格式以逗號分隔）；遇到時回傳 Warn。
func Parse(r io.Reader) ([]string, error) {
	var names []string
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		if strings.Contains(s, ",") {
			return nil, errs.Warnf("roster line %d: name %q contains comma", line, s)
		}
		names = append(names, s)
	}
	if err := sc.Err(); err != nil {
		return nil, errs.Wrap(err, "read roster")
	}
	names = Normalize(names)
	if len(names) == 0 {
		return nil, errs.NewWarn("roster is empty")
	}
	return names, nil
}

// LoadFile 由檔案讀取名單。
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(err, "open roster file")
	}
	defer f.Close()
	return Parse(f)
}
