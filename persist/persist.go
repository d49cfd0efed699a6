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

// Package persist 是 Persistence Sync 的介接層：把 {remaining, history} 當成不透明的
// key-value 存到遠端（或本機）Store。
//
// 本地狀態永遠是權威：Load 失敗由呼叫端退回預設 Name Pool；Save 透過 Syncer 以
// fire-and-forget 執行，失敗只記 log，不重試、不回滾、不通知使用者。
//
// 編碼合約：名字以半形逗號 join/split；包含逗號的名字無法表示（已知限制，不處理）。
package persist

import (
	"context"
	"strings"

	"github.com/zintix-labs/wheellab/errs"
)

var (
	// ErrNotFound 表示 Store 內還沒有任何紀錄。
	ErrNotFound = errs.NewWarn("sync record not found")
	// ErrMissingField 表示紀錄缺少 remaining 欄位。
	ErrMissingField = errs.NewWarn("sync record missing field")
)

// Snapshot 為一次同步的內容。
type Snapshot struct {
	Remaining []string `json:"remaining"`
	History   []string `json:"history"`
}

// Store 為遠端 key-value 同步服務的最小介面。
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, s Snapshot) error
}

// Record 為線上格式：兩個以逗號串接的字串。指標用來區分「欄位缺失」與「空列表」。
type Record struct {
	Remaining *string `json:"remaining"`
	History   *string `json:"history"`
}

// Encode 把 Snapshot 轉成線上格式。
func Encode(s Snapshot) Record {
	rem := Join(s.Remaining)
	his := Join(s.History)
	return Record{Remaining: &rem, History: &his}
}

// Decode 把線上格式轉回 Snapshot。
// remaining 缺失回傳 ErrMissingField；history 缺失視為空列表。
func (r Record) Decode() (Snapshot, error) {
	if r.Remaining == nil {
		return Snapshot{}, ErrMissingField
	}
	s := Snapshot{Remaining: Split(*r.Remaining)}
	if r.History != nil {
		s.History = Split(*r.History)
	}
	return s, nil
}

// Join 以逗號串接名字。
func Join(names []string) string {
	return strings.Join(names, ",")
}

// Split 以逗號切開字串，去除前後空白並丟棄空項；空字串回傳 nil。
func Split(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
