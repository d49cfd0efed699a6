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

package persist

import (
	"context"
	"slices"
	"sync"
)

// MemStore 為行程內 Store，用於測試與 -store=mem。
type MemStore struct {
	mu    sync.Mutex
	snap  Snapshot
	has   bool
	saves int
}

func NewMemStore() *MemStore { return &MemStore{} }

// NewMemStoreWith 建立已有一筆紀錄的 MemStore。
func NewMemStoreWith(s Snapshot) *MemStore {
	m := &MemStore{}
	m.put(s)
	return m
}

func (m *MemStore) Load(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.has {
		return Snapshot{}, ErrNotFound
	}
	return Snapshot{
		Remaining: slices.Clone(m.snap.Remaining),
		History:   slices.Clone(m.snap.History),
	}, nil
}

func (m *MemStore) Save(ctx context.Context, s Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.put(s)
	return nil
}

// Saves 回傳累計 Save 次數。
func (m *MemStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *MemStore) put(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// 走一次線上格式，行為與遠端 Store 一致（空白修剪、空項丟棄）。
	snap, _ := Encode(s).Decode()
	m.snap = snap
	m.has = true
	m.saves++
}
