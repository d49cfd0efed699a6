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

// Package board 管理 Segment Set（轉盤上剩餘的候選人）與 Selected List（抽中歷史）。
//
// 分割不變量：任何名字不會同時出現在兩個列表中。Board 在 Add 時直接拒絕重複名字，
// 所以這條不變量是被強制的，而不是靠輸入剛好不重複。
//
// Board 不是併發安全的；由持有它的 engine 加鎖。
package board

import (
	"slices"
	"strings"
)

// Board 持有兩個有序列表。Segment Set 的順序決定扇形位置，Selected List 的順序就是抽出順序。
type Board struct {
	segments []string
	selected []string
}

// New 以既有狀態建立 Board（例如由同步端還原）。
//
// 輸入會被正規化：去除前後空白、丟棄空字串、丟棄重複；
// 同一名字同時出現在兩邊時視為已抽中（保留在 selected）。
func New(segments, selected []string) *Board {
	b := &Board{
		segments: make([]string, 0, len(segments)),
		selected: make([]string, 0, len(selected)),
	}
	seen := make(map[string]struct{}, len(segments)+len(selected))
	for _, s := range selected {
		s = strings.TrimSpace(s)
		if _, dup := seen[s]; s == "" || dup {
			continue
		}
		seen[s] = struct{}{}
		b.selected = append(b.selected, s)
	}
	for _, s := range segments {
		s = strings.TrimSpace(s)
		if _, dup := seen[s]; s == "" || dup {
			continue
		}
		seen[s] = struct{}{}
		b.segments = append(b.segments, s)
	}
	return b
}

// Segments 回傳 Segment Set 的複本。
func (b *Board) Segments() []string { return slices.Clone(b.segments) }

// Selected 回傳 Selected List 的複本。
func (b *Board) Selected() []string { return slices.Clone(b.selected) }

// Len 回傳 Segment Set 長度。
func (b *Board) Len() int { return len(b.segments) }

func (b *Board) At(i int) (string, bool) {
	if i < 0 || i >= len(b.segments) {
		return "", false
	}
	return b.segments[i], true
}

// Contains 回報名字是否在任一列表中。
func (b *Board) Contains(name string) bool {
	return slices.Contains(b.segments, name) || slices.Contains(b.selected, name)
}

// Add 把候選人加到 Segment Set 尾端。
// 空白/全空白輸入，或名字已存在於任一列表時為 no-op。
func (b *Board) Add(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || b.Contains(name) {
		return false
	}
	b.segments = append(b.segments, name)
	return true
}

// Remove 手動刪除候選人（不經由 Spin）。
// 不允許經由此路徑讓 Segment Set 少於 1 個；名字不存在時為 no-op。
func (b *Board) Remove(name string) bool {
	if len(b.segments) <= 1 {
		return false
	}
	i := slices.Index(b.segments, name)
	if i < 0 {
		return false
	}
	b.segments = slices.Delete(b.segments, i, i+1)
	return true
}

// Take 為 Spin 驅動的移除：把 index 位置的候選人移到 Selected List 尾端。
// 此路徑允許清空 Segment Set。index 必須以移除前的 Segment Set 計算。
func (b *Board) Take(index int) (string, bool) {
	name, ok := b.At(index)
	if !ok {
		return "", false
	}
	b.segments = slices.Delete(b.segments, index, index+1)
	b.selected = append(b.selected, name)
	return name, true
}

// RestoreOne 把名字從 Selected List 移回 Segment Set 尾端；不在 Selected List 時為 no-op。
func (b *Board) RestoreOne(name string) bool {
	i := slices.Index(b.selected, name)
	if i < 0 {
		return false
	}
	b.selected = slices.DeleteFunc(b.selected, func(s string) bool { return s == name })
	b.segments = append(b.segments, name)
	return true
}

// RestoreAll 依抽出順序把整個 Selected List 接回 Segment Set 尾端並清空 Selected List。
// Selected List 為空時為 no-op。
func (b *Board) RestoreAll() bool {
	if len(b.selected) == 0 {
		return false
	}
	b.segments = append(b.segments, b.selected...)
	b.selected = b.selected[:0]
	return true
}

// Reset 以新的 Segment Set 重新開始並清空 Selected List（例如重新洗牌 Name Pool）。
func (b *Board) Reset(segments []string) {
	nb := New(segments, nil)
	b.segments = nb.segments
	b.selected = nb.selected
}
