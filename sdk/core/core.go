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

// Package core 定義轉盤使用的亂數來源（PRNG seam）與洗牌工具。
//
// 轉盤的結果只取決於兩次獨立的均勻抽樣（圈數、偏移角）以及初始化時的洗牌，
// 因此亂數來源是公開合約的一部分：engine / sim 都只依賴 RAND，測試可以直接注入 stub。
package core

import (
	"crypto/rand"
	"math"
	"math/big"
)

// PRNG 定義 Core 所需的亂數來源，需同時支援取樣與狀態保存/還原。
type PRNG interface {
	RAND
	Restorable
}

// Restorable 定義可快照與還原的狀態介面。
type Restorable interface {
	// Snapshot 回傳可用於還原的序列化狀態。
	Snapshot() ([]byte, error)
	// Restore 依序列化狀態還原 PRNG 內部狀態。
	Restore([]byte) error
}

// RAND 定義核心亂數取樣能力。
//
// Float64 用於角度與圈數（連續均勻分布），IntN 用於洗牌（離散均勻分布）。
// 兩者都交給實作決定精度與 bounded 策略，避免在熱路徑上做多餘轉換。
type RAND interface {
	// Uint64 回傳非負 uint64 亂數。
	Uint64() uint64
	// Float64 回傳 [0,1) 的浮點亂數。
	Float64() float64
	// UintN 回傳 [0,max) 的 uint 亂數，若 max == 0 回傳 0。
	UintN(uint) uint
	// IntN 回傳 [0,max) 的 int 亂數，若 max <= 0 回傳 -1。
	IntN(int) int
}

type PRNGFactory interface {
	// New 以指定 seed 建立新的 PRNG。
	//
	// 合約：同一實作與版本下 New(seed) 必須是決定性的，相同 seed 產生相同序列。
	// seed 的生命週期由 wheellab 統一管理（外部未提供時用 NewSeed 產生並保存）。
	New(int64) PRNG
}

// DefaultPRNG 實作預設的 PRNGFactory（PCG64）。
type DefaultPRNG struct{}

// New 滿足合約
func (d *DefaultPRNG) New(seed int64) PRNG {
	return NewPCG64WithSeed(seed)
}

func Default() *DefaultPRNG {
	return &DefaultPRNG{}
}

// NewSeed 以 crypto/rand 產生非負 int64 seed。
func NewSeed() (int64, error) {
	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return 0, err
	}
	return seed.Int64(), nil
}

// Core 封裝 PRNG，並提供常用取樣與工具方法。
type Core struct {
	PRNG
}

// New 允許使用外部自實現的 PRNG 建立 Core。
func New(rng PRNG) *Core {
	return &Core{rng}
}

// Uniform 回傳 [lo, hi) 的連續均勻亂數。
func (c *Core) Uniform(lo, hi float64) float64 {
	return Uniform(c, lo, hi)
}

// ShuffleInts 對 []int 做就地 Fisher-Yates 洗牌。
func (c *Core) ShuffleInts(src []int) {
	shuffleInPlace(c, src)
}

// Shuffle 回傳 src 的一個均勻隨機排列；src 本身不會被修改。
//
// Fisher-Yates (Knuth Shuffle)：由最後一個位置往前到 index 1，
// 每一步在 [0, i] 內均勻抽一個位置交換。N! 種排列機率嚴格相等，時間 O(N)。
func Shuffle[T any](r RAND, src []T) []T {
	out := make([]T, len(src))
	copy(out, src)
	shuffleInPlace(r, out)
	return out
}

// Uniform 回傳 [lo, hi) 的連續均勻亂數。
func Uniform(r RAND, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

func shuffleInPlace[T any](r RAND, src []T) {
	for i := len(src) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		src[i], src[j] = src[j], src[i]
	}
}
