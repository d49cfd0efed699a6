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

// Package spin 提供 Spin 的兩個純函數：目標角度的抽樣，以及由最終角度反推得獎扇形。
package spin

import (
	"math"

	"github.com/zintix-labs/wheellab/sdk/core"
)

const (
	DefaultSpinMin  = 4.0 // 最少圈數
	DefaultSpinSpan = 2.0 // 圈數抽樣範圍寬度：spins ∈ [4, 6)

	// pointerAngle 為判定得獎的指針位置（3 點鐘方向），以 12 點鐘起算順時針的角度表示。
	pointerAngle = 90.0
)

// Params 控制圈數的抽樣範圍。
type Params struct {
	SpinMin  float64 `json:"spin_min" yaml:"spin_min"`
	SpinSpan float64 `json:"spin_span" yaml:"spin_span"`
}

func DefaultParams() Params {
	return Params{SpinMin: DefaultSpinMin, SpinSpan: DefaultSpinSpan}
}

// Draw 為一次 Spin 抽出的結果。
type Draw struct {
	Spins  float64 `json:"spins"`  // ∈ [SpinMin, SpinMin+SpinSpan)
	Offset float64 `json:"offset"` // ∈ [0, 360)
	Target float64 `json:"target"` // 新的絕對旋轉角
}

// NewDraw 依序抽圈數、偏移角（各一次 Float64），並累加到目前的絕對旋轉角上。
//
//	target = current + spins*360 + offset
func NewDraw(r core.RAND, current float64, p Params) Draw {
	spins := core.Uniform(r, p.SpinMin, p.SpinMin+p.SpinSpan)
	offset := core.Uniform(r, 0, 360)
	return Draw{
		Spins:  spins,
		Offset: offset,
		Target: current + spins*360 + offset,
	}
}

// Normalize 把任意角度折回 [0, 360)。
func Normalize(deg float64) float64 {
	v := math.Mod(deg, 360)
	if v < 0 {
		v += 360
	}
	return v
}

// WinnerIndex 回傳轉盤停在 target 時，位於 3 點鐘指針下的扇形 index。
//
//	normalized = target mod 360
//	seg        = 360 / n
//	index      = floor((90 - normalized)/seg + n) mod n
//
// +n 保證 floor 之前分子為非負；n 必須是「移除前」的扇形數。n <= 0 回傳 -1。
func WinnerIndex(target float64, n int) int {
	if n <= 0 {
		return -1
	}
	normalized := Normalize(target)
	seg := 360 / float64(n)
	idx := int(math.Floor((pointerAngle-normalized)/seg+float64(n))) % n
	if idx < 0 {
		idx += n
	}
	return idx
}
