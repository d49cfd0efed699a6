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

package engine

import (
	"time"

	"github.com/zintix-labs/wheellab/errs"
)

// Phase 為 Spin Engine 的狀態。
type Phase uint8

const (
	Idle        Phase = iota // 可接受 Spin 與手動異動
	Spinning                 // 動畫進行中，等待 spin-duration timer
	WinnerShown              // 已判定得獎者，等待 remove-delay timer
	Resetting                // 移除得獎者、旋轉角歸零；隨即回到 Idle
)

var phaseNames = map[Phase]string{
	Idle:        "idle",
	Spinning:    "spinning",
	WinnerShown: "winner_shown",
	Resetting:   "resetting",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "unknown"
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	for k, v := range phaseNames {
		if v == string(b) {
			*p = k
			return nil
		}
	}
	return errs.Warnf("unknown phase %q", string(b))
}

// EventKind 標示事件種類。
type EventKind string

const (
	// EvSpinStarted : 開始旋轉。渲染端以 Target/Duration 播放動畫，音效也在此觸發。
	EvSpinStarted EventKind = "spin_started"
	// EvWinnerShown : 判定得獎者，渲染端顯示得獎名字。
	EvWinnerShown EventKind = "winner_shown"
	// EvWinnerRemoved : 得獎者已移入 Selected List。渲染端應「無過場」地把轉盤歸零到 0°。
	EvWinnerRemoved EventKind = "winner_removed"
	// EvSelectionComplete : Segment Set 被抽空（每次清空只發一次）。
	EvSelectionComplete EventKind = "selection_complete"
	// EvBoardChanged : 手動異動（新增、刪除、復原、重洗）。
	EvBoardChanged EventKind = "board_changed"
)

// Event 是送給 Observer 的通知。欄位依 Kind 使用，未用到的為零值。
type Event struct {
	Kind        EventKind `json:"kind"`
	Phase       Phase     `json:"phase"`
	SessionID   string    `json:"session_id,omitempty"`
	Target      float64   `json:"target,omitempty"`
	DurationMS  int64     `json:"duration_ms,omitempty"`
	WinnerIndex int       `json:"winner_index"`
	Winner      string    `json:"winner,omitempty"`
	Rotation    float64   `json:"rotation"`
	Snap        bool      `json:"snap,omitempty"` // true 表示旋轉角直接跳到 Rotation，不播過場
	Segments    []string  `json:"segments"`
	Selected    []string  `json:"selected"`
	At          time.Time `json:"at"`
}

// Observer 接收引擎事件。OnEvent 在引擎鎖外依轉移順序呼叫，可以回呼引擎；
// 呼叫所在的 goroutine 不一定是觸發轉移的那一個。
type Observer interface {
	OnEvent(ev Event)
}

// ObserverFunc 讓一般函式滿足 Observer。
type ObserverFunc func(ev Event)

func (f ObserverFunc) OnEvent(ev Event) { f(ev) }
