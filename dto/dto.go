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

// Package dto 定義 HTTP/WebSocket 邊界的輸入輸出結構。
//
// 這些結構只屬於傳輸層；不要讓它滲透到 engine / sdk。
package dto

import (
	"github.com/zintix-labs/wheellab/engine"
	"github.com/zintix-labs/wheellab/sdk/geometry"
	"github.com/zintix-labs/wheellab/stats"
)

// WheelState 為 GET /v1/wheel 的回應。
type WheelState struct {
	Name           string          `json:"name"`
	Phase          engine.Phase    `json:"phase"`
	Segments       []string        `json:"segments"`
	Selected       []string        `json:"selected"`
	Rotation       float64         `json:"rotation"`
	Session        *engine.Session `json:"session,omitempty"`
	SpinDurationMS int64           `json:"spin_duration_ms"`
	RemoveDelayMS  int64           `json:"remove_delay_ms"`
	Complete       bool            `json:"complete"` // Segment Set 已抽空
	CanRemove      bool            `json:"can_remove"` // 手動刪除是否可用（至少保留一個）
}

// NewWheelState 由引擎狀態組出回應。
func NewWheelState(name string, eng *engine.Engine) WheelState {
	st := eng.State()
	spinD, removeD := eng.Timing()
	return WheelState{
		Name:           name,
		Phase:          st.Phase,
		Segments:       nonNil(st.Segments),
		Selected:       nonNil(st.Selected),
		Rotation:       st.Rotation,
		Session:        st.Session,
		SpinDurationMS: spinD.Milliseconds(),
		RemoveDelayMS:  removeD.Milliseconds(),
		Complete:       len(st.Segments) == 0,
		CanRemove:      len(st.Segments) > 1 && st.Session == nil,
	}
}

// Layout 為 GET /v1/layout 的回應。
type Layout struct {
	Wedges []geometry.Wedge `json:"wedges"`
}

// SpinResult 為 POST /v1/spin 的回應。Applied=false 表示這次觸發被忽略（正在旋轉或沒有候選人）。
type SpinResult struct {
	Applied    bool            `json:"applied"`
	Session    *engine.Session `json:"session,omitempty"`
	DurationMS int64           `json:"duration_ms,omitempty"`
}

// Mutation 為手動異動（新增、刪除、復原、重洗）的回應。
type Mutation struct {
	Applied bool       `json:"applied"`
	State   WheelState `json:"state"`
}

// SimResult 為 POST /v1/sim 的回應。
type SimResult struct {
	Stats    *stats.DrawReport `json:"stats"`
	UsedTime int64             `json:"used_ms"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
