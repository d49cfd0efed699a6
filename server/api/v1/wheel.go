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

package v1

import (
	"encoding/json"
	"net/http"

	"github.com/zintix-labs/wheellab/dto"
	"github.com/zintix-labs/wheellab/engine"
	"github.com/zintix-labs/wheellab/errs"
	"github.com/zintix-labs/wheellab/sdk/geometry"
	"github.com/zintix-labs/wheellab/server/httperr"
	"github.com/zintix-labs/wheellab/server/netsvr"
)

// WheelHandler 把 Engine 的操作開放成 HTTP API。
//
// 引擎的非法操作（Spin 中再 Spin、加空白名字、刪最後一個扇形...）不是錯誤，
// 一律 200 + applied=false，與渲染端「忽略這次點擊」的語意一致。
type WheelHandler struct {
	name string
	eng  *engine.Engine
}

func NewWheelHandler(name string, eng *engine.Engine) (*WheelHandler, error) {
	if eng == nil {
		return nil, errs.NewFatal("engine is required")
	}
	return &WheelHandler{name: name, eng: eng}, nil
}

// State 處理 GET /v1/wheel。
func (h *WheelHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.NewWheelState(h.name, h.eng))
}

// Layout 處理 GET /v1/layout。
func (h *WheelHandler) Layout(w http.ResponseWriter, r *http.Request) {
	wedges := h.eng.Layout()
	if wedges == nil {
		wedges = []geometry.Wedge{}
	}
	writeJSON(w, http.StatusOK, dto.Layout{Wedges: wedges})
}

// Spin 處理 POST /v1/spin：受理時回 202 + session，動畫與移除由引擎的 timer 推進。
func (h *WheelHandler) Spin(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.eng.Spin()
	if !ok {
		writeJSON(w, http.StatusOK, dto.SpinResult{Applied: false})
		return
	}
	spinD, _ := h.eng.Timing()
	writeJSON(w, http.StatusAccepted, dto.SpinResult{
		Applied:    true,
		Session:    &sess,
		DurationMS: spinD.Milliseconds(),
	})
}

// AddCandidate 處理 POST /v1/candidates。
func (h *WheelHandler) AddCandidate(w http.ResponseWriter, r *http.Request) {
	req, err := dto.DecodeCandidateRequest(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	h.mutation(w, h.eng.AddCandidate(req.Name))
}

// RemoveCandidate 處理 DELETE /v1/candidates/{name}。
func (h *WheelHandler) RemoveCandidate(w http.ResponseWriter, r *http.Request) {
	h.mutation(w, h.eng.RemoveCandidate(netsvr.URLParam(r, "name")))
}

// RestoreOne 處理 POST /v1/selected/{name}/restore。
func (h *WheelHandler) RestoreOne(w http.ResponseWriter, r *http.Request) {
	h.mutation(w, h.eng.RestoreOne(netsvr.URLParam(r, "name")))
}

// RestoreAll 處理 POST /v1/selected/restore。
func (h *WheelHandler) RestoreAll(w http.ResponseWriter, r *http.Request) {
	h.mutation(w, h.eng.RestoreAll())
}

// Reshuffle 處理 POST /v1/reshuffle。
func (h *WheelHandler) Reshuffle(w http.ResponseWriter, r *http.Request) {
	h.mutation(w, h.eng.Reshuffle())
}

func (h *WheelHandler) mutation(w http.ResponseWriter, applied bool) {
	writeJSON(w, http.StatusOK, dto.Mutation{
		Applied: applied,
		State:   dto.NewWheelState(h.name, h.eng),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, "encode response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
