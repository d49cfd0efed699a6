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

// Package page 提供內建的渲染頁（GET /）。
//
// 頁面只負責畫：扇形由 /v1/layout 取得，狀態與動畫時序由 /v1/events 推送，
// Spin 觸發與手動異動都走 v1 API。頁面本身不持有任何轉盤邏輯。
package page

import (
	_ "embed"
	"net/http"

	"github.com/zintix-labs/wheellab/server/netsvr"
)

//go:embed index.html
var indexHTML []byte

//go:embed favicon.svg
var faviconSVG []byte

// Register 註冊 GET / 與 GET /favicon.svg。
func Register(svr netsvr.NetRouter) {
	svr.Get("/", index)
	svr.Get("/favicon.svg", favicon)
}

func index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(indexHTML)
}

func favicon(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(faviconSVG)
}
