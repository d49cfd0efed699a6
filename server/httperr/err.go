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

// Package httperr 把 errs 的分級錯誤映射到 HTTP 回應。
package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zintix-labs/wheellab/errs"
)

// StatusCode 將錯誤映射成 HTTP status code。
//
// 規則（邊界層最小映射、可預期）：
//   - ctx timeout/cancel → 504/408（請求生命週期問題）
//   - errs.Warn         → 400（請求/參數問題）
//   - errs.Fatal        → 500（系統/不可恢復問題）
//
// 本函數屬於 HTTP 邊界層，因此放在 server/*（而不是 errs），避免核心錯誤包依賴 net/http。
func StatusCode(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout // 504
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout // 408
	}

	switch errs.LevelOf(err) {
	case errs.Warn:
		return http.StatusBadRequest // 400
	default:
		return http.StatusInternalServerError
	}
}

// Body 是錯誤回應的 JSON 結構。
type Body struct {
	Error string `json:"error"`
	Level string `json:"level,omitempty"`
}

// Errs 決定 status code 並寫回 JSON 錯誤。
func Errs(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	Write(w, StatusCode(err), err)
}

// Write 以指定 status code 寫回 JSON 錯誤（例如 404 / 405 這類不經過 errs 分級的情境）。
func Write(w http.ResponseWriter, status int, err error) {
	if err == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Body{
		Error: err.Error(),
		Level: errs.ErrLv(errs.LevelOf(err)),
	})
}

// Log 依 status code 決定記錄等級；4xx 的請求錯誤不記錄（AccessLog 已有）。
func Log(log *slog.Logger, msg string, err error) {
	if err == nil || log == nil {
		return
	}
	status := StatusCode(err)
	if (status == 408) || (status == 409) || (status == 429) {
		log.Warn(msg, slog.Any("err", err))
	} else if (status >= 500) && (status < 600) {
		log.Error(msg, slog.Any("err", err))
	}
}
