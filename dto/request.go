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

package dto

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/zintix-labs/wheellab/errs"
)

const maxBody = 1 << 20

// CandidateRequest 為 POST /v1/candidates 的輸入。
type CandidateRequest struct {
	Name string `json:"name"`
}

// DecodeCandidateRequest 解碼新增候選人請求。
//
// 名字的 trim / 空白 / 重複檢查屬於 engine（安靜的 no-op），這裡只負責 JSON 與逗號限制：
// 同步格式以逗號分隔，含逗號的名字無法被還原，直接視為請求錯誤。
func DecodeCandidateRequest(r *http.Request) (*CandidateRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}
	req := new(CandidateRequest)
	if err := decodeStrict(r, req); err != nil {
		return nil, err
	}
	for _, c := range req.Name {
		if c == ',' {
			return nil, errs.NewWarn("name must not contain comma")
		}
	}
	return req, nil
}

// SimRequest 為 /v1/sim 的輸入。
type SimRequest struct {
	Rounds  int    `json:"rounds"`
	Workers int    `json:"workers"`
	Seed    *int64 `json:"seed,omitempty"`
}

// DecodeSimRequest 會把 HTTP 請求解碼成 SimRequest。
//
// 支援：
//   - GET：從 query string 讀取 rounds / workers / seed。
//   - POST：從 JSON body 反序列化（未知欄位拒絕，body 上限 1MiB）。
//
// 只做型別轉換；rounds 的上下限由 handler 依設定檢查。
func DecodeSimRequest(r *http.Request) (*SimRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}
	req := new(SimRequest)

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		if s := q.Get("rounds"); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid rounds: %v", err))
			}
			req.Rounds = v
		}
		if s := q.Get("workers"); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid workers: %v", err))
			}
			req.Workers = v
		}
		if s := q.Get("seed"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid seed: %v", err))
			}
			req.Seed = &v
		}
		return req, nil

	case http.MethodPost:
		if err := decodeStrict(r, req); err != nil {
			return nil, err
		}
		return req, nil

	default:
		return nil, errs.NewWarn("method not allowed")
	}
}

func decodeStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.WrapWarn(err, "invalid json")
	}
	return nil
}
