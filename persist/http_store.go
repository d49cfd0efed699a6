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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zintix-labs/wheellab/errs"
)

const maxRecordBytes = 1 << 20

// HTTPStore 對接以試算表為後端的 HTTP 端點：
//   - GET  url → {"remaining": "...", "history": "..."}
//   - POST url ← 同樣的 JSON
//
// 端點常見 302 轉址（例如 Apps Script），http.Client 預設會跟隨。
type HTTPStore struct {
	url    string
	client *http.Client
}

// NewHTTPStore 建立 HTTPStore；client 為 nil 時使用 10 秒 timeout 的預設 client。
func NewHTTPStore(url string, client *http.Client) *HTTPStore {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPStore{url: url, client: client}
}

func (h *HTTPStore) Load(ctx context.Context) (Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return Snapshot{}, errs.Wrap(err, "build sync load request")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := h.client.Do(req)
	if err != nil {
		return Snapshot{}, errs.Wrap(err, "sync load request")
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return Snapshot{}, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Snapshot{}, errs.Fatalf("sync load status %d", resp.StatusCode)
	}

	var rec Record
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxRecordBytes)).Decode(&rec); err != nil {
		return Snapshot{}, errs.Wrap(err, "decode sync record")
	}
	return rec.Decode()
}

func (h *HTTPStore) Save(ctx context.Context, s Snapshot) error {
	body, err := json.Marshal(Encode(s))
	if err != nil {
		return errs.Wrap(err, "encode sync record")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return errs.Wrap(err, "build sync save request")
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.client.Do(req)
	if err != nil {
		return errs.Wrap(err, "sync save request")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxRecordBytes))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errs.NewFatal(fmt.Sprintf("sync save status %d", resp.StatusCode))
	}
	return nil
}
