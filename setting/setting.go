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

// Package setting 定義轉盤設定（WheelSetting）與其 YAML/JSON 解析。
//
// 解析一律嚴格：多寫或拼錯欄位直接報錯。零值欄位補預設，不合法的值回傳 errs.Warn。
package setting

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zintix-labs/wheellab/errs"
	"github.com/zintix-labs/wheellab/roster"
	"github.com/zintix-labs/wheellab/sdk/geometry"
	"github.com/zintix-labs/wheellab/sdk/spin"
	"gopkg.in/yaml.v3"
)

//go:embed defaults/wheel.yaml
var defaultYAML []byte

const (
	defaultSpinDurationMS = 8500
	defaultRemoveDelayMS  = 2500
	defaultSyncTimeoutMS  = 10000
)

// SyncKind 為同步端種類。
type SyncKind string

const (
	SyncNone   SyncKind = "none"
	SyncHTTP   SyncKind = "http"
	SyncFile   SyncKind = "file"
	SyncSQLite SyncKind = "sqlite"
	SyncMem    SyncKind = "mem"
)

// SyncSetting 描述 Persistence Sync 的目標。
type SyncSetting struct {
	Kind      SyncKind `yaml:"kind"       json:"kind"`
	URL       string   `yaml:"url"        json:"url"`  // http
	Path      string   `yaml:"path"       json:"path"` // file: 檔案路徑；sqlite: DSN
	TimeoutMS int      `yaml:"timeout_ms" json:"timeout_ms"`
}

// Timeout 回傳單次同步的逾時。
func (s SyncSetting) Timeout() time.Duration {
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

// WheelSetting 包含啟動一個轉盤所需的所有設定。
type WheelSetting struct {
	Name           string           `yaml:"name"             json:"name"`
	Pool           []string         `yaml:"pool"             json:"pool"`
	PoolFile       string           `yaml:"pool_file"        json:"pool_file"`
	SpinDurationMS int              `yaml:"spin_duration_ms" json:"spin_duration_ms"`
	RemoveDelayMS  int              `yaml:"remove_delay_ms"  json:"remove_delay_ms"`
	Spin           spin.Params      `yaml:"spin"             json:"spin"`
	Geometry       geometry.Options `yaml:"geometry"         json:"geometry"`
	Sync           SyncSetting      `yaml:"sync"             json:"sync"`
}

// SpinDuration 回傳 Spinning 維持時間。
func (ws *WheelSetting) SpinDuration() time.Duration {
	return time.Duration(ws.SpinDurationMS) * time.Millisecond
}

// RemoveDelay 回傳 WinnerShown 維持時間。
func (ws *WheelSetting) RemoveDelay() time.Duration {
	return time.Duration(ws.RemoveDelayMS) * time.Millisecond
}

// Default 回傳內嵌的預設設定。
func Default() (*WheelSetting, error) {
	return FromYAML(defaultYAML)
}

// FromYAML 讀取 YAML 設定、補預設並檢查後回傳。
func FromYAML(data []byte) (*WheelSetting, error) {
	ws := &WheelSetting{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(ws); err != nil && !errors.Is(err, io.EOF) {
		return nil, errs.WrapWarn(err, "failed to unmarshal wheel yaml")
	}
	if err := ws.init(); err != nil {
		return nil, errs.Wrap(err, "wheel setting initialized err")
	}
	return ws, nil
}

// FromJSON 讀取 JSON 設定、補預設並檢查後回傳。
func FromJSON(data []byte) (*WheelSetting, error) {
	ws := &WheelSetting{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(ws); err != nil {
		return nil, errs.WrapWarn(err, "failed to unmarshal wheel json")
	}
	if err := ws.init(); err != nil {
		return nil, errs.Wrap(err, "wheel setting initialized err")
	}
	return ws, nil
}

// Load 依副檔名（.json 或 .yaml/.yml）讀取設定檔；path 為空時回傳 Default。
func Load(path string) (*WheelSetting, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(err, "read wheel setting")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FromJSON(data)
	case ".yaml", ".yml":
		return FromYAML(data)
	default:
		return nil, errs.Warnf("unsupported setting extension: %s", path)
	}
}

func (ws *WheelSetting) init() error {
	if ws.Name == "" {
		ws.Name = "default"
	}
	if ws.SpinDurationMS == 0 {
		ws.SpinDurationMS = defaultSpinDurationMS
	}
	if ws.RemoveDelayMS == 0 {
		ws.RemoveDelayMS = defaultRemoveDelayMS
	}
	if ws.Spin.SpinMin == 0 && ws.Spin.SpinSpan == 0 {
		ws.Spin = spin.DefaultParams()
	}
	if ws.Sync.Kind == "" {
		ws.Sync.Kind = SyncNone
	}
	if ws.Sync.TimeoutMS == 0 {
		ws.Sync.TimeoutMS = defaultSyncTimeoutMS
	}
	if err := ws.valid(); err != nil {
		return err
	}

	// 先檢查 geometry 原始值，再補預設。
	ws.Geometry = ws.Geometry.Normalize()

	switch {
	case len(ws.Pool) > 0:
		ws.Pool = roster.Normalize(ws.Pool)
	case ws.PoolFile != "":
		names, err := roster.LoadFile(ws.PoolFile)
		if err != nil {
			return err
		}
		ws.Pool = names
	default:
		ws.Pool = roster.Default()
	}
	return nil
}

// valid 執行最基本的設定檔檢查。
func (ws *WheelSetting) valid() error {
	if ws.SpinDurationMS < 0 || ws.RemoveDelayMS < 0 {
		return errs.Warnf("wheel %s: negative duration", ws.Name)
	}
	if ws.Spin.SpinMin <= 0 || ws.Spin.SpinSpan < 0 {
		return errs.Warnf("wheel %s: invalid spin params min=%v span=%v", ws.Name, ws.Spin.SpinMin, ws.Spin.SpinSpan)
	}
	g := ws.Geometry
	if g.Radius < 0 || g.LabelRadius < 0 {
		return errs.Warnf("wheel %s: negative radius", ws.Name)
	}
	if g.Radius > 0 && g.LabelRadius >= g.Radius {
		return errs.Warnf("wheel %s: label_radius %v must be < radius %v", ws.Name, g.LabelRadius, g.Radius)
	}
	for _, n := range ws.Pool {
		if strings.Contains(n, ",") {
			return errs.Warnf("wheel %s: name %q contains comma", ws.Name, n)
		}
	}
	if ws.Sync.TimeoutMS < 0 {
		return errs.Warnf("wheel %s: negative sync timeout", ws.Name)
	}

	switch ws.Sync.Kind {
	case SyncNone, SyncMem:
	case SyncHTTP:
		if ws.Sync.URL == "" {
			return errs.Warnf("wheel %s: sync kind http requires url", ws.Name)
		}
	case SyncFile, SyncSQLite:
		if ws.Sync.Path == "" {
			return errs.Warnf("wheel %s: sync kind %s requires path", ws.Name, ws.Sync.Kind)
		}
	default:
		return errs.Warnf("wheel %s: unknown sync kind %q", ws.Name, ws.Sync.Kind)
	}
	return nil
}
