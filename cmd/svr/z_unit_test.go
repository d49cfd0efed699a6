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

package main

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("WHEEL_ADDR", ":9000")
	t.Setenv("WHEEL_LOG_MODE", "silence")
	t.Setenv("WHEEL_SYNC_URL", "")

	dir := t.TempDir()
	env := filepath.Join(dir, "test.env")
	if err := os.WriteFile(env, []byte("WHEEL_CORS_ORIGINS=https://a.example, https://b.example\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	conf := filepath.Join(dir, "wheel.yaml")
	if err := os.WriteFile(conf, []byte("name: office\npool: [Abby, Ana]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("WHEEL_CORS_ORIGINS") })

	sCfg, closeLog, err := loadConfig([]string{"-addr", ":7000", "-config", conf, "-env", env, "-seed", "3"})
	if err != nil {
		t.Fatal(err)
	}
	defer closeLog()
	defer sCfg.Engine.Close()

	if sCfg.Addr != ":7000" {
		t.Fatalf("flag should win over env, got %q", sCfg.Addr)
	}
	if !slices.Equal(sCfg.CORSOrigins, []string{"https://a.example", "https://b.example"}) {
		t.Fatalf("unexpected origins %v", sCfg.CORSOrigins)
	}
	if sCfg.Lab.Seed() != 3 || sCfg.Lab.Setting().Name != "office" {
		t.Fatalf("unexpected lab: seed=%d name=%s", sCfg.Lab.Seed(), sCfg.Lab.Setting().Name)
	}
	if got := len(sCfg.Engine.State().Segments); got != 2 {
		t.Fatalf("expected 2 segments, got %d", got)
	}
}

func TestLoadConfigRejectsBadLogMode(t *testing.T) {
	if _, _, err := loadConfig([]string{"-log-mode", "loud", "-env", ""}); err == nil {
		t.Fatalf("expected error")
	}
}
