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

package spin

import (
	"testing"

	"github.com/zintix-labs/wheellab/sdk/core"
)

// seqRAND 依序回傳預設的 Float64 值。
type seqRAND struct {
	f   []float64
	idx int
}

func (r *seqRAND) Float64() float64 {
	v := r.f[r.idx%len(r.f)]
	r.idx++
	return v
}
func (r *seqRAND) Uint64() uint64  { return 0 }
func (r *seqRAND) UintN(uint) uint { return 0 }
func (r *seqRAND) IntN(int) int    { return 0 }

func TestWinnerIndex(t *testing.T) {
	cases := []struct {
		target float64
		n      int
		want   int
	}{
		{450, 4, 0},  // normalized 90 → floor(0/90+4) mod 4
		{0, 5, 1},    // floor(90/72+5)=6 mod 5
		{1440, 2, 0}, // floor(90/180+2)=2 mod 2
		{0, 4, 1},
		{180, 4, 3},
		{270, 4, 2},
		{359.9, 4, 1},
		{90, 1, 0},
		{-90, 4, 2}, // 等同 270
	}
	for _, c := range cases {
		if got := WinnerIndex(c.target, c.n); got != c.want {
			t.Errorf("WinnerIndex(%v,%d)=%d want %d", c.target, c.n, got, c.want)
		}
	}
	if WinnerIndex(10, 0) != -1 {
		t.Fatalf("empty wheel should yield -1")
	}
}

func TestWinnerIndexAlwaysInRange(t *testing.T) {
	c := core.New(core.Default().New(5))
	for i := 0; i < 5000; i++ {
		n := 1 + c.IntN(60)
		target := c.Float64() * 5000
		idx := WinnerIndex(target, n)
		if idx < 0 || idx >= n {
			t.Fatalf("index %d out of range for n=%d target=%v", idx, n, target)
		}
	}
}

func TestNewDraw(t *testing.T) {
	r := &seqRAND{f: []float64{0, 0}}
	d := NewDraw(r, 0, DefaultParams())
	if d.Spins != 4 || d.Offset != 0 || d.Target != 1440 {
		t.Fatalf("unexpected draw %+v", d)
	}

	r = &seqRAND{f: []float64{0.5, 0.25}}
	d = NewDraw(r, 100, DefaultParams())
	if d.Spins != 5 || d.Offset != 90 || d.Target != 100+5*360+90 {
		t.Fatalf("unexpected draw %+v", d)
	}
}

func TestNewDrawRange(t *testing.T) {
	c := core.New(core.Default().New(17))
	for i := 0; i < 2000; i++ {
		d := NewDraw(c, 0, DefaultParams())
		if d.Spins < 4 || d.Spins >= 6 || d.Offset < 0 || d.Offset >= 360 {
			t.Fatalf("draw out of range: %+v", d)
		}
	}
}

func TestNormalize(t *testing.T) {
	if Normalize(720) != 0 || Normalize(-30) != 330 || Normalize(450) != 90 {
		t.Fatalf("normalize mismatch")
	}
}
