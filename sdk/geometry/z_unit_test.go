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

package geometry

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

const eps = 1e-9

func names(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("n%02d", i)
	}
	return out
}

func TestLayoutSpansSumTo360(t *testing.T) {
	for n := 1; n <= 64; n++ {
		ws := Layout(names(n), DefaultOptions())
		if len(ws) != n {
			t.Fatalf("n=%d: got %d wedges", n, len(ws))
		}
		sum := 0.0
		for i, w := range ws {
			sum += w.End - w.Start
			if w.Index != i {
				t.Fatalf("n=%d: index %d at position %d", n, w.Index, i)
			}
			if math.Abs(w.Label.Rotation-(w.Mid-90)) > eps {
				t.Fatalf("n=%d i=%d: rotation %v mid %v", n, i, w.Label.Rotation, w.Mid)
			}
			if i > 0 && math.Abs(ws[i-1].End-w.Start) > eps {
				t.Fatalf("n=%d i=%d: wedges not contiguous", n, i)
			}
		}
		if math.Abs(sum-360) > 1e-6 {
			t.Fatalf("n=%d: spans sum to %v", n, sum)
		}
	}
}

func TestLayoutEmpty(t *testing.T) {
	if ws := Layout(nil, DefaultOptions()); ws != nil {
		t.Fatalf("expected no wedges, got %d", len(ws))
	}
}

func TestLargeArcOnlyForSingleWedge(t *testing.T) {
	one := Layout([]string{"solo"}, DefaultOptions())
	if one[0].LargeArc != 1 {
		t.Fatalf("single wedge should use large arc")
	}
	if !strings.HasPrefix(one[0].Path, "M ") || strings.Count(one[0].Path, " A ") != 2 {
		t.Fatalf("single wedge should be drawn as two arcs: %s", one[0].Path)
	}
	for _, w := range Layout(names(2), DefaultOptions()) {
		if w.LargeArc != 0 {
			t.Fatalf("half wedge should not use large arc")
		}
	}
}

func TestFirstWedgeStartsAtTwelve(t *testing.T) {
	ws := Layout(names(4), DefaultOptions())
	w := ws[0]
	if math.Abs(w.From.X-100) > eps || math.Abs(w.From.Y-5) > eps {
		t.Fatalf("wedge 0 should start at 12 o'clock, got %+v", w.From)
	}
	// 0..90 的中線 45°，標籤在右上方
	if !(w.Label.At.X > 100 && w.Label.At.Y < 100) {
		t.Fatalf("label should sit upper-right, got %+v", w.Label.At)
	}
	if w.Path != "M 100.000 100.000 L 100.000 5.000 A 95.000 95.000 0 0 1 195.000 100.000 Z" {
		t.Fatalf("unexpected path: %s", w.Path)
	}
}

func TestLabelInsideWedgeBoundary(t *testing.T) {
	opt := DefaultOptions()
	for _, w := range Layout(names(7), opt) {
		d := math.Hypot(w.Label.At.X-opt.CenterX, w.Label.At.Y-opt.CenterY)
		if math.Abs(d-opt.LabelRadius) > 1e-6 || d >= opt.Radius {
			t.Fatalf("label radius %v", d)
		}
	}
}

func TestPaletteCycles(t *testing.T) {
	ws := Layout(names(10), DefaultOptions())
	if ws[8].Color != DefaultPalette[0] || ws[9].Color != DefaultPalette[1] {
		t.Fatalf("palette should cycle by index")
	}
}

func TestFontSizeSteps(t *testing.T) {
	cases := []struct {
		n     int
		label string
		want  int
	}{
		{5, "Bob", 9},
		{5, "Alexandrina!", 8},
		{15, "Bob", 7},
		{25, "Bob", 6},
		{41, "Bob", 5},
		{41, "Maximiliane-X", 4},
		{41, "Bartholomew", 4},
		// 以字元數計，全形字不加倍
		{3, "王小明王小明", 9},
		{3, "王小明王小明王小明王小", 8},
	}
	for _, c := range cases {
		if got := FontSize(c.n, c.label); got != c.want {
			t.Errorf("FontSize(%d,%q)=%d want %d", c.n, c.label, got, c.want)
		}
	}
}

func TestNormalizeFixesLabelRadius(t *testing.T) {
	o := Options{Radius: 50, LabelRadius: 80}.Normalize()
	if o.LabelRadius >= o.Radius {
		t.Fatalf("label radius should be inside wedge boundary: %v", o.LabelRadius)
	}
	if o.CenterX != 100 || len(o.Palette) != len(DefaultPalette) {
		t.Fatalf("zero fields should be defaulted: %+v", o)
	}
}
