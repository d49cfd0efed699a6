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

// Package geometry 把 Segment Set 轉成每個扇形（wedge）的角度、弧線旗標與標籤擺放。
//
// Layout 是純函數：不碰亂數、不碰時間、不畫圖。外部 renderer 拿到 []Wedge 後只負責繪製。
//
// 角度約定：以 12 點鐘方向為 0°、順時針遞增；換成螢幕座標做三角函數前先減 90°。
package geometry

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultPalette 預設配色，依 index % len(palette) 循環取用。
var DefaultPalette = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#FFA07A",
	"#98D8C8", "#F7DC6F", "#BB8FCE", "#85C1E2",
}

const (
	defaultCenter      = 100.0
	defaultRadius      = 95.0
	defaultLabelRadius = 65.0

	longLabelRunes = 10 // 標籤字元數超過此值，字級降一階
	minFontSize    = 4
)

// Options 控制版面的尺寸與配色；零值欄位會被補上預設值。
type Options struct {
	CenterX     float64  `json:"center_x" yaml:"center_x"`
	CenterY     float64  `json:"center_y" yaml:"center_y"`
	Radius      float64  `json:"radius" yaml:"radius"`             // 扇形外緣半徑
	LabelRadius float64  `json:"label_radius" yaml:"label_radius"` // 標籤錨點半徑，必須 < Radius
	Palette     []string `json:"palette" yaml:"palette"`
}

// DefaultOptions 回傳 200x200 viewBox 的預設版面。
func DefaultOptions() Options {
	return Options{
		CenterX:     defaultCenter,
		CenterY:     defaultCenter,
		Radius:      defaultRadius,
		LabelRadius: defaultLabelRadius,
		Palette:     DefaultPalette,
	}
}

// Normalize 補齊零值欄位；LabelRadius 不合法（<=0 或 >= Radius）時改用 Radius 的 65/95。
func (o Options) Normalize() Options {
	if o.CenterX == 0 {
		o.CenterX = defaultCenter
	}
	if o.CenterY == 0 {
		o.CenterY = defaultCenter
	}
	if o.Radius <= 0 {
		o.Radius = defaultRadius
	}
	if o.LabelRadius <= 0 || o.LabelRadius >= o.Radius {
		o.LabelRadius = o.Radius * defaultLabelRadius / defaultRadius
	}
	if len(o.Palette) == 0 {
		o.Palette = DefaultPalette
	}
	return o
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Label 為扇形中線上的文字錨點；Rotation = Mid - 90，讓文字經過 9 點鐘位置時呈水平。
type Label struct {
	Text     string  `json:"text"`
	At       Point   `json:"at"`
	Rotation float64 `json:"rotation"`
	FontSize int     `json:"font_size"`
}

// Wedge 為單一候選人佔據的扇形。
type Wedge struct {
	Index    int     `json:"index"`
	Name     string  `json:"name"`
	Start    float64 `json:"start"`     // 起始角（度）
	End      float64 `json:"end"`       // 結束角（度）
	Mid      float64 `json:"mid"`       // 中線角（度）
	LargeArc int     `json:"large_arc"` // 跨度 > 180 時為 1（僅 N=1 會發生）
	From     Point   `json:"from"`
	To       Point   `json:"to"`
	Color    string  `json:"color"`
	Path     string  `json:"path"` // SVG path data
	Label    Label   `json:"label"`
}

// SegmentAngle 回傳 N 個扇形時單一扇形的角度；N <= 0 回傳 0。
func SegmentAngle(n int) float64 {
	if n <= 0 {
		return 0
	}
	return 360 / float64(n)
}

// Layout 依 names 的順序產生扇形。N=0 回傳 nil（呼叫端應隱藏 Spin 入口）。
func Layout(names []string, opt Options) []Wedge {
	n := len(names)
	if n == 0 {
		return nil
	}
	opt = opt.Normalize()
	seg := SegmentAngle(n)
	large := 0
	if seg > 180 {
		large = 1
	}

	out := make([]Wedge, n)
	for i, name := range names {
		start := seg * float64(i)
		end := seg * float64(i+1)
		mid := start + seg/2
		w := Wedge{
			Index:    i,
			Name:     name,
			Start:    start,
			End:      end,
			Mid:      mid,
			LargeArc: large,
			From:     PointAt(opt.CenterX, opt.CenterY, opt.Radius, start),
			To:       PointAt(opt.CenterX, opt.CenterY, opt.Radius, end),
			Color:    opt.Palette[i%len(opt.Palette)],
			Label: Label{
				Text:     name,
				At:       PointAt(opt.CenterX, opt.CenterY, opt.LabelRadius, mid),
				Rotation: mid - 90,
				FontSize: FontSize(n, name),
			},
		}
		w.Path = wedgePath(opt, w)
		out[i] = w
	}
	return out
}

// FontSize 字級階梯：N 越少字越大；超過 10 個字元的標籤降一階，最低 4。
// 以字元（rune）計數，全形字不加倍。
func FontSize(n int, label string) int {
	size := 5
	if n < 30 {
		size = 6
	}
	if n < 20 {
		size = 7
	}
	if n < 10 {
		size = 9
	}
	if utf8.RuneCountInString(label) > longLabelRunes {
		size = max(minFontSize, size-1)
	}
	return size
}

// PointAt 把「12 點鐘起算、順時針」的角度換成螢幕座標。
func PointAt(cx, cy, r, deg float64) Point {
	rad := (deg - 90) * math.Pi / 180
	return Point{
		X: cx + r*math.Cos(rad),
		Y: cy + r*math.Sin(rad),
	}
}

// wedgePath 產生 "M c L from A r r 0 large 1 to Z"。
// 單一扇形（360°）起訖點重合，SVG 單一弧線畫不出來，改以兩段半圓組成整圓。
func wedgePath(opt Options, w Wedge) string {
	var b strings.Builder
	r := num(opt.Radius)
	if w.End-w.Start >= 360 {
		opp := PointAt(opt.CenterX, opt.CenterY, opt.Radius, w.Start+180)
		b.WriteString("M " + num(w.From.X) + " " + num(w.From.Y))
		b.WriteString(" A " + r + " " + r + " 0 1 1 " + num(opp.X) + " " + num(opp.Y))
		b.WriteString(" A " + r + " " + r + " 0 1 1 " + num(w.To.X) + " " + num(w.To.Y))
		b.WriteString(" Z")
		return b.String()
	}
	b.WriteString("M " + num(opt.CenterX) + " " + num(opt.CenterY))
	b.WriteString(" L " + num(w.From.X) + " " + num(w.From.Y))
	b.WriteString(" A " + r + " " + r + " 0 " + strconv.Itoa(w.LargeArc) + " 1 " + num(w.To.X) + " " + num(w.To.Y))
	b.WriteString(" Z")
	return b.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
