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

// Package stats 提供抽選模擬的統計報表：命中次數、頻率與卡方適合度檢定。
//
// 報表只是診斷工具：p-value 低代表分佈可疑，高不代表公平性得到保證。
package stats

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gonum.org/v1/gonum/stat/distuv"
)

var lang language.Tag = language.English

// DrawReport 抽選模擬報告
type DrawReport struct {
	Summary *DrawSummary `json:"Summary" yaml:"Summary"`
	Index   *HitReport   `json:"Index"   yaml:"Index"` // 第一次抽選落在各扇形 index 的次數
	Name    *HitReport   `json:"Name"    yaml:"Name"`  // 各名字在第一次抽選被抽中的次數
	isDone  bool
}

type DrawSummary struct {
	WheelName string `json:"WheelName" yaml:"WheelName"`
	Seed      int64  `json:"Seed"      yaml:"Seed"`
	Segments  int    `json:"Segments"  yaml:"Segments"`
	Rounds    int    `json:"Rounds"    yaml:"Rounds"`
}

// HitReport 單一維度的命中統計
//
// 紀錄時只累加 Hits，Done() 才計算其餘欄位。
type HitReport struct {
	Labels    []string  `json:"Labels"    yaml:"Labels"`
	Hits      []int     `json:"Hits"      yaml:"Hits"`
	Freq      []float64 `json:"Freq"      yaml:"Freq"`
	Expected  float64   `json:"Expected"  yaml:"Expected"` // 均勻分佈下每格期望次數
	ChiSquare float64   `json:"ChiSquare" yaml:"ChiSquare"`
	DF        int       `json:"DF"        yaml:"DF"`
	PValue    float64   `json:"PValue"    yaml:"PValue"`
}

// NewDrawReport 以標籤建立空報表。indexLabels 與 nameLabels 長度應相同（= 扇形數）。
func NewDrawReport(wheel string, seed int64, indexLabels, nameLabels []string) *DrawReport {
	return &DrawReport{
		Summary: &DrawSummary{WheelName: wheel, Seed: seed, Segments: len(indexLabels)},
		Index:   &HitReport{Labels: indexLabels, Hits: make([]int, len(indexLabels))},
		Name:    &HitReport{Labels: nameLabels, Hits: make([]int, len(nameLabels))},
	}
}

// ============================================================
// ** 公開方法 **
// ============================================================

// Done 將累積計數轉換為最終統計結果並鎖定 isDone 標記。
func (r *DrawReport) Done() {
	if r.isDone {
		return
	}
	r.Index.done(r.Summary.Rounds)
	r.Name.done(r.Summary.Rounds)
	r.isDone = true
}

// ChiSquare 回傳均勻假設下的卡方統計量與自由度。
// 格數 < 2 或總數為 0 時回傳 (0, 0)。
func ChiSquare(hits []int) (float64, int) {
	k := len(hits)
	total := 0
	for _, h := range hits {
		total += h
	}
	if k < 2 || total == 0 {
		return 0, 0
	}
	exp := float64(total) / float64(k)
	chi := 0.0
	for _, h := range hits {
		d := float64(h) - exp
		chi += d * d / exp
	}
	return chi, k - 1
}

// PValue 回傳卡方分佈右尾機率 P(X >= chi)；df <= 0 時回傳 1。
func PValue(chi float64, df int) float64 {
	if df <= 0 {
		return 1
	}
	return distuv.ChiSquared{K: float64(df)}.Survival(chi)
}

func (r *DrawReport) WriteWith(w io.Writer, rep DrawReportRender) error {
	r.Done()
	return rep.Write(w, r)
}

// StdOut 以表格輸出到標準輸出。
func (r *DrawReport) StdOut(ut time.Duration) {
	r.Done()
	formatDuration(ut, r.Summary.Rounds)
	fmt.Println(r.Table())
}

// Table 回傳摘要、扇形 index 與名字三張表。
func (r *DrawReport) Table() string {
	r.Done()
	p := message.NewPrinter(lang)
	keys := []string{"Wheel", "Seed", "Segments", "Rounds", "Index χ²", "Index p-value", "Name χ²", "Name p-value"}
	basic := map[string]string{
		"Wheel":         r.Summary.WheelName,
		"Seed":          fmt.Sprintf("%d", r.Summary.Seed),
		"Segments":      p.Sprintf("%d", r.Summary.Segments),
		"Rounds":        p.Sprintf("%d", r.Summary.Rounds),
		"Index χ²":      p.Sprintf("%.3f (df=%d)", r.Index.ChiSquare, r.Index.DF),
		"Index p-value": p.Sprintf("%.4f", r.Index.PValue),
		"Name χ²":       p.Sprintf("%.3f (df=%d)", r.Name.ChiSquare, r.Name.DF),
		"Name p-value":  p.Sprintf("%.4f", r.Name.PValue),
	}
	var sb strings.Builder
	sb.WriteString(fmtTable("Draw Summary", keys, basic))
	sb.WriteString(r.Index.table("Wedge Index"))
	sb.WriteString(r.Name.table("First Draw"))
	return sb.String()
}

// ============================================================
// ** 內部方法 **
// ============================================================

func (h *HitReport) done(rounds int) {
	h.Freq = make([]float64, len(h.Hits))
	if rounds > 0 {
		for i, v := range h.Hits {
			h.Freq[i] = float64(v) / float64(rounds)
		}
	}
	if len(h.Hits) > 0 {
		h.Expected = float64(rounds) / float64(len(h.Hits))
	}
	h.ChiSquare, h.DF = ChiSquare(h.Hits)
	h.PValue = PValue(h.ChiSquare, h.DF)
}

func (h *HitReport) table(title string) string {
	p := message.NewPrinter(lang)
	keys := make([]string, len(h.Labels))
	msg := make(map[string]string, len(h.Labels))
	for i, l := range h.Labels {
		keys[i] = l
		msg[l] = p.Sprintf("%d (%.2f %%)", h.Hits[i], 100.0*h.Freq[i])
	}
	return fmtTable(title, keys, msg)
}

func formatDuration(d time.Duration, rounds int) {
	p := message.NewPrinter(lang)
	if d < 0 {
		d = -d
	}
	sec := d.Seconds()
	if sec <= 0 {
		sec = 1e-9
	}
	dps := int(float64(rounds) / sec)
	if sec < 60.0 {
		p.Printf("used: %.2f seconds\ndps : %d draws/sec\n", sec, dps)
		return
	}
	s := int(d.Seconds()) % 60
	m := int(d.Minutes()) % 60
	hr := int(d.Hours())
	if hr == 0 {
		p.Printf("used: %dm %ds\ndps : %d draws/sec\n", m, s, dps)
		return
	}
	p.Printf("used: %dh:%dm:%ds\ndps : %d draws/sec\n", hr, m, s, dps)
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	p := message.NewPrinter(lang)
	maxKeyLen := 0
	maxValLen := 0
	for k, m := range msg {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(m); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)
	if titleW > totalInner {
		maxValLen += titleW - totalInner
		totalInner = titleW
	}

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", totalInner) + "+\n"

	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	fmtStr := top
	fmtStr += p.Sprintf("|%s%s%s|\n", blank(left), title, blank(right))
	fmtStr += divider
	for _, k := range keys {
		fmtStr += p.Sprintf("| %s%s | %s%s |\n", k, blank(maxKeyLen-2-runewidth.StringWidth(k)), msg[k], blank(maxValLen-2-runewidth.StringWidth(msg[k])))
	}
	fmtStr += divider

	return fmtStr
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
