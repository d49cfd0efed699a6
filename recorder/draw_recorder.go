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

package recorder

import (
	"fmt"
	"strconv"

	"github.com/zintix-labs/wheellab/errs"
	"github.com/zintix-labs/wheellab/stats"
)

// DrawRecorder 抽選紀錄員
//
// DrawRecorder 負責累加每輪第一次抽選的結果，並透過 Done 輸出統計報表。
// 不是併發安全的：SimMP 每個 worker 各持有一個，結束後再 Merge。
type DrawRecorder struct {
	WheelName string
	Seed      int64
	Names     []string
	Rounds    int
	IndexHits []int
	NameHits  []int
	nameIdx   map[string]int
}

func NewDrawRecorder(wheel string, seed int64, names []string) (*DrawRecorder, error) {
	if len(names) == 0 {
		return nil, errs.NewWarn("draw recorder: empty pool")
	}
	r := &DrawRecorder{
		WheelName: wheel,
		Seed:      seed,
		Names:     append([]string(nil), names...),
		IndexHits: make([]int, len(names)),
		NameHits:  make([]int, len(names)),
		nameIdx:   make(map[string]int, len(names)),
	}
	for i, n := range names {
		if _, dup := r.nameIdx[n]; dup {
			return nil, errs.NewWarn(fmt.Sprintf("draw recorder: duplicate name %q", n))
		}
		r.nameIdx[n] = i
	}
	return r, nil
}

// Record 紀錄一次抽選：扇形 index 與抽中的名字。未知名字或越界 index 直接忽略。
func (r *DrawRecorder) Record(index int, name string) {
	if index < 0 || index >= len(r.IndexHits) {
		return
	}
	i, ok := r.nameIdx[name]
	if !ok {
		return
	}
	r.IndexHits[index]++
	r.NameHits[i]++
	r.Rounds++
}

// Done 輸出統計報表。
func (r *DrawRecorder) Done() *stats.DrawReport {
	labels := make([]string, len(r.IndexHits))
	for i := range labels {
		labels[i] = strconv.Itoa(i)
	}
	rep := stats.NewDrawReport(r.WheelName, r.Seed, labels, append([]string(nil), r.Names...))
	copy(rep.Index.Hits, r.IndexHits)
	copy(rep.Name.Hits, r.NameHits)
	rep.Summary.Rounds = r.Rounds
	rep.Done()
	return rep
}

// MergeDrawRecorder 合併多個紀錄員；名單必須一致。
func MergeDrawRecorder(rs []*DrawRecorder) (*DrawRecorder, error) {
	if len(rs) == 0 {
		return nil, errs.NewFatal("merge draw recorder: empty input")
	}
	base := rs[0]
	out, err := NewDrawRecorder(base.WheelName, base.Seed, base.Names)
	if err != nil {
		return nil, err
	}
	for _, r := range rs {
		if len(r.Names) != len(out.Names) {
			return nil, errs.NewFatal("merge draw recorder: pool mismatch")
		}
		for i, n := range r.Names {
			if out.Names[i] != n {
				return nil, errs.NewFatal("merge draw recorder: pool mismatch")
			}
			out.IndexHits[i] += r.IndexHits[i]
			out.NameHits[i] += r.NameHits[i]
		}
		out.Rounds += r.Rounds
	}
	return out, nil
}
