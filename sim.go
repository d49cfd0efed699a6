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

package wheellab

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/wheellab/errs"
	"github.com/zintix-labs/wheellab/recorder"
	"github.com/zintix-labs/wheellab/sdk/core"
	"github.com/zintix-labs/wheellab/sdk/spin"
	"github.com/zintix-labs/wheellab/stats"
)

const capPrepare int = 100

// Simulator 以純函式（不經 timer）重複「洗牌 → Spin → 判定得獎者」，檢查抽選分佈。
//
// 每一輪都從 Name Pool 重新洗牌、旋轉角從 0 開始，只紀錄第一次抽選。
type Simulator struct {
	WheelName string                   // 轉盤名稱
	pool      []string                 // Name Pool
	params    spin.Params              // 圈數抽樣範圍
	cf        core.PRNGFactory         // 亂數生成器
	initSeed  int64                    // 初始下的種子
	seedmaker *seedMaker               // 種子生成器
	gBuf      []core.PRNG              // 併發執行亂數實例
	rBuf      []*recorder.DrawRecorder // 併發抽選紀錄員
}

// NewSimulator 以 Wheellab 的 seed 建立 Simulator。
func (w *Wheellab) NewSimulator() (*Simulator, error) {
	return w.NewSimulatorWithSeed(w.seed)
}

// NewSimulatorWithSeed 以指定 seed 建立 Simulator。
func (w *Wheellab) NewSimulatorWithSeed(seed int64) (*Simulator, error) {
	if len(w.ws.Pool) == 0 {
		return nil, errs.NewWarn("simulator: empty pool")
	}
	s := &Simulator{
		WheelName: w.ws.Name,
		pool:      append([]string(nil), w.ws.Pool...),
		params:    w.ws.Spin,
		cf:        w.cf,
		initSeed:  seed,
		seedmaker: newSeedMaker(seed),
		gBuf:      make([]core.PRNG, 1, capPrepare),
		rBuf:      make([]*recorder.DrawRecorder, 0, capPrepare),
	}
	s.gBuf[0] = w.cf.New(seed)
	return s, nil
}

// Sim 單線模擬器：連續跑指定 rounds 並回傳統計結果與用時
func (s *Simulator) Sim(rounds int, showpb bool) (*stats.DrawReport, time.Duration, error) {
	defer s.reset()
	if rounds < 1 {
		return nil, 0, errs.NewWarn("round must > 0")
	}
	if len(s.rBuf) == 0 {
		r, err := recorder.NewDrawRecorder(s.WheelName, s.initSeed, s.pool)
		if err != nil {
			return nil, 0, err
		}
		s.rBuf = append(s.rBuf, r)
	}
	r := s.rBuf[0]
	g := s.gBuf[0]

	bar := pb.StartNew(rounds)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	for i := 0; i < rounds; i++ {
		r.Record(drawOnce(g, s.pool, s.params))
		bar.Increment()
	}
	used := time.Since(bar.StartTime())
	bar.Finish()

	return r.Done(), used, nil
}

// SimMP 平行執行 mp 個 worker，總計 rounds*mp 輪，合併統計結果後回傳統計結果與用時
func (s *Simulator) SimMP(rounds int, mp int, showpb bool) (*stats.DrawReport, time.Duration, error) {
	defer s.reset()
	if mp <= 0 {
		return nil, 0, errs.NewWarn("workers must > 0")
	}
	if rounds < 1 {
		return nil, 0, errs.NewWarn("round must > 0")
	}
	for len(s.gBuf) < mp {
		s.gBuf = append(s.gBuf, s.cf.New(s.seedmaker.next()))
	}
	for len(s.rBuf) < mp {
		r, err := recorder.NewDrawRecorder(s.WheelName, s.initSeed, s.pool)
		if err != nil {
			return nil, 0, err
		}
		s.rBuf = append(s.rBuf, r)
	}

	wg := new(sync.WaitGroup)
	wg.Add(mp)
	bar := pb.StartNew(rounds * mp)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	for i := 0; i < mp; i++ {
		go func(i int) {
			defer wg.Done()
			g := s.gBuf[i]
			rec := s.rBuf[i]
			for r := 0; r < rounds; r++ {
				rec.Record(drawOnce(g, s.pool, s.params))
				bar.Increment()
			}
		}(i)
	}
	wg.Wait()
	used := time.Since(bar.StartTime())
	bar.Finish()

	merged, err := recorder.MergeDrawRecorder(s.rBuf[:mp])
	if err != nil {
		return nil, 0, err
	}
	return merged.Done(), used, nil
}

// drawOnce 執行一次與 Engine 相同順序的抽選：洗牌、抽圈數與偏移、判定 index。
func drawOnce(r core.RAND, pool []string, p spin.Params) (int, string) {
	segs := core.Shuffle(r, pool)
	d := spin.NewDraw(r, 0, p)
	idx := spin.WinnerIndex(d.Target, len(segs))
	return idx, segs[idx]
}

func (s *Simulator) reset() {
	s.rBuf = s.rBuf[:0]
}

const mask63 = uint64(1<<63) - 1

type seedMaker struct {
	state atomic.Uint64 // always in [0, 2^63)
}

func newSeedMaker(seed int64) *seedMaker {
	s := &seedMaker{}
	s.state.Store(uint64(seed) & mask63)
	return s
}

// next 走全週期 LCG（不重複），再用可逆 mix63 打散。可被多個 goroutine 同時呼叫。
func (s *seedMaker) next() int64 {
	for {
		old := s.state.Load()
		next := (old*6364136223846793005 + 1442695040888963407) & mask63 // full-period LCG mod 2^63
		if s.state.CompareAndSwap(old, next) {
			return int64(mix63(next))
		}
	}
}

// mix63：只用「可逆」的 bit 操作 + 乘奇數（mod 2^63）
func mix63(x uint64) uint64 {
	x &= mask63
	x ^= x >> 30
	x = (x * 0xBF58476D1CE4E5B9) & mask63
	x ^= x >> 27
	x = (x * 0x94D049BB133111EB) & mask63
	x ^= x >> 31
	return x & mask63
}
