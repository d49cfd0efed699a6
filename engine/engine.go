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

// Package engine 實作轉盤的 Spin Engine：單一控制器持有 Segment Set、Selected List、
// 旋轉角與 Spin Session，並以兩段依序觸發的 timer 推進狀態：
//
//	Idle → Spinning → WinnerShown → Resetting → Idle
//
// 所有轉移都在引擎鎖內完成，邏輯上等同單執行緒；事件在鎖外依轉移順序通知 Observer。
// 非法輸入與非法 Spin 都是安靜的 no-op（回傳 false），核心沒有錯誤類別。
package engine

import (
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/zintix-labs/wheellab/persist"
	"github.com/zintix-labs/wheellab/sdk/board"
	"github.com/zintix-labs/wheellab/sdk/core"
	"github.com/zintix-labs/wheellab/sdk/geometry"
	"github.com/zintix-labs/wheellab/sdk/spin"
)

const (
	DefaultSpinDuration = 8500 * time.Millisecond
	DefaultRemoveDelay  = 2500 * time.Millisecond
)

// Syncer 接收每次異動後的狀態快照（fire-and-forget）。
type Syncer interface {
	Push(s persist.Snapshot)
}

// Config 為建立 Engine 所需的協作者與參數。零值欄位會補上預設。
type Config struct {
	Pool         []string      // Name Pool，Reshuffle 與初始洗牌的來源
	SpinDuration time.Duration // Spinning 維持時間
	RemoveDelay  time.Duration // WinnerShown 維持時間
	Spin         spin.Params
	Geometry     geometry.Options

	Clock  clockwork.Clock
	Rand   core.RAND
	Sync   Syncer
	Logger *slog.Logger

	// Initial 不為 nil 時以它還原狀態（通常來自同步端），否則洗牌 Pool、清空歷史。
	Initial *persist.Snapshot
}

// Session 為一次 Spin 的暫存資料；同一時間最多一個。
type Session struct {
	ID          string    `json:"id"`
	Spins       float64   `json:"spins"`
	Offset      float64   `json:"offset"`
	Target      float64   `json:"target"`
	WinnerIndex int       `json:"winner_index"` // WinnerShown 之前為 -1
	Winner      string    `json:"winner,omitempty"`
	StartedAt   time.Time `json:"started_at"`
}

// State 為引擎狀態的唯讀快照。
type State struct {
	Phase    Phase    `json:"phase"`
	Segments []string `json:"segments"`
	Selected []string `json:"selected"`
	Rotation float64  `json:"rotation"`
	Session  *Session `json:"session,omitempty"`
}

// Engine 是轉盤的單一控制器。
type Engine struct {
	mu       sync.Mutex
	board    *board.Board
	phase    Phase
	rotation float64
	session  *Session
	complete bool // 已對本次清空發出 SelectionComplete

	pool         []string
	spinDuration time.Duration
	removeDelay  time.Duration
	params       spin.Params
	geo          geometry.Options

	clock  clockwork.Clock
	rng    core.RAND
	syncer Syncer
	log    *slog.Logger

	obsMu  sync.RWMutex
	obs    map[int]Observer
	nextID int

	// 事件依轉移順序排入 evq，同一時間只有一個 goroutine 在派送。
	evMu     sync.Mutex
	evq      []Event
	draining bool

	done   chan struct{}
	closed bool
}

// New 建立 Engine。
func New(cfg Config) *Engine {
	if cfg.SpinDuration <= 0 {
		cfg.SpinDuration = DefaultSpinDuration
	}
	if cfg.RemoveDelay <= 0 {
		cfg.RemoveDelay = DefaultRemoveDelay
	}
	if cfg.Spin.SpinMin <= 0 && cfg.Spin.SpinSpan <= 0 {
		cfg.Spin = spin.DefaultParams()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Rand == nil {
		cfg.Rand = core.NewPCG64()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	e := &Engine{
		pool:         slices.Clone(cfg.Pool),
		spinDuration: cfg.SpinDuration,
		removeDelay:  cfg.RemoveDelay,
		params:       cfg.Spin,
		geo:          cfg.Geometry.Normalize(),
		clock:        cfg.Clock,
		rng:          cfg.Rand,
		syncer:       cfg.Sync,
		log:          cfg.Logger,
		obs:          make(map[int]Observer),
		done:         make(chan struct{}),
	}
	if cfg.Initial != nil {
		e.board = board.New(cfg.Initial.Remaining, cfg.Initial.History)
	} else {
		e.board = board.New(core.Shuffle(e.rng, e.pool), nil)
	}
	e.complete = e.board.Len() == 0
	return e
}

// Subscribe 註冊 Observer，回傳取消註冊的函式。
func (e *Engine) Subscribe(o Observer) (unsubscribe func()) {
	e.obsMu.Lock()
	id := e.nextID
	e.nextID++
	e.obs[id] = o
	e.obsMu.Unlock()
	return func() {
		e.obsMu.Lock()
		delete(e.obs, id)
		e.obsMu.Unlock()
	}
}

// Spin 開始一次旋轉。
// 已有進行中的 Session、Segment Set 為空或引擎已關閉時為 no-op，回傳 false。
func (e *Engine) Spin() (Session, bool) {
	e.mu.Lock()
	if e.closed || e.session != nil || e.board.Len() == 0 {
		e.mu.Unlock()
		return Session{}, false
	}

	d := spin.NewDraw(e.rng, e.rotation, e.params)
	s := &Session{
		ID:          uuid.NewString(),
		Spins:       d.Spins,
		Offset:      d.Offset,
		Target:      d.Target,
		WinnerIndex: -1,
		StartedAt:   e.clock.Now(),
	}
	e.session = s
	e.phase = Spinning
	e.rotation = d.Target

	ev := e.eventLocked(EvSpinStarted)
	ev.DurationMS = e.spinDuration.Milliseconds()
	e.enqueueLocked(ev)
	e.arm(e.spinDuration, e.showWinner)
	out := *s
	e.mu.Unlock()

	e.log.Debug("spin started",
		slog.String("session", s.ID),
		slog.Float64("target", s.Target),
		slog.Int("segments", len(ev.Segments)),
	)
	e.dispatch()
	return out, true
}

// showWinner : Spinning → WinnerShown，並在此時才啟動 remove-delay timer。
func (e *Engine) showWinner() {
	e.mu.Lock()
	s := e.session
	if e.closed || s == nil || e.phase != Spinning {
		e.mu.Unlock()
		return
	}
	s.WinnerIndex = spin.WinnerIndex(s.Target, e.board.Len())
	s.Winner, _ = e.board.At(s.WinnerIndex)
	e.phase = WinnerShown

	ev := e.eventLocked(EvWinnerShown)
	e.enqueueLocked(ev)
	e.arm(e.removeDelay, e.removeWinner)
	e.mu.Unlock()

	e.log.Info("winner shown", slog.String("session", s.ID), slog.String("winner", ev.Winner))
	e.dispatch()
}

// removeWinner : WinnerShown → Resetting → Idle。
func (e *Engine) removeWinner() {
	e.mu.Lock()
	s := e.session
	if e.closed || s == nil || e.phase != WinnerShown {
		e.mu.Unlock()
		return
	}
	e.board.Take(s.WinnerIndex)
	e.rotation = 0
	e.phase = Resetting

	removed := e.eventLocked(EvWinnerRemoved)
	removed.Snap = true
	e.enqueueLocked(removed)

	e.session = nil
	e.phase = Idle
	if e.board.Len() == 0 && !e.complete {
		e.complete = true
		e.enqueueLocked(e.eventLocked(EvSelectionComplete))
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.push(snap)
	e.dispatch()
}

// AddCandidate 把名字加到 Segment Set 尾端。
// 空白輸入、重複名字或 Spin 進行中為 no-op。
func (e *Engine) AddCandidate(name string) bool {
	return e.mutate(func(b *board.Board) bool { return b.Add(name) })
}

// RemoveCandidate 手動刪除候選人；Segment Set 只剩一個時不允許。
func (e *Engine) RemoveCandidate(name string) bool {
	return e.mutate(func(b *board.Board) bool { return b.Remove(name) })
}

// RestoreOne 把名字從 Selected List 移回 Segment Set。
func (e *Engine) RestoreOne(name string) bool {
	return e.mutate(func(b *board.Board) bool { return b.RestoreOne(name) })
}

// RestoreAll 依抽出順序把整個 Selected List 接回 Segment Set。
func (e *Engine) RestoreAll() bool {
	return e.mutate(func(b *board.Board) bool { return b.RestoreAll() })
}

// Reshuffle 以 Name Pool 重新洗牌並清空 Selected List。Pool 為空時為 no-op。
func (e *Engine) Reshuffle() bool {
	return e.mutate(func(b *board.Board) bool {
		if len(e.pool) == 0 {
			return false
		}
		b.Reset(core.Shuffle(e.rng, e.pool))
		return true
	})
}

// mutate 在鎖內套用手動異動；Spin Session 進行中一律拒絕，
// 確保得獎 index 與移除時的 Segment Set 一致。
func (e *Engine) mutate(apply func(b *board.Board) bool) bool {
	e.mu.Lock()
	if e.closed || e.session != nil || !apply(e.board) {
		e.mu.Unlock()
		return false
	}
	if e.board.Len() > 0 {
		e.complete = false
	}
	e.enqueueLocked(e.eventLocked(EvBoardChanged))
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.push(snap)
	e.dispatch()
	return true
}

// State 回傳目前狀態的複本。
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := State{
		Phase:    e.phase,
		Segments: e.board.Segments(),
		Selected: e.board.Selected(),
		Rotation: e.rotation,
	}
	if e.session != nil {
		s := *e.session
		st.Session = &s
	}
	return st
}

// Snapshot 回傳同步用的快照。
func (e *Engine) Snapshot() persist.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Layout 回傳目前 Segment Set 的扇形版面。
func (e *Engine) Layout() []geometry.Wedge {
	e.mu.Lock()
	names := e.board.Segments()
	e.mu.Unlock()
	return geometry.Layout(names, e.geo)
}

// Timing 回傳 (spin duration, remove delay)。
func (e *Engine) Timing() (time.Duration, time.Duration) {
	return e.spinDuration, e.removeDelay
}

// Close 停止尚未觸發的 timer，之後所有操作皆為 no-op。只在行程關閉時使用。
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	close(e.done)
}

// arm 啟動一次性 timer；呼叫端必須持有 e.mu。
func (e *Engine) arm(d time.Duration, step func()) {
	t := e.clock.NewTimer(d)
	go func() {
		select {
		case <-t.Chan():
			step()
		case <-e.done:
			stopAndDrainTimer(t)
		}
	}()
}

func stopAndDrainTimer(t clockwork.Timer) {
	if !t.Stop() {
		select {
		case <-t.Chan():
		default:
		}
	}
}

func (e *Engine) eventLocked(kind EventKind) Event {
	ev := Event{
		Kind:        kind,
		Phase:       e.phase,
		WinnerIndex: -1,
		Rotation:    e.rotation,
		Segments:    e.board.Segments(),
		Selected:    e.board.Selected(),
		At:          e.clock.Now(),
	}
	if s := e.session; s != nil {
		ev.SessionID = s.ID
		ev.Target = s.Target
		ev.WinnerIndex = s.WinnerIndex
		ev.Winner = s.Winner
	}
	return ev
}

func (e *Engine) snapshotLocked() persist.Snapshot {
	return persist.Snapshot{
		Remaining: e.board.Segments(),
		History:   e.board.Selected(),
	}
}

func (e *Engine) push(snap persist.Snapshot) {
	if e.syncer != nil {
		e.syncer.Push(snap)
	}
}

// enqueueLocked 在 e.mu 內排入事件，佇列順序即狀態轉移順序。
func (e *Engine) enqueueLocked(ev Event) {
	e.evMu.Lock()
	e.evq = append(e.evq, ev)
	e.evMu.Unlock()
}

// dispatch 依序派送佇列中的事件。已有其他 goroutine 在派送時直接返回，
// 由它接手剩下的事件；Observer 在 OnEvent 內回呼引擎也不會死鎖。
func (e *Engine) dispatch() {
	e.evMu.Lock()
	if e.draining {
		e.evMu.Unlock()
		return
	}
	e.draining = true
	for len(e.evq) > 0 {
		ev := e.evq[0]
		e.evq[0] = Event{}
		e.evq = e.evq[1:]
		e.evMu.Unlock()
		e.emit(ev)
		e.evMu.Lock()
	}
	e.evq = nil
	e.draining = false
	e.evMu.Unlock()
}

func (e *Engine) emit(ev Event) {
	e.obsMu.RLock()
	obs := make([]Observer, 0, len(e.obs))
	for _, o := range e.obs {
		obs = append(obs, o)
	}
	e.obsMu.RUnlock()
	for _, o := range obs {
		o.OnEvent(ev)
	}
}
