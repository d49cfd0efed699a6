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

package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/zintix-labs/wheellab"
	"github.com/zintix-labs/wheellab/dto"
	"github.com/zintix-labs/wheellab/engine"
	"github.com/zintix-labs/wheellab/persist"
	"github.com/zintix-labs/wheellab/server/httperr"
	v1 "github.com/zintix-labs/wheellab/server/api/v1"
	"github.com/zintix-labs/wheellab/server/netsvr"
	"github.com/zintix-labs/wheellab/server/svrcfg"
	"github.com/zintix-labs/wheellab/setting"
)

type fixture struct {
	svr   *netsvr.ChiAdapter
	hub   *v1.EventHub
	eng   *engine.Engine
	clock *clockwork.FakeClock
	mem   *persist.MemStore
	lab   *wheellab.Wheellab
}

func newFixture(t *testing.T, pool string) *fixture {
	t.Helper()
	ws, err := setting.FromYAML([]byte("name: office\npool: " + pool + "\n"))
	if err != nil {
		t.Fatal(err)
	}
	clock := clockwork.NewFakeClock()
	mem := persist.NewMemStore()
	lab, err := wheellab.New(context.Background(), ws,
		wheellab.WithSeed(7),
		wheellab.WithClock(clock),
		wheellab.WithStore(mem),
	)
	if err != nil {
		t.Fatal(err)
	}
	sCfg := &svrcfg.SvrCfg{
		Log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		Lab:          lab,
		SimMaxRounds: 10_000,
	}
	if err := sCfg.Vaild(); err != nil {
		t.Fatal(err)
	}
	svr := netsvr.NewChiServer(":0")
	hub, err := RegisterRoutes(svr, sCfg)
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{svr: svr, hub: hub, eng: sCfg.Engine, clock: clock, mem: mem, lab: lab}
	t.Cleanup(func() {
		_ = hub.Shutdown(context.Background())
		f.eng.Close()
		_ = lab.Syncer().Shutdown(context.Background())
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	f.svr.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) advance(t *testing.T, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("no pending timer: %v", err)
	}
	f.clock.Advance(d)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %T: %v", v, err)
	}
	return v
}

func TestWheelStateAndLayout(t *testing.T) {
	f := newFixture(t, "[Abby, Ana, Bailey]")

	rec := f.do(t, http.MethodGet, "/v1/wheel", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	st := decode[dto.WheelState](t, rec)
	if st.Name != "office" || st.Phase != engine.Idle || len(st.Segments) != 3 || len(st.Selected) != 0 {
		t.Fatalf("unexpected state %+v", st)
	}
	if st.SpinDurationMS != 8500 || st.RemoveDelayMS != 2500 || !st.CanRemove || st.Complete {
		t.Fatalf("unexpected timing/flags %+v", st)
	}

	lay := decode[dto.Layout](t, f.do(t, http.MethodGet, "/v1/layout", ""))
	if len(lay.Wedges) != 3 {
		t.Fatalf("expected 3 wedges, got %d", len(lay.Wedges))
	}
	if lay.Wedges[2].End != 360 {
		t.Fatalf("wedges must close the circle, got %v", lay.Wedges[2].End)
	}
}

func TestSpinLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t, "[Abby, Ana]")

	rec := f.do(t, http.MethodPost, "/v1/spin", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	res := decode[dto.SpinResult](t, rec)
	if !res.Applied || res.Session == nil || res.DurationMS != 8500 {
		t.Fatalf("unexpected spin result %+v", res)
	}
	if res.Session.Target < 4*360 || res.Session.Target >= 7*360 {
		t.Fatalf("target out of range: %v", res.Session.Target)
	}

	// 旋轉中：再 Spin 與手動異動都被忽略
	rec = f.do(t, http.MethodPost, "/v1/spin", "")
	if rec.Code != http.StatusOK || decode[dto.SpinResult](t, rec).Applied {
		t.Fatalf("second spin should be ignored")
	}
	mut := decode[dto.Mutation](t, f.do(t, http.MethodPost, "/v1/candidates", `{"name":"Carla"}`))
	if mut.Applied || mut.State.Phase != engine.Spinning {
		t.Fatalf("mutation during spin should be refused: %+v", mut)
	}

	f.advance(t, 8500*time.Millisecond)
	f.advance(t, 2500*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for {
		st := f.eng.State()
		if st.Phase == engine.Idle && len(st.Selected) == 1 {
			if len(st.Segments) != 1 || st.Rotation != 0 {
				t.Fatalf("unexpected state after cycle %+v", st)
			}
			if st.Selected[0] != res.Session.Winner && res.Session.Winner != "" {
				t.Fatalf("selected %v, session winner %q", st.Selected, res.Session.Winner)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("cycle did not finish: %+v", st)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCandidatesEndpoints(t *testing.T) {
	f := newFixture(t, "[Abby, Ana Bell]")

	mut := decode[dto.Mutation](t, f.do(t, http.MethodPost, "/v1/candidates", `{"name":"  Carla  "}`))
	if !mut.Applied || !slices.Contains(mut.State.Segments, "Carla") {
		t.Fatalf("add failed: %+v", mut)
	}
	mut = decode[dto.Mutation](t, f.do(t, http.MethodPost, "/v1/candidates", `{"name":"Carla"}`))
	if mut.Applied {
		t.Fatalf("duplicate add should be a no-op")
	}

	rec := f.do(t, http.MethodPost, "/v1/candidates", `{"name":"Smith, J"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for comma, got %d", rec.Code)
	}
	if b := decode[httperr.Body](t, rec); b.Level != "warn" {
		t.Fatalf("unexpected error body %+v", b)
	}

	mut = decode[dto.Mutation](t, f.do(t, http.MethodDelete, "/v1/candidates/Ana%20Bell", ""))
	if !mut.Applied || slices.Contains(mut.State.Segments, "Ana Bell") {
		t.Fatalf("remove failed: %+v", mut)
	}
	decode[dto.Mutation](t, f.do(t, http.MethodDelete, "/v1/candidates/Abby", ""))
	mut = decode[dto.Mutation](t, f.do(t, http.MethodDelete, "/v1/candidates/Carla", ""))
	if mut.Applied || len(mut.State.Segments) != 1 || mut.State.CanRemove {
		t.Fatalf("last segment must not be removable: %+v", mut)
	}
}

func TestRestoreAndReshuffleEndpoints(t *testing.T) {
	f := newFixture(t, "[Abby, Ana, Bailey]")
	f.do(t, http.MethodPost, "/v1/spin", "")
	f.advance(t, 8500*time.Millisecond)
	f.advance(t, 2500*time.Millisecond)

	var winner string
	deadline := time.Now().Add(2 * time.Second)
	for winner == "" {
		if st := f.eng.State(); st.Phase == engine.Idle && len(st.Selected) == 1 {
			winner = st.Selected[0]
		} else if time.Now().After(deadline) {
			t.Fatalf("cycle did not finish")
		}
		time.Sleep(5 * time.Millisecond)
	}

	mut := decode[dto.Mutation](t, f.do(t, http.MethodPost, "/v1/selected/"+winner+"/restore", ""))
	if !mut.Applied || len(mut.State.Selected) != 0 || mut.State.Segments[len(mut.State.Segments)-1] != winner {
		t.Fatalf("restore one failed: %+v", mut)
	}
	mut = decode[dto.Mutation](t, f.do(t, http.MethodPost, "/v1/selected/restore", ""))
	if mut.Applied {
		t.Fatalf("restore all on empty history should be a no-op")
	}
	mut = decode[dto.Mutation](t, f.do(t, http.MethodPost, "/v1/reshuffle", ""))
	if !mut.Applied || len(mut.State.Segments) != 3 {
		t.Fatalf("reshuffle failed: %+v", mut)
	}
}

func TestSimEndpoint(t *testing.T) {
	f := newFixture(t, "[Abby, Ana, Bailey, Carla]")

	rec := f.do(t, http.MethodPost, "/v1/sim", `{"rounds":4000,"workers":2,"seed":42}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	res := decode[dto.SimResult](t, rec)
	if res.Stats == nil || res.Stats.Summary.Rounds != 4000 || res.Stats.Summary.Seed != 42 {
		t.Fatalf("unexpected sim result %+v", res.Stats)
	}

	for _, body := range []string{`{"rounds":0}`, `{"rounds":20000}`, `{"rounds":10,"workers":99}`, `{"round":10}`} {
		if rec := f.do(t, http.MethodPost, "/v1/sim", body); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, rec.Code)
		}
	}
	if rec := f.do(t, http.MethodGet, "/v1/sim?rounds=100&seed=1", ""); rec.Code != http.StatusOK {
		t.Fatalf("GET sim: expected 200, got %d", rec.Code)
	}
}

func TestIndexPage(t *testing.T) {
	f := newFixture(t, "[Abby]")
	rec := f.do(t, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/v1/events") {
		t.Fatalf("index page not served")
	}
	if rec := f.do(t, http.MethodGet, "/favicon.svg", ""); rec.Header().Get("Content-Type") != "image/svg+xml" {
		t.Fatalf("favicon not served")
	}
}

func TestEventsWebSocket(t *testing.T) {
	f := newFixture(t, "[Abby, Ana]")
	ts := httptest.NewServer(f.svr)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/events"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))

	var hello v1.Message
	if err := c.ReadJSON(&hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	if hello.Type != "hello" || hello.State == nil || len(hello.State.Segments) != 2 {
		t.Fatalf("unexpected hello %+v", hello)
	}

	// 由 WebSocket 指令觸發 Spin
	if err := c.WriteJSON(map[string]string{"op": "spin"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var msg v1.Message
	if err := c.ReadJSON(&msg); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if msg.Type != "event" || msg.Event == nil || msg.Event.Kind != engine.EvSpinStarted || msg.Event.DurationMS != 8500 {
		t.Fatalf("unexpected event %+v", msg)
	}

	f.advance(t, 8500*time.Millisecond)
	if err := c.ReadJSON(&msg); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if msg.Event.Kind != engine.EvWinnerShown || msg.Event.Winner == "" {
		t.Fatalf("unexpected event %+v", msg.Event)
	}

	f.advance(t, 2500*time.Millisecond)
	if err := c.ReadJSON(&msg); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if msg.Event.Kind != engine.EvWinnerRemoved || !msg.Event.Snap || msg.Event.Rotation != 0 {
		t.Fatalf("unexpected event %+v", msg.Event)
	}

	if f.hub.Len() != 1 {
		t.Fatalf("expected 1 connection, got %d", f.hub.Len())
	}
	_ = f.hub.Shutdown(context.Background())
	if _, _, err := c.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Fatalf("expected going-away close, got %v", err)
	}
}

func TestEventsWebSocketHelloThenEveryChange(t *testing.T) {
	f := newFixture(t, "[Abby, Ana]")
	ts := httptest.NewServer(f.svr)
	defer ts.Close()

	const adds = 40
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range adds {
			f.eng.AddCandidate("N" + strconv.Itoa(i))
		}
	}()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/events"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))

	var hello v1.Message
	if err := c.ReadJSON(&hello); err != nil || hello.State == nil {
		t.Fatalf("read hello: %v %+v", err, hello)
	}
	<-done

	// hello 之後每一次異動都要送到；早於快照的事件可以重複，但不能跳號。
	seen := len(hello.State.Segments)
	final := 2 + adds
	for seen < final {
		var msg v1.Message
		if err := c.ReadJSON(&msg); err != nil {
			t.Fatalf("read event at %d/%d: %v", seen, final, err)
		}
		n := len(msg.Event.Segments)
		if n <= seen {
			continue
		}
		if n != seen+1 {
			t.Fatalf("missed a change: view jumped %d -> %d", seen, n)
		}
		seen = n
	}
}
