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

package persist

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"
)

func TestSplitJoin(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"A", []string{"A"}},
		{"A,B,C", []string{"A", "B", "C"}},
		{" A , ,B,", []string{"A", "B"}},
	}
	for _, c := range cases {
		if got := Split(c.in); !slices.Equal(got, c.want) {
			t.Fatalf("Split(%q) = %v, want %v", c.in, got, c.want)
		}
	}
	if Join([]string{"A", "B"}) != "A,B" {
		t.Fatalf("unexpected join")
	}
}

func TestRecordDecode(t *testing.T) {
	var rec Record
	if err := json.Unmarshal([]byte(`{"history":"A"}`), &rec); err != nil {
		t.Fatal(err)
	}
	if _, err := rec.Decode(); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}

	rec = Record{}
	if err := json.Unmarshal([]byte(`{"remaining":"B,C"}`), &rec); err != nil {
		t.Fatal(err)
	}
	snap, err := rec.Decode()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(snap.Remaining, []string{"B", "C"}) || len(snap.History) != 0 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	// 空列表與缺欄位不同：remaining 為空字串是合法紀錄。
	rec = Record{}
	if err := json.Unmarshal([]byte(`{"remaining":"","history":"A,B"}`), &rec); err != nil {
		t.Fatal(err)
	}
	snap, err = rec.Decode()
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Remaining) != 0 || !slices.Equal(snap.History, []string{"A", "B"}) {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestHTTPStore(t *testing.T) {
	var mu sync.Mutex
	stored := `{"remaining":"A,B","history":"C"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, stored)
		case http.MethodPost:
			b, _ := io.ReadAll(r.Body)
			stored = string(b)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()

	st := NewHTTPStore(srv.URL, srv.Client())
	ctx := context.Background()
	snap, err := st.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(snap.Remaining, []string{"A", "B"}) || !slices.Equal(snap.History, []string{"C"}) {
		t.Fatalf("unexpected load %+v", snap)
	}

	if err := st.Save(ctx, Snapshot{Remaining: []string{"B"}, History: []string{"C", "A"}}); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	got := stored
	mu.Unlock()
	if got != `{"remaining":"B","history":"C,A"}` {
		t.Fatalf("unexpected body %s", got)
	}
}

func TestHTTPStoreFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/broken":
			_, _ = io.WriteString(w, "<html>")
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	if _, err := NewHTTPStore(srv.URL+"/missing", nil).Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := NewHTTPStore(srv.URL+"/broken", nil).Load(ctx); err == nil {
		t.Fatalf("expected decode error")
	}
	if err := NewHTTPStore(srv.URL+"/down", nil).Save(ctx, Snapshot{}); err == nil {
		t.Fatalf("expected status error")
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync", "wheel.json.zst")
	st := NewFileStore(path)
	ctx := context.Background()

	if _, err := st.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	want := Snapshot{Remaining: []string{"Ana", "Bo"}, History: []string{"Cy"}}
	if err := st.Save(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err := st.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got.Remaining, want.Remaining) || !slices.Equal(got.History, want.History) {
		t.Fatalf("unexpected load %+v", got)
	}
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "wheel.db")
	st, err := OpenSQLite(ctx, dsn, "team")
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	if _, err := st.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := st.Save(ctx, Snapshot{Remaining: []string{"A", "B"}}); err != nil {
		t.Fatal(err)
	}
	if err := st.Save(ctx, Snapshot{Remaining: []string{"B"}, History: []string{"A"}}); err != nil {
		t.Fatal(err)
	}
	got, err := st.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got.Remaining, []string{"B"}) || !slices.Equal(got.History, []string{"A"}) {
		t.Fatalf("unexpected load %+v", got)
	}

	other, err := OpenSQLite(ctx, dsn, "other")
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()
	if _, err := other.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("wheels should be isolated, got %v", err)
	}
}

type failStore struct{ calls chan struct{} }

func (f *failStore) Load(context.Context) (Snapshot, error) { return Snapshot{}, errors.New("down") }
func (f *failStore) Save(context.Context, Snapshot) error {
	f.calls <- struct{}{}
	return errors.New("down")
}

func TestSyncerPushAndShutdown(t *testing.T) {
	mem := NewMemStore()
	s := NewSyncer(mem, nil, time.Second)
	s.Push(Snapshot{Remaining: []string{"A"}})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	if mem.Saves() != 1 {
		t.Fatalf("expected 1 save, got %d", mem.Saves())
	}
	if err := s.Run(); err != nil {
		t.Fatalf("Run after shutdown should return nil, got %v", err)
	}

	s.Push(Snapshot{Remaining: []string{"B"}})
	if err := s.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	if mem.Saves() != 1 {
		t.Fatalf("push after shutdown should be dropped")
	}
}

func TestSyncerSwallowsFailures(t *testing.T) {
	fs := &failStore{calls: make(chan struct{}, 1)}
	s := NewSyncer(fs, nil, time.Second)
	if _, ok := s.Load(context.Background()); ok {
		t.Fatalf("expected load failure")
	}
	s.Push(Snapshot{})
	select {
	case <-fs.calls:
	case <-time.After(time.Second):
		t.Fatalf("save not attempted")
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
}
