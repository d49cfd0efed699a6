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
	"testing"
)

func TestRecordAndDone(t *testing.T) {
	r, err := NewDrawRecorder("w", 1, []string{"A", "B", "C"})
	if err != nil {
		t.Fatal(err)
	}
	r.Record(0, "B")
	r.Record(2, "A")
	r.Record(2, "nobody")
	r.Record(5, "A")

	rep := r.Done()
	if rep.Summary.Rounds != 2 {
		t.Fatalf("unexpected rounds %d", rep.Summary.Rounds)
	}
	if rep.Index.Hits[0] != 1 || rep.Index.Hits[2] != 1 || rep.Name.Hits[0] != 1 || rep.Name.Hits[1] != 1 {
		t.Fatalf("unexpected hits %v %v", rep.Index.Hits, rep.Name.Hits)
	}
	if rep.Index.Labels[2] != "2" || rep.Name.Labels[2] != "C" {
		t.Fatalf("unexpected labels %v %v", rep.Index.Labels, rep.Name.Labels)
	}
}

func TestNewRejectsBadPool(t *testing.T) {
	if _, err := NewDrawRecorder("w", 1, nil); err == nil {
		t.Fatalf("empty pool accepted")
	}
	if _, err := NewDrawRecorder("w", 1, []string{"A", "A"}); err == nil {
		t.Fatalf("duplicate pool accepted")
	}
}

func TestMerge(t *testing.T) {
	a, _ := NewDrawRecorder("w", 1, []string{"A", "B"})
	b, _ := NewDrawRecorder("w", 1, []string{"A", "B"})
	a.Record(0, "A")
	b.Record(1, "B")
	b.Record(1, "A")

	m, err := MergeDrawRecorder([]*DrawRecorder{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if m.Rounds != 3 || m.IndexHits[1] != 2 || m.NameHits[0] != 2 {
		t.Fatalf("unexpected merge %+v", m)
	}

	c, _ := NewDrawRecorder("w", 1, []string{"B", "A"})
	if _, err := MergeDrawRecorder([]*DrawRecorder{a, c}); err == nil {
		t.Fatalf("mismatched pools merged")
	}
	if _, err := MergeDrawRecorder(nil); err == nil {
		t.Fatalf("empty merge accepted")
	}
}
