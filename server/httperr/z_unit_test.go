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

package httperr

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zintix-labs/wheellab/errs"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"warn", errs.NewWarn("bad"), http.StatusBadRequest},
		{"fatal", errs.NewFatal("boom"), http.StatusInternalServerError},
		{"foreign", io.ErrUnexpectedEOF, http.StatusInternalServerError},
		{"wrapped warn", errs.Wrap(errs.NewWarn("bad"), "outer"), http.StatusBadRequest},
		{"deadline", errs.Wrap(context.DeadlineExceeded, "load"), http.StatusGatewayTimeout},
		{"canceled", context.Canceled, http.StatusRequestTimeout},
	}
	for _, c := range cases {
		if got := StatusCode(c.err); got != c.want {
			t.Fatalf("%s: expected %d, got %d", c.name, c.want, got)
		}
	}
}

func TestErrsWritesJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	Errs(rec, errs.NewWarn("name must not contain comma"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var b Body
	if err := json.NewDecoder(rec.Body).Decode(&b); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if b.Level != "warn" || b.Error == "" {
		t.Fatalf("unexpected body: %+v", b)
	}
}
