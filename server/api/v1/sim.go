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

package v1

import (
	"crypto/rand"
	"math"
	"math/big"
	"net/http"

	"github.com/zintix-labs/wheellab"
	"github.com/zintix-labs/wheellab/dto"
	"github.com/zintix-labs/wheellab/errs"
	"github.com/zintix-labs/wheellab/server/httperr"
)

// SimHandler 以 Name Pool 跑抽選模擬，回傳分佈報告。
type SimHandler struct {
	lab       *wheellab.Wheellab
	maxRounds int
	maxMP     int
}

func NewSimHandler(lab *wheellab.Wheellab, maxRounds, maxMP int) (*SimHandler, error) {
	if lab == nil {
		return nil, errs.NewFatal("wheellab is required")
	}
	return &SimHandler{lab: lab, maxRounds: maxRounds, maxMP: maxMP}, nil
}

// Sim 處理 GET/POST /v1/sim。
//
// rounds 是總輪數；workers > 1 時平均分給各 worker，餘數捨去。
// 沒帶 seed 時以 crypto/rand 產生，並回填在報告的 summary.seed，方便重現。
func (sh *SimHandler) Sim(w http.ResponseWriter, r *http.Request) {
	req, err := dto.DecodeSimRequest(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	if req.Rounds < 1 || req.Rounds > sh.maxRounds {
		httperr.Errs(w, errs.Warnf("rounds must be between 1 and %d", sh.maxRounds))
		return
	}
	if req.Workers < 0 || req.Workers > sh.maxMP {
		httperr.Errs(w, errs.Warnf("workers must be between 0 and %d", sh.maxMP))
		return
	}
	workers := min(max(1, req.Workers), req.Rounds)

	if req.Seed == nil {
		rnd, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		if err != nil {
			httperr.Errs(w, errs.Wrap(err, "seed generate failed"))
			return
		}
		v := rnd.Int64()
		req.Seed = &v
	}

	sim, err := sh.lab.NewSimulatorWithSeed(*req.Seed)
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, "build simulator"))
		return
	}
	var resp dto.SimResult
	if workers == 1 {
		st, used, err := sim.Sim(req.Rounds, false)
		if err != nil {
			httperr.Errs(w, errs.Wrap(err, "simulate"))
			return
		}
		resp = dto.SimResult{Stats: st, UsedTime: used.Milliseconds()}
	} else {
		st, used, err := sim.SimMP(req.Rounds/workers, workers, false)
		if err != nil {
			httperr.Errs(w, errs.Wrap(err, "simulate"))
			return
		}
		resp = dto.SimResult{Stats: st, UsedTime: used.Milliseconds()}
	}
	writeJSON(w, http.StatusOK, resp)
}
