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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/zintix-labs/wheellab/errs"
)

// FileStore 把紀錄以 zstd 壓縮的 JSON 存在本機檔案（例如 wheel.json.zst）。
// 寫入先落到同目錄暫存檔再 rename，讀端不會看到半寫的檔案。
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Load(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	compressed, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, errs.Wrap(err, "read sync file")
	}

	zr, err := zstd.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return Snapshot{}, errs.Wrap(err, "create zstd reader failed")
	}
	defer zr.Close()

	jsonBytes, err := io.ReadAll(io.LimitReader(zr, maxRecordBytes))
	if err != nil {
		return Snapshot{}, errs.Wrap(err, "read decompressed data failed")
	}

	var rec Record
	if err := json.Unmarshal(jsonBytes, &rec); err != nil {
		return Snapshot{}, errs.Wrap(err, "unmarshal sync record failed")
	}
	return rec.Decode()
}

func (f *FileStore) Save(ctx context.Context, s Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	jsonBytes, err := json.Marshal(Encode(s))
	if err != nil {
		return errs.Wrap(err, "save: marshal sync record")
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(err, "save: mkdir sync dir")
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return errs.Wrap(err, "save: create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	zw, err := zstd.NewWriter(tmp)
	if err != nil {
		_ = tmp.Close()
		return errs.Wrap(err, "save: create zstd writer")
	}
	if _, err := zw.Write(jsonBytes); err != nil {
		_ = zw.Close()
		_ = tmp.Close()
		return errs.Wrap(err, "save: write sync file")
	}
	if err := zw.Close(); err != nil {
		_ = tmp.Close()
		return errs.Wrap(err, "save: close zstd writer")
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(err, "save: close temp file")
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return errs.Wrap(err, "save: rename sync file")
	}
	return nil
}
