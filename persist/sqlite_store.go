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
	"database/sql"

	"github.com/zintix-labs/wheellab/errs"
	_ "modernc.org/sqlite"
)

const (
	keyRemaining = "remaining"
	keyHistory   = "history"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS wheel_kv (
	wheel TEXT NOT NULL,
	key   TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (wheel, key)
);`

// SQLiteStore 把紀錄存成 SQLite key-value 表（純 Go driver，不需 cgo）。
// 同一個資料庫可以放多個轉盤，以 wheel 欄位區分。
type SQLiteStore struct {
	db    *sql.DB
	wheel string
}

// OpenSQLite 開啟（或建立）dsn 指向的資料庫並確保 schema 存在。
// dsn 例："file:wheel.db" 或 "file::memory:?cache=shared"。
func OpenSQLite(ctx context.Context, dsn string, wheel string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errs.Wrap(err, "open sqlite")
	}
	// SQLite 單寫者。
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, errs.Wrap(err, "create sqlite schema")
	}
	if wheel == "" {
		wheel = "default"
	}
	return &SQLiteStore{db: db, wheel: wheel}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context) (Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM wheel_kv WHERE wheel = ?`, s.wheel)
	if err != nil {
		return Snapshot{}, errs.Wrap(err, "query sync record")
	}
	defer rows.Close()

	var rec Record
	found := false
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Snapshot{}, errs.Wrap(err, "scan sync record")
		}
		found = true
		switch k {
		case keyRemaining:
			rec.Remaining = &v
		case keyHistory:
			rec.History = &v
		}
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, errs.Wrap(err, "iterate sync record")
	}
	if !found {
		return Snapshot{}, ErrNotFound
	}
	return rec.Decode()
}

func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(err, "begin sync tx")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const upsert = `INSERT INTO wheel_kv (wheel, key, value) VALUES (?, ?, ?)
		ON CONFLICT (wheel, key) DO UPDATE SET value = excluded.value`
	rec := Encode(snap)
	if _, err = tx.ExecContext(ctx, upsert, s.wheel, keyRemaining, *rec.Remaining); err != nil {
		return errs.Wrap(err, "upsert remaining")
	}
	if _, err = tx.ExecContext(ctx, upsert, s.wheel, keyHistory, *rec.History); err != nil {
		return errs.Wrap(err, "upsert history")
	}
	if err = tx.Commit(); err != nil {
		return errs.Wrap(err, "commit sync tx")
	}
	return nil
}
