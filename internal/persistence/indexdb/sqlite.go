// Package indexdb keeps a sqlite read-model of the update stream: one row
// per committed state plus snapshot bookkeeping. It is append-only and off
// the inference hot path; writes are batched by a single writer goroutine
// and dropped (never blocked on) when the indexer falls behind.
package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"mentalworld.ai/internal/mind/model"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqUpdate reqKind = iota + 1
	reqSnapshot
)

type req struct {
	kind     reqKind
	update   UpdateRow
	snapshot snapshotRow
}

// UpdateRow is the indexed projection of one committed state: the affect
// scalars and headline world/self estimates downstream analysis queries,
// plus the serialized state for everything else.
type UpdateRow struct {
	AgentID     string
	Tick        uint64
	UpdateCount uint64
	Threat      float64
	Curiosity   float64
	Value       float64
	Surprise    float64
	WorldThreat float64
	SelfHealth  float64
	RawJSON     string
}

type snapshotRow struct {
	Path        string
	SavedUnixMs int64
	Agents      int
	LatentDim   int
}

// RowFromState projects a committed state into an UpdateRow.
func RowFromState(agentID string, tick uint64, st *model.State) UpdateRow {
	b, _ := json.Marshal(st)
	return UpdateRow{
		AgentID:     agentID,
		Tick:        tick,
		UpdateCount: st.UpdateCount,
		Threat:      st.Affect.Threat,
		Curiosity:   st.Affect.Curiosity,
		Value:       st.Affect.Value,
		Surprise:    st.Affect.Surprise,
		WorldThreat: st.World.ThreatLevel,
		SelfHealth:  st.Self.Health,
		RawJSON:     string(b),
	}
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads; NORMAL durability is
	// acceptable for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS updates (
			agent_id TEXT NOT NULL,
			update_count INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			threat REAL NOT NULL,
			curiosity REAL NOT NULL,
			value REAL NOT NULL,
			surprise REAL NOT NULL,
			world_threat REAL NOT NULL,
			self_health REAL NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (agent_id, update_count)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_updates_tick ON updates(tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			path TEXT PRIMARY KEY,
			saved_unix_ms INTEGER NOT NULL,
			agents INTEGER NOT NULL,
			latent_dim INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	if _, err := db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) WriteUpdate(row UpdateRow) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqUpdate, update: row}:
	default:
		// Drop if the indexer falls behind; the JSONL log remains the
		// source of truth.
	}
}

func (s *SQLiteIndex) RecordSnapshot(path string, agents, latentDim int) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Path:        path,
		SavedUnixMs: time.Now().UnixMilli(),
		Agents:      agents,
		LatentDim:   latentDim,
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
	}
}

// CountUpdates reports how many update rows an agent has. Used by offline
// tooling and tests; it waits out any in-flight batch by the caller first
// closing or flushing via Close.
func (s *SQLiteIndex) CountUpdates(agentID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM updates WHERE agent_id = ?`, agentID).Scan(&n)
	return n, err
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertUpdate, _ := s.db.Prepare(`INSERT OR REPLACE INTO updates(agent_id,update_count,tick,threat,curiosity,value,surprise,world_threat,self_health,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(path,saved_unix_ms,agents,latent_dim) VALUES(?,?,?,?)`)
	defer func() {
		if insertUpdate != nil {
			_ = insertUpdate.Close()
		}
		if insertSnapshot != nil {
			_ = insertSnapshot.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqUpdate:
			if insertUpdate == nil {
				continue
			}
			u := r.update
			if _, err := tx.Stmt(insertUpdate).Exec(
				u.AgentID,
				int64(u.UpdateCount),
				int64(u.Tick),
				u.Threat,
				u.Curiosity,
				u.Value,
				u.Surprise,
				u.WorldThreat,
				u.SelfHealth,
				u.RawJSON,
			); err != nil {
				rollback()
				continue
			}
			opCount++
		case reqSnapshot:
			if insertSnapshot == nil {
				continue
			}
			sr := r.snapshot
			if _, err := tx.Stmt(insertSnapshot).Exec(sr.Path, sr.SavedUnixMs, sr.Agents, sr.LatentDim); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
	commit()
}
