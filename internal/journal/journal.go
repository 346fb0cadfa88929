// Package journal 把市场事件落到 SQLite，供 /api/events 查询回放。
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/amzilayoub/nft-marketplace/internal/events"
	"github.com/amzilayoub/nft-marketplace/pkg/logger"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Record 一条已落库的事件
type Record struct {
	ID         string          `json:"id"`
	Kind       events.Kind     `json:"kind"`
	Collection string          `json:"collection,omitempty"`
	TokenID    string          `json:"token_id,omitempty"`
	Party      string          `json:"party"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Query 查询条件，零值字段不参与过滤
type Query struct {
	Kind       events.Kind
	Collection string
	TokenID    string
	Party      string
	Limit      int
}

// Journal 事件日志，实现 events.Handler
type Journal struct {
	db *sql.DB
}

// Open 打开（或创建）日志库；path 为 ":memory:" 时使用内存库
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, errors.New("journal path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "mkdir journal dir")
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	db.SetMaxOpenConns(1) // SQLite：单连接更稳定，也保证 :memory: 只有一份
	db.SetMaxIdleConns(1)

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

func (j *Journal) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`
CREATE TABLE IF NOT EXISTS market_events (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  kind TEXT NOT NULL,
  collection TEXT,
  token_id TEXT,
  party TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_market_events_kind ON market_events(kind, seq DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_market_events_asset ON market_events(collection, token_id, seq DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_market_events_party ON market_events(party, seq DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := j.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "migrate: %s", firstLine(stmt))
		}
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Append 写入一条事件
func (j *Journal) Append(ctx context.Context, env events.Envelope) error {
	payload, err := json.Marshal(env.Event)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	var collection, tokenID sql.NullString
	if c, id, ok := events.Subject(env.Event); ok {
		collection = sql.NullString{String: strings.ToLower(c.Hex()), Valid: true}
		tokenID = sql.NullString{String: id.String(), Valid: true}
	}
	_, err = j.db.ExecContext(ctx, `
INSERT INTO market_events (id, kind, collection, token_id, party, payload, created_at)
VALUES (?,?,?,?,?,?,?)
`, env.ID, string(env.Kind), collection, tokenID, strings.ToLower(events.Party(env.Event).Hex()),
		string(payload), env.At.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return errors.Wrap(err, "insert event")
	}
	return nil
}

// HandleEvent 订阅总线用；写库失败只记日志，不影响市场操作
func (j *Journal) HandleEvent(ctx context.Context, env events.Envelope) {
	// 请求结束后 ctx 可能已取消，写库用独立超时
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := j.Append(wctx, env); err != nil {
		logger.WithField("event_id", env.ID).WithError(err).Error("[journal] append failed")
	}
}

// List 按插入顺序倒序返回最近的事件
func (j *Journal) List(ctx context.Context, q Query) ([]Record, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	var (
		where []string
		args  []any
	)
	if q.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(q.Kind))
	}
	if q.Collection != "" {
		where = append(where, "collection = ?")
		args = append(args, strings.ToLower(q.Collection))
	}
	if q.TokenID != "" {
		where = append(where, "token_id = ?")
		args = append(args, q.TokenID)
	}
	if q.Party != "" {
		where = append(where, "party = ?")
		args = append(args, strings.ToLower(q.Party))
	}

	query := `SELECT id, kind, collection, token_id, party, payload, created_at FROM market_events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq DESC LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query events")
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var (
			r          Record
			kind       string
			collection sql.NullString
			tokenID    sql.NullString
			payload    string
			createdAt  string
		)
		if err := rows.Scan(&r.ID, &kind, &collection, &tokenID, &r.Party, &payload, &createdAt); err != nil {
			return nil, errors.Wrap(err, "scan event")
		}
		r.Kind = events.Kind(kind)
		r.Collection = collection.String
		r.TokenID = tokenID.String
		r.Payload = json.RawMessage(payload)
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count 事件总数
func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM market_events`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count events")
	}
	return n, nil
}
