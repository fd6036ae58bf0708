package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yola1107/czech/internal/biz/room"
	"github.com/yola1107/czech/internal/data/migrations"
	_ "modernc.org/sqlite"
)

const migrationTable = "schema_migrations"

// SqliteStore 单文件 sqlite, 一个房间一行
type SqliteStore struct {
	db *sql.DB
}

var _ room.Store = (*SqliteStore)(nil)

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

// OpenSqlite 打开数据库并执行内嵌的建表脚本
func OpenSqlite(path string) (*SqliteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	clean := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(clean), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	dsn := clean + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SqliteStore{db: db}, nil
}

func applyMigrations(db *sql.DB, fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, name := range files {
		var found int
		err := db.QueryRow(`SELECT 1 FROM `+migrationTable+` WHERE name = ?`, name).Scan(&found)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", name, err)
		}
		if _, err := tx.Exec(upMigration(string(content))); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", name, err)
		}
		if _, err := tx.Exec(`INSERT INTO `+migrationTable+` (name, applied_at) VALUES (?, ?)`, name, toMillis(time.Now())); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}
	return nil
}

// upMigration 取 "-- +migrate Up" 与 "-- +migrate Down" 之间的语句
func upMigration(content string) string {
	const up, down = "-- +migrate Up", "-- +migrate Down"
	i := strings.Index(content, up)
	if i < 0 {
		return content
	}
	content = content[i+len(up):]
	if j := strings.Index(content, down); j >= 0 {
		content = content[:j]
	}
	return content
}

func (s *SqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save 只有更大的 seq 才会覆盖
func (s *SqliteStore) Save(ctx context.Context, snap *room.Snapshot) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rooms (room_id, seq, updated_at, data) VALUES (?, ?, ?, ?)
		 ON CONFLICT(room_id) DO UPDATE SET
		   seq = excluded.seq,
		   updated_at = excluded.updated_at,
		   data = excluded.data
		 WHERE excluded.seq > rooms.seq`,
		snap.RoomID, snap.Seq, toMillis(snap.UpdatedAt), snap.Data,
	)
	if err != nil {
		return fmt.Errorf("save room %s: %w", snap.RoomID, err)
	}
	return nil
}

func (s *SqliteStore) Load(ctx context.Context, roomID string) (*room.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT room_id, seq, updated_at, data FROM rooms WHERE room_id = ?`, roomID)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, room.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", roomID, err)
	}
	return snap, nil
}

func (s *SqliteStore) LoadAll(ctx context.Context) ([]*room.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT room_id, seq, updated_at, data FROM rooms ORDER BY updated_at`)
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}
	defer rows.Close()

	var out []*room.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}
	return out, nil
}

func (s *SqliteStore) Delete(ctx context.Context, roomID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE room_id = ?`, roomID); err != nil {
		return fmt.Errorf("delete room %s: %w", roomID, err)
	}
	return nil
}

func (s *SqliteStore) Prune(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE updated_at < ?`, toMillis(before))
	if err != nil {
		return 0, fmt.Errorf("prune rooms: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune rooms: %w", err)
	}
	return int(n), nil
}

func (s *SqliteStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rooms`); err != nil {
		return fmt.Errorf("delete rooms: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*room.Snapshot, error) {
	var (
		snap      room.Snapshot
		updatedAt int64
	)
	if err := row.Scan(&snap.RoomID, &snap.Seq, &updatedAt, &snap.Data); err != nil {
		return nil, err
	}
	snap.UpdatedAt = fromMillis(updatedAt)
	return &snap, nil
}
