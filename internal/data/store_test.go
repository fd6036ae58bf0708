package data

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yola1107/czech/internal/biz/room"
)

func snap(id string, seq int64, at time.Time) *room.Snapshot {
	return &room.Snapshot{RoomID: id, Seq: seq, UpdatedAt: at.Truncate(time.Millisecond), Data: []byte(`{"id":"` + id + `"}`)}
}

func testStores(t *testing.T) map[string]room.Store {
	t.Helper()
	stores := map[string]room.Store{"memory": NewMemoryStore()}

	sq, err := OpenSqlite(filepath.Join(t.TempDir(), "czech.db"))
	require.NoError(t, err)
	stores["sqlite"] = sq

	if addr := os.Getenv("CZECH_TEST_REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		prefix := "czech_test:" + time.Now().Format("150405.000000") + ":"
		stores["redis"] = NewRedisStore(rdb, prefix)
	}
	for _, s := range stores {
		s := s
		t.Cleanup(func() {
			_ = s.DeleteAll(context.Background())
			_ = s.Close()
		})
	}
	return stores
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Load(ctx, "NOPE00")
			assert.ErrorIs(t, err, room.ErrSnapshotNotFound)

			require.NoError(t, s.Save(ctx, snap("AAAAAA", 2, now)))
			// 旧的 seq 不覆盖
			old := snap("AAAAAA", 1, now)
			old.Data = []byte(`{"old":true}`)
			require.NoError(t, s.Save(ctx, old))
			got, err := s.Load(ctx, "AAAAAA")
			require.NoError(t, err)
			assert.Equal(t, int64(2), got.Seq)
			assert.JSONEq(t, `{"id":"AAAAAA"}`, string(got.Data))
			assert.True(t, got.UpdatedAt.Equal(now.Truncate(time.Millisecond)))

			require.NoError(t, s.Save(ctx, snap("AAAAAA", 3, now)))
			got, err = s.Load(ctx, "AAAAAA")
			require.NoError(t, err)
			assert.Equal(t, int64(3), got.Seq)

			require.NoError(t, s.Save(ctx, snap("BBBBBB", 1, now.Add(-48*time.Hour))))
			require.NoError(t, s.Save(ctx, snap("CCCCCC", 1, now.Add(-time.Minute))))
			all, err := s.LoadAll(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 3)

			n, err := s.Prune(ctx, now.Add(-24*time.Hour))
			require.NoError(t, err)
			assert.Equal(t, 1, n)
			_, err = s.Load(ctx, "BBBBBB")
			assert.ErrorIs(t, err, room.ErrSnapshotNotFound)

			require.NoError(t, s.Delete(ctx, "CCCCCC"))
			require.NoError(t, s.Delete(ctx, "CCCCCC"))
			all, err = s.LoadAll(ctx)
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.Equal(t, "AAAAAA", all[0].RoomID)

			require.NoError(t, s.DeleteAll(ctx))
			all, err = s.LoadAll(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestSqlite_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "czech.db")

	s, err := OpenSqlite(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, snap("AAAAAA", 7, time.Now())))
	require.NoError(t, s.Close())

	// 再次打开不会重复建表
	s, err = OpenSqlite(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Load(ctx, "AAAAAA")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.Seq)
}

func TestUpMigration(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CREATE TABLE a (x INT);", "CREATE TABLE a (x INT);"},
		{"-- +migrate Up\nCREATE TABLE a (x INT);\n-- +migrate Down\nDROP TABLE a;", "\nCREATE TABLE a (x INT);\n"},
		{"-- +migrate Up\nCREATE TABLE a (x INT);", "\nCREATE TABLE a (x INT);"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, upMigration(tt.in))
	}
}
