package room

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	v1 "github.com/yola1107/czech/api/czech/v1"
)

func TestRegistry_CreateJoinList(t *testing.T) {
	env := newTestEnv(t)

	r1, _, err := env.reg.Create("Ann", false, 52, newSession("s1"))
	require.NoError(t, err)
	assert.Len(t, r1.ID, roomIDLen)
	_, _, err = env.reg.Create("Pia", true, 52, newSession("s2"))
	require.NoError(t, err)
	r3, _, err := env.reg.Create("Cid", false, 36, newSession("s3"))
	require.NoError(t, err)

	list := env.reg.ListOpen()
	require.Len(t, list, 2)
	ids := []string{list[0].ID, list[1].ID}
	assert.ElementsMatch(t, []string{r1.ID, r3.ID}, ids)

	for i := 0; i < 3; i++ {
		_, _, err := env.reg.Join(r1.ID, "P", newSession("j"))
		require.NoError(t, err)
	}
	_, _, err = env.reg.Join(r1.ID, "Eve", newSession("j5"))
	assert.True(t, errors.Is(err, v1.ErrRoomFull))
	_, _, err = env.reg.Join("NOPE00", "Eve", newSession("j6"))
	assert.True(t, errors.Is(err, v1.ErrRoomNotFound))

	// 满员后不在大厅显示
	list = env.reg.ListOpen()
	require.Len(t, list, 1)
	assert.Equal(t, r3.ID, list[0].ID)
	assert.Equal(t, 36, list[0].DeckSize)
	assert.Equal(t, []string{"Cid"}, list[0].Players)
	assert.Equal(t, 3, env.reg.Len())
}

func TestRegistry_StartReload(t *testing.T) {
	src := newTestEnv(t)
	r, _, _, ann, _ := src.startPair(t)
	snap := src.store.get(r.ID)
	require.NotNil(t, snap)

	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.Save(ctx, snap))
	expired := &Snapshot{RoomID: "OLD111", Seq: 1, UpdatedAt: time.Now().Add(-48 * time.Hour), Data: snap.Data}
	require.NoError(t, env.store.Save(ctx, expired))

	require.NoError(t, env.reg.Start(ctx))
	t.Cleanup(func() { _ = env.reg.Stop(ctx) })

	assert.Nil(t, env.store.get("OLD111"))
	got := env.reg.Get(r.ID)
	require.NotNil(t, got)

	// 重载后的真人宽限到期转托管, 由 AI 打完这局
	require.Eventually(t, func() bool { return got.phase() != PhPlaying }, 20*time.Second, 20*time.Millisecond)
	got.mu.Lock()
	if p := got.getPlayer(ann); p != nil {
		assert.True(t, p.IsAutopilot())
	}
	got.mu.Unlock()
}

func TestRegistry_StartClearRooms(t *testing.T) {
	src := newTestEnv(t)
	r, _, _, _, _ := src.startPair(t)

	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.Save(ctx, src.store.get(r.ID)))
	env.data.ClearRooms = true

	require.NoError(t, env.reg.Start(ctx))
	t.Cleanup(func() { _ = env.reg.Stop(ctx) })
	assert.Nil(t, env.store.get(r.ID))
	assert.Zero(t, env.reg.Len())
}

func TestRegistry_Load(t *testing.T) {
	src := newTestEnv(t)
	r, _, _, _, _ := src.startPair(t)

	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.Save(ctx, src.store.get(r.ID)))

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		got = make(map[*Room]struct{})
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			room, err := env.reg.Load(ctx, r.ID)
			assert.NoError(t, err)
			mu.Lock()
			got[room] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, got, 1)
	assert.Equal(t, 1, env.reg.Len())

	_, err := env.reg.Load(ctx, "NOPE00")
	assert.True(t, errors.Is(err, v1.ErrRoomNotFound))

	bad := &Snapshot{RoomID: "BAD111", Seq: 1, UpdatedAt: time.Now(), Data: []byte("{}")}
	require.NoError(t, env.store.Save(ctx, bad))
	_, err = env.reg.Load(ctx, "BAD111")
	assert.True(t, errors.Is(err, v1.ErrRoomNotFound))
	assert.Contains(t, env.writer.corrupt, "BAD111")
	assert.Nil(t, env.store.get("BAD111"))
}

func TestRegistry_Sweep(t *testing.T) {
	env := newTestEnv(t)
	idle, _, err := env.reg.Create("Ann", false, 52, newSession("s1"))
	require.NoError(t, err)
	live, _, err := env.reg.Create("Bob", false, 52, newSession("s2"))
	require.NoError(t, err)

	idle.mu.Lock()
	idle.updatedAt = time.Now().Add(-48 * time.Hour)
	idle.publish()
	idle.mu.Unlock()

	env.reg.sweep()
	assert.Nil(t, env.reg.Get(idle.ID))
	assert.NotNil(t, env.reg.Get(live.ID))
	assert.True(t, env.writer.wasDeleted(idle.ID))
}
