package data

import (
	"context"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/yola1107/czech/internal/biz/room"
	"github.com/yola1107/czech/internal/conf"
	"github.com/yola1107/czech/library/xgo"
	"github.com/zhenjl/cityhash"
)

// op snap 为空表示删除
type op struct {
	roomID string
	snap   *room.Snapshot
}

// Writer 异步持久化: 按房间 id 分片, 同一房间的写入保持顺序; 入队从不阻塞
type Writer struct {
	store   room.Store
	metrics *Metrics
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	shards []chan op
	nShard uint32
	wg     sync.WaitGroup
}

var _ room.Persister = (*Writer)(nil)

func NewWriter(c *conf.Data, store room.Store, m *Metrics) (*Writer, func()) {
	w := &Writer{
		store:   store,
		metrics: m,
		timeout: c.Writer.Timeout.Std(),
		shards:  make([]chan op, c.Writer.Shards),
		nShard:  uint32(c.Writer.Shards),
	}
	if w.timeout <= 0 {
		w.timeout = 3 * time.Second
	}
	for i := range w.shards {
		w.shards[i] = make(chan op, c.Writer.QueueSize)
		w.wg.Add(1)
		go w.run(w.shards[i])
	}
	return w, w.Close
}

func (w *Writer) shard(roomID string) chan op {
	idx := cityhash.CityHash32([]byte(roomID), uint32(len(roomID))) % w.nShard
	return w.shards[idx]
}

func (w *Writer) Save(s *room.Snapshot) {
	w.enqueue(op{roomID: s.RoomID, snap: s}, "save")
}

func (w *Writer) Delete(roomID string) {
	w.enqueue(op{roomID: roomID}, "delete")
}

// Corrupt 无法恢复的快照: 计数后删除
func (w *Writer) Corrupt(roomID string, err error) {
	w.metrics.corrupt.Add(context.Background(), 1)
	log.Errorf("[writer] corrupt snapshot. room:%s err:%v", roomID, err)
	w.Delete(roomID)
}

func (w *Writer) enqueue(o op, name string) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		w.metrics.dropped.Add(context.Background(), 1, opAttr(name))
		log.Warnf("[writer] closed, %s dropped. room:%s", name, o.roomID)
		return
	}
	select {
	case w.shard(o.roomID) <- o:
	default:
		w.metrics.dropped.Add(context.Background(), 1, opAttr(name))
		log.Warnf("[writer] queue full, %s dropped. room:%s", name, o.roomID)
	}
}

func (w *Writer) run(ch <-chan op) {
	defer w.wg.Done()
	for o := range ch {
		w.apply(o)
	}
}

func (w *Writer) apply(o op) {
	defer xgo.Recover("writer.apply", func(any) {
		w.metrics.failures.Add(context.Background(), 1, opAttr("panic"))
	})

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if o.snap == nil {
		if err := w.store.Delete(ctx, o.roomID); err != nil {
			w.metrics.failures.Add(ctx, 1, opAttr("delete"))
			log.Errorf("[writer] delete failed. room:%s err:%v", o.roomID, err)
		}
		return
	}
	if err := w.store.Save(ctx, o.snap); err != nil {
		w.metrics.failures.Add(ctx, 1, opAttr("save"))
		log.Errorf("[writer] save failed. room:%s seq:%d err:%v", o.roomID, o.snap.Seq, err)
		return
	}
	w.metrics.saved.Add(ctx, 1)
}

// Close 停止入队并写完已排队的快照
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	for _, ch := range w.shards {
		close(ch)
	}
	w.mu.Unlock()

	w.wg.Wait()
	log.Info("[writer] closed")
}
