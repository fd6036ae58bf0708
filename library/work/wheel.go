package work

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RussellLuo/timingwheel"
	"github.com/go-kratos/kratos/v2/log"
)

const (
	defaultWheelTick = 100 * time.Millisecond
	wheelSize        = 128
	stopWait         = 3 * time.Second
)

type WheelOption func(*wheel)

func WithTick(d time.Duration) WheelOption {
	return func(w *wheel) {
		if d > 0 {
			w.tick = d
		}
	}
}

// WithContext ctx 结束时调度器自动停止
func WithContext(ctx context.Context) WheelOption {
	return func(w *wheel) { w.ctx = ctx }
}

func WithExecutor(exec Executor) WheelOption {
	return func(w *wheel) { w.exec = exec }
}

// wheel 基于时间轮的 Scheduler.
// 周期任务每次触发后按上次的计划时间重新挂载, 不累积误差; 落后超过一个周期时跳过错过的轮次.
type wheel struct {
	tick time.Duration
	ctx  context.Context
	exec Executor
	tw   *timingwheel.TimingWheel

	mu      sync.Mutex
	entries map[int64]*entry
	seq     int64
	closed  bool

	running  atomic.Int32
	inflight sync.WaitGroup
	stopOnce sync.Once
}

type entry struct {
	id       int64
	every    time.Duration // 0 为一次性任务
	due      time.Time
	f        func()
	timer    *timingwheel.Timer
	canceled atomic.Bool
}

// NewWheelScheduler 回调交给 executor 执行
func NewWheelScheduler(opts ...WheelOption) Scheduler {
	w := &wheel{
		tick:    defaultWheelTick,
		ctx:     context.Background(),
		entries: make(map[int64]*entry),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.tw = timingwheel.NewTimingWheel(w.tick, wheelSize)
	w.tw.Start()
	if done := w.ctx.Done(); done != nil {
		go func() {
			<-done
			w.Stop()
		}()
	}
	return w
}

func (w *wheel) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

func (w *wheel) Running() int32 { return w.running.Load() }

func (w *wheel) Once(delay time.Duration, f func()) int64 { return w.add(delay, 0, f) }

func (w *wheel) Forever(interval time.Duration, f func()) int64 {
	if interval <= 0 {
		interval = w.tick
	}
	return w.add(interval, interval, f)
}

func (w *wheel) add(delay, every time.Duration, f func()) int64 {
	if delay <= 0 {
		delay = w.tick
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		log.Warn("[wheel] stopped, task rejected")
		return -1
	}
	w.seq++
	e := &entry{id: w.seq, every: every, due: time.Now().Add(delay), f: f}
	w.entries[e.id] = e
	w.arm(e)
	return e.id
}

// arm 持有 mu 时调用
func (w *wheel) arm(e *entry) {
	e.timer = w.tw.AfterFunc(time.Until(e.due), func() { w.fire(e) })
}

func (w *wheel) fire(e *entry) {
	w.mu.Lock()
	if w.closed || e.canceled.Load() || w.entries[e.id] != e {
		w.mu.Unlock()
		return
	}
	if e.every > 0 {
		e.due = e.due.Add(e.every)
		if behind := time.Since(e.due); behind > 0 {
			e.due = e.due.Add((behind/e.every + 1) * e.every)
		}
		w.arm(e)
	}
	w.inflight.Add(1)
	w.mu.Unlock()

	w.running.Add(1)
	ExecuteAsync(w.exec, func() {
		defer func() {
			if e.every == 0 {
				w.remove(e)
			}
			w.running.Add(-1)
			w.inflight.Done()
		}()
		if !e.canceled.Load() {
			e.f()
		}
	})
}

func (w *wheel) remove(e *entry) {
	w.mu.Lock()
	if w.entries[e.id] == e {
		delete(w.entries, e.id)
	}
	w.mu.Unlock()
}

// Cancel 可以在回调里调用
func (w *wheel) Cancel(taskID int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e, ok := w.entries[taskID]; ok {
		delete(w.entries, taskID)
		w.drop(e)
	}
}

func (w *wheel) CancelAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, e := range w.entries {
		delete(w.entries, id)
		w.drop(e)
	}
}

func (w *wheel) drop(e *entry) {
	e.canceled.Store(true)
	if e.timer != nil {
		e.timer.Stop()
	}
}

// Stop 等待执行中的回调, 最多 stopWait
func (w *wheel) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()
		w.CancelAll()
		w.tw.Stop()

		done := make(chan struct{})
		go func() {
			w.inflight.Wait()
			close(done)
		}()
		select {
		case <-done:
			log.Info("[wheel] stopped")
		case <-time.After(stopWait):
			log.Warnf("[wheel] stop: callbacks still running after %v", stopWait)
		}
	})
}
