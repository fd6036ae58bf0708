package work

import (
	"context"
	"time"
)

/*
	协程池 + 时间轮定时器
*/

const defaultPoolSize = 256

// Work 协程池与定时器的组合, 定时回调在协程池中执行
type Work interface {
	Loop
	Scheduler
}

type workStore struct {
	loop  Loop
	timer Scheduler
}

// New 创建 Work, 需先 Start 协程池
func New(ctx context.Context, poolSize int, tick time.Duration) Work {
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	l := NewAntsLoop(poolSize)
	t := NewWheelScheduler(
		WithContext(ctx),
		WithExecutor(l),
		WithTick(tick),
	)
	return &workStore{loop: l, timer: t}
}

func (w *workStore) Start() error { return w.loop.Start() }

func (w *workStore) Stop() {
	w.timer.Stop()
	w.loop.Stop()
}

func (w *workStore) Stats() Stats { return w.loop.Stats() }

func (w *workStore) Post(job func()) { w.loop.Post(job) }

func (w *workStore) PostCtx(ctx context.Context, job func()) { w.loop.PostCtx(ctx, job) }

func (w *workStore) Len() int { return w.timer.Len() }

func (w *workStore) Running() int32 { return w.timer.Running() }

func (w *workStore) Once(delay time.Duration, f func()) int64 { return w.timer.Once(delay, f) }

func (w *workStore) Forever(interval time.Duration, f func()) int64 {
	return w.timer.Forever(interval, f)
}

func (w *workStore) Cancel(taskID int64) { w.timer.Cancel(taskID) }

func (w *workStore) CancelAll() { w.timer.CancelAll() }
