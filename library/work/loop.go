package work

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/panjf2000/ants/v2"

	"github.com/yola1107/czech/library/xgo"
)

// Stats 协程池快照
type Stats struct {
	Cap      int   `json:"cap"`
	Running  int   `json:"running"`
	Overflow int64 `json:"overflow"` // 池满或未启动, 改为直接起协程的任务数
	Panics   int64 `json:"panics"`
}

// Loop 任务执行器. 房间回调、机器人出牌、大厅广播都投递到这里,
// 调用方不能被阻塞, 所以池满时任务改为直接起协程执行.
type Loop interface {
	Start() error
	Stop()
	Stats() Stats
	Post(job func())
	PostCtx(ctx context.Context, job func())
}

type pool struct {
	mu       sync.RWMutex
	p        *ants.Pool
	size     int
	expiry   time.Duration
	overflow atomic.Int64
	panics   atomic.Int64
}

// NewAntsLoop 创建非阻塞协程池, 需先 Start
func NewAntsLoop(size int) Loop {
	return &pool{size: size, expiry: time.Minute}
}

func (l *pool) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.p != nil {
		return nil
	}
	p, err := ants.NewPool(l.size,
		ants.WithNonblocking(true),
		ants.WithExpiryDuration(l.expiry),
		ants.WithPanicHandler(l.onPanic),
	)
	if err != nil {
		return fmt.Errorf("work: create pool(size=%d): %w", l.size, err)
	}
	l.p = p
	log.Infof("[work] pool started. size=%d", l.size)
	return nil
}

func (l *pool) Stop() {
	l.mu.Lock()
	p := l.p
	l.p = nil
	l.mu.Unlock()
	if p == nil {
		return
	}
	log.Infof("[work] pool stopping. running=%d overflow=%d panics=%d",
		p.Running(), l.overflow.Load(), l.panics.Load())
	p.Release()
}

func (l *pool) Stats() Stats {
	s := Stats{Overflow: l.overflow.Load(), Panics: l.panics.Load()}
	l.mu.RLock()
	if l.p != nil {
		s.Cap, s.Running = l.p.Cap(), l.p.Running()
	}
	l.mu.RUnlock()
	return s
}

func (l *pool) Post(job func()) { l.PostCtx(context.Background(), job) }

// PostCtx ctx 已取消的任务直接丢弃; 执行前再检查一次
func (l *pool) PostCtx(ctx context.Context, job func()) {
	if ctx.Err() != nil {
		return
	}
	run := func() {
		if ctx.Err() == nil {
			job()
		}
	}

	l.mu.RLock()
	p := l.p
	l.mu.RUnlock()
	if p != nil {
		if err := p.Submit(run); err == nil {
			return
		}
	}
	n := l.overflow.Add(1)
	if n&(n-1) == 0 {
		log.Warnf("[work] pool unavailable, job runs on its own goroutine. overflow=%d", n)
	}
	go func() {
		defer xgo.Recover("work.overflow", func(any) { l.panics.Add(1) })
		run()
	}()
}

func (l *pool) onPanic(e any) {
	l.panics.Add(1)
	xgo.LogPanic("work.pool", e)
}
