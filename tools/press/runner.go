package press

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/yola1107/czech/library/work"
)

type Runner struct {
	conf *Bootstrap

	work   work.Work // 任务循环 + 定时任务
	ctx    context.Context
	cancel context.CancelFunc

	users   sync.Map // id -> *User
	count   atomic.Int32
	spawnID int64
}

func NewRunner(conf *Bootstrap) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		conf:   conf,
		work:   work.New(ctx, 100, 50*time.Millisecond),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (r *Runner) GetLoop() work.Loop          { return r.work }
func (r *Runner) GetTimer() work.Scheduler    { return r.work }
func (r *Runner) GetContext() context.Context { return r.ctx }
func (r *Runner) GetConfig() Press            { return r.conf.Press }

func (r *Runner) Start() error {
	if err := r.work.Start(); err != nil {
		return err
	}
	interval := time.Duration(r.conf.Press.Interval) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	r.spawnID = r.work.Forever(interval, r.spawn)
	log.Infof("start press runner. %v", r.conf.Press)
	return nil
}

// spawn 每批上线 batch 个用户, 直到 num
func (r *Runner) spawn() {
	c := r.GetConfig()
	if !c.Open {
		return
	}
	for i := int32(0); i < c.Batch; i++ {
		if r.count.Load() >= c.Num {
			return
		}
		id := r.count.Add(1)
		r.users.Store(id, NewUser(id, r))
	}
}

func (r *Runner) Online() int {
	n := 0
	r.users.Range(func(_, v any) bool {
		if v.(*User).Alive() {
			n++
		}
		return true
	})
	return n
}

func (r *Runner) Stop() {
	r.work.Cancel(r.spawnID)
	r.users.Range(func(_, v any) bool {
		v.(*User).Release()
		return true
	})
	r.cancel()
	r.work.Stop()
	log.Infof("stop success. users=%d", r.count.Load())
}
