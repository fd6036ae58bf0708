package work

import (
	"time"

	"github.com/yola1107/czech/library/xgo"
)

// Scheduler 定时任务. 任务ID从1开始, 调度器停止后注册返回 -1
type Scheduler interface {
	Len() int
	Running() int32
	Once(delay time.Duration, f func()) int64
	Forever(interval time.Duration, f func()) int64
	Cancel(taskID int64)
	CancelAll()
	Stop()
}

// Executor 定时回调的执行者, 一般是协程池
type Executor interface {
	Post(job func())
}

// ExecuteAsync 没有执行器时直接起协程
func ExecuteAsync(executor Executor, f func()) {
	run := func() {
		defer xgo.Recover("work.timer", nil)
		f()
	}
	if executor != nil {
		executor.Post(run)
		return
	}
	go run()
}
