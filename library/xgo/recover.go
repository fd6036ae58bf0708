package xgo

import (
	"runtime/debug"

	"github.com/go-kratos/kratos/v2/log"
)

// Recover 必须直接 defer 调用. where 标出崩溃位置, cb 可为 nil
func Recover(where string, cb func(e any)) {
	e := recover()
	if e == nil {
		return
	}
	LogPanic(where, e)
	if cb != nil {
		cb(e)
	}
}

// LogPanic 记录 panic 和调用栈
func LogPanic(where string, e any) {
	log.Errorw("msg", "panic recovered", "where", where, "panic", e, "stack", string(debug.Stack()))
}
